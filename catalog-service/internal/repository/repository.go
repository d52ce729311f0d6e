package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrCanteenNotFound  = errors.New("canteen not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
)

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	ListCanteens(ctx context.Context) ([]*domain.Canteen, error)
	GetCanteen(ctx context.Context, id string) (*domain.Canteen, error)
	SetCanteenOpen(ctx context.Context, id string, open bool) error
	ListMenu(ctx context.Context, canteenID string, availableOnly bool) ([]*domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error
	Close() error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time, and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const canteenColumns = `id, name, description, location, phone, image_url, owner_id, is_open, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCanteen(s scanner) (*domain.Canteen, error) {
	c := &domain.Canteen{}
	err := s.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Location,
		&c.Phone,
		&c.ImageURL,
		&c.OwnerID,
		&c.IsOpen,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) ListCanteens(ctx context.Context) ([]*domain.Canteen, error) {
	query := `SELECT ` + canteenColumns + ` FROM canteens ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query canteens: %w", err)
	}
	defer rows.Close()

	var canteens []*domain.Canteen
	for rows.Next() {
		c, err := scanCanteen(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan canteen: %w", err)
		}
		canteens = append(canteens, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return canteens, nil
}

func (r *Repository) GetCanteen(ctx context.Context, id string) (*domain.Canteen, error) {
	query := `SELECT ` + canteenColumns + ` FROM canteens WHERE id = $1`

	c, err := scanCanteen(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCanteenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query canteen: %w", err)
	}
	return c, nil
}

func (r *Repository) SetCanteenOpen(ctx context.Context, id string, open bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE canteens SET is_open = $1 WHERE id = $2`, open, id)
	if err != nil {
		return fmt.Errorf("failed to update canteen: %w", err)
	}
	return expectRow(res, ErrCanteenNotFound)
}

const menuItemColumns = `m.id, m.canteen_id, c.name, c.is_open, m.name, m.description, m.price, m.category,
	m.is_available, m.image_url, m.created_at, m.updated_at`

func scanMenuItem(s scanner) (*domain.MenuItem, error) {
	m := &domain.MenuItem{}
	err := s.Scan(
		&m.ID,
		&m.CanteenID,
		&m.CanteenName,
		&m.CanteenOpen,
		&m.Name,
		&m.Description,
		&m.Price,
		&m.Category,
		&m.IsAvailable,
		&m.ImageURL,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMenu returns a canteen's items grouped by category.
func (r *Repository) ListMenu(ctx context.Context, canteenID string, availableOnly bool) ([]*domain.MenuItem, error) {
	query := `
		SELECT ` + menuItemColumns + `
		FROM menu_items m
		JOIN canteens c ON c.id = m.canteen_id
		WHERE m.canteen_id = $1 AND ($2 = 0 OR m.is_available = 1)
		ORDER BY m.category, m.name
	`

	rows, err := r.db.QueryContext(ctx, query, canteenID, availableOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu: %w", err)
	}
	defer rows.Close()

	var items []*domain.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func (r *Repository) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	query := `
		SELECT ` + menuItemColumns + `
		FROM menu_items m
		JOIN canteens c ON c.id = m.canteen_id
		WHERE m.id = $1
	`

	m, err := scanMenuItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMenuItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu item: %w", err)
	}
	return m, nil
}

// CreateMenuItem assigns the ID and timestamps before inserting.
func (r *Repository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, canteen_id, name, description, price, category, is_available, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.CanteenID, item.Name, item.Description, item.Price,
		item.Category, item.IsAvailable, item.ImageURL, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

func (r *Repository) UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	item.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE menu_items
		SET name = $1, description = $2, price = $3, category = $4, is_available = $5, image_url = $6, updated_at = $7
		WHERE id = $8`,
		item.Name, item.Description, item.Price, item.Category,
		item.IsAvailable, item.ImageURL, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	return expectRow(res, ErrMenuItemNotFound)
}

func (r *Repository) DeleteMenuItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	return expectRow(res, ErrMenuItemNotFound)
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
