package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/pkg/events"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderColumns = `id, user_id, seller_id, status, total_amount, delivery_fee, special_instructions,
	idempotency_key, estimated_delivery_time, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.SellerID,
		order.Status,
		order.TotalAmount,
		order.DeliveryFee,
		order.SpecialInstructions,
		order.IdempotencyKey,
		order.EstimatedDeliveryTime,
		order.CreatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	itemQuery := `INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, special_notes)
	              VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRowContext(ctx, itemQuery,
			order.ID,
			item.MenuItemID,
			item.Quantity,
			item.UnitPrice,
			item.SpecialNotes,
		).Scan(&item.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := insertOutboxEvent(ctx, tx, orderEvent(events.OrderCreated, order, "")); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND idempotency_key = $2`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, userID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string, scope domain.Scope) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1`
	switch scope {
	case domain.ScopeActive:
		query += ` AND status NOT IN ('completed', 'cancelled') ORDER BY created_at DESC`
	case domain.ScopeHistory:
		query += fmt.Sprintf(` AND status IN ('completed', 'cancelled') ORDER BY created_at DESC LIMIT %d`, domain.HistoryLimit)
	default:
		query += ` ORDER BY created_at DESC`
	}

	return r.listOrders(ctx, query, userID)
}

func (r *Repository) ListOrdersBySellerID(ctx context.Context, sellerID string, status *domain.OrderStatus) ([]*domain.Order, error) {
	if status != nil {
		query := `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = $1 AND status = $2 ORDER BY created_at DESC`
		return r.listOrders(ctx, query, sellerID, *status)
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = $1 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, sellerID)
}

func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, guard GuardFunc) (*domain.Order, domain.OrderStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrOrderNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("lock order: %w", err)
	}

	if guard != nil {
		if err := guard(order); err != nil {
			return nil, "", err
		}
	}

	from := order.Status
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, to, now); err != nil {
		return nil, "", fmt.Errorf("update order status: %w", err)
	}
	order.Status = to
	order.UpdatedAt = now

	if err := insertOutboxEvent(ctx, tx, orderEvent(events.OrderStatusChanged, order, from)); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit status change: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, "", err
	}
	return order, from, nil
}

func (r *Repository) SellerStats(ctx context.Context, sellerID string) (*domain.SellerStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		   FROM orders WHERE seller_id = $1 GROUP BY status`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query seller stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.SellerStats{SellerID: sellerID, ByStatus: map[domain.OrderStatus]int{}}
	for rows.Next() {
		var status domain.OrderStatus
		var count int
		var sum float64
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, fmt.Errorf("scan seller stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalOrders += count
		if status == domain.OrderStatusCompleted {
			stats.Revenue = sum
			if count > 0 {
				stats.AverageOrder = sum / float64(count)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return stats, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = o
		o.Items = make([]domain.OrderItem, 0)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, menu_item_id, quantity, unit_price, special_notes
		   FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &item.UnitPrice, &item.SpecialNotes); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var eta sql.NullTime
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.SellerID,
		&order.Status,
		&order.TotalAmount,
		&order.DeliveryFee,
		&order.SpecialInstructions,
		&order.IdempotencyKey,
		&eta,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if eta.Valid {
		order.EstimatedDeliveryTime = eta.Time
	}
	return &order, nil
}

func orderEvent(t events.EventType, order *domain.Order, oldStatus domain.OrderStatus) events.OrderEvent {
	return events.OrderEvent{
		Type:        t,
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		SellerID:    order.SellerID,
		Status:      order.Status.String(),
		OldStatus:   oldStatus.String(),
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, event events.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		event.OrderID, string(event.Type), payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
