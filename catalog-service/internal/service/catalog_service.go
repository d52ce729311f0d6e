package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/repository"
	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
)

const (
	maxNameLength = 100
	maxPrice      = 10000
)

type CatalogService struct {
	repo repository.RepoInterface
	log  *slog.Logger
}

func NewCatalogService(repo repository.RepoInterface, log *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, log: log}
}

func (s *CatalogService) ListCanteens(ctx context.Context) ([]*domain.Canteen, error) {
	return s.repo.ListCanteens(ctx)
}

func (s *CatalogService) GetCanteen(ctx context.Context, canteenID string) (*domain.Canteen, error) {
	return s.repo.GetCanteen(ctx, canteenID)
}

// Menu lists a canteen's items. Customers see what can be ordered right now;
// the owner also sees items marked unavailable.
func (s *CatalogService) Menu(ctx context.Context, id auth.Identity, canteenID string) ([]*domain.MenuItem, error) {
	canteen, err := s.repo.GetCanteen(ctx, canteenID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMenu(ctx, canteenID, !owns(id, canteen))
}

func (s *CatalogService) GetMenuItem(ctx context.Context, menuItemID string) (*domain.MenuItem, error) {
	return s.repo.GetMenuItem(ctx, menuItemID)
}

func (s *CatalogService) SetCanteenOpen(ctx context.Context, id auth.Identity, canteenID string, open bool) (*domain.Canteen, error) {
	canteen, err := s.authorize(ctx, id, canteenID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCanteenOpen(ctx, canteenID, open); err != nil {
		return nil, err
	}
	canteen.IsOpen = open
	s.log.InfoContext(ctx, "canteen status changed", "canteen_id", canteenID, "is_open", open)
	return canteen, nil
}

func (s *CatalogService) CreateMenuItem(ctx context.Context, id auth.Identity, canteenID string, item *domain.MenuItem) (*domain.MenuItem, error) {
	canteen, err := s.authorize(ctx, id, canteenID)
	if err != nil {
		return nil, err
	}

	item.ID = ""
	item.CanteenID = canteenID
	item.CanteenName = canteen.Name
	item.CanteenOpen = canteen.IsOpen
	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMenuItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	s.log.InfoContext(ctx, "menu item created", "canteen_id", canteenID, "menu_item_id", item.ID)
	return item, nil
}

func (s *CatalogService) UpdateMenuItem(ctx context.Context, id auth.Identity, menuItemID string, patch domain.MenuItemPatch) (*domain.MenuItem, error) {
	item, err := s.repo.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, id, item.CanteenID); err != nil {
		return nil, err
	}

	patch.Apply(item)
	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) DeleteMenuItem(ctx context.Context, id auth.Identity, menuItemID string) error {
	item, err := s.repo.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, id, item.CanteenID); err != nil {
		return err
	}
	if err := s.repo.DeleteMenuItem(ctx, menuItemID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "menu item deleted", "canteen_id", item.CanteenID, "menu_item_id", menuItemID)
	return nil
}

func (s *CatalogService) authorize(ctx context.Context, id auth.Identity, canteenID string) (*domain.Canteen, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	canteen, err := s.repo.GetCanteen(ctx, canteenID)
	if err != nil {
		return nil, err
	}
	if !owns(id, canteen) {
		return nil, ErrForbidden
	}
	return canteen, nil
}

func owns(id auth.Identity, c *domain.Canteen) bool {
	return id.Role == auth.RoleSeller && id.UserID != "" && id.UserID == c.OwnerID
}

func validateMenuItem(item *domain.MenuItem) error {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.Name == "":
		return invalid("name is required")
	case len(item.Name) > maxNameLength:
		return invalid(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	case item.Price <= 0:
		return invalid("price must be greater than zero")
	case item.Price > maxPrice:
		return invalid(fmt.Sprintf("price must not exceed %d", maxPrice))
	}
	return nil
}
