// Package history keeps the server-side mirror of each user's recently viewed
// products.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/ganot/atelier/internal/repository"
)

// Service handles view history operations.
type Service struct {
	views    ViewRepository
	products ProductRepository
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new history service.
func NewService(views ViewRepository, products ProductRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{views: views, products: products, logger: logger, now: time.Now}
}

// SetNotifier registers the receiver of change notifications.
func (s *Service) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

// RecordView moves productID to the front of the user's history. Older
// entries beyond the limit are dropped.
func (s *Service) RecordView(ctx context.Context, userID, productID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(productID) == "" {
		return ErrInvalidInput
	}

	if _, err := s.products.Get(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("getting product: %w", err)
	}

	if err := s.views.Record(ctx, userID, productID, s.now(), viewed.MaxItems); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return ErrProductNotFound
		}
		return fmt.Errorf("recording view: %w", err)
	}

	s.logger.Debug("view recorded", "user_id", userID, "product_id", productID)
	s.notify(userID)
	return nil
}

// Recent returns the user's history, most recent first. It is never nil.
func (s *Service) Recent(ctx context.Context, userID string) ([]viewed.TrackedItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	products, err := s.views.Recent(ctx, userID, viewed.MaxItems)
	if err != nil {
		return nil, fmt.Errorf("listing views: %w", err)
	}
	items := make([]viewed.TrackedItem, 0, len(products))
	for _, p := range products {
		items = append(items, p.Item())
	}
	return items, nil
}

// Clear erases the user's history.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	if err := s.views.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clearing views: %w", err)
	}
	s.notify(userID)
	return nil
}

// UpsertProduct stores or refreshes a catalog snapshot.
func (s *Service) UpsertProduct(ctx context.Context, p Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.Upsert(ctx, &p); err != nil {
		return nil, fmt.Errorf("upserting product: %w", err)
	}
	return &p, nil
}

// GetProduct fetches a catalog snapshot by id.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

func (s *Service) notify(userID string) {
	if s.notifier != nil {
		s.notifier.Notify(userID)
	}
}

func validateProduct(p Product) error {
	for _, field := range []string{p.ID, p.Name, p.Image, p.Link} {
		if strings.TrimSpace(field) == "" {
			return ErrInvalidInput
		}
	}
	if p.Price < 0 {
		return ErrInvalidInput
	}
	return nil
}
