package history

import (
	"context"
	"time"
)

// ViewRepository stores per-user view history.
type ViewRepository interface {
	Record(ctx context.Context, userID, productID string, at time.Time, limit int) error
	Recent(ctx context.Context, userID string, limit int) ([]Product, error)
	Clear(ctx context.Context, userID string) error
}

// ProductRepository stores the catalog snapshot.
type ProductRepository interface {
	Upsert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
}
