package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ganot/atelier/internal/domain/history"
)

// ProductRepository implements history.ProductRepository for SQLite
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Upsert inserts a product or replaces its snapshot fields.
func (r *ProductRepository) Upsert(ctx context.Context, p *history.Product) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO products (id, name, price, image, link, updated_at)
		VALUES (:id, :name, :price, :image, :link, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			image = excluded.image,
			link = excluded.link,
			updated_at = excluded.updated_at
	`, p)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", mapError(err))
	}
	return nil
}

// Get fetches a product by id.
func (r *ProductRepository) Get(ctx context.Context, id string) (*history.Product, error) {
	var p history.Product
	err := r.db.GetContext(ctx, &p, `SELECT id, name, price, image, link, updated_at FROM products WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}
