package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ganot/atelier/internal/domain/history"
)

// ViewRepository implements history.ViewRepository for SQLite
type ViewRepository struct {
	db *DB
}

// NewViewRepository creates a new ViewRepository
func NewViewRepository(db *DB) *ViewRepository {
	return &ViewRepository{db: db}
}

// Record moves productID to the front of the user's history and trims
// everything past limit. A limit <= 0 keeps every row.
func (r *ViewRepository) Record(ctx context.Context, userID, productID string, at time.Time, limit int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin view transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM views WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to read view sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO views (user_id, product_id, seq, viewed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, product_id) DO UPDATE SET
			seq = excluded.seq,
			viewed_at = excluded.viewed_at
	`, userID, productID, seq, at)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", mapError(err))
	}

	if limit > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM views
			WHERE user_id = ? AND product_id NOT IN (
				SELECT product_id FROM views WHERE user_id = ? ORDER BY seq DESC LIMIT ?
			)
		`, userID, userID, limit)
		if err != nil {
			return fmt.Errorf("failed to trim views: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit view: %w", err)
	}
	return nil
}

// Recent returns the products the user viewed, most recent first.
func (r *ViewRepository) Recent(ctx context.Context, userID string, limit int) ([]history.Product, error) {
	query := `
		SELECT p.id, p.name, p.price, p.image, p.link, p.updated_at
		FROM views v
		JOIN products p ON p.id = v.product_id
		WHERE v.user_id = ?
		ORDER BY v.seq DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	products := []history.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	return products, nil
}

// Clear deletes the user's history.
func (r *ViewRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM views WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear views: %w", err)
	}
	return nil
}
