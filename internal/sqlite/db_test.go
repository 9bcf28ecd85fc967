package sqlite

import (
	"context"
	"testing"

	"github.com/ganot/atelier/internal/domain/history"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.Migrate()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertProduct(t *testing.T, db *DB, id string) {
	t.Helper()
	err := NewProductRepository(db).Upsert(context.Background(), &history.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: 100,
		Image: "/img/" + id + ".jpg",
		Link:  "/products/" + id,
	})
	require.NoError(t, err)
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"products", "views", "api_keys", "kv"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestMigrationsIdempotent verifies a second run is a no-op
func TestMigrationsIdempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.Migrate())
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")

	_, err = db.Exec(`INSERT INTO views (user_id, product_id, seq, viewed_at) VALUES ('u1', 'missing', 1, CURRENT_TIMESTAMP)`)
	require.Error(t, err, "should fail with unknown product")
}

// TestProductsPriceConstraint verifies negative prices are rejected
func TestProductsPriceConstraint(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec(`INSERT INTO products (id, name, price, image, link) VALUES ('p1', 'x', -1, '/i', '/l')`)
	require.Error(t, err)
}
