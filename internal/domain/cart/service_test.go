package cart_test

import (
	"context"
	"testing"

	"github.com/ganot/atelier/internal/domain/cart"
	"github.com/ganot/atelier/internal/events"
	"github.com/ganot/atelier/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*cart.Cart, *storage.Memory, *int) {
	t.Helper()
	kv := storage.NewMemory()
	bus := events.NewLocal(nil)
	signals := 0
	bus.Subscribe(events.TopicCartChanged, func() { signals++ })

	c := cart.New(cart.Config{
		Persistence: storage.NewAdapter[cart.Line](kv, storage.KeyCart, 0, nil),
		Bus:         bus,
	})
	return c, kv, &signals
}

var (
	suit  = cart.Product{ID: "suit", Name: "Three-piece suit", Price: 100, Image: "/suit.jpg"}
	shirt = cart.Product{ID: "shirt", Name: "Oxford shirt", Price: 50, Image: "/shirt.jpg"}
)

func TestCart_Totals(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setup(t)

	require.True(t, c.Add(ctx, suit, cart.AddOptions{Quantity: 2}))
	require.True(t, c.Add(ctx, shirt, cart.AddOptions{}))

	assert.Equal(t, 3, c.TotalItems(ctx))
	assert.Equal(t, 250.0, c.TotalPrice(ctx))
}

func TestCart_AddExistingIncrementsAndKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setup(t)

	c.Add(ctx, suit, cart.AddOptions{})
	repriced := suit
	repriced.Price = 999
	repriced.Name = "Changed"
	c.Add(ctx, repriced, cart.AddOptions{Quantity: 3})

	lines := c.Lines(ctx)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, 100.0, lines[0].Price)
	assert.Equal(t, "Three-piece suit", lines[0].Name)
}

func TestCart_AddRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	c, _, signals := setup(t)

	assert.False(t, c.Add(ctx, cart.Product{Name: "no id"}, cart.AddOptions{}))
	assert.False(t, c.Add(ctx, suit, cart.AddOptions{Quantity: -2}))
	assert.Empty(t, c.Lines(ctx))
	assert.Equal(t, 0, *signals)
}

func TestCart_SetQuantityFloorRemoves(t *testing.T) {
	for _, n := range []int{0, -1} {
		ctx := context.Background()
		c, _, _ := setup(t)
		c.Add(ctx, suit, cart.AddOptions{Quantity: 5})
		c.Add(ctx, shirt, cart.AddOptions{})

		c.SetQuantity(ctx, "suit", n)

		lines := c.Lines(ctx)
		require.Len(t, lines, 1, "n=%d", n)
		assert.Equal(t, "shirt", lines[0].ID)
	}
}

func TestCart_SetQuantityIsExact(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setup(t)
	c.Add(ctx, suit, cart.AddOptions{Quantity: 5})

	require.True(t, c.SetQuantity(ctx, "suit", 2))
	assert.Equal(t, 2, c.TotalItems(ctx))
	assert.False(t, c.SetQuantity(ctx, "missing", 2))
}

func TestCart_RemoveIgnoresQuantity(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setup(t)
	c.Add(ctx, suit, cart.AddOptions{Quantity: 7})

	require.True(t, c.Remove(ctx, "suit"))
	assert.Empty(t, c.Lines(ctx))
	assert.False(t, c.Remove(ctx, "suit"))
}

func TestCart_EveryMutationPersistsAndSignals(t *testing.T) {
	ctx := context.Background()
	c, kv, signals := setup(t)

	c.Add(ctx, suit, cart.AddOptions{})
	c.SetQuantity(ctx, "suit", 3)
	c.Add(ctx, shirt, cart.AddOptions{})
	assert.Equal(t, 3, *signals)

	reopened := cart.New(cart.Config{
		Persistence: storage.NewAdapter[cart.Line](kv, storage.KeyCart, 0, nil),
	})
	assert.Equal(t, 4, reopened.TotalItems(ctx))
	assert.Equal(t, []string{"suit", "shirt"}, lineIDs(reopened.Lines(ctx)))

	c.Clear(ctx)
	assert.Equal(t, 4, *signals)
	assert.Empty(t, reopened.Lines(ctx))
}

func TestCart_CheckoutConsumesLines(t *testing.T) {
	ctx := context.Background()
	c, _, _ := setup(t)
	c.Add(ctx, suit, cart.AddOptions{Quantity: 2})

	consumed := c.Checkout(ctx)
	require.Len(t, consumed, 1)
	assert.Equal(t, 200.0, consumed[0].Total())
	assert.Empty(t, c.Lines(ctx))
}

func TestCart_VisibilityIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	c, kv, signals := setup(t)

	assert.False(t, c.IsOpen())
	c.Open()
	c.Open()
	assert.True(t, c.IsOpen())
	assert.Equal(t, 1, *signals)
	c.Toggle()
	assert.False(t, c.IsOpen())

	c.Add(ctx, suit, cart.AddOptions{})
	c.Open()
	reloaded := cart.New(cart.Config{
		Persistence: storage.NewAdapter[cart.Line](kv, storage.KeyCart, 0, nil),
	})
	snap := reloaded.Snapshot(ctx)
	assert.False(t, snap.Open)
	assert.Equal(t, 1, snap.TotalItems)
}

func TestCart_VariantKeying(t *testing.T) {
	ctx := context.Background()
	c := cart.New(cart.Config{
		Persistence: storage.NewAdapter[cart.Line](storage.NewMemory(), storage.KeyCart, 0, nil),
		Key:         cart.KeyByVariant,
	})

	c.Add(ctx, suit, cart.AddOptions{Color: "navy", Size: "40R"})
	c.Add(ctx, suit, cart.AddOptions{Color: "grey", Size: "40R"})
	c.Add(ctx, suit, cart.AddOptions{Color: "navy", Size: "40R"})

	lines := c.Lines(ctx)
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	require.True(t, c.Remove(ctx, cart.KeyByVariant(lines[1])))
	assert.Len(t, c.Lines(ctx), 1)
}

func TestCart_CorruptStorageStartsEmpty(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := setup(t)
	require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte(`[{"id":"x","quantity":0},{"id":"",`)))

	assert.Empty(t, c.Lines(ctx))
	c.Add(ctx, shirt, cart.AddOptions{})
	assert.Equal(t, 1, c.TotalItems(ctx))
}

func lineIDs(lines []cart.Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.ID)
	}
	return out
}

// flakyKV fails a set number of reads while writes keep working.
type flakyKV struct {
	*storage.Memory
	failReads int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failReads > 0 {
		f.failReads--
		return nil, storage.ErrUnavailable
	}
	return f.Memory.Get(ctx, key)
}

func TestCart_FailedReadKeepsLines(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Memory: storage.NewMemory()}
	adapter := storage.NewAdapter[cart.Line](kv, storage.KeyCart, 0, nil)
	c := cart.New(cart.Config{Persistence: adapter})

	c.Add(ctx, suit, cart.AddOptions{})
	c.Add(ctx, shirt, cart.AddOptions{})

	kv.failReads = 1
	c.Add(ctx, suit, cart.AddOptions{})

	reopened := cart.New(cart.Config{Persistence: adapter})
	assert.Equal(t, []string{"suit", "shirt"}, lineIDs(reopened.Lines(ctx)))
	assert.Equal(t, 3, reopened.TotalItems(ctx))

	kv.failReads = 1
	assert.Equal(t, 3, c.TotalItems(ctx))
}

func TestCart_UnreadableStorageIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Memory: storage.NewMemory()}
	adapter := storage.NewAdapter[cart.Line](kv, storage.KeyCart, 0, nil)
	require.NoError(t, adapter.Save(ctx, []cart.Line{{ID: "suit", Name: "Suit", Price: 100, Quantity: 2}}))

	c := cart.New(cart.Config{Persistence: adapter})
	kv.failReads = 1
	assert.True(t, c.Add(ctx, shirt, cart.AddOptions{}))

	assert.Equal(t, []cart.Line{{ID: "suit", Name: "Suit", Price: 100, Quantity: 2}}, adapter.Load(ctx))
}

func TestCart_MissingLineIsNotAMutation(t *testing.T) {
	ctx := context.Background()
	c, kv, signals := setup(t)

	assert.False(t, c.Remove(ctx, "missing"))
	assert.False(t, c.SetQuantity(ctx, "missing", 3))
	assert.False(t, c.SetQuantity(ctx, "missing", 0))
	assert.Equal(t, 0, *signals)

	_, err := kv.Get(ctx, storage.KeyCart)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
