// Package cart holds the shopping cart aggregate of a storefront session.
package cart

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ganot/atelier/internal/events"
)

// Persistence is the durable local copy of the cart lines. Read returns an
// error only when the backend could not be reached.
type Persistence interface {
	Read(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
	Erase(ctx context.Context) error
}

// Config wires a Cart.
type Config struct {
	Persistence Persistence
	Bus         events.Bus
	Logger      *slog.Logger
	// Key defaults to KeyByID.
	Key KeyFunc
}

// Cart owns the lines of one session. Every mutation is written through to
// persistence before observers are signalled.
type Cart struct {
	mu    sync.Mutex
	lines []Line
	// synced is set once lines have been filled from persistence.
	synced  bool
	open    bool
	key     KeyFunc
	persist Persistence
	bus     events.Bus
	logger  *slog.Logger
}

// New creates a cart. The overlay starts closed.
func New(cfg Config) *Cart {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	key := cfg.Key
	if key == nil {
		key = KeyByID
	}
	return &Cart{
		key:     key,
		persist: cfg.Persistence,
		bus:     cfg.Bus,
		logger:  logger,
	}
}

// Add puts product in the cart or raises the quantity of its existing line,
// keeping the original snapshot. It reports whether the cart changed.
func (c *Cart) Add(ctx context.Context, p Product, opts AddOptions) bool {
	qty := opts.Quantity
	if qty == 0 {
		qty = 1
	}
	if strings.TrimSpace(p.ID) == "" || qty < 1 {
		c.logger.Debug("rejecting cart add", "id", p.ID, "quantity", opts.Quantity)
		return false
	}

	candidate := Line{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Color:    opts.Color,
		Size:     opts.Size,
		Quantity: qty,
	}

	c.mutate(ctx, func(lines []Line) ([]Line, bool) {
		if i := c.index(lines, c.key(candidate)); i >= 0 {
			lines[i].Quantity += qty
			return lines, true
		}
		return append(lines, candidate), true
	})
	return true
}

// Remove deletes the line with key regardless of its quantity.
func (c *Cart) Remove(ctx context.Context, key string) bool {
	return c.mutate(ctx, func(lines []Line) ([]Line, bool) {
		i := c.index(lines, key)
		if i < 0 {
			return lines, false
		}
		return append(lines[:i:i], lines[i+1:]...), true
	})
}

// SetQuantity sets the quantity of a line exactly. n < 1 removes the line.
func (c *Cart) SetQuantity(ctx context.Context, key string, n int) bool {
	if n < 1 {
		return c.Remove(ctx, key)
	}
	return c.mutate(ctx, func(lines []Line) ([]Line, bool) {
		i := c.index(lines, key)
		if i < 0 {
			return lines, false
		}
		lines[i].Quantity = n
		return lines, true
	})
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	c.mutate(ctx, func([]Line) ([]Line, bool) { return nil, true })
}

// Checkout consumes every line and returns them.
func (c *Cart) Checkout(ctx context.Context) []Line {
	var consumed []Line
	c.mutate(ctx, func(lines []Line) ([]Line, bool) {
		consumed = append([]Line(nil), lines...)
		return nil, true
	})
	return consumed
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines(ctx context.Context) []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reload(ctx)
	return append([]Line{}, c.lines...)
}

// TotalItems sums every quantity.
func (c *Cart) TotalItems(ctx context.Context) int {
	return totalItems(c.Lines(ctx))
}

// TotalPrice sums price × quantity over every line.
func (c *Cart) TotalPrice(ctx context.Context) float64 {
	return totalPrice(c.Lines(ctx))
}

// Snapshot returns lines, totals and overlay visibility together.
func (c *Cart) Snapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	c.reload(ctx)
	lines := append([]Line{}, c.lines...)
	open := c.open
	c.mu.Unlock()

	return Snapshot{
		Lines:      lines,
		TotalItems: totalItems(lines),
		TotalPrice: totalPrice(lines),
		Open:       open,
	}
}

// Open shows the cart overlay.
func (c *Cart) Open() { c.setOpen(func(bool) bool { return true }) }

// Close hides the cart overlay.
func (c *Cart) Close() { c.setOpen(func(bool) bool { return false }) }

// Toggle flips the overlay visibility.
func (c *Cart) Toggle() { c.setOpen(func(open bool) bool { return !open }) }

// IsOpen reports whether the overlay is shown.
func (c *Cart) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Cart) setOpen(next func(bool) bool) {
	c.mu.Lock()
	before := c.open
	c.open = next(before)
	changed := before != c.open
	c.mu.Unlock()

	if changed {
		c.publish()
	}
}

// mutate reloads persisted lines and applies fn. When fn reports a change
// the result is written back and observers are signalled.
func (c *Cart) mutate(ctx context.Context, fn func([]Line) ([]Line, bool)) bool {
	c.mu.Lock()
	c.reload(ctx)
	lines, changed := fn(c.lines)
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.lines = lines
	if !c.synced {
		c.logger.Warn("stored cart unreadable; keeping change in memory")
	} else if err := c.save(ctx); err != nil {
		c.logger.Warn("persisting cart failed", "error", err)
	}
	c.mu.Unlock()

	c.publish()
	return true
}

// reload replaces the lines with the persisted cart. A failed read keeps the
// in-memory copy.
func (c *Cart) reload(ctx context.Context) {
	if c.persist == nil {
		c.synced = true
		return
	}
	lines, err := c.persist.Read(ctx)
	if err != nil {
		return
	}
	valid := lines[:0]
	for _, l := range lines {
		if l.ID == "" || l.Quantity < 1 {
			continue
		}
		valid = append(valid, l)
	}
	c.lines = valid
	c.synced = true
}

func (c *Cart) save(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	if len(c.lines) == 0 {
		return c.persist.Erase(ctx)
	}
	return c.persist.Save(ctx, c.lines)
}

func (c *Cart) index(lines []Line, key string) int {
	for i, l := range lines {
		if c.key(l) == key {
			return i
		}
	}
	return -1
}

func (c *Cart) publish() {
	if c.bus != nil {
		c.bus.Publish(events.TopicCartChanged)
	}
}

func totalItems(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func totalPrice(lines []Line) float64 {
	sum := 0.0
	for _, l := range lines {
		sum += l.Total()
	}
	return sum
}
