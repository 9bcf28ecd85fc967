package view

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/ganot/atelier/internal/domain/cart"
	"github.com/ganot/atelier/internal/events"
)

// CartSource reads the cart aggregate.
type CartSource interface {
	Snapshot(ctx context.Context) cart.Snapshot
}

// CartSummary mirrors the cart for a badge or overlay. Cart reads are local,
// so it refreshes synchronously on the publishing goroutine.
type CartSummary struct {
	ctx      context.Context
	src      CartSource
	sub      events.Subscription
	onChange func(cart.Snapshot)

	mu     sync.Mutex
	snap   cart.Snapshot
	closed bool
}

// MountCartSummary subscribes to cart changes and reads the current state.
func MountCartSummary(ctx context.Context, src CartSource, bus events.Bus, onChange func(cart.Snapshot)) *CartSummary {
	v := &CartSummary{ctx: ctx, src: src, onChange: onChange}
	v.sub = bus.Subscribe(events.TopicCartChanged, v.Refresh)
	v.Refresh()
	return v
}

// Refresh re-reads the cart.
func (v *CartSummary) Refresh() {
	snap := v.src.Snapshot(v.ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.snap = snap
	onChange := v.onChange
	v.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

// Snapshot returns the last applied cart state.
func (v *CartSummary) Snapshot() cart.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := v.snap
	snap.Lines = append([]cart.Line{}, v.snap.Lines...)
	return snap
}

// Close stops listening.
func (v *CartSummary) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.sub.Unsubscribe()
}

// RenderCart writes the cart lines and totals.
func RenderCart(w io.Writer, snap cart.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(snap.Lines) == 0 {
		fmt.Fprintln(tw, "Cart is empty")
		return tw.Flush()
	}
	for _, l := range snap.Lines {
		variant := l.Color
		if l.Size != "" {
			if variant != "" {
				variant += "/"
			}
			variant += l.Size
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d x %.2f\t%.2f\n", l.ID, l.Name, variant, l.Quantity, l.Price, l.Total())
	}
	fmt.Fprintf(tw, "\t\t\t%d items\t%.2f\n", snap.TotalItems, snap.TotalPrice)
	return tw.Flush()
}
