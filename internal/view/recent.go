// Package view holds observers that mirror session state for rendering.
// A view subscribes on creation, re-reads on every signal, and drops any
// result that arrives after it was closed or superseded.
package view

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"text/tabwriter"

	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/ganot/atelier/internal/events"
)

// RecentSource runs the recently viewed read path.
type RecentSource interface {
	Recent(ctx context.Context) viewed.Result
}

// RecentSnapshot is what a recently viewed section renders from.
type RecentSnapshot struct {
	State  viewed.State
	Source viewed.Source
	Items  []viewed.TrackedItem
}

// Visible reports whether the section should be on the page at all.
func (s RecentSnapshot) Visible() bool {
	return s.State != viewed.StateNoData
}

// RecentlyViewed is a mounted recently viewed section.
type RecentlyViewed struct {
	src      RecentSource
	logger   *slog.Logger
	onChange func(RecentSnapshot)
	subs     events.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	snap   RecentSnapshot
	gen    uint64
	closed bool
}

// RecentOption configures a RecentlyViewed.
type RecentOption func(*RecentlyViewed)

// OnRecentChange registers a callback invoked with every applied snapshot.
func OnRecentChange(fn func(RecentSnapshot)) RecentOption {
	return func(v *RecentlyViewed) { v.onChange = fn }
}

// WithRecentLogger sets the logger.
func WithRecentLogger(logger *slog.Logger) RecentOption {
	return func(v *RecentlyViewed) { v.logger = logger }
}

// MountRecentlyViewed subscribes to history changes and focus, then starts
// the first read.
func MountRecentlyViewed(ctx context.Context, src RecentSource, bus events.Bus, opts ...RecentOption) *RecentlyViewed {
	ctx, cancel := context.WithCancel(ctx)
	v := &RecentlyViewed{
		src:    src,
		ctx:    ctx,
		cancel: cancel,
		snap:   RecentSnapshot{State: viewed.StateLoading, Items: []viewed.TrackedItem{}},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v.subs = events.Group{
		bus.Subscribe(events.TopicViewedChanged, v.Refresh),
		bus.Subscribe(events.TopicFocus, v.Refresh),
	}
	v.Refresh()
	return v
}

// Refresh starts a new read. Only the latest read may update the view.
func (v *RecentlyViewed) Refresh() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.gen++
	gen := v.gen
	v.wg.Add(1)
	v.mu.Unlock()

	go func() {
		defer v.wg.Done()
		res := v.src.Recent(v.ctx)
		v.apply(gen, res)
	}()
}

func (v *RecentlyViewed) apply(gen uint64, res viewed.Result) {
	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		v.logger.Debug("discarding stale recently viewed read", "generation", gen)
		return
	}
	v.snap = RecentSnapshot{State: res.State, Source: res.Source, Items: res.Items}
	snap := v.copySnapshot()
	onChange := v.onChange
	v.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

// Snapshot returns a copy of the current state.
func (v *RecentlyViewed) Snapshot() RecentSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.copySnapshot()
}

func (v *RecentlyViewed) copySnapshot() RecentSnapshot {
	items := make([]viewed.TrackedItem, len(v.snap.Items))
	copy(items, v.snap.Items)
	return RecentSnapshot{State: v.snap.State, Source: v.snap.Source, Items: items}
}

// Close unmounts the view: it stops listening, cancels in-flight reads and
// waits for them to finish. Results arriving afterwards are discarded.
func (v *RecentlyViewed) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.subs.Unsubscribe()
	v.cancel()
	v.wg.Wait()
}

// RenderRecent writes the section. Nothing is written unless there is data.
func RenderRecent(w io.Writer, snap RecentSnapshot) error {
	if snap.State != viewed.StateReady {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Recently viewed")
	for i, item := range snap.Items {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%.2f\t%s\n", i+1, item.ID, item.Name, item.Price, item.Link)
	}
	return tw.Flush()
}
