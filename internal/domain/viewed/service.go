package viewed

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ganot/atelier/internal/events"
	"github.com/ganot/atelier/internal/ordered"
)

// DefaultPushTimeout bounds a detached remote push.
const DefaultPushTimeout = 10 * time.Second

// Config wires a Tracker.
type Config struct {
	Persistence Persistence
	Mirror      Mirror
	Credentials Credentials
	Bus         events.Bus
	Logger      *slog.Logger
	PushTimeout time.Duration
	// MaxItems lowers the history capacity. Zero or anything above
	// the package MaxItems means MaxItems.
	MaxItems int
}

// Tracker owns the recently viewed history of one storefront session.
type Tracker struct {
	store       *ordered.Store[TrackedItem]
	persist     Persistence
	mirror      Mirror
	creds       Credentials
	bus         events.Bus
	logger      *slog.Logger
	pushTimeout time.Duration

	mu sync.Mutex
	// synced is set once the store has been filled from persistence.
	synced bool
	pushes sync.WaitGroup
}

// NewTracker creates a tracker. Mirror and Credentials may be nil for a
// guest-only session.
func NewTracker(cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.PushTimeout
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	capacity := cfg.MaxItems
	if capacity <= 0 || capacity > MaxItems {
		capacity = MaxItems
	}
	return &Tracker{
		store:       ordered.New[TrackedItem](capacity, TrackedItem.Key),
		persist:     cfg.Persistence,
		mirror:      cfg.Mirror,
		creds:       cfg.Credentials,
		bus:         cfg.Bus,
		logger:      logger,
		pushTimeout: timeout,
	}
}

// Track records that a product was shown. Incomplete views are dropped
// without error. The local write completes before observers are signalled;
// the remote push runs detached and signals again when it lands.
func (t *Tracker) Track(ctx context.Context, view ProductView) {
	item, ok := view.Item()
	if !ok {
		t.logger.Debug("ignoring incomplete product view", "id", view.ID)
		return
	}

	t.mu.Lock()
	t.reload(ctx)
	t.store.Insert(item)
	if t.synced {
		if err := t.persist.Save(ctx, t.store.List()); err != nil {
			t.logger.Warn("persisting recently viewed failed", "error", err)
		}
	} else {
		t.logger.Warn("stored history unreadable; keeping view in memory", "id", item.ID)
	}
	t.mu.Unlock()

	if token := t.token(ctx); token != "" && t.mirror != nil {
		t.push(ctx, token, item.ID)
	}
	t.publish()
}

func (t *Tracker) push(ctx context.Context, token string, id ItemID) {
	t.pushes.Add(1)
	go func() {
		defer t.pushes.Done()
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.pushTimeout)
		defer cancel()
		t.mirror.PushRemote(pushCtx, token, id)
		t.publish()
	}()
}

// Local returns the guest-side history without consulting the mirror.
func (t *Tracker) Local(ctx context.Context) []TrackedItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reload(ctx)
	return t.store.List()
}

// reload replaces the store with the persisted history. A failed read keeps
// the in-memory copy. Callers hold t.mu.
func (t *Tracker) reload(ctx context.Context) {
	items, err := t.persist.Read(ctx)
	if err != nil {
		return
	}
	t.store.Replace(items)
	t.synced = true
}

// Recent runs the read path: local load plus remote fetch, reconciled.
func (t *Tracker) Recent(ctx context.Context) Result {
	local := t.Local(ctx)

	var remote []TrackedItem
	if token := t.token(ctx); token != "" && t.mirror != nil {
		remote = t.mirror.FetchRemote(ctx, token)
	}
	res := Reconcile(local, remote)
	res.Items = ordered.Cap(res.Items, t.store.Capacity())
	return res
}

// Clear forgets the local history.
func (t *Tracker) Clear(ctx context.Context) {
	t.mu.Lock()
	t.store.Clear()
	if err := t.persist.Erase(ctx); err != nil {
		t.logger.Warn("erasing recently viewed failed", "error", err)
	} else {
		t.synced = true
	}
	t.mu.Unlock()
	t.publish()
}

// Wait blocks until in-flight remote pushes finish.
func (t *Tracker) Wait() {
	t.pushes.Wait()
}

func (t *Tracker) token(ctx context.Context) string {
	if t.creds == nil {
		return ""
	}
	return t.creds.Token(ctx)
}

func (t *Tracker) publish() {
	if t.bus != nil {
		t.bus.Publish(events.TopicViewedChanged)
	}
}
