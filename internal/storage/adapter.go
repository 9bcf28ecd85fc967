package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Adapter mirrors a slice of T under a single key as a JSON array.
//
// Load never fails: an absent key, corrupt JSON or an unavailable backend all
// read as an empty slice. Read tells the last case apart so owners of an
// in-memory copy can keep it. Save and Erase return errors so callers can log
// them, but nothing above the tracking layer ever sees one.
type Adapter[T any] struct {
	kv     KV
	key    string
	limit  int
	logger *slog.Logger
}

// NewAdapter binds an adapter to key. A positive limit bounds the number of
// elements written by Save.
func NewAdapter[T any](kv KV, key string, limit int, logger *slog.Logger) *Adapter[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter[T]{kv: kv, key: key, limit: limit, logger: logger}
}

// Key returns the storage key the adapter writes to.
func (a *Adapter[T]) Key() string {
	return a.key
}

// Save overwrites the stored value with items.
func (a *Adapter[T]) Save(ctx context.Context, items []T) error {
	if a.limit > 0 && len(items) > a.limit {
		items = items[:a.limit]
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", a.key, err)
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("save %s: %w", a.key, err)
	}
	return nil
}

// Load returns the stored items, or an empty slice on any failure.
func (a *Adapter[T]) Load(ctx context.Context) []T {
	items, _ := a.Read(ctx)
	return items
}

// Read returns the stored items. An absent key or a corrupt value reads as an
// empty slice with a nil error; an unreachable backend returns an empty slice
// and an error wrapping ErrUnavailable.
func (a *Adapter[T]) Read(ctx context.Context) ([]T, error) {
	data, err := a.kv.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []T{}, nil
		}
		a.logger.Warn("storage read failed", "key", a.key, "error", err)
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return []T{}, fmt.Errorf("read %s: %w", a.key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		a.logger.Warn("discarding corrupt stored value", "key", a.key, "error", err)
		return []T{}, nil
	}
	if items == nil {
		return []T{}, nil
	}
	if a.limit > 0 && len(items) > a.limit {
		items = items[:a.limit]
	}
	return items, nil
}

// Erase removes the key entirely.
func (a *Adapter[T]) Erase(ctx context.Context) error {
	if err := a.kv.Delete(ctx, a.key); err != nil {
		return fmt.Errorf("erase %s: %w", a.key, err)
	}
	return nil
}
