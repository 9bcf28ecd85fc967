// Package storefront assembles one shopper session: local storage, the
// signal bus, the recently viewed tracker, the cart and the relays that
// carry change signals in from other processes.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ganot/atelier/internal/config"
	"github.com/ganot/atelier/internal/domain/cart"
	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/ganot/atelier/internal/events"
	"github.com/ganot/atelier/internal/remote"
	"github.com/ganot/atelier/internal/sqlite"
	"github.com/ganot/atelier/internal/storage"
)

// ErrNoRemote is returned by operations that need a mirror server when none
// is configured.
var ErrNoRemote = errors.New("no remote mirror configured")

// Session is one shopper's storefront state.
type Session struct {
	KV      storage.KV
	Tokens  *storage.TokenSource
	Bus     *events.Local
	Tracker *viewed.Tracker
	Cart    *cart.Cart
	// Remote is nil when no mirror base URL is configured.
	Remote *remote.Client

	cfg    config.Config
	logger *slog.Logger
	db     *sqlite.DB
	relay  relay
}

type relay interface {
	Start(ctx context.Context) error
	Stop()
}

// Options adjusts how a session is opened.
type Options struct {
	// KV replaces the configured storage backend.
	KV storage.KV
	// CartKey selects the cart line identity. Defaults to cart.KeyByID.
	CartKey cart.KeyFunc
}

// Open builds a session from cfg.
func Open(cfg config.Config, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{cfg: cfg, logger: logger, KV: opts.KV}

	if s.KV == nil {
		kv, db, err := openKV(cfg.Storage)
		if err != nil {
			return nil, err
		}
		s.KV, s.db = kv, db
	}

	s.Tokens = storage.NewTokenSource(s.KV)
	s.Bus = events.NewLocal(logger)

	if cfg.Remote.BaseURL != "" {
		s.Remote = remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger)
	}

	trackerCfg := viewed.Config{
		Persistence: storage.NewAdapter[viewed.TrackedItem](s.KV, storage.KeyRecentlyViewed, viewed.MaxItems, logger),
		Credentials: s.Tokens,
		Bus:         s.Bus,
		Logger:      logger,
		MaxItems:    cfg.Tracking.MaxItems,
	}
	if s.Remote != nil {
		trackerCfg.Mirror = s.Remote
	}
	s.Tracker = viewed.NewTracker(trackerCfg)

	s.Cart = cart.New(cart.Config{
		Persistence: storage.NewAdapter[cart.Line](s.KV, storage.KeyCart, 0, logger),
		Bus:         s.Bus,
		Logger:      logger,
		Key:         opts.CartKey,
	})

	return s, nil
}

func openKV(cfg config.StorageConfig) (storage.KV, *sqlite.DB, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil, nil
	case config.BackendDir:
		dir, err := storage.NewDir(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage dir: %w", err)
		}
		return dir, nil, nil
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewKVStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// View records that a product was shown.
func (s *Session) View(ctx context.Context, view viewed.ProductView) {
	s.Tracker.Track(ctx, view)
}

// Login stores the credential and signals history observers so they re-read
// with the mirror in play.
func (s *Session) Login(ctx context.Context, token string) error {
	if err := s.Tokens.SetToken(ctx, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	s.Bus.Publish(events.TopicViewedChanged)
	return nil
}

// Logout drops the credential. The local history stays.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.Tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	s.Bus.Publish(events.TopicViewedChanged)
	return nil
}

// Focus signals that the shopper returned to this session.
func (s *Session) Focus() {
	s.Bus.Publish(events.TopicFocus)
}

// StartRelay starts the configured cross-process relay. A file relay needs
// the dir backend and a socket relay needs a remote; otherwise nothing runs.
func (s *Session) StartRelay(ctx context.Context) error {
	if s.relay != nil {
		return nil
	}
	switch s.cfg.Remote.Relay {
	case config.RelayFile:
		dir, ok := s.KV.(*storage.Dir)
		if !ok {
			s.logger.Debug("file relay needs the dir backend; skipping")
			return nil
		}
		fr, err := events.NewFileRelay(dir.Root(), map[string]events.Topic{
			storage.FileName(storage.KeyRecentlyViewed): events.TopicViewedChanged,
			storage.FileName(storage.KeyToken):          events.TopicViewedChanged,
			storage.FileName(storage.KeyCart):           events.TopicCartChanged,
		}, s.Bus, s.logger)
		if err != nil {
			return err
		}
		if err := fr.Start(ctx); err != nil {
			fr.Stop()
			return err
		}
		s.relay = fr
	case config.RelaySocket:
		if s.Remote == nil {
			return ErrNoRemote
		}
		sr := events.NewSocketRelay(s.Remote.StreamURL(), s.Tokens.Token, s.Bus, s.logger)
		sr.Start(ctx)
		s.relay = socketRelay{sr}
	}
	return nil
}

type socketRelay struct{ *events.SocketRelay }

func (r socketRelay) Start(ctx context.Context) error {
	r.SocketRelay.Start(ctx)
	return nil
}

// Close stops the relay, waits for detached pushes and releases storage.
func (s *Session) Close() error {
	if s.relay != nil {
		s.relay.Stop()
		s.relay = nil
	}
	s.Tracker.Wait()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
