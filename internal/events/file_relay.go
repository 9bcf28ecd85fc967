package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileRelay watches a directory-backed key space and republishes writes made
// by other processes as local signals. Own writes are republished too; a
// redundant re-read is harmless.
type FileRelay struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dir     string
	topics  map[string]Topic
	bus     Bus
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewFileRelay creates a relay for dir. topics maps a file name inside dir to
// the topic published when that file changes.
func NewFileRelay(dir string, topics map[string]Topic, bus Bus, logger *slog.Logger) (*FileRelay, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &FileRelay{
		watcher: watcher,
		dir:     dir,
		topics:  topics,
		bus:     bus,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the watch is registered.
func (r *FileRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if err := r.watcher.Add(r.dir); err != nil {
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}
	r.running = true
	go r.run(ctx)
	r.logger.Debug("file relay watching", "dir", r.dir)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (r *FileRelay) Stop() {
	r.mu.Lock()
	wasRunning := r.running
	r.running = false
	r.mu.Unlock()

	if wasRunning {
		close(r.stopCh)
		<-r.doneCh
	}
	if err := r.watcher.Close(); err != nil {
		r.logger.Error("closing file watcher", "error", err)
	}
}

func (r *FileRelay) run(ctx context.Context) {
	defer close(r.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handle(event)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("file relay error", "error", err)
		}
	}
}

func (r *FileRelay) handle(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	topic, ok := r.topics[filepath.Base(event.Name)]
	if !ok {
		return
	}
	r.logger.Debug("file relay change", "file", event.Name, "op", event.Op.String(), "topic", topic)
	r.bus.Publish(topic)
}
