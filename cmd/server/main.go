package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ganot/atelier/internal/config"
	"github.com/ganot/atelier/internal/domain/history"
	"github.com/ganot/atelier/internal/mcp"
	"github.com/ganot/atelier/internal/sqlite"
	"github.com/ganot/atelier/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

const defaultUser = "default"

func main() {
	issueKey := flag.String("issue-key", "", "issue an API key for the given user id, print it and exit")
	keyDescription := flag.String("key-description", "", "description stored with an issued key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logWriter := io.Writer(os.Stdout)
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	keys := sqlite.NewAPIKeyRepository(db)
	if *issueKey != "" {
		key, err := keys.Issue(context.Background(), *issueKey, *keyDescription)
		if err != nil {
			logger.Error("failed to issue api key", "error", err)
			os.Exit(1)
		}
		fmt.Println(key)
		return
	}

	historySvc := history.NewService(sqlite.NewViewRepository(db), sqlite.NewProductRepository(db), logger)
	hub := transport.NewHub(logger)
	historySvc.SetNotifier(hub)

	mcpServer := mcp.NewServer(mcp.Config{
		History:     historySvc,
		Resolver:    keys,
		AuthEnabled: cfg.Auth.Enabled,
		DefaultUser: defaultUser,
		Logger:      logger,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	auth := transport.NoAuthMiddleware(defaultUser)
	if cfg.Auth.Enabled {
		auth = transport.AuthMiddleware(keys)
	}

	router := transport.NewServer(transport.Config{
		History: historySvc,
		Auth:    auth,
		Hub:     hub,
		MCP:     mcpHandler,
		Logger:  logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, httpServer, hub); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, server *http.Server, hub *transport.Hub) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		waitForShutdown(logger, server, hub)
		return nil
	})

	return g.Wait()
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, hub *transport.Hub) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}
	if size <= keepLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
