package mcp

import (
	"context"
	"log/slog"

	"github.com/ganot/atelier/internal/domain/viewed"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HistoryService defines history operations needed by MCP.
type HistoryService interface {
	RecordView(ctx context.Context, userID, productID string) error
	Recent(ctx context.Context, userID string) ([]viewed.TrackedItem, error)
	Clear(ctx context.Context, userID string) error
}

// Config contains server configuration.
type Config struct {
	History     HistoryService
	Resolver    UserResolver
	AuthEnabled bool
	// DefaultUser is attributed to every call when auth is disabled.
	DefaultUser string
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "atelier",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	// Auth runs first so the session and logging layers see the shopper.
	identify := authMiddleware(cfg.Resolver)
	if !cfg.AuthEnabled {
		defaultUser := cfg.DefaultUser
		if defaultUser == "" {
			defaultUser = "default"
		}
		identify = noAuthMiddleware(defaultUser)
	}
	server.AddReceivingMiddleware(identify, sessionMiddleware(), toolCallLogging(logger))

	registerTools(server, cfg.History, logger)

	return server
}
