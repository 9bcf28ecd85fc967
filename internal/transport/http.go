package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/ganot/atelier/internal/domain/history"
	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/go-chi/chi/v5"
)

// HistoryService defines the history operations served over HTTP.
type HistoryService interface {
	RecordView(ctx context.Context, userID, productID string) error
	Recent(ctx context.Context, userID string) ([]viewed.TrackedItem, error)
	Clear(ctx context.Context, userID string) error
	UpsertProduct(ctx context.Context, p history.Product) (*history.Product, error)
	GetProduct(ctx context.Context, id string) (*history.Product, error)
}

// Config wires the HTTP server.
type Config struct {
	History HistoryService
	// Auth guards every /api route. Nil leaves them open.
	Auth func(http.Handler) http.Handler
	// Hub serves the change stream. Nil disables it.
	Hub *Hub
	// MCP is mounted at /mcp when set. It authenticates on its own.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	history HistoryService
	hub     *Hub
	logger  *slog.Logger
}

// ViewRequest is the body of POST /api/recently-viewed.
type ViewRequest struct {
	ProductID viewed.ItemID `json:"productId"`
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	srv := &Server{history: cfg.History, hub: cfg.Hub, logger: logger}

	r.Get("/health", srv.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		r.Get("/recently-viewed", srv.handleRecent)
		r.Post("/recently-viewed", srv.handleRecordView)
		r.Delete("/recently-viewed", srv.handleClear)
		if cfg.Hub != nil {
			r.Get("/recently-viewed/stream", srv.handleStream)
		}
		r.Get("/products/{id}", srv.handleGetProduct)
		r.Put("/products/{id}", srv.handlePutProduct)
	})

	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserFromContext(r.Context())
	if !ok || userID == "" {
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user")
		return "", false
	}
	return userID, true
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	items, err := s.history.Recent(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing history failed", "user_id", userID, "error", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	var req ViewRequest
	if err := DecodeJSON(r.Body, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request")
		return
	}
	if err := s.history.RecordView(r.Context(), userID, string(req.ProductID)); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	if err := s.history.Clear(r.Context(), userID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, userID)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.history.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProduct(w http.ResponseWriter, r *http.Request) {
	var p history.Product
	if err := DecodeJSON(r.Body, &p); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request")
		return
	}
	p.ID = chi.URLParam(r, "id")
	stored, err := s.history.UpsertProduct(r.Context(), p)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stored)
}
