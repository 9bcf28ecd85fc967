// Package testserver runs a complete mirror server over an in-memory
// database for end-to-end tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ganot/atelier/internal/domain/history"
	"github.com/ganot/atelier/internal/mcp"
	"github.com/ganot/atelier/internal/sqlite"
	"github.com/ganot/atelier/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	History *history.Service
	Hub     *transport.Hub
	Keys    *sqlite.APIKeyRepository
}

// New starts a server with authentication enabled on both the REST API and
// the MCP endpoint.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	keys := sqlite.NewAPIKeyRepository(db)
	historySvc := history.NewService(sqlite.NewViewRepository(db), sqlite.NewProductRepository(db), nil)
	hub := transport.NewHub(nil)
	historySvc.SetNotifier(hub)

	mcpServer := mcp.NewServer(mcp.Config{
		History:     historySvc,
		Resolver:    keys,
		AuthEnabled: true,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	)

	server := httptest.NewServer(transport.NewServer(transport.Config{
		History: historySvc,
		Auth:    transport.AuthMiddleware(keys),
		Hub:     hub,
		MCP:     mcpHandler,
	}))

	t.Cleanup(func() {
		hub.Close()
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:  server,
		DB:      db,
		History: historySvc,
		Hub:     hub,
		Keys:    keys,
	}
}

// URL is the base URL of the server.
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// IssueKey mints an API key for userID.
func (ts *TestServer) IssueKey(t *testing.T, userID string) string {
	t.Helper()
	key, err := ts.Keys.Issue(context.Background(), userID, "test")
	require.NoError(t, err)
	return key
}

// AddProduct stores a catalog snapshot so views of id can be recorded.
func (ts *TestServer) AddProduct(t *testing.T, id string, price float64) history.Product {
	t.Helper()
	p, err := ts.History.UpsertProduct(context.Background(), history.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: price,
		Image: "/img/" + id + ".jpg",
		Link:  "/products/" + id,
	})
	require.NoError(t, err)
	return *p
}
