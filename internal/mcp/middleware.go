package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrUnauthorized is returned for calls without a valid shopper key.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey int

const (
	userIDKey contextKey = iota
	sessionIDKey
)

func getUserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// UserResolver maps a shopper API key to the shopper's user ID.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// anonymousMethods never touch a shopper's history.
var anonymousMethods = map[string]bool{
	"initialize":     true,
	"ping":           true,
	"tools/list":     true,
	"resources/list": true,
}

func isAnonymous(method string) bool {
	return anonymousMethods[method] || strings.HasPrefix(method, "notifications/")
}

// authMiddleware attributes every history call to the shopper owning the
// bearer key on the HTTP request.
func authMiddleware(resolver UserResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if isAnonymous(method) {
				return next(ctx, method, req)
			}

			token := bearerToken(requestHeader(req))
			if token == "" {
				return nil, fmt.Errorf("%w: missing shopper key", ErrUnauthorized)
			}
			userID, err := resolver.ResolveUser(ctx, token)
			if err != nil || userID == "" {
				return nil, fmt.Errorf("%w: unknown shopper key", ErrUnauthorized)
			}

			return next(context.WithValue(ctx, userIDKey, userID), method, req)
		}
	}
}

// noAuthMiddleware attributes every call to one shopper.
func noAuthMiddleware(defaultUser string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(context.WithValue(ctx, userIDKey, defaultUser), method, req)
		}
	}
}

// sessionMiddleware records the MCP session so log lines from one assistant
// conversation can be grouped.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			sessionID := requestHeader(req).Get("Mcp-Session-Id")
			if sessionID == "" {
				sessionID = safeSessionID(req)
			}
			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}
			return next(ctx, method, req)
		}
	}
}

func requestHeader(req sdkmcp.Request) http.Header {
	if req == nil {
		return http.Header{}
	}
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		return extra.Header
	}
	return http.Header{}
}

func bearerToken(h http.Header) string {
	token := strings.TrimPrefix(strings.TrimSpace(h.Get("Authorization")), "Bearer ")
	return strings.TrimSpace(token)
}
