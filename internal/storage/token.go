package storage

import (
	"context"
	"strings"
)

// TokenSource reads the bearer credential from the local key space at call
// time. An absent or unreadable key yields an empty credential.
type TokenSource struct {
	kv KV
}

// NewTokenSource creates a credential reader over kv.
func NewTokenSource(kv KV) *TokenSource {
	return &TokenSource{kv: kv}
}

// Token returns the current credential, or "" when signed out.
func (t *TokenSource) Token(ctx context.Context) string {
	data, err := t.kv.Get(ctx, KeyToken)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetToken stores a credential.
func (t *TokenSource) SetToken(ctx context.Context, token string) error {
	return t.kv.Set(ctx, KeyToken, []byte(strings.TrimSpace(token)))
}

// ClearToken removes the credential.
func (t *TokenSource) ClearToken(ctx context.Context) error {
	return t.kv.Delete(ctx, KeyToken)
}
