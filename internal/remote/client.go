// Package remote talks to the authenticated mirror of the recently viewed
// history. Every failure degrades to "no remote data"; nothing is returned to
// the caller as an error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ganot/atelier/internal/domain/viewed"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout applies when the caller does not configure one.
const DefaultTimeout = 5 * time.Second

// Path of the history resource on the mirror server.
const Path = "/api/recently-viewed"

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// Client is an HTTP client for the mirror server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	group   singleflight.Group
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

type pushRequest struct {
	ProductID viewed.ItemID `json:"productId"`
}

// FetchRemote reads the server-side history. Concurrent calls with the same
// credential share one request; a caller whose context ends stops waiting
// without failing the others.
func (c *Client) FetchRemote(ctx context.Context, credential string) []viewed.TrackedItem {
	if credential == "" {
		return []viewed.TrackedItem{}
	}

	// The shared request outlives any one caller; the client timeout bounds it.
	ch := c.group.DoChan(credential, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), credential)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		c.logger.Debug("remote history read abandoned", "error", ctx.Err())
		return []viewed.TrackedItem{}
	}
	if res.Err != nil {
		c.logger.Warn("fetching remote history failed", "error", res.Err)
		return []viewed.TrackedItem{}
	}

	shared := res.Val.([]viewed.TrackedItem)
	out := make([]viewed.TrackedItem, len(shared))
	copy(out, shared)
	return out
}

func (c *Client) fetch(ctx context.Context, credential string) ([]viewed.TrackedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+Path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var items []viewed.TrackedItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if items == nil {
		items = []viewed.TrackedItem{}
	}
	return items, nil
}

// PushRemote records a view on the server. Failures are logged only.
func (c *Client) PushRemote(ctx context.Context, credential string, id viewed.ItemID) {
	if credential == "" {
		return
	}
	if err := c.push(ctx, credential, id); err != nil {
		c.logger.Warn("pushing view to remote failed", "id", id, "error", err)
	}
}

func (c *Client) push(ctx context.Context, credential string, id viewed.ItemID) error {
	body, err := json.Marshal(pushRequest{ProductID: id})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// StreamURL returns the websocket URL of the server's change stream.
func (c *Client) StreamURL() string {
	u := c.baseURL + Path + "/stream"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}
