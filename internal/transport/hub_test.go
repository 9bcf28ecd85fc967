package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ganot/atelier/internal/events"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func dialStream(t *testing.T, server *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/recently-viewed/stream"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_NotifiesOnlyAffectedUser(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(nil)
	resolver := &testResolver{tokenToUser: map[string]string{"a": "user1", "b": "user2"}}
	server := httptest.NewServer(NewServer(Config{History: newFakeHistory(), Auth: AuthMiddleware(resolver), Hub: hub}))
	defer server.Close()
	defer hub.Close()

	conn1, _, err := dialStream(t, server, "a")
	require.NoError(t, err)
	defer conn1.Close()
	conn2, _, err := dialStream(t, server, "b")
	require.NoError(t, err)
	defer conn2.Close()

	require.Eventually(t, func() bool { return hub.Clients("user1") == 1 && hub.Clients("user2") == 1 }, time.Second, 5*time.Millisecond)

	hub.Notify("user1")

	require.NoError(t, conn1.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn1.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, string(events.TopicViewedChanged), string(msg))

	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, _, err = conn2.ReadMessage()
	require.Error(t, err)
}

func TestHub_UnregistersOnClientClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(nil)
	resolver := &testResolver{tokenToUser: map[string]string{"a": "user1"}}
	server := httptest.NewServer(NewServer(Config{History: newFakeHistory(), Auth: AuthMiddleware(resolver), Hub: hub}))
	defer server.Close()
	defer hub.Close()

	conn, _, err := dialStream(t, server, "a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients("user1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients("user1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_RejectsUnauthenticatedStream(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(NewServer(Config{History: newFakeHistory(), Auth: AuthMiddleware(&testResolver{}), Hub: hub}))
	defer server.Close()
	defer hub.Close()

	_, resp, err := dialStream(t, server, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
