package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ganot/atelier/internal/storage"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLocal_PublishReachesSubscribersInOrder(t *testing.T) {
	bus := NewLocal(nil)
	var order []string

	bus.Subscribe(TopicViewedChanged, func() { order = append(order, "first") })
	bus.Subscribe(TopicViewedChanged, func() { order = append(order, "second") })
	bus.Subscribe(TopicCartChanged, func() { order = append(order, "cart") })

	bus.Publish(TopicViewedChanged)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestLocal_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewLocal(nil)
	var calls int32

	sub := bus.Subscribe(TopicCartChanged, func() { atomic.AddInt32(&calls, 1) })
	other := bus.Subscribe(TopicCartChanged, func() {})
	require.Equal(t, 2, bus.Subscribers(TopicCartChanged))

	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(TopicCartChanged)

	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
	require.Equal(t, 1, bus.Subscribers(TopicCartChanged))

	other.Unsubscribe()
	require.Equal(t, 0, bus.Subscribers(TopicCartChanged))
}

func TestLocal_HandlerMayUnsubscribeDuringDispatch(t *testing.T) {
	bus := NewLocal(nil)
	var sub Subscription
	var calls int
	sub = bus.Subscribe(TopicFocus, func() {
		calls++
		sub.Unsubscribe()
	})

	bus.Publish(TopicFocus)
	bus.Publish(TopicFocus)
	require.Equal(t, 1, calls)
}

func TestLocal_PanickingHandlerDoesNotStopDispatch(t *testing.T) {
	bus := NewLocal(nil)
	reached := false
	bus.Subscribe(TopicViewedChanged, func() { panic("boom") })
	bus.Subscribe(TopicViewedChanged, func() { reached = true })

	require.NotPanics(t, func() { bus.Publish(TopicViewedChanged) })
	require.True(t, reached)
}

func TestGroup_Unsubscribe(t *testing.T) {
	bus := NewLocal(nil)
	g := Group{
		bus.Subscribe(TopicViewedChanged, func() {}),
		bus.Subscribe(TopicFocus, func() {}),
	}
	g.Unsubscribe()
	require.Equal(t, 0, bus.Subscribers(TopicViewedChanged))
	require.Equal(t, 0, bus.Subscribers(TopicFocus))
}

func TestFileRelay_RepublishesExternalWrites(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir, err := storage.NewDir(t.TempDir())
	require.NoError(t, err)

	bus := NewLocal(nil)
	var viewed, cart int32
	bus.Subscribe(TopicViewedChanged, func() { atomic.AddInt32(&viewed, 1) })
	bus.Subscribe(TopicCartChanged, func() { atomic.AddInt32(&cart, 1) })

	relay, err := NewFileRelay(dir.Root(), map[string]Topic{
		storage.FileName(storage.KeyRecentlyViewed): TopicViewedChanged,
		storage.FileName(storage.KeyCart):           TopicCartChanged,
	}, bus, nil)
	require.NoError(t, err)
	require.NoError(t, relay.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, dir.Set(ctx, storage.KeyRecentlyViewed, []byte(`[]`)))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&viewed) > 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, dir.Set(ctx, storage.KeyCart, []byte(`[]`)))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&cart) > 0 }, 2*time.Second, 10*time.Millisecond)

	relay.Stop()
}

func TestSocketRelay_RepublishesServerPushes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	upgrader := websocket.Upgrader{}
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(TopicViewedChanged))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	bus := NewLocal(nil)
	var viewed int32
	bus.Subscribe(TopicViewedChanged, func() { atomic.AddInt32(&viewed, 1) })

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	relay := NewSocketRelay(url, func(context.Context) string { return "secret" }, bus, nil).
		WithRedialInterval(20 * time.Millisecond)
	relay.Start(context.Background())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&viewed) > 0 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "Bearer secret", gotAuth.Load())

	relay.Stop()
}

func TestSocketRelay_SkipsWithoutToken(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	relay := NewSocketRelay(url, func(context.Context) string { return "" }, NewLocal(nil), nil).
		WithRedialInterval(5 * time.Millisecond)
	relay.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	relay.Stop()

	require.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestTopicFromWire(t *testing.T) {
	require.Equal(t, TopicCartChanged, topicFromWire("cart.changed"))
	require.Equal(t, TopicViewedChanged, topicFromWire("anything"))
}
