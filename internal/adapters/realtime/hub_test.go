package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
)

func startHub(t *testing.T, opts HubOptions) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t), opts)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trip := domain.TripID(r.URL.Query().Get("trip"))
		_ = hub.Serve(w, r, trip, "m1")
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, trip string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?trip=" + trip
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_DeliversEventsToTripSubscribers(t *testing.T) {
	t.Parallel()

	hub, srv := startHub(t, HubOptions{})
	a := dial(t, srv, "t1")
	b := dial(t, srv, "t2")
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("t1") == 1 && hub.SubscriberCount("t2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(context.Background(), events.Event{Type: events.PinCreated, TripID: "t1", EntityID: "p1", ActorID: "m2", At: at})

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := a.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "pin.created", got["type"])
	assert.Equal(t, "t1", got["tripId"])
	assert.Equal(t, "p1", got["entityId"])
	assert.Equal(t, "m2", got["actorId"])
	assert.Equal(t, "2026-05-01T12:00:00Z", got["at"])

	require.NoError(t, b.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = b.ReadMessage()
	require.Error(t, err, "subscriber of another trip must not receive the event")
}

func TestHub_DisconnectUnsubscribes(t *testing.T) {
	t.Parallel()

	hub, srv := startHub(t, HubOptions{})
	conn := dial(t, srv, "t1")
	require.Eventually(t, func() bool { return hub.SubscriberCount("t1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.SubscriberCount("t1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_TripDeletedClosesSubscribers(t *testing.T) {
	t.Parallel()

	hub, srv := startHub(t, HubOptions{})
	conn := dial(t, srv, "t1")
	require.Eventually(t, func() bool { return hub.SubscriberCount("t1") == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), events.Event{Type: events.TripDeleted, TripID: "t1", At: time.Now()})
	assert.Equal(t, 0, hub.SubscriberCount("t1"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"trip.deleted"`)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err=%v", err)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(zaptest.NewLogger(t), HubOptions{BufferSize: 1})
	c := &client{tripID: "t1", memberID: "m1", send: make(chan []byte, 1)}
	require.True(t, hub.add(c))

	hub.Publish(context.Background(), events.Event{Type: events.PinUpdated, TripID: "t1"})
	assert.Equal(t, 1, hub.SubscriberCount("t1"))

	// The buffer is full and nobody drains it.
	hub.Publish(context.Background(), events.Event{Type: events.PinUpdated, TripID: "t1"})
	assert.Equal(t, 0, hub.SubscriberCount("t1"))

	<-c.send
	_, open := <-c.send
	assert.False(t, open, "send channel must be closed after the drop")
}

func TestHub_ClosedHubRejectsSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(zaptest.NewLogger(t), HubOptions{})
	hub.Close()
	assert.False(t, hub.add(&client{tripID: "t1", send: make(chan []byte, 1)}))
}

func TestHub_CheckOrigin(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, HubOptions{AllowedOrigins: []string{"http://localhost:3000"}})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://api.example.com/trips/t1/events", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, hub.checkOrigin(req("")))
	assert.True(t, hub.checkOrigin(req("http://localhost:3000")))
	assert.True(t, hub.checkOrigin(req("http://api.example.com")))
	assert.False(t, hub.checkOrigin(req("http://evil.example.com")))
}

func TestHub_ParticipantRemovedDropsOnlyThatMember(t *testing.T) {
	t.Parallel()

	hub := NewHub(zaptest.NewLogger(t), HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "t1", domain.MemberID(r.URL.Query().Get("member")))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?member="
	connect := func(member string) *websocket.Conn {
		conn, resp, err := websocket.DefaultDialer.Dial(base+member, nil)
		require.NoError(t, err)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	stays := connect("m1")
	leaves := connect("m2")
	require.Eventually(t, func() bool { return hub.SubscriberCount("t1") == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), events.Event{Type: events.ParticipantRemoved, TripID: "t1", EntityID: "m2", ActorID: "m1", At: time.Now()})
	assert.Equal(t, 1, hub.SubscriberCount("t1"))
	hub.Publish(context.Background(), events.Event{Type: events.PinCreated, TripID: "t1", EntityID: "p1", At: time.Now()})

	require.NoError(t, leaves.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := leaves.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"participant.removed"`)
	_, _, err = leaves.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err=%v", err)

	require.NoError(t, stays.SetReadDeadline(time.Now().Add(2*time.Second)))
	for _, want := range []string{`"participant.removed"`, `"pin.created"`} {
		_, raw, err := stays.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(raw), want)
	}
}
