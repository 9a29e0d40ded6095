package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedActivity struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordedActivity) RecordActivity(_ context.Context, participantID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, participantID)
	return nil
}

func (r *recordedActivity) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func newWsServer(t *testing.T, hub *Hub, activity ActivityRecorder) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", ServeWs(hub, activity, Options{}, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env map[string]any
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestClientJoinBroadcastAndLeave(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	activity := &recordedActivity{}
	url := newWsServer(t, hub, activity)

	watcher := dial(t, url)
	require.NoError(t, watcher.WriteJSON(map[string]any{"type": "join_event", "eventId": 7}))
	require.Eventually(t, func() bool { return hub.AudienceCount(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	stranger := dial(t, url)
	require.NoError(t, stranger.WriteJSON(map[string]any{"type": "join_event", "eventId": 12}))

	joiner := dial(t, url)
	require.NoError(t, joiner.WriteJSON(map[string]any{"type": "join_event", "eventId": 7, "participantId": 5}))

	env := readEnvelope(t, watcher)
	assert.Equal(t, "participant_joined", env["type"])
	assert.Equal(t, float64(5), env["data"].(map[string]any)["participantId"])

	require.Eventually(t, func() bool {
		return hub.AudienceCount(7) == 2 && hub.AudienceCount(12) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, joiner.WriteJSON(map[string]any{"type": "heartbeat"}))
	require.Eventually(t, func() bool { return activity.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(7, ParticipantLeft{ParticipantID: 99})
	env = readEnvelope(t, joiner)
	assert.Equal(t, "participant_left", env["type"], "joiner must not see its own join")

	require.NoError(t, joiner.Close())
	env = readEnvelope(t, watcher)
	assert.Equal(t, "participant_left", env["type"])
	assert.Equal(t, float64(99), env["data"].(map[string]any)["participantId"])
	env = readEnvelope(t, watcher)
	assert.Equal(t, "participant_left", env["type"])
	assert.Equal(t, float64(5), env["data"].(map[string]any)["participantId"])

	require.Eventually(t, func() bool { return hub.AudienceCount(7) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.AudienceCount(12))
}

func TestClientIgnoresMalformedMessages(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	url := newWsServer(t, hub, nil)

	conn := dial(t, url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join_event", "eventId": 0}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join_event", "eventId": 3}))

	require.Eventually(t, func() bool { return hub.AudienceCount(3) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Registry().Events())
}

func TestRegistryShutdownClosesSockets(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	url := newWsServer(t, hub, nil)

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join_event", "eventId": 1}))
	require.Eventually(t, func() bool { return hub.AudienceCount(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Registry().Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
