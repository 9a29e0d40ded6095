package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/liewchinchuan/EventStream/internal/models"
)

func int64p(v int64) *int64 { return &v }

func TestBroadcastReachesOnlyTheEvent(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	a, b, other := newFakeConn("a"), newFakeConn("b"), newFakeConn("other")
	hub.Registry().Subscribe(7, a)
	hub.Registry().Subscribe(7, b)
	hub.Registry().Subscribe(12, other)

	hub.Broadcast(7, NewQuestion{models.Question{ID: 1, EventID: 7, Text: "Why Go?"}})

	assert.Equal(t, []string{"new_question"}, a.types(t))
	assert.Equal(t, []string{"new_question"}, b.types(t))
	assert.Empty(t, other.types(t))
}

func TestBroadcastIsolatesFailingConnections(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	hub := NewHub(NewRegistry(nil), zap.New(core))

	ok1, broken, ok2 := newFakeConn("ok1"), newFakeConn("broken"), newFakeConn("ok2")
	broken.err = errors.New("use of closed network connection")
	for _, c := range []*fakeConn{ok1, broken, ok2} {
		hub.Registry().Subscribe(9, c)
	}

	assert.NotPanics(t, func() {
		hub.Broadcast(9, PollUpdated{models.Poll{ID: 2, EventID: 9}})
	})

	assert.Len(t, ok1.types(t), 1)
	assert.Len(t, ok2.types(t), 1)
	assert.Empty(t, broken.types(t))
	require.Equal(t, 1, logs.FilterMessage("broadcast delivery failed").Len())
}

func TestBroadcastSurvivesPanickingSend(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	good, bad := newFakeConn("good"), newFakeConn("bad")
	bad.panics = true
	hub.Registry().Subscribe(9, good)
	hub.Registry().Subscribe(9, bad)

	assert.NotPanics(t, func() {
		hub.Broadcast(9, EventUpdated{models.Event{ID: 9}})
	})
	assert.Equal(t, []string{"event_updated"}, good.types(t))
}

func TestBroadcastPreservesCallOrder(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	c := newFakeConn("c")
	hub.Registry().Subscribe(3, c)

	hub.Broadcast(3, QuestionUpdated{models.Question{ID: 1}})
	hub.Broadcast(3, QuestionUpdated{models.Question{ID: 2}})
	hub.Broadcast(3, QuestionVote{models.Question{ID: 2, Upvotes: 1}})

	envs := c.envelopes(t)
	require.Len(t, envs, 3)
	assert.Equal(t, float64(1), envs[0]["data"].(map[string]any)["id"])
	assert.Equal(t, float64(2), envs[1]["data"].(map[string]any)["id"])
	assert.Equal(t, "question_vote", envs[2]["type"])
}

func TestJoinSkipsTheJoiner(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	watcher, joiner := newFakeConn("watcher"), newFakeConn("joiner")
	hub.Registry().Subscribe(7, watcher)

	hub.Join(joiner, 7, ParticipantJoined{ParticipantID: int64p(5)}, nil)

	assert.Empty(t, joiner.types(t))
	envs := watcher.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "participant_joined", envs[0]["type"])
	assert.Equal(t, float64(5), envs[0]["data"].(map[string]any)["participantId"])
}

func TestJoinAnotherEventAnnouncesDeparture(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	oldRoom, mover := newFakeConn("old"), newFakeConn("mover")
	hub.Registry().Subscribe(1, oldRoom)
	hub.Join(mover, 1, ParticipantJoined{ParticipantID: int64p(5)}, nil)

	hub.Join(mover, 2, ParticipantJoined{ParticipantID: int64p(5)}, int64p(5))

	assert.Equal(t, []string{"participant_joined", "participant_left"}, oldRoom.types(t))
	assert.Equal(t, 1, hub.AudienceCount(2))
	assert.Equal(t, 1, hub.AudienceCount(1))
}

func TestRejoinAsAnotherParticipantAnnouncesDeparture(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	watcher, conn := newFakeConn("watcher"), newFakeConn("conn")
	hub.Registry().Subscribe(3, watcher)
	hub.Join(conn, 3, ParticipantJoined{ParticipantID: int64p(5)}, nil)

	// Same participant again: no departure.
	hub.Join(conn, 3, ParticipantJoined{ParticipantID: int64p(5)}, int64p(5))
	hub.Join(conn, 3, ParticipantJoined{ParticipantID: int64p(6)}, int64p(5))

	envs := watcher.envelopes(t)
	require.Len(t, envs, 4)
	assert.Equal(t, []string{"participant_joined", "participant_joined", "participant_left", "participant_joined"}, watcher.types(t))
	assert.Equal(t, float64(5), envs[2]["data"].(map[string]any)["participantId"])
	assert.Equal(t, float64(6), envs[3]["data"].(map[string]any)["participantId"])
	assert.Empty(t, conn.types(t))
	assert.Equal(t, 2, hub.AudienceCount(3))
}

func TestLeaveAnnouncesKnownParticipants(t *testing.T) {
	hub := NewHub(NewRegistry(nil), nil)
	watcher, anon, known := newFakeConn("w"), newFakeConn("anon"), newFakeConn("known")
	hub.Registry().Subscribe(4, watcher)
	hub.Registry().Subscribe(4, anon)
	hub.Registry().Subscribe(4, known)

	hub.Leave(anon, nil)
	hub.Leave(known, int64p(11))
	hub.Leave(known, int64p(11))

	envs := watcher.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, "participant_left", envs[0]["type"])
	assert.Equal(t, 1, hub.AudienceCount(4))
}
