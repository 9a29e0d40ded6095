package realtime

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/liewchinchuan/EventStream/internal/apperr"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Hub broadcasts messages to the connections of an event.
// Delivery is best-effort: at most once per live connection per call, no retry,
// no buffering for connections that are not subscribed.
type Hub struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHub creates a hub delivering through registry.
func NewHub(registry *Registry, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{registry: registry, logger: logger}
}

// Registry returns the registry the hub delivers through.
func (h *Hub) Registry() *Registry { return h.registry }

// Broadcast sends m to every connection subscribed to eventID.
func (h *Hub) Broadcast(eventID int64, m Message) {
	h.BroadcastExcept(eventID, m, nil)
}

// BroadcastExcept sends m to every connection subscribed to eventID other than except.
// Send failures are logged per connection and never stop delivery to the rest.
func (h *Hub) BroadcastExcept(eventID int64, m Message, except Conn) {
	payload, err := Encode(m)
	if err != nil {
		h.logger.Error("encode broadcast", zap.String("type", string(m.Tag())), zap.Error(err))
		return
	}
	conns := h.registry.SubscribersOf(eventID)
	if len(conns) == 0 {
		return
	}
	failed := 0
	for _, c := range conns {
		if except != nil && c.ID() == except.ID() {
			continue
		}
		if err := deliver(c, payload); err != nil {
			failed++
			h.logger.Warn("broadcast delivery failed",
				zap.Int64("event_id", eventID),
				zap.String("type", string(m.Tag())),
				zap.Error(&apperr.DeliveryError{ConnID: c.ID(), Err: err}),
			)
		}
	}
	h.logger.Debug("broadcast",
		zap.Int64("event_id", eventID),
		zap.String("type", string(m.Tag())),
		zap.Int("connections", len(conns)),
		zap.Int("failed", failed),
	)
}

func deliver(c Conn, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return c.Send(payload)
}

// Join subscribes c to eventID and announces it to the event's other connections.
// leaving is the participant c carried before. It is announced as gone when c
// moves away from another event, or when c rejoins the same event as someone else.
func (h *Hub) Join(c Conn, eventID int64, joined ParticipantJoined, leaving *int64) {
	before, wasSubscribed := h.registry.EventOf(c)
	prev, moved := h.registry.Subscribe(eventID, c)
	switch {
	case leaving == nil:
	case moved:
		h.Broadcast(prev, ParticipantLeft{ParticipantID: *leaving})
	case wasSubscribed && before == eventID && !sameParticipant(leaving, joined.ParticipantID):
		h.BroadcastExcept(eventID, ParticipantLeft{ParticipantID: *leaving}, c)
	}
	h.BroadcastExcept(eventID, joined, c)
	h.logger.Debug("client joined event", zap.String("client_id", c.ID()), zap.Int64("event_id", eventID))
}

func sameParticipant(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

// Leave unsubscribes c and, when participantID is known, announces the departure.
func (h *Hub) Leave(c Conn, participantID *int64) {
	eventID, ok := h.registry.Unsubscribe(c)
	if !ok {
		return
	}
	if participantID != nil {
		h.Broadcast(eventID, ParticipantLeft{ParticipantID: *participantID})
	}
	h.logger.Debug("client left event", zap.String("client_id", c.ID()), zap.Int64("event_id", eventID))
}

// AudienceCount returns the number of connections subscribed to eventID.
func (h *Hub) AudienceCount(eventID int64) int {
	return h.registry.Count(eventID)
}
