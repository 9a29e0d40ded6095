package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Conn is one live real-time channel.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Registry maps event ids to the connections subscribed to them.
// A connection is subscribed to at most one event at a time.
type Registry struct {
	mu     sync.RWMutex
	events map[int64]map[string]Conn // eventID -> connID -> conn
	member map[string]int64          // connID -> eventID
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		events: make(map[int64]map[string]Conn),
		member: make(map[string]int64),
		logger: logger,
	}
}

// Subscribe registers c under eventID. If c was subscribed to another event it
// is moved, and that event is returned with moved set.
func (r *Registry) Subscribe(eventID int64, c Conn) (prev int64, moved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.member[c.ID()]; ok {
		if old == eventID {
			r.events[eventID][c.ID()] = c
			return 0, false
		}
		r.removeLocked(old, c.ID())
		prev, moved = old, true
	}
	set := r.events[eventID]
	if set == nil {
		set = make(map[string]Conn)
		r.events[eventID] = set
	}
	set[c.ID()] = c
	r.member[c.ID()] = eventID
	return prev, moved
}

// Unsubscribe removes c from its event. It reports the event c belonged to;
// ok is false when c was not registered.
func (r *Registry) Unsubscribe(c Conn) (eventID int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	eventID, ok = r.member[c.ID()]
	if !ok {
		return 0, false
	}
	r.removeLocked(eventID, c.ID())
	return eventID, true
}

func (r *Registry) removeLocked(eventID int64, connID string) {
	delete(r.member, connID)
	set := r.events[eventID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.events, eventID)
	}
}

// SubscribersOf returns a snapshot of the connections subscribed to eventID.
func (r *Registry) SubscribersOf(eventID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.events[eventID]
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// EventOf returns the event c is subscribed to.
func (r *Registry) EventOf(c Conn) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.member[c.ID()]
	return id, ok
}

// Count returns the number of connections subscribed to eventID.
func (r *Registry) Count(eventID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events[eventID])
}

// Events returns the number of events with at least one subscriber.
func (r *Registry) Events() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Shutdown drops every subscription and closes the connections.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	var conns []Conn
	for _, set := range r.events {
		for _, c := range set {
			conns = append(conns, c)
		}
	}
	r.events = make(map[int64]map[string]Conn)
	r.member = make(map[string]int64)
	r.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			r.logger.Debug("close connection on shutdown", zap.String("conn_id", c.ID()), zap.Error(err))
		}
	}
	r.logger.Info("realtime registry shut down", zap.Int("connections", len(conns)))
}
