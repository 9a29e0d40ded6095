// Package session runs the mutation cycle of an event: validate, transform,
// persist, broadcast.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/realtime"
)

const stripes = 64

// Coordinator serializes the mutations of each event so that the order of
// broadcasts matches the order of writes.
type Coordinator struct {
	store    Store
	hub      *realtime.Hub
	activity ActivitySink
	logger   *zap.Logger
	tracer   trace.Tracer

	locks [stripes]sync.Mutex
}

// NewCoordinator creates a coordinator. A nil activity sink writes heartbeats
// straight to the participant store.
func NewCoordinator(store Store, hub *realtime.Hub, activity ActivitySink, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if activity == nil {
		activity = NewDirectActivity(store.Participants)
	}
	return &Coordinator{
		store:    store,
		hub:      hub,
		activity: activity,
		logger:   logger,
		tracer:   otel.Tracer("github.com/liewchinchuan/EventStream/internal/session"),
	}
}

// lockEvent takes the stripe guarding eventID and returns its unlock.
func (c *Coordinator) lockEvent(eventID int64) func() {
	m := &c.locks[uint64(eventID)%stripes]
	m.Lock()
	return m.Unlock
}

func (c *Coordinator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "session."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// fail classifies err and logs infrastructure failures.
func (c *Coordinator) fail(op string, err error) error {
	err = apperr.Persistence(op, err)
	var pe *apperr.PersistenceError
	if errors.As(err, &pe) {
		c.logger.Error("session operation failed", zap.String("op", op), zap.Error(pe.Err))
	}
	return err
}

// openEvent loads an event that still accepts participation. Callers hold the
// event lock so a concurrent close is seen.
func (c *Coordinator) openEvent(ctx context.Context, eventID int64) (models.Event, error) {
	event, err := c.store.Events.GetEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, c.fail("get event", err)
	}
	if !event.IsActive {
		return models.Event{}, apperr.Invalid("eventId", "event is not active")
	}
	return event, nil
}

// RecordActivity refreshes a participant's last-active time.
func (c *Coordinator) RecordActivity(ctx context.Context, participantID int64) error {
	if participantID <= 0 {
		return apperr.Invalid("participantId", "must be positive")
	}
	if err := c.activity.RecordActivity(ctx, participantID); err != nil {
		return c.fail("record activity", err)
	}
	return nil
}

// DirectActivity writes heartbeats synchronously.
type DirectActivity struct {
	store ParticipantStore
	now   func() time.Time
}

// NewDirectActivity creates a sink writing to store.
func NewDirectActivity(store ParticipantStore) *DirectActivity {
	return &DirectActivity{store: store, now: time.Now}
}

// RecordActivity implements ActivitySink.
func (d *DirectActivity) RecordActivity(ctx context.Context, participantID int64) error {
	return d.store.TouchParticipant(ctx, participantID, d.now().UTC())
}
