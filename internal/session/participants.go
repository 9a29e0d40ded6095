package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/realtime"
)

// JoinEvent registers a participant and broadcasts participant_joined.
func (c *Coordinator) JoinEvent(ctx context.Context, eventID int64, in NewParticipant) (_ models.Participant, err error) {
	ctx, span := c.startSpan(ctx, "JoinEvent", attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	unlock := c.lockEvent(eventID)
	defer unlock()

	if _, err := c.openEvent(ctx, eventID); err != nil {
		return models.Participant{}, err
	}
	p := models.Participant{
		EventID:     eventID,
		UserID:      in.UserID,
		SessionID:   in.SessionID,
		Name:        in.Name,
		IsAnonymous: boolOr(in.IsAnonymous, true),
	}

	if err := c.store.Participants.CreateParticipant(ctx, &p); err != nil {
		return models.Participant{}, c.fail("create participant", err)
	}
	c.hub.Broadcast(eventID, realtime.ParticipantJoined{
		ParticipantID: &p.ID,
		UserID:        p.UserID,
		Participant:   &p,
	})
	return p, nil
}

// ListParticipants returns the participants of an event, most recent first.
func (c *Coordinator) ListParticipants(ctx context.Context, eventID int64) ([]models.Participant, error) {
	list, err := c.store.Participants.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, c.fail("list participants", err)
	}
	return list, nil
}
