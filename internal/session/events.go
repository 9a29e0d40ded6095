package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/realtime"
)

// CreateEvent creates an event owned by organizerID. New events have no
// audience yet, so nothing is broadcast.
func (c *Coordinator) CreateEvent(ctx context.Context, organizerID int64, in NewEvent) (_ models.Event, err error) {
	ctx, span := c.startSpan(ctx, "CreateEvent", attribute.String("event.slug", in.Slug))
	defer func() { endSpan(span, err) }()

	e := models.Event{
		Slug:           in.Slug,
		Name:           in.Name,
		Description:    in.Description,
		OrganizerID:    organizerID,
		IsActive:       in.IsActive,
		AllowQuestions: boolOr(in.AllowQuestions, true),
		AllowAnonymous: boolOr(in.AllowAnonymous, true),
		AutoApprove:    boolOr(in.AutoApprove, true),
		ShowVoting:     boolOr(in.ShowVoting, true),
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Branding:       in.Branding,
	}
	if err := c.store.Events.CreateEvent(ctx, &e); err != nil {
		return models.Event{}, c.fail("create event", err)
	}
	return e, nil
}

// GetEvent returns an event by id.
func (c *Coordinator) GetEvent(ctx context.Context, id int64) (models.Event, error) {
	e, err := c.store.Events.GetEvent(ctx, id)
	if err != nil {
		return models.Event{}, c.fail("get event", err)
	}
	return e, nil
}

// GetEventBySlug returns an event by slug.
func (c *Coordinator) GetEventBySlug(ctx context.Context, slug string) (models.Event, error) {
	e, err := c.store.Events.GetEventBySlug(ctx, slug)
	if err != nil {
		return models.Event{}, c.fail("get event by slug", err)
	}
	return e, nil
}

// ListActiveEvents returns the active events, newest first.
func (c *Coordinator) ListActiveEvents(ctx context.Context) ([]models.Event, error) {
	list, err := c.store.Events.ListActiveEvents(ctx)
	if err != nil {
		return nil, c.fail("list active events", err)
	}
	return list, nil
}

// ListOrganizerEvents returns the events of one organizer, newest first.
func (c *Coordinator) ListOrganizerEvents(ctx context.Context, organizerID int64) ([]models.Event, error) {
	list, err := c.store.Events.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, c.fail("list organizer events", err)
	}
	return list, nil
}

// UpdateEvent applies a settings change and broadcasts event_updated.
func (c *Coordinator) UpdateEvent(ctx context.Context, id int64, ch moderation.EventChanges) (_ models.Event, err error) {
	ctx, span := c.startSpan(ctx, "UpdateEvent", attribute.Int64("event.id", id))
	defer func() { endSpan(span, err) }()

	unlock := c.lockEvent(id)
	defer unlock()

	current, err := c.store.Events.GetEvent(ctx, id)
	if err != nil {
		return models.Event{}, c.fail("get event", err)
	}
	updated := moderation.ApplyEvent(current, ch)
	if err := c.store.Events.UpdateEvent(ctx, updated); err != nil {
		return models.Event{}, c.fail("update event", err)
	}
	c.hub.Broadcast(id, realtime.EventUpdated{Event: updated})
	return updated, nil
}

// EventStats returns the analytics summary of an event, including the number
// of connections currently watching it.
func (c *Coordinator) EventStats(ctx context.Context, id int64) (models.EventStats, error) {
	if _, err := c.store.Events.GetEvent(ctx, id); err != nil {
		return models.EventStats{}, c.fail("get event", err)
	}
	stats, err := c.store.Events.EventStats(ctx, id)
	if err != nil {
		return models.EventStats{}, c.fail("event stats", err)
	}
	stats.Connected = c.hub.AudienceCount(id)
	return stats, nil
}
