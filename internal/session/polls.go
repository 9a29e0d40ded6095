package session

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/realtime"
	"github.com/liewchinchuan/EventStream/internal/tally"
)

// CreatePoll launches a poll. When it starts active, the polls it replaces are
// broadcast as poll_updated before new_poll.
func (c *Coordinator) CreatePoll(ctx context.Context, eventID int64, in NewPoll) (_ models.Poll, err error) {
	ctx, span := c.startSpan(ctx, "CreatePoll",
		attribute.Int64("event.id", eventID),
		attribute.String("poll.type", string(in.Type)),
	)
	defer func() { endSpan(span, err) }()

	if in.Type == models.PollMultipleChoice && len(in.Options) < 2 {
		return models.Poll{}, apperr.Invalid("options", "multiple-choice polls need at least two options")
	}
	if _, err := c.store.Events.GetEvent(ctx, eventID); err != nil {
		return models.Poll{}, c.fail("get event", err)
	}

	p := models.Poll{
		EventID:     eventID,
		Question:    in.Question,
		Type:        in.Type,
		Options:     in.Options,
		IsActive:    in.IsActive,
		IsAnonymous: boolOr(in.IsAnonymous, true),
		ShowResults: boolOr(in.ShowResults, true),
	}
	if p.Options == nil {
		p.Options = []string{}
	}

	unlock := c.lockEvent(eventID)
	defer unlock()

	deactivated, err := c.store.Polls.CreatePoll(ctx, &p, moderation.ActivationCommands(p))
	if err != nil {
		return models.Poll{}, c.fail("create poll", err)
	}
	for _, other := range deactivated {
		c.hub.Broadcast(eventID, realtime.PollUpdated{Poll: other})
	}
	c.hub.Broadcast(eventID, realtime.NewPoll{Poll: p})
	return p, nil
}

// UpdatePoll applies an organizer change. Polls deactivated by it are
// broadcast as poll_updated before the target.
func (c *Coordinator) UpdatePoll(ctx context.Context, id int64, ch moderation.PollChanges) (_ models.Poll, err error) {
	ctx, span := c.startSpan(ctx, "UpdatePoll", attribute.Int64("poll.id", id))
	defer func() { endSpan(span, err) }()

	p, err := c.store.Polls.GetPoll(ctx, id)
	if err != nil {
		return models.Poll{}, c.fail("get poll", err)
	}
	unlock := c.lockEvent(p.EventID)
	defer unlock()

	current, err := c.store.Polls.GetPoll(ctx, id)
	if err != nil {
		return models.Poll{}, c.fail("get poll", err)
	}
	updated, cmds := moderation.ApplyPoll(current, ch)
	if updated.Type == models.PollMultipleChoice && len(updated.Options) < 2 {
		return models.Poll{}, apperr.Invalid("options", "multiple-choice polls need at least two options")
	}
	deactivated, err := c.store.Polls.UpdatePoll(ctx, updated, cmds)
	if err != nil {
		return models.Poll{}, c.fail("update poll", err)
	}
	for _, other := range deactivated {
		c.hub.Broadcast(updated.EventID, realtime.PollUpdated{Poll: other})
	}
	c.hub.Broadcast(updated.EventID, realtime.PollUpdated{Poll: updated})
	return updated, nil
}

// ListPolls returns the polls of an event, newest first.
func (c *Coordinator) ListPolls(ctx context.Context, eventID int64) ([]models.Poll, error) {
	list, err := c.store.Polls.ListPolls(ctx, eventID)
	if err != nil {
		return nil, c.fail("list polls", err)
	}
	return list, nil
}

// ActivePoll returns the active poll of an event, or nil when none is running.
func (c *Coordinator) ActivePoll(ctx context.Context, eventID int64) (*models.Poll, error) {
	p, err := c.store.Polls.ActivePoll(ctx, eventID)
	if err != nil {
		return nil, c.fail("active poll", err)
	}
	return p, nil
}

// SubmitPollResponse records a response to an active poll and broadcasts
// poll_response with the recomputed results.
func (c *Coordinator) SubmitPollResponse(ctx context.Context, pollID int64, in NewPollResponse) (_ models.PollResponse, err error) {
	ctx, span := c.startSpan(ctx, "SubmitPollResponse", attribute.Int64("poll.id", pollID))
	defer func() { endSpan(span, err) }()

	p, err := c.store.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return models.PollResponse{}, c.fail("get poll", err)
	}
	unlock := c.lockEvent(p.EventID)
	defer unlock()

	if p, err = c.store.Polls.GetPoll(ctx, pollID); err != nil {
		return models.PollResponse{}, c.fail("get poll", err)
	}
	if _, err := c.openEvent(ctx, p.EventID); err != nil {
		return models.PollResponse{}, err
	}
	if !p.IsActive {
		return models.PollResponse{}, apperr.Invalid("pollId", "poll is not active")
	}
	if p.Type == models.PollMultipleChoice {
		opt, ok := tally.ResponseOption(in.Response)
		if !ok || !slices.Contains(p.Options, opt) {
			return models.PollResponse{}, apperr.Invalid("response", "unknown option")
		}
	}

	r := models.PollResponse{
		PollID:        pollID,
		ParticipantID: in.ParticipantID,
		Response:      in.Response,
	}
	if err := c.store.Polls.CreateResponse(ctx, &r); err != nil {
		return models.PollResponse{}, c.fail("create poll response", err)
	}
	// The response is stored: a failed tally only costs the broadcast.
	results, err := c.results(ctx, p)
	if err != nil {
		c.logger.Warn("poll response stored without broadcast", zap.Int64("poll_id", pollID), zap.Int64("response_id", r.ID), zap.Error(err))
		return r, nil
	}
	c.hub.Broadcast(p.EventID, realtime.PollResponse{Response: r, Results: results})
	return r, nil
}

// PollResults returns the current tally of a poll.
func (c *Coordinator) PollResults(ctx context.Context, pollID int64) (models.PollResults, error) {
	p, err := c.store.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return models.PollResults{}, c.fail("get poll", err)
	}
	return c.results(ctx, p)
}

func (c *Coordinator) results(ctx context.Context, p models.Poll) (models.PollResults, error) {
	responses, err := c.store.Polls.ListResponses(ctx, p.ID)
	if err != nil {
		return models.PollResults{}, c.fail("list poll responses", err)
	}
	return tally.PollResults(p, responses), nil
}
