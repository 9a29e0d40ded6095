package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/realtime"
)

// SubmitQuestion adds an audience question and broadcasts new_question.
// The event's settings decide whether questions and anonymity are allowed and
// whether the question starts approved.
func (c *Coordinator) SubmitQuestion(ctx context.Context, eventID int64, in NewQuestion) (_ models.Question, err error) {
	ctx, span := c.startSpan(ctx, "SubmitQuestion", attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	unlock := c.lockEvent(eventID)
	defer unlock()

	event, err := c.openEvent(ctx, eventID)
	if err != nil {
		return models.Question{}, err
	}
	if !event.AllowQuestions {
		return models.Question{}, apperr.Invalid("eventId", "event is not accepting questions")
	}
	if in.IsAnonymous && !event.AllowAnonymous {
		return models.Question{}, apperr.Invalid("isAnonymous", "event does not allow anonymous questions")
	}

	q := models.Question{
		EventID:     eventID,
		AuthorID:    in.AuthorID,
		AuthorName:  in.AuthorName,
		Text:        in.Text,
		IsAnonymous: in.IsAnonymous,
		IsApproved:  event.AutoApprove,
	}
	if q.IsAnonymous {
		q.AuthorName = nil
	}

	if err := c.store.Questions.CreateQuestion(ctx, &q); err != nil {
		return models.Question{}, c.fail("create question", err)
	}
	c.hub.Broadcast(eventID, realtime.NewQuestion{Question: q})
	return q, nil
}

// ListQuestions returns the visible questions of an event.
func (c *Coordinator) ListQuestions(ctx context.Context, eventID int64) ([]models.Question, error) {
	list, err := c.store.Questions.ListQuestions(ctx, eventID)
	if err != nil {
		return nil, c.fail("list questions", err)
	}
	return list, nil
}

// UpdateQuestion applies a moderation change. Every question whose presenter
// flag was cleared is broadcast as question_updated before the target.
func (c *Coordinator) UpdateQuestion(ctx context.Context, id int64, ch moderation.QuestionChanges) (_ models.Question, err error) {
	ctx, span := c.startSpan(ctx, "UpdateQuestion", attribute.Int64("question.id", id))
	defer func() { endSpan(span, err) }()

	// A question never changes event, so the first read only picks the lock.
	q, err := c.store.Questions.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, c.fail("get question", err)
	}
	unlock := c.lockEvent(q.EventID)
	defer unlock()

	current, err := c.store.Questions.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, c.fail("get question", err)
	}
	updated, cmds := moderation.ApplyQuestion(current, ch)
	cleared, err := c.store.Questions.UpdateQuestion(ctx, updated, cmds)
	if err != nil {
		return models.Question{}, c.fail("update question", err)
	}
	for _, other := range cleared {
		c.hub.Broadcast(updated.EventID, realtime.QuestionUpdated{Question: other})
	}
	c.hub.Broadcast(updated.EventID, realtime.QuestionUpdated{Question: updated})
	return updated, nil
}

// VoteQuestion records or replaces a participant's vote and broadcasts
// question_vote with the recounted totals.
func (c *Coordinator) VoteQuestion(ctx context.Context, id int64, v Vote) (_ models.Question, err error) {
	ctx, span := c.startSpan(ctx, "VoteQuestion",
		attribute.Int64("question.id", id),
		attribute.String("vote.type", string(v.VoteType)),
	)
	defer func() { endSpan(span, err) }()

	if v.ParticipantID <= 0 {
		return models.Question{}, apperr.Invalid("participantId", "is required")
	}
	if v.VoteType != models.VoteUp && v.VoteType != models.VoteDown {
		return models.Question{}, apperr.Invalid("voteType", "must be upvote or downvote")
	}
	return c.recount(ctx, id, func(ctx context.Context) (models.Question, error) {
		return c.store.Questions.VoteQuestion(ctx, id, v.ParticipantID, v.VoteType)
	})
}

// RetractVote removes a participant's vote and broadcasts question_vote.
func (c *Coordinator) RetractVote(ctx context.Context, id, participantID int64) (_ models.Question, err error) {
	ctx, span := c.startSpan(ctx, "RetractVote", attribute.Int64("question.id", id))
	defer func() { endSpan(span, err) }()

	if participantID <= 0 {
		return models.Question{}, apperr.Invalid("participantId", "is required")
	}
	return c.recount(ctx, id, func(ctx context.Context) (models.Question, error) {
		return c.store.Questions.RetractVote(ctx, id, participantID)
	})
}

func (c *Coordinator) recount(ctx context.Context, id int64, write func(context.Context) (models.Question, error)) (models.Question, error) {
	q, err := c.store.Questions.GetQuestion(ctx, id)
	if err != nil {
		return models.Question{}, c.fail("get question", err)
	}
	unlock := c.lockEvent(q.EventID)
	defer unlock()

	if _, err := c.openEvent(ctx, q.EventID); err != nil {
		return models.Question{}, err
	}
	q, err = write(ctx)
	if err != nil {
		return models.Question{}, c.fail("vote question", err)
	}
	c.hub.Broadcast(q.EventID, realtime.QuestionVote{Question: q})
	return q, nil
}

// PresenterView returns the presenter-visible question and the active poll of
// an event. Poll results are included when the poll shows them.
func (c *Coordinator) PresenterView(ctx context.Context, eventID int64) (PresenterView, error) {
	event, err := c.store.Events.GetEvent(ctx, eventID)
	if err != nil {
		return PresenterView{}, c.fail("get event", err)
	}
	view := PresenterView{Event: event}

	if view.Question, err = c.store.Questions.PresenterQuestion(ctx, eventID); err != nil {
		return PresenterView{}, c.fail("presenter question", err)
	}
	if view.Poll, err = c.store.Polls.ActivePoll(ctx, eventID); err != nil {
		return PresenterView{}, c.fail("active poll", err)
	}
	if view.Poll != nil && view.Poll.ShowResults {
		results, err := c.results(ctx, *view.Poll)
		if err != nil {
			return PresenterView{}, err
		}
		view.Results = &results
	}
	return view, nil
}
