package session

import (
	"context"
	"time"

	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
)

// EventStore persists events.
type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id int64) (models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (models.Event, error)
	ListActiveEvents(ctx context.Context) ([]models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error)
	UpdateEvent(ctx context.Context, e models.Event) error
	// EventStats returns the persisted counts; Connected is left zero.
	EventStats(ctx context.Context, eventID int64) (models.EventStats, error)
}

// QuestionStore persists questions and their votes.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id int64) (models.Question, error)
	// ListQuestions returns the non-hidden questions of an event, pinned first,
	// then by upvotes, then newest first.
	ListQuestions(ctx context.Context, eventID int64) ([]models.Question, error)
	// PresenterQuestion returns the presenter-visible question of an event, or nil.
	PresenterQuestion(ctx context.Context, eventID int64) (*models.Question, error)
	// UpdateQuestion runs cmds and writes q in one transaction. It returns the
	// questions whose presenter flag was cleared by the commands.
	UpdateQuestion(ctx context.Context, q models.Question, cmds []moderation.Command) ([]models.Question, error)
	// VoteQuestion replaces the participant's vote and recounts the question.
	VoteQuestion(ctx context.Context, questionID, participantID int64, vt models.VoteType) (models.Question, error)
	// RetractVote deletes the participant's vote, if any, and recounts the question.
	RetractVote(ctx context.Context, questionID, participantID int64) (models.Question, error)
}

// PollStore persists polls and their responses.
type PollStore interface {
	// CreatePoll runs cmds and inserts p in one transaction. It returns the
	// polls deactivated by the commands.
	CreatePoll(ctx context.Context, p *models.Poll, cmds []moderation.Command) ([]models.Poll, error)
	GetPoll(ctx context.Context, id int64) (models.Poll, error)
	// ListPolls returns the polls of an event, newest first.
	ListPolls(ctx context.Context, eventID int64) ([]models.Poll, error)
	// ActivePoll returns the active poll of an event, or nil.
	ActivePoll(ctx context.Context, eventID int64) (*models.Poll, error)
	// UpdatePoll runs cmds and writes p in one transaction. It returns the polls
	// deactivated by the commands.
	UpdatePoll(ctx context.Context, p models.Poll, cmds []moderation.Command) ([]models.Poll, error)
	CreateResponse(ctx context.Context, r *models.PollResponse) error
	ListResponses(ctx context.Context, pollID int64) ([]models.PollResponse, error)
}

// ParticipantStore persists participants.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, p *models.Participant) error
	// ListParticipants returns the participants of an event, most recent first.
	ListParticipants(ctx context.Context, eventID int64) ([]models.Participant, error)
	TouchParticipant(ctx context.Context, id int64, at time.Time) error
}

// Store groups the repositories the coordinator writes through.
type Store struct {
	Events       EventStore
	Questions    QuestionStore
	Polls        PollStore
	Participants ParticipantStore
}

// ActivitySink receives participant heartbeats. It either writes them
// directly or queues them for the activity worker.
type ActivitySink interface {
	RecordActivity(ctx context.Context, participantID int64) error
}
