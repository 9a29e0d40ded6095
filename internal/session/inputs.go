package session

import (
	"encoding/json"
	"time"

	"github.com/liewchinchuan/EventStream/internal/models"
)

// NewEvent is the body of an event creation.
type NewEvent struct {
	Slug           string          `json:"slug" binding:"required,min=3,max=100"`
	Name           string          `json:"name" binding:"required,min=1,max=200"`
	Description    *string         `json:"description"`
	IsActive       bool            `json:"isActive"`
	AllowQuestions *bool           `json:"allowQuestions"`
	AllowAnonymous *bool           `json:"allowAnonymous"`
	AutoApprove    *bool           `json:"autoApprove"`
	ShowVoting     *bool           `json:"showVoting"`
	StartTime      *time.Time      `json:"startTime"`
	EndTime        *time.Time      `json:"endTime"`
	Branding       json.RawMessage `json:"branding"`
}

// NewQuestion is the body of a question submission.
type NewQuestion struct {
	Text        string  `json:"text" binding:"required,min=1,max=2000"`
	AuthorID    *int64  `json:"authorId"`
	AuthorName  *string `json:"authorName" binding:"omitempty,max=100"`
	IsAnonymous bool    `json:"isAnonymous"`
}

// Vote is the body of a question vote.
type Vote struct {
	ParticipantID int64           `json:"participantId" binding:"required,gt=0"`
	VoteType      models.VoteType `json:"voteType" binding:"required,oneof=upvote downvote"`
}

// NewPoll is the body of a poll creation.
type NewPoll struct {
	Question    string          `json:"question" binding:"required,min=1,max=500"`
	Type        models.PollType `json:"type" binding:"required,oneof=multiple-choice open-text word-cloud rating"`
	Options     []string        `json:"options" binding:"omitempty,dive,min=1,max=200"`
	IsActive    bool            `json:"isActive"`
	IsAnonymous *bool           `json:"isAnonymous"`
	ShowResults *bool           `json:"showResults"`
}

// NewPollResponse is the body of a poll response.
type NewPollResponse struct {
	ParticipantID *int64          `json:"participantId"`
	Response      json.RawMessage `json:"response" binding:"required"`
}

// NewParticipant is the body of an event join.
type NewParticipant struct {
	UserID      *int64  `json:"userId"`
	SessionID   *string `json:"sessionId" binding:"omitempty,max=200"`
	Name        *string `json:"name" binding:"omitempty,max=100"`
	IsAnonymous *bool   `json:"isAnonymous"`
}

// PresenterView is what the presenter screen shows for an event.
type PresenterView struct {
	Event    models.Event        `json:"event"`
	Question *models.Question    `json:"question"`
	Poll     *models.Poll        `json:"poll"`
	Results  *models.PollResults `json:"results,omitempty"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
