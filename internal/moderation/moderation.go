// Package moderation applies organizer actions to questions, polls and events.
//
// The transforms are pure: they take the current entity and the requested
// partial update and return the new entity plus the side-effect commands a
// repository must run in the same transaction, before the entity itself is
// written. Commands carry the cross-entity rules: at most one
// presenter-visible question and at most one active poll per event.
package moderation

import (
	"encoding/json"
	"time"

	"github.com/liewchinchuan/EventStream/internal/models"
)

// CommandKind identifies a side effect.
type CommandKind int

const (
	// ClearPresenter clears isDisplayedInPresenter on every non-hidden question
	// of EventID other than KeepID.
	ClearPresenter CommandKind = iota + 1
	// DeactivatePolls clears isActive on every poll of EventID other than KeepID.
	// KeepID is zero for a poll that does not exist yet.
	DeactivatePolls
)

func (k CommandKind) String() string {
	switch k {
	case ClearPresenter:
		return "clear_presenter"
	case DeactivatePolls:
		return "deactivate_polls"
	default:
		return "unknown"
	}
}

// Command is a side effect emitted by a transform.
type Command struct {
	Kind    CommandKind
	EventID int64
	KeepID  int64
}

// QuestionChanges is a partial question update. Nil fields are left untouched.
type QuestionChanges struct {
	Text                   *string `json:"text" binding:"omitempty,min=1,max=2000"`
	IsApproved             *bool   `json:"isApproved"`
	IsAnswered             *bool   `json:"isAnswered"`
	IsPinned               *bool   `json:"isPinned"`
	IsHidden               *bool   `json:"isHidden"`
	IsDisplayedInPresenter *bool   `json:"isDisplayedInPresenter"`
}

// ApplyQuestion applies ch to q.
//
// Hiding is one-way: a request to unhide is ignored. A hidden question never
// stays presenter-visible.
func ApplyQuestion(q models.Question, ch QuestionChanges) (models.Question, []Command) {
	var cmds []Command

	if ch.Text != nil {
		q.Text = *ch.Text
	}
	if ch.IsApproved != nil {
		q.IsApproved = *ch.IsApproved
	}
	if ch.IsAnswered != nil {
		q.IsAnswered = *ch.IsAnswered
	}
	if ch.IsPinned != nil {
		q.IsPinned = *ch.IsPinned
	}
	if ch.IsHidden != nil && *ch.IsHidden {
		q.IsHidden = true
	}
	if ch.IsDisplayedInPresenter != nil {
		q.IsDisplayedInPresenter = *ch.IsDisplayedInPresenter
		if *ch.IsDisplayedInPresenter && !q.IsHidden {
			cmds = append(cmds, Command{Kind: ClearPresenter, EventID: q.EventID, KeepID: q.ID})
		}
	}
	if q.IsHidden {
		q.IsDisplayedInPresenter = false
	}
	return q, cmds
}

// PollChanges is a partial poll update.
type PollChanges struct {
	Question    *string  `json:"question" binding:"omitempty,min=1,max=500"`
	Options     []string `json:"options" binding:"omitempty,dive,min=1,max=200"`
	IsActive    *bool    `json:"isActive"`
	IsAnonymous *bool    `json:"isAnonymous"`
	ShowResults *bool    `json:"showResults"`
}

// ApplyPoll applies ch to p. Activating a poll deactivates every other poll of its event.
func ApplyPoll(p models.Poll, ch PollChanges) (models.Poll, []Command) {
	if ch.Question != nil {
		p.Question = *ch.Question
	}
	if ch.Options != nil {
		p.Options = append([]string(nil), ch.Options...)
	}
	if ch.IsAnonymous != nil {
		p.IsAnonymous = *ch.IsAnonymous
	}
	if ch.ShowResults != nil {
		p.ShowResults = *ch.ShowResults
	}
	if ch.IsActive != nil {
		p.IsActive = *ch.IsActive
	}
	return p, ActivationCommands(p)
}

// ActivationCommands returns the commands needed to make p the only active poll
// of its event. It returns nil for an inactive poll.
func ActivationCommands(p models.Poll) []Command {
	if !p.IsActive {
		return nil
	}
	return []Command{{Kind: DeactivatePolls, EventID: p.EventID, KeepID: p.ID}}
}

// EventChanges is a partial update of an event's settings.
type EventChanges struct {
	Name           *string         `json:"name" binding:"omitempty,min=1,max=200"`
	Description    *string         `json:"description"`
	IsActive       *bool           `json:"isActive"`
	AllowQuestions *bool           `json:"allowQuestions"`
	AllowAnonymous *bool           `json:"allowAnonymous"`
	AutoApprove    *bool           `json:"autoApprove"`
	ShowVoting     *bool           `json:"showVoting"`
	StartTime      *time.Time      `json:"startTime"`
	EndTime        *time.Time      `json:"endTime"`
	Branding       json.RawMessage `json:"branding"`
}

// ApplyEvent applies ch to e. Event settings touch no other entity.
func ApplyEvent(e models.Event, ch EventChanges) models.Event {
	if ch.Name != nil {
		e.Name = *ch.Name
	}
	if ch.Description != nil {
		e.Description = ch.Description
	}
	if ch.IsActive != nil {
		e.IsActive = *ch.IsActive
	}
	if ch.AllowQuestions != nil {
		e.AllowQuestions = *ch.AllowQuestions
	}
	if ch.AllowAnonymous != nil {
		e.AllowAnonymous = *ch.AllowAnonymous
	}
	if ch.AutoApprove != nil {
		e.AutoApprove = *ch.AutoApprove
	}
	if ch.ShowVoting != nil {
		e.ShowVoting = *ch.ShowVoting
	}
	if ch.StartTime != nil {
		e.StartTime = ch.StartTime
	}
	if ch.EndTime != nil {
		e.EndTime = ch.EndTime
	}
	if len(ch.Branding) > 0 {
		e.Branding = append(json.RawMessage(nil), ch.Branding...)
	}
	return e
}
