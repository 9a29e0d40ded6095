package models

import (
	"encoding/json"
	"time"
)

// PollType selects how responses are shaped and tallied.
type PollType string

const (
	PollMultipleChoice PollType = "multiple-choice"
	PollOpenText       PollType = "open-text"
	PollWordCloud      PollType = "word-cloud"
	PollRating         PollType = "rating"
)

// Poll represents a poll launched in an event.
type Poll struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"eventId"`
	Question    string    `json:"question"`
	Type        PollType  `json:"type"`
	Options     []string  `json:"options"`
	IsActive    bool      `json:"isActive"`
	IsAnonymous bool      `json:"isAnonymous"`
	ShowResults bool      `json:"showResults"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PollResponse is one participant's answer. The payload shape depends on the poll type,
// e.g. {"option": "A"} for multiple-choice.
type PollResponse struct {
	ID            int64           `json:"id"`
	PollID        int64           `json:"pollId"`
	ParticipantID *int64          `json:"participantId"`
	Response      json.RawMessage `json:"response"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OptionResult is the tally of one multiple-choice option.
type OptionResult struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// PollResults is the derived tally of a poll.
type PollResults struct {
	PollID         int64             `json:"pollId"`
	Question       string            `json:"question"`
	Type           PollType          `json:"type"`
	TotalResponses int               `json:"totalResponses"`
	Results        []OptionResult    `json:"results"`
	Responses      []json.RawMessage `json:"responses,omitempty"`
}
