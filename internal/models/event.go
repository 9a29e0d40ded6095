package models

import (
	"encoding/json"
	"time"
)

// Event is one audience-engagement session with its own questions, polls and participants.
type Event struct {
	ID             int64           `json:"id"`
	Slug           string          `json:"slug"`
	Name           string          `json:"name"`
	Description    *string         `json:"description"`
	OrganizerID    int64           `json:"organizerId"`
	IsActive       bool            `json:"isActive"`
	AllowQuestions bool            `json:"allowQuestions"`
	AllowAnonymous bool            `json:"allowAnonymous"`
	AutoApprove    bool            `json:"autoApprove"`
	ShowVoting     bool            `json:"showVoting"`
	StartTime      *time.Time      `json:"startTime"`
	EndTime        *time.Time      `json:"endTime"`
	Branding       json.RawMessage `json:"branding,omitempty"` // { logo, primaryColor, ... }
	CreatedAt      time.Time       `json:"createdAt"`
}

// EventStats is the analytics summary for one event.
type EventStats struct {
	Participants int `json:"participants"`
	Questions    int `json:"questions"`
	Polls        int `json:"polls"`
	Connected    int `json:"connected"`
}
