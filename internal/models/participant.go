package models

import "time"

// Participant is one audience member's session within an event.
type Participant struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"eventId"`
	UserID       *int64    `json:"userId"`
	SessionID    *string   `json:"sessionId"`
	Name         *string   `json:"name"`
	IsAnonymous  bool      `json:"isAnonymous"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}
