package models

import "time"

// Question represents an audience question in an event.
type Question struct {
	ID                     int64     `json:"id"`
	EventID                int64     `json:"eventId"`
	AuthorID               *int64    `json:"authorId"`
	AuthorName             *string   `json:"authorName"`
	Text                   string    `json:"text"`
	IsAnonymous            bool      `json:"isAnonymous"`
	IsApproved             bool      `json:"isApproved"`
	IsAnswered             bool      `json:"isAnswered"`
	IsPinned               bool      `json:"isPinned"`
	IsHidden               bool      `json:"isHidden"`
	IsDisplayedInPresenter bool      `json:"isDisplayedInPresenter"`
	Upvotes                int       `json:"upvotes"`
	Downvotes              int       `json:"downvotes"`
	CreatedAt              time.Time `json:"createdAt"`
}

// VoteType is the direction of a question vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// QuestionVote is one participant's vote on a question. At most one per (question, participant).
type QuestionVote struct {
	ID            int64     `json:"id"`
	QuestionID    int64     `json:"questionId"`
	ParticipantID int64     `json:"participantId"`
	VoteType      VoteType  `json:"voteType"`
	CreatedAt     time.Time `json:"createdAt"`
}
