package realtime

import (
	"encoding/json"

	"github.com/liewchinchuan/EventStream/internal/models"
)

// MessageType is the tag of a server-to-client message.
type MessageType string

const (
	TypeParticipantJoined MessageType = "participant_joined"
	TypeParticipantLeft   MessageType = "participant_left"
	TypeNewQuestion       MessageType = "new_question"
	TypeQuestionUpdated   MessageType = "question_updated"
	TypeQuestionVote      MessageType = "question_vote"
	TypeNewPoll           MessageType = "new_poll"
	TypePollUpdated       MessageType = "poll_updated"
	TypePollResponse      MessageType = "poll_response"
	TypeEventUpdated      MessageType = "event_updated"
)

// Message is the closed set of payloads the server broadcasts. Each
// implementation fixes the shape of "data" for its tag.
type Message interface {
	Tag() MessageType
	message()
}

// Envelope is the wire form of a Message.
type Envelope struct {
	Type MessageType `json:"type"`
	Data Message     `json:"data"`
}

// Encode serializes m inside its envelope.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(Envelope{Type: m.Tag(), Data: m})
}

// ParticipantJoined announces a participant in an event. Participant is set
// when the join came through the HTTP participant registration.
type ParticipantJoined struct {
	ParticipantID *int64              `json:"participantId"`
	UserID        *int64              `json:"userId"`
	Participant   *models.Participant `json:"participant,omitempty"`
}

// ParticipantLeft announces a participant's connection going away.
type ParticipantLeft struct {
	ParticipantID int64 `json:"participantId"`
}

// NewQuestion carries a freshly submitted question.
type NewQuestion struct{ models.Question }

// QuestionUpdated carries a question after a moderation change.
type QuestionUpdated struct{ models.Question }

// QuestionVote carries a question with recomputed vote counts.
type QuestionVote struct{ models.Question }

// NewPoll carries a freshly created poll.
type NewPoll struct{ models.Poll }

// PollUpdated carries a poll after an organizer change.
type PollUpdated struct{ models.Poll }

// PollResponse carries a new response with the recomputed results.
type PollResponse struct {
	Response models.PollResponse `json:"response"`
	Results  models.PollResults  `json:"results"`
}

// EventUpdated carries an event after a settings change.
type EventUpdated struct{ models.Event }

func (ParticipantJoined) Tag() MessageType { return TypeParticipantJoined }
func (ParticipantLeft) Tag() MessageType { return TypeParticipantLeft }
func (NewQuestion) Tag() MessageType { return TypeNewQuestion }
func (QuestionUpdated) Tag() MessageType { return TypeQuestionUpdated }
func (QuestionVote) Tag() MessageType { return TypeQuestionVote }
func (NewPoll) Tag() MessageType { return TypeNewPoll }
func (PollUpdated) Tag() MessageType { return TypePollUpdated }
func (PollResponse) Tag() MessageType { return TypePollResponse }
func (EventUpdated) Tag() MessageType { return TypeEventUpdated }

func (ParticipantJoined) message() {}
func (ParticipantLeft) message() {}
func (NewQuestion) message() {}
func (QuestionUpdated) message() {}
func (QuestionVote) message() {}
func (NewPoll) message() {}
func (PollUpdated) message() {}
func (PollResponse) message() {}
func (EventUpdated) message() {}

// inbound is a client-to-server message.
type inbound struct {
	Type          string `json:"type"`
	EventID       int64  `json:"eventId"`
	UserID        *int64 `json:"userId"`
	ParticipantID *int64 `json:"participantId"`
}

const (
	inboundJoinEvent  = "join_event"
	inboundLeaveEvent = "leave_event"
	inboundHeartbeat  = "heartbeat"
)
