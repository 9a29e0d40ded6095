package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liewchinchuan/EventStream/internal/models"
)

func TestEncodeEntityMessageFlattensEntity(t *testing.T) {
	raw, err := Encode(NewPoll{models.Poll{ID: 3, EventID: 7, Question: "Lunch?", Type: models.PollMultipleChoice, Options: []string{"Pizza", "Tacos"}}})
	require.NoError(t, err)

	var env struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "new_poll", env.Type)
	assert.Equal(t, "multiple-choice", env.Data["type"])
	assert.Equal(t, float64(7), env.Data["eventId"])
	assert.Equal(t, []any{"Pizza", "Tacos"}, env.Data["options"])
}

func TestEncodePollResponse(t *testing.T) {
	raw, err := Encode(PollResponse{
		Response: models.PollResponse{ID: 1, PollID: 3, Response: json.RawMessage(`{"option":"Pizza"}`)},
		Results:  models.PollResults{PollID: 3, TotalResponses: 1, Results: []models.OptionResult{{Option: "Pizza", Count: 1, Percentage: 100}}},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "poll_response",
		"data": {
			"response": {"id": 1, "pollId": 3, "participantId": null, "response": {"option": "Pizza"}, "createdAt": "0001-01-01T00:00:00Z"},
			"results": {"pollId": 3, "question": "", "type": "", "totalResponses": 1,
				"results": [{"option": "Pizza", "count": 1, "percentage": 100}]}
		}
	}`, string(raw))
}

func TestEncodeParticipantLeft(t *testing.T) {
	raw, err := Encode(ParticipantLeft{ParticipantID: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"participant_left","data":{"participantId":42}}`, string(raw))
}
