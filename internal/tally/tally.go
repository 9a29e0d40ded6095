// Package tally recomputes derived counts from raw vote and response rows.
// Counts are always rebuilt from the rows, never incremented in place.
package tally

import (
	"encoding/json"
	"math"

	"github.com/liewchinchuan/EventStream/internal/models"
)

// QuestionCounts returns the number of upvotes and downvotes among votes.
func QuestionCounts(votes []models.VoteType) (up, down int) {
	for _, v := range votes {
		switch v {
		case models.VoteUp:
			up++
		case models.VoteDown:
			down++
		}
	}
	return up, down
}

// ResponseOption extracts the chosen option of a multiple-choice payload.
func ResponseOption(raw json.RawMessage) (string, bool) {
	var payload struct {
		Option *string `json:"option"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Option == nil {
		return "", false
	}
	return *payload.Option, true
}

// PollResults tallies responses for poll. Multiple-choice percentages are rounded
// per option and not normalized, so their sum may differ from 100 by a point or two.
// Other poll types carry the raw payloads instead of a breakdown.
func PollResults(poll models.Poll, responses []models.PollResponse) models.PollResults {
	out := models.PollResults{
		PollID:         poll.ID,
		Question:       poll.Question,
		Type:           poll.Type,
		TotalResponses: len(responses),
		Results:        []models.OptionResult{},
	}

	if poll.Type != models.PollMultipleChoice {
		out.Responses = make([]json.RawMessage, 0, len(responses))
		for _, r := range responses {
			out.Responses = append(out.Responses, r.Response)
		}
		return out
	}

	counts := make(map[string]int, len(poll.Options))
	for _, r := range responses {
		if opt, ok := ResponseOption(r.Response); ok {
			counts[opt]++
		}
	}
	for _, opt := range poll.Options {
		n := counts[opt]
		out.Results = append(out.Results, models.OptionResult{
			Option:     opt,
			Count:      n,
			Percentage: percentage(n, out.TotalResponses),
		})
	}
	return out
}

func percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
