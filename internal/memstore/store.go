// Package memstore is an in-process implementation of the session stores.
// It backs tests and single-node demos started with STORAGE_DRIVER=memory.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/session"
	"github.com/liewchinchuan/EventStream/internal/tally"
)

var (
	_ session.EventStore       = (*Store)(nil)
	_ session.QuestionStore    = (*Store)(nil)
	_ session.PollStore        = (*Store)(nil)
	_ session.ParticipantStore = (*Store)(nil)
)

// Store keeps every table in maps guarded by one lock. Each method is atomic,
// which gives it the same all-or-nothing behaviour as a repository transaction.
type Store struct {
	mu sync.RWMutex

	events       map[int64]models.Event
	slugs        map[string]int64
	questions    map[int64]models.Question
	votes        map[int64]map[int64]models.QuestionVote // questionID -> participantID -> vote
	polls        map[int64]models.Poll
	responses    map[int64][]models.PollResponse // pollID -> responses
	participants map[int64]models.Participant

	seq int64
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		events:       make(map[int64]models.Event),
		slugs:        make(map[string]int64),
		questions:    make(map[int64]models.Question),
		votes:        make(map[int64]map[int64]models.QuestionVote),
		polls:        make(map[int64]models.Poll),
		responses:    make(map[int64][]models.PollResponse),
		participants: make(map[int64]models.Participant),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Stores returns s wired into every slot of a session.Store.
func (s *Store) Stores() session.Store {
	return session.Store{Events: s, Questions: s, Polls: s, Participants: s}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Events

func (s *Store) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.slugs[e.Slug]; taken {
		return apperr.Invalid("slug", "already taken")
	}
	e.ID = s.nextID()
	e.CreatedAt = s.now()
	e.Branding = cloneRaw(e.Branding)
	s.events[e.ID] = *e
	s.slugs[e.Slug] = e.ID
	return nil
}

func (s *Store) GetEvent(_ context.Context, id int64) (models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return models.Event{}, apperr.NotFound("event")
	}
	return cloneEvent(e), nil
}

func (s *Store) GetEventBySlug(ctx context.Context, slug string) (models.Event, error) {
	s.mu.RLock()
	id, ok := s.slugs[slug]
	s.mu.RUnlock()
	if !ok {
		return models.Event{}, apperr.NotFound("event")
	}
	return s.GetEvent(ctx, id)
}

func (s *Store) ListActiveEvents(_ context.Context) ([]models.Event, error) {
	return s.listEvents(func(e models.Event) bool { return e.IsActive }), nil
}

func (s *Store) ListEventsByOrganizer(_ context.Context, organizerID int64) ([]models.Event, error) {
	return s.listEvents(func(e models.Event) bool { return e.OrganizerID == organizerID }), nil
}

func (s *Store) listEvents(keep func(models.Event) bool) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Event{}
	for _, e := range s.events {
		if keep(e) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out
}

func (s *Store) UpdateEvent(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return apperr.NotFound("event")
	}
	e.Branding = cloneRaw(e.Branding)
	s.events[e.ID] = e
	return nil
}

func (s *Store) EventStats(_ context.Context, eventID int64) (models.EventStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.EventStats
	for _, p := range s.participants {
		if p.EventID == eventID {
			stats.Participants++
		}
	}
	for _, q := range s.questions {
		if q.EventID == eventID {
			stats.Questions++
		}
	}
	for _, p := range s.polls {
		if p.EventID == eventID {
			stats.Polls++
		}
	}
	return stats, nil
}

// Questions

func (s *Store) CreateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[q.EventID]; !ok {
		return apperr.NotFound("event")
	}
	q.ID = s.nextID()
	q.CreatedAt = s.now()
	q.Upvotes, q.Downvotes = 0, 0
	s.questions[q.ID] = *q
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return models.Question{}, apperr.NotFound("question")
	}
	return q, nil
}

func (s *Store) ListQuestions(_ context.Context, eventID int64) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Question{}
	for _, q := range s.questions {
		if q.EventID == eventID && !q.IsHidden {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if a.Upvotes != b.Upvotes {
			return a.Upvotes > b.Upvotes
		}
		return newer(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return out, nil
}

func (s *Store) PresenterQuestion(_ context.Context, eventID int64) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, q := range s.questions {
		if q.EventID == eventID && q.IsDisplayedInPresenter && !q.IsHidden {
			return &q, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q models.Question, cmds []moderation.Command) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[q.ID]; !ok {
		return nil, apperr.NotFound("question")
	}

	var cleared []models.Question
	for _, cmd := range cmds {
		if cmd.Kind != moderation.ClearPresenter {
			continue
		}
		for _, other := range s.questions {
			if other.EventID == cmd.EventID && other.ID != cmd.KeepID && other.IsDisplayedInPresenter && !other.IsHidden {
				other.IsDisplayedInPresenter = false
				cleared = append(cleared, other)
			}
		}
	}
	if q.IsDisplayedInPresenter && !q.IsHidden {
		for _, other := range s.questions {
			if other.EventID == q.EventID && other.ID != q.ID && other.IsDisplayedInPresenter && !other.IsHidden && !containsQuestion(cleared, other.ID) {
				return nil, apperr.Invalid("isDisplayedInPresenter", "another question is already on the presenter screen")
			}
		}
	}

	sort.Slice(cleared, func(i, j int) bool { return cleared[i].ID < cleared[j].ID })
	for _, other := range cleared {
		s.questions[other.ID] = other
	}
	s.questions[q.ID] = q
	return cleared, nil
}

func (s *Store) VoteQuestion(_ context.Context, questionID, participantID int64, vt models.VoteType) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[questionID]; !ok {
		return models.Question{}, apperr.NotFound("question")
	}
	if _, ok := s.participants[participantID]; !ok {
		return models.Question{}, apperr.Invalid("participantId", "unknown participant")
	}
	byParticipant := s.votes[questionID]
	if byParticipant == nil {
		byParticipant = make(map[int64]models.QuestionVote)
		s.votes[questionID] = byParticipant
	}
	delete(byParticipant, participantID)
	byParticipant[participantID] = models.QuestionVote{
		ID:            s.nextID(),
		QuestionID:    questionID,
		ParticipantID: participantID,
		VoteType:      vt,
		CreatedAt:     s.now(),
	}
	return s.recountLocked(questionID), nil
}

func (s *Store) RetractVote(_ context.Context, questionID, participantID int64) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[questionID]; !ok {
		return models.Question{}, apperr.NotFound("question")
	}
	delete(s.votes[questionID], participantID)
	return s.recountLocked(questionID), nil
}

func (s *Store) recountLocked(questionID int64) models.Question {
	types := make([]models.VoteType, 0, len(s.votes[questionID]))
	for _, v := range s.votes[questionID] {
		types = append(types, v.VoteType)
	}
	q := s.questions[questionID]
	q.Upvotes, q.Downvotes = tally.QuestionCounts(types)
	s.questions[questionID] = q
	return q
}

// Polls

func (s *Store) CreatePoll(_ context.Context, p *models.Poll, cmds []moderation.Command) ([]models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[p.EventID]; !ok {
		return nil, apperr.NotFound("event")
	}
	deactivated := s.deactivateLocked(cmds)
	p.ID = s.nextID()
	p.CreatedAt = s.now()
	p.Options = append([]string{}, p.Options...)
	s.polls[p.ID] = clonePoll(*p)
	return deactivated, nil
}

func (s *Store) GetPoll(_ context.Context, id int64) (models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[id]
	if !ok {
		return models.Poll{}, apperr.NotFound("poll")
	}
	return clonePoll(p), nil
}

func (s *Store) ListPolls(_ context.Context, eventID int64) ([]models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Poll{}
	for _, p := range s.polls {
		if p.EventID == eventID {
			out = append(out, clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Store) ActivePoll(_ context.Context, eventID int64) (*models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active *models.Poll
	for _, p := range s.polls {
		if p.EventID != eventID || !p.IsActive {
			continue
		}
		if active == nil || newer(p.CreatedAt, p.ID, active.CreatedAt, active.ID) {
			c := clonePoll(p)
			active = &c
		}
	}
	return active, nil
}

func (s *Store) UpdatePoll(_ context.Context, p models.Poll, cmds []moderation.Command) ([]models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.polls[p.ID]; !ok {
		return nil, apperr.NotFound("poll")
	}
	deactivated := s.deactivateLocked(cmds)
	s.polls[p.ID] = clonePoll(p)
	return deactivated, nil
}

func (s *Store) deactivateLocked(cmds []moderation.Command) []models.Poll {
	var out []models.Poll
	for _, cmd := range cmds {
		if cmd.Kind != moderation.DeactivatePolls {
			continue
		}
		for id, p := range s.polls {
			if p.EventID == cmd.EventID && id != cmd.KeepID && p.IsActive {
				p.IsActive = false
				s.polls[id] = p
				out = append(out, clonePoll(p))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateResponse(_ context.Context, r *models.PollResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.polls[r.PollID]; !ok {
		return apperr.NotFound("poll")
	}
	r.ID = s.nextID()
	r.CreatedAt = s.now()
	r.Response = cloneRaw(r.Response)
	s.responses[r.PollID] = append(s.responses[r.PollID], *r)
	return nil
}

func (s *Store) ListResponses(_ context.Context, pollID int64) ([]models.PollResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.PollResponse{}, s.responses[pollID]...), nil
}

// Participants

func (s *Store) CreateParticipant(_ context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[p.EventID]; !ok {
		return apperr.NotFound("event")
	}
	p.ID = s.nextID()
	p.JoinedAt = s.now()
	p.LastActiveAt = p.JoinedAt
	s.participants[p.ID] = *p
	return nil
}

func (s *Store) ListParticipants(_ context.Context, eventID int64) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Participant{}
	for _, p := range s.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].JoinedAt, out[i].ID, out[j].JoinedAt, out[j].ID) })
	return out, nil
}

func (s *Store) TouchParticipant(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return apperr.NotFound("participant")
	}
	if at.After(p.LastActiveAt) {
		p.LastActiveAt = at
		s.participants[id] = p
	}
	return nil
}

// TouchMany applies a batch of heartbeats. Unknown ids are ignored.
func (s *Store) TouchMany(_ context.Context, seen map[int64]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, at := range seen {
		p, ok := s.participants[id]
		if !ok || !at.After(p.LastActiveAt) {
			continue
		}
		p.LastActiveAt = at
		s.participants[id] = p
	}
	return nil
}

func newer(at time.Time, id int64, otherAt time.Time, otherID int64) bool {
	if !at.Equal(otherAt) {
		return at.After(otherAt)
	}
	return id > otherID
}

func containsQuestion(list []models.Question, id int64) bool {
	for _, q := range list {
		if q.ID == id {
			return true
		}
	}
	return false
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneEvent(e models.Event) models.Event {
	e.Branding = cloneRaw(e.Branding)
	return e
}

func clonePoll(p models.Poll) models.Poll {
	p.Options = append([]string{}, p.Options...)
	return p
}
