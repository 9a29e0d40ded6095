package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/pkg/database"
)

const eventColumns = `id, slug, name, description, organizer_id, is_active, allow_questions,
	allow_anonymous, auto_approve, show_voting, start_time, end_time, branding, created_at`

// Repository handles event persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an event repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanEvent(row pgx.Row) (models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Slug, &e.Name, &e.Description, &e.OrganizerID, &e.IsActive, &e.AllowQuestions,
		&e.AllowAnonymous, &e.AutoApprove, &e.ShowVoting, &e.StartTime, &e.EndTime, &e.Branding, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Event{}, apperr.NotFound("event")
	}
	return e, err
}

// CreateEvent inserts a new event.
func (r *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (slug, name, description, organizer_id, is_active, allow_questions,
			allow_anonymous, auto_approve, show_voting, start_time, end_time, branding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, e.Slug, e.Name, e.Description, e.OrganizerID, e.IsActive, e.AllowQuestions,
		e.AllowAnonymous, e.AutoApprove, e.ShowVoting, e.StartTime, e.EndTime, nullableJSON(e.Branding)).
		Scan(&e.ID, &e.CreatedAt)
	if _, dup := database.UniqueViolation(err); dup {
		return apperr.Invalid("slug", "already taken")
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns an event by ID.
func (r *Repository) GetEvent(ctx context.Context, id int64) (models.Event, error) {
	return scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetEventBySlug returns an event by slug.
func (r *Repository) GetEventBySlug(ctx context.Context, slug string) (models.Event, error) {
	return scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
}

// ListActiveEvents returns active events, newest first.
func (r *Repository) ListActiveEvents(ctx context.Context) ([]models.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE is_active ORDER BY created_at DESC, id DESC`)
}

// ListEventsByOrganizer returns one organizer's events, newest first.
func (r *Repository) ListEventsByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC, id DESC`, organizerID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// UpdateEvent writes every mutable column of e.
func (r *Repository) UpdateEvent(ctx context.Context, e models.Event) error {
	const q = `UPDATE events SET name = $2, description = $3, is_active = $4, allow_questions = $5,
			allow_anonymous = $6, auto_approve = $7, show_voting = $8, start_time = $9, end_time = $10, branding = $11
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, e.ID, e.Name, e.Description, e.IsActive, e.AllowQuestions,
		e.AllowAnonymous, e.AutoApprove, e.ShowVoting, e.StartTime, e.EndTime, nullableJSON(e.Branding))
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event")
	}
	return nil
}

// EventStats counts the participants, questions and polls of an event.
func (r *Repository) EventStats(ctx context.Context, eventID int64) (models.EventStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM participants WHERE event_id = $1),
		(SELECT COUNT(*) FROM questions WHERE event_id = $1),
		(SELECT COUNT(*) FROM polls WHERE event_id = $1)`
	var s models.EventStats
	if err := r.db.QueryRow(ctx, q, eventID).Scan(&s.Participants, &s.Questions, &s.Polls); err != nil {
		return models.EventStats{}, fmt.Errorf("event stats: %w", err)
	}
	return s, nil
}

// nullableJSON keeps an absent JSON document NULL instead of an empty string.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
