package participants

import (
	"context"
	"fmt"
	"time"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/pkg/database"
)

// Repository handles participant persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a participants repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// CreateParticipant inserts a participant.
func (r *Repository) CreateParticipant(ctx context.Context, p *models.Participant) error {
	const query = `INSERT INTO participants (event_id, user_id, session_id, name, is_anonymous)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at, last_active_at`
	err := r.db.QueryRow(ctx, query, p.EventID, p.UserID, p.SessionID, p.Name, p.IsAnonymous).
		Scan(&p.ID, &p.JoinedAt, &p.LastActiveAt)
	if _, bad := database.ForeignKeyViolation(err); bad {
		return apperr.NotFound("event")
	}
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// ListParticipants returns the participants of an event, most recent first.
func (r *Repository) ListParticipants(ctx context.Context, eventID int64) ([]models.Participant, error) {
	const query = `SELECT id, event_id, user_id, session_id, name, is_anonymous, joined_at, last_active_at
		FROM participants WHERE event_id = $1 ORDER BY joined_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	list := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.SessionID, &p.Name, &p.IsAnonymous, &p.JoinedAt, &p.LastActiveAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// TouchParticipant moves last_active_at forward to at.
func (r *Repository) TouchParticipant(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE participants SET last_active_at = GREATEST(last_active_at, $2) WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("touch participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("participant")
	}
	return nil
}

// TouchMany applies a batch of heartbeats in one round trip. Unknown ids are ignored.
func (r *Repository) TouchMany(ctx context.Context, seen map[int64]time.Time) error {
	if len(seen) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(seen))
	ats := make([]time.Time, 0, len(seen))
	for id, at := range seen {
		ids = append(ids, id)
		ats = append(ats, at)
	}
	const query = `UPDATE participants p SET last_active_at = GREATEST(p.last_active_at, b.at)
		FROM unnest($1::bigint[], $2::timestamptz[]) AS b(id, at)
		WHERE p.id = b.id`
	if _, err := r.db.Exec(ctx, query, ids, ats); err != nil {
		return fmt.Errorf("touch participants: %w", err)
	}
	return nil
}
