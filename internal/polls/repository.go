package polls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/pkg/database"
)

const pollColumns = `id, event_id, question, type, options, is_active, is_anonymous, show_results, created_at`

// Repository handles poll persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a polls repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanPoll(row pgx.Row) (models.Poll, error) {
	var p models.Poll
	err := row.Scan(&p.ID, &p.EventID, &p.Question, &p.Type, &p.Options, &p.IsActive, &p.IsAnonymous, &p.ShowResults, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Poll{}, apperr.NotFound("poll")
	}
	if p.Options == nil {
		p.Options = []string{}
	}
	return p, err
}

func collectPolls(rows pgx.Rows) ([]models.Poll, error) {
	defer rows.Close()
	list := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func encodeOptions(options []string) (string, error) {
	if options == nil {
		options = []string{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(raw), nil
}

// CreatePoll runs the activation commands and inserts p in one transaction.
// It returns the polls that were deactivated.
func (r *Repository) CreatePoll(ctx context.Context, p *models.Poll, cmds []moderation.Command) ([]models.Poll, error) {
	options, err := encodeOptions(p.Options)
	if err != nil {
		return nil, err
	}
	var deactivated []models.Poll
	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := database.LockEvent(ctx, tx, p.EventID); err != nil {
			return err
		}
		changed, err := runCommands(ctx, tx, cmds)
		if err != nil {
			return err
		}
		deactivated = changed
		const insert = `INSERT INTO polls (event_id, question, type, options, is_active, is_anonymous, show_results)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`
		err = tx.QueryRow(ctx, insert, p.EventID, p.Question, string(p.Type), options, p.IsActive, p.IsAnonymous, p.ShowResults).
			Scan(&p.ID, &p.CreatedAt)
		if _, dup := database.UniqueViolation(err); dup {
			return apperr.Invalid("isActive", "another poll is already active")
		}
		if err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deactivated, nil
}

// GetPoll returns a poll by ID.
func (r *Repository) GetPoll(ctx context.Context, id int64) (models.Poll, error) {
	return scanPoll(r.db.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id))
}

// ListPolls returns the polls of an event, newest first.
func (r *Repository) ListPolls(ctx context.Context, eventID int64) ([]models.Poll, error) {
	rows, err := r.db.Query(ctx, `SELECT `+pollColumns+` FROM polls WHERE event_id = $1 ORDER BY created_at DESC, id DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	return collectPolls(rows)
}

// ActivePoll returns the active poll of an event, or nil.
func (r *Repository) ActivePoll(ctx context.Context, eventID int64) (*models.Poll, error) {
	p, err := scanPoll(r.db.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls
		WHERE event_id = $1 AND is_active ORDER BY created_at DESC LIMIT 1`, eventID))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active poll: %w", err)
	}
	return &p, nil
}

// UpdatePoll runs the activation commands and writes p in one transaction.
// It returns the polls that were deactivated.
func (r *Repository) UpdatePoll(ctx context.Context, p models.Poll, cmds []moderation.Command) ([]models.Poll, error) {
	options, err := encodeOptions(p.Options)
	if err != nil {
		return nil, err
	}
	var deactivated []models.Poll
	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := database.LockEvent(ctx, tx, p.EventID); err != nil {
			return err
		}
		changed, err := runCommands(ctx, tx, cmds)
		if err != nil {
			return err
		}
		deactivated = changed
		const update = `UPDATE polls SET question = $2, options = $3, is_active = $4, is_anonymous = $5, show_results = $6
			WHERE id = $1`
		tag, err := tx.Exec(ctx, update, p.ID, p.Question, options, p.IsActive, p.IsAnonymous, p.ShowResults)
		if _, dup := database.UniqueViolation(err); dup {
			return apperr.Invalid("isActive", "another poll is already active")
		}
		if err != nil {
			return fmt.Errorf("update poll: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("poll")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deactivated, nil
}

func runCommands(ctx context.Context, tx pgx.Tx, cmds []moderation.Command) ([]models.Poll, error) {
	var out []models.Poll
	for _, cmd := range cmds {
		if cmd.Kind != moderation.DeactivatePolls {
			continue
		}
		rows, err := tx.Query(ctx, `UPDATE polls SET is_active = FALSE
			WHERE event_id = $1 AND id <> $2 AND is_active
			RETURNING `+pollColumns, cmd.EventID, cmd.KeepID)
		if err != nil {
			return nil, fmt.Errorf("deactivate polls: %w", err)
		}
		list, err := collectPolls(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

// CreateResponse appends a poll response.
func (r *Repository) CreateResponse(ctx context.Context, resp *models.PollResponse) error {
	const query = `INSERT INTO poll_responses (poll_id, participant_id, response)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, resp.PollID, resp.ParticipantID, string(resp.Response)).
		Scan(&resp.ID, &resp.CreatedAt)
	if name, bad := database.ForeignKeyViolation(err); bad {
		if name == "poll_responses_poll_id_fkey" {
			return apperr.NotFound("poll")
		}
		return apperr.Invalid("participantId", "unknown participant")
	}
	if err != nil {
		return fmt.Errorf("insert poll response: %w", err)
	}
	return nil
}

// ListResponses returns every response of a poll in submission order.
func (r *Repository) ListResponses(ctx context.Context, pollID int64) ([]models.PollResponse, error) {
	rows, err := r.db.Query(ctx, `SELECT id, poll_id, participant_id, response, created_at
		FROM poll_responses WHERE poll_id = $1 ORDER BY id`, pollID)
	if err != nil {
		return nil, fmt.Errorf("query poll responses: %w", err)
	}
	defer rows.Close()

	list := []models.PollResponse{}
	for rows.Next() {
		var resp models.PollResponse
		if err := rows.Scan(&resp.ID, &resp.PollID, &resp.ParticipantID, &resp.Response, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan poll response: %w", err)
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}
