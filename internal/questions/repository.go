package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
	"github.com/liewchinchuan/EventStream/internal/tally"
	"github.com/liewchinchuan/EventStream/pkg/database"
)

const questionColumns = `id, event_id, author_id, author_name, text, is_anonymous, is_approved, is_answered,
	is_pinned, is_hidden, is_displayed_in_presenter, upvotes, downvotes, created_at`

// Repository handles question persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a questions repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanQuestion(row pgx.Row) (models.Question, error) {
	var q models.Question
	err := row.Scan(&q.ID, &q.EventID, &q.AuthorID, &q.AuthorName, &q.Text, &q.IsAnonymous, &q.IsApproved, &q.IsAnswered,
		&q.IsPinned, &q.IsHidden, &q.IsDisplayedInPresenter, &q.Upvotes, &q.Downvotes, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Question{}, apperr.NotFound("question")
	}
	return q, err
}

func collectQuestions(rows pgx.Rows) ([]models.Question, error) {
	defer rows.Close()
	list := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// CreateQuestion inserts a new question.
func (r *Repository) CreateQuestion(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (event_id, author_id, author_name, text, is_anonymous, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, upvotes, downvotes, created_at`
	err := r.db.QueryRow(ctx, query, q.EventID, q.AuthorID, q.AuthorName, q.Text, q.IsAnonymous, q.IsApproved).
		Scan(&q.ID, &q.Upvotes, &q.Downvotes, &q.CreatedAt)
	if _, bad := database.ForeignKeyViolation(err); bad {
		return apperr.NotFound("event")
	}
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// GetQuestion returns a question by ID.
func (r *Repository) GetQuestion(ctx context.Context, id int64) (models.Question, error) {
	return scanQuestion(r.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// ListQuestions returns the visible questions of an event: pinned first, then by upvotes, newest first.
func (r *Repository) ListQuestions(ctx context.Context, eventID int64) ([]models.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM questions
		WHERE event_id = $1 AND NOT is_hidden
		ORDER BY is_pinned DESC, upvotes DESC, created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	return collectQuestions(rows)
}

// PresenterQuestion returns the question on the presenter screen, or nil.
func (r *Repository) PresenterQuestion(ctx context.Context, eventID int64) (*models.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM questions
		WHERE event_id = $1 AND is_displayed_in_presenter AND NOT is_hidden`
	q, err := scanQuestion(r.db.QueryRow(ctx, query, eventID))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("presenter question: %w", err)
	}
	return &q, nil
}

// UpdateQuestion runs the moderation commands and writes q in one transaction
// holding the event row lock. It returns the questions taken off the presenter screen.
func (r *Repository) UpdateQuestion(ctx context.Context, q models.Question, cmds []moderation.Command) ([]models.Question, error) {
	var cleared []models.Question
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := database.LockEvent(ctx, tx, q.EventID); err != nil {
			return err
		}
		for _, cmd := range cmds {
			if cmd.Kind != moderation.ClearPresenter {
				continue
			}
			rows, err := tx.Query(ctx, `UPDATE questions SET is_displayed_in_presenter = FALSE
				WHERE event_id = $1 AND id <> $2 AND is_displayed_in_presenter AND NOT is_hidden
				RETURNING `+questionColumns, cmd.EventID, cmd.KeepID)
			if err != nil {
				return fmt.Errorf("clear presenter: %w", err)
			}
			list, err := collectQuestions(rows)
			if err != nil {
				return err
			}
			cleared = append(cleared, list...)
		}

		const update = `UPDATE questions SET text = $2, is_approved = $3, is_answered = $4, is_pinned = $5,
				is_hidden = $6, is_displayed_in_presenter = $7
			WHERE id = $1`
		tag, err := tx.Exec(ctx, update, q.ID, q.Text, q.IsApproved, q.IsAnswered, q.IsPinned, q.IsHidden, q.IsDisplayedInPresenter)
		if _, dup := database.UniqueViolation(err); dup {
			return apperr.Invalid("isDisplayedInPresenter", "another question is already on the presenter screen")
		}
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("question")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// VoteQuestion replaces the participant's vote (delete then insert) and
// recounts the question from its vote rows.
func (r *Repository) VoteQuestion(ctx context.Context, questionID, participantID int64, vt models.VoteType) (models.Question, error) {
	return r.revote(ctx, questionID, participantID, &vt)
}

// RetractVote deletes the participant's vote, if any, and recounts the question.
func (r *Repository) RetractVote(ctx context.Context, questionID, participantID int64) (models.Question, error) {
	return r.revote(ctx, questionID, participantID, nil)
}

func (r *Repository) revote(ctx context.Context, questionID, participantID int64, vt *models.VoteType) (models.Question, error) {
	var out models.Question
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		// Row lock serializes concurrent votes on the same question.
		if _, err := scanQuestion(tx.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1 FOR UPDATE`, questionID)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM question_votes WHERE question_id = $1 AND participant_id = $2`, questionID, participantID); err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}
		if vt != nil {
			_, err := tx.Exec(ctx, `INSERT INTO question_votes (question_id, participant_id, vote_type) VALUES ($1, $2, $3)`,
				questionID, participantID, string(*vt))
			if _, bad := database.ForeignKeyViolation(err); bad {
				return apperr.Invalid("participantId", "unknown participant")
			}
			if err != nil {
				return fmt.Errorf("insert vote: %w", err)
			}
		}

		rows, err := tx.Query(ctx, `SELECT vote_type FROM question_votes WHERE question_id = $1`, questionID)
		if err != nil {
			return fmt.Errorf("list votes: %w", err)
		}
		types, err := pgx.CollectRows(rows, pgx.RowTo[models.VoteType])
		if err != nil {
			return fmt.Errorf("scan votes: %w", err)
		}
		up, down := tally.QuestionCounts(types)

		out, err = scanQuestion(tx.QueryRow(ctx, `UPDATE questions SET upvotes = $2, downvotes = $3 WHERE id = $1
			RETURNING `+questionColumns, questionID, up, down))
		return err
	})
	if err != nil {
		return models.Question{}, err
	}
	return out, nil
}
