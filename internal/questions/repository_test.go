package questions

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
	"github.com/liewchinchuan/EventStream/internal/moderation"
)

var created = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func questionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "event_id", "author_id", "author_name", "text", "is_anonymous", "is_approved",
		"is_answered", "is_pinned", "is_hidden", "is_displayed_in_presenter", "upvotes", "downvotes", "created_at"})
}

func addQuestion(rows *pgxmock.Rows, id int64, presenter bool, up, down int) *pgxmock.Rows {
	return rows.AddRow(id, int64(7), nil, nil, "What is next?", true, true, false, false, false, presenter, up, down, created)
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewRepository(mock)
}

func TestVoteQuestionReplacesVoteAndRecounts(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM questions WHERE id = $1 FOR UPDATE")).WithArgs(int64(3)).
		WillReturnRows(addQuestion(questionRows(), 3, false, 1, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM question_votes WHERE question_id = $1 AND participant_id = $2")).
		WithArgs(int64(3), int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO question_votes")).
		WithArgs(int64(3), int64(11), "downvote").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT vote_type FROM question_votes WHERE question_id = $1")).WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"vote_type"}).AddRow(models.VoteDown))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE questions SET upvotes = $2, downvotes = $3 WHERE id = $1")).
		WithArgs(int64(3), 0, 1).
		WillReturnRows(addQuestion(questionRows(), 3, false, 0, 1))
	mock.ExpectCommit()

	q, err := repo.VoteQuestion(context.Background(), 3, 11, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Upvotes)
	assert.Equal(t, 1, q.Downvotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetractVoteSkipsInsert(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(int64(3)).
		WillReturnRows(addQuestion(questionRows(), 3, false, 1, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM question_votes")).WithArgs(int64(3), int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT vote_type FROM question_votes")).WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"vote_type"}))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE questions SET upvotes")).WithArgs(int64(3), 0, 0).
		WillReturnRows(addQuestion(questionRows(), 3, false, 0, 0))
	mock.ExpectCommit()

	q, err := repo.RetractVote(context.Background(), 3, 11)
	require.NoError(t, err)
	assert.Zero(t, q.Upvotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteQuestionUnknownParticipantRollsBack(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(int64(3)).
		WillReturnRows(addQuestion(questionRows(), 3, false, 0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM question_votes")).WithArgs(int64(3), int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO question_votes")).WithArgs(int64(3), int64(99), "upvote").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "question_votes_participant_id_fkey"})
	mock.ExpectRollback()

	_, err := repo.VoteQuestion(context.Background(), 3, 99, models.VoteUp)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "participantId")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQuestionClearsPresenterFirst(t *testing.T) {
	mock, repo := newMock(t)

	q := models.Question{ID: 3, EventID: 7, Text: "What is next?", IsApproved: true, IsDisplayedInPresenter: true}
	cmds := []moderation.Command{{Kind: moderation.ClearPresenter, EventID: 7, KeepID: 3}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM events WHERE id = $1 FOR UPDATE")).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE questions SET is_displayed_in_presenter = FALSE")).WithArgs(int64(7), int64(3)).
		WillReturnRows(addQuestion(questionRows(), 2, false, 0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET text = $2")).
		WithArgs(int64(3), "What is next?", true, false, false, false, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	cleared, err := repo.UpdateQuestion(context.Background(), q, cmds)
	require.NoError(t, err)
	require.Len(t, cleared, 1)
	assert.Equal(t, int64(2), cleared[0].ID)
	assert.False(t, cleared[0].IsDisplayedInPresenter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQuestionPresenterConflict(t *testing.T) {
	mock, repo := newMock(t)

	q := models.Question{ID: 3, EventID: 7, Text: "What is next?", IsDisplayedInPresenter: true}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1 FOR UPDATE")).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET text = $2")).
		WithArgs(int64(3), "What is next?", false, false, false, false, true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "questions_one_presenter_per_event"})
	mock.ExpectRollback()

	cleared, err := repo.UpdateQuestion(context.Background(), q, nil)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "isDisplayedInPresenter")
	assert.Nil(t, cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQuestionMissing(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1 FOR UPDATE")).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET text = $2")).WithArgs(
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.UpdateQuestion(context.Background(), models.Question{ID: 40, EventID: 7}, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
