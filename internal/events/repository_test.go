package events

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liewchinchuan/EventStream/internal/apperr"
	"github.com/liewchinchuan/EventStream/internal/models"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewRepository(mock)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCreateEvent(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	args := append([]any{"town-hall", "Town Hall"}, anyArgs(10)...)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events")).WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), created))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events")).WithArgs(args...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "events_slug_key"})

	e := &models.Event{Slug: "town-hall", Name: "Town Hall", OrganizerID: 2, IsActive: true}
	require.NoError(t, repo.CreateEvent(context.Background(), e))
	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, created, e.CreatedAt)

	err := repo.CreateEvent(context.Background(), &models.Event{Slug: "town-hall", Name: "Town Hall", OrganizerID: 2})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "already taken", ve.Fields["slug"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventMissing(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetEvent(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventMissing(t *testing.T) {
	mock, repo := newMock(t)

	args := append([]any{int64(404), "Gone", pgxmock.AnyArg(), false}, anyArgs(7)...)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET name = $2")).WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateEvent(context.Background(), models.Event{ID: 404, Name: "Gone"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStats(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM participants WHERE event_id = $1")).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"participants", "questions", "polls"}).AddRow(4, 3, 1))

	stats, err := repo.EventStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.EventStats{Participants: 4, Questions: 3, Polls: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
