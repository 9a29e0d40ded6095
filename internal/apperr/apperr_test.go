package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundMatches(t *testing.T) {
	err := NotFound("question")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "question not found", err.Error())
}

func TestPersistenceKeepsTaxonomy(t *testing.T) {
	nf := NotFound("poll")
	assert.Same(t, nf, Persistence("get poll", nf))

	ve := Invalid("text", "required")
	assert.Equal(t, error(ve), Persistence("create question", ve))

	wrapped := Persistence("update question", errors.New("connection reset"))
	var pe *PersistenceError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "update question: connection reset", wrapped.Error())

	assert.NoError(t, Persistence("noop", nil))
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"voteType": "invalid", "participantId": "required"}}
	assert.Equal(t, "validation failed: participantId: required; voteType: invalid", err.Error())
}
