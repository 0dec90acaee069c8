package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	wrapped := fmt.Errorf("loading: %w", NewNotFound("ticket", map[string]any{"id": "x"}))
	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	assert.Equal(t, "ticket not found", de.Message)
	assert.True(t, IsNotFound(wrapped))

	cause := errors.New("disk on fire")
	de = ToDomainError(cause)
	assert.Equal(t, CodeInternalError, de.Code)
	assert.ErrorIs(t, de, cause)
	assert.False(t, IsNotFound(cause))
}

func TestEnvelope(t *testing.T) {
	de := ToDomainError(NewValidationError("invalid payload", map[string]any{"title": "is required"}))
	assert.Equal(t, map[string]any{
		"error": map[string]any{
			"code":    CodeValidationFailed,
			"message": "invalid payload",
			"details": map[string]any{"title": "is required"},
		},
	}, de.Envelope())

	de = ToDomainError(NewTimeout("request timed out"))
	assert.NotContains(t, de.Envelope()["error"], "details")
	assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus)
}

func TestConfirmationRequired(t *testing.T) {
	de := ToDomainError(NewConfirmationRequired("bulk delete must be confirmed", nil))
	assert.Equal(t, CodeConfirmationRequired, de.Code)
	assert.Equal(t, http.StatusPreconditionRequired, de.HTTPStatus)
}
