package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped domain error", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeConsentRequired, "consent missing"))
		assert.True(t, HasCode(err, CodeConsentRequired))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(cause, CodeInternal, "failed to save draft")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save draft: redis down", err.Error())
}

func TestIsComparesCodeAndMessage(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New(CodeUnauthorized, "invalid token"))
	require.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeConsentRequired:      http.StatusUnprocessableEntity,
		CodeMalformedOTP:         http.StatusBadRequest,
		CodeOversizedDocument:    http.StatusRequestEntityTooLarge,
		CodeApplicationSubmitted: http.StatusConflict,
		CodeRateLimited:          http.StatusTooManyRequests,
		Code("unknown"):          http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), string(code))
	}
}
