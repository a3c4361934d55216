package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		code     string
		status   int
	}{
		{"validation", Validation(map[string]string{"site_location": "required"}), ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest},
		{"invalid transition", InvalidTransition("completed", "planned"), ErrInvalidTransition, "INVALID_TRANSITION", http.StatusConflict},
		{"invalid state", InvalidState("session is closed"), ErrInvalidState, "INVALID_STATE", http.StatusConflict},
		{"not found", NotFound("collection session"), ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"conflict", Conflict("session was modified concurrently"), ErrConflict, "CONFLICT", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
		})
	}
}

func TestInvalidTransitionDetails(t *testing.T) {
	err := InvalidTransition("completed", "planned")

	assert.Equal(t, "cannot transition from completed to planned", err.Message)
	assert.Equal(t, map[string]string{"from": "completed", "to": "planned"}, err.Details)
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("load session: %w", NotFound("collection session"))

	var appErr *AppError
	require.True(t, As(wrapped, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "collection session not found: resource not found", NotFound("collection session").Error())
	assert.Equal(t, "plain", New("X", "plain", http.StatusTeapot).Error())
}
