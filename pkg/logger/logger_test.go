package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("collection-service", "production", &buf)

	log.WithSessionID("s-1").
		WithUserID("u-1").
		WithCorrelationID("c-1").
		WithComponent("consumer").
		WithError(assert.AnError).
		Warn().Msg("directory lookup failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "collection-service", line["service"])
	assert.Equal(t, "s-1", line["session_id"])
	assert.Equal(t, "u-1", line["user_id"])
	assert.Equal(t, "c-1", line["correlation_id"])
	assert.Equal(t, "consumer", line["component"])
	assert.Equal(t, assert.AnError.Error(), line["error"])
	assert.Equal(t, "warn", line["level"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithSessionID("s-1").Info().Msg("ignored")
	})
}
