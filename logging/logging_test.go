package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(FormatJSON, "warn", buf)

	log.Info().Msg("dropped")
	log.Warn().Str("product_id", "P1").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "exactly one JSON line expected")
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "P1", line["product_id"])
}

func TestNew_PrettyIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(FormatPretty, "", buf)
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	logger := FromContext(ctx)
	logger.Info().Msg("test")
	assert.NotZero(t, buf.Len())

	// No logger in context: silent.
	silent := FromContext(context.Background())
	silent.Error().Msg("nowhere")
}
