package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Writer: &buf})

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "shouting", Writer: &buf})

	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Writer: &buf})

	child := log.With().Str("component", "simulation").Logger()
	child.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"simulation"`)
}
