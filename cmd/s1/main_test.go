package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVolts(t *testing.T) {
	for in, want := range map[string]float64{
		"1.8":   1.8,
		"3.3V":  3.3,
		" 5v ":  5,
		"off":   0,
		"OFF":   0,
		"0":     0,
		"3.46V": 3.46,
	} {
		v, err := parseVolts(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v, in)
	}

	for _, in := range []string{"", "V", "1.8mV", "high"} {
		_, err := parseVolts(in)
		assert.Error(t, err, in)
	}
}

func TestParseOnOff(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "ON": true, "1": true, "off": false, "false": false} {
		v, err := parseOnOff(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v, in)
	}
	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Enabled(t.Context(), slog.LevelDebug))

	l, err = newLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Enabled(t.Context(), slog.LevelInfo))

	_, err = newLogger("loud")
	assert.Error(t, err)
}
