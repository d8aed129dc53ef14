package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"debug", "DEB"},
		{"verbose", "VER"},
		{"info", "INF"},
		{"warning", "WAR"},
		{"error", "ERR"},
		{"", "ERR"},
		{"nonsense", "ERR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelName(ParseLevel(tt.name)))
		})
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := New(Options{Level: InfoLevel, Output: &buf})

	// Act
	Verbose(logger, "hidden")
	logger.Info("shown", zap.Int("records", 3))

	// Assert
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"records": 3`)
}

func TestVerbose_EnabledAtVerboseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: VerboseLevel, Output: &buf})

	Verbose(logger, "reading records")
	Debug(logger, "too chatty")

	out := buf.String()
	assert.Contains(t, out, "VER")
	assert.Contains(t, out, "reading records")
	assert.Contains(t, out, "logging_test.go")
	assert.NotContains(t, out, "too chatty")
}

func TestDebug_EnabledAtDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: DebugLevel, Output: &buf})

	Debug(logger, "all records")
	Verbosef(logger, "synced %d record(s)", 2)

	out := buf.String()
	assert.Contains(t, out, "DEB")
	assert.Contains(t, out, "all records")
	assert.Contains(t, out, "synced 2 record(s)")
}

func TestHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Verbose(nil, "ignored")
		Debug(nil, "ignored")
	})
	assert.NotNil(t, OrNop(nil))
}
