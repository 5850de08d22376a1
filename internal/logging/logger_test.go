package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/gazecursor/internal/config"
)

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithOutput(config.LoggingConfig{Level: "info", NoColors: true}, &buf)
	require.NoError(t, err)

	log.WithField("component", "tracker").Info("blink click")
	log.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "blink click")
	assert.Contains(t, out, "tracker")
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "gazecursor.log")
	var buf bytes.Buffer
	log, err := NewWithOutput(config.LoggingConfig{Level: "debug", File: file, MaxSize: 1, NoColors: true}, &buf)
	require.NoError(t, err)

	log.Warn("camera slow")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "camera slow")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
