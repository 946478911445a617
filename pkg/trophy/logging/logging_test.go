package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, logging.ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Not parallel: Init mutates package state.
func TestInit_WritesComponentPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trophy.log")

	// Obtained before Init; must still reach the file afterwards.
	early := logging.Get("merge")

	require.NoError(t, logging.Init(logging.Config{Level: "info", Path: path}))
	t.Cleanup(func() { _ = logging.Close() })

	early.Info("merged achievements", "new", 2)
	logging.Get("parser").Debug("hidden at info level")

	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "merge")
	assert.Contains(t, content, "merged achievements")
	assert.NotContains(t, content, "hidden at info level")
}

func TestInit_ComponentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trophy.log")

	require.NoError(t, logging.Init(logging.Config{
		Level:      "warn",
		Path:       path,
		Components: map[string]string{"detector": "debug"},
	}))
	t.Cleanup(func() { _ = logging.Close() })

	logging.Get("detector").Debug("signature changed")
	logging.Get("reconciler").Info("suppressed")
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "signature changed"))
	assert.False(t, strings.Contains(string(data), "suppressed"))
}

func TestInit_InvalidLevel(t *testing.T) {
	err := logging.Init(logging.Config{Level: "nope", Path: filepath.Join(t.TempDir(), "x.log")})
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)
}

func TestClose_WithoutInit(t *testing.T) {
	assert.NoError(t, logging.Close())
}
