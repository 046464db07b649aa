package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/followup/internal/version"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "followup "+version.Version)
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--user", "3", "--jwt-secret", "s3cret")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	_, err = run(t, "token", "--user", "0", "--jwt-secret", "s3cret")
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	setupLogging("debug", "json")
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))

	setupLogging("warn", "text")
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
}
