package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/persona"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer, *Config) {
	t.Helper()
	cfg := NewConfig(filepath.Join(t.TempDir(), "server_config.json"))
	hub := NewHub(newTestStore(t), cfg, persona.NewMemoryDirectory(persona.Seed()), CannedResponder{}, zap.NewNop())
	var out bytes.Buffer
	return NewConsole(hub, cfg, &out), &out, cfg
}

func TestConsoleExec(t *testing.T) {
	con, out, cfg := newTestConsole(t)

	tests := []struct {
		line string
		want string
	}{
		{"help", "Available commands"},
		{"who", "No users online."},
		{"kick", "Usage: kick <username>"},
		{"kick bob", "User not found."},
		{"ban mallory", "User banned."},
		{"unban", "Usage: unban <username>"},
		{"dance", "Unknown command."},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			assert.False(t, con.Exec(tt.line))
			assert.Contains(t, out.String(), tt.want)
		})
	}
	assert.True(t, cfg.IsBanned("Mallory"))
	assert.False(t, con.Exec("   "))
	assert.True(t, con.Exec("stop"))
}

func TestConsoleRunStops(t *testing.T) {
	con, out, _ := newTestConsole(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := con.Run(ctx, strings.NewReader("who\nstop\nwho\n"))
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, strings.Count(out.String(), "No users online."))
}

func TestConsoleRunEndOfInput(t *testing.T) {
	con, _, _ := newTestConsole(t)
	assert.NoError(t, con.Run(context.Background(), strings.NewReader("")))
}
