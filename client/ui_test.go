package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/chat"
	"github.com/puyokura/odysseychat/facts"
	"github.com/puyokura/odysseychat/model"
	"github.com/puyokura/odysseychat/persona"
)

func newTestModel(t *testing.T) modelState {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = "ws://127.0.0.1:1/ws"
	fc, err := facts.NewClient("")
	require.NoError(t, err)

	n := NewNetwork(cfg, fc, zap.NewNop())
	t.Cleanup(n.Close)

	m := initialModel(n, cfg, persona.NewMemoryDirectory(persona.Seed()), zap.NewNop())
	out, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return out.(modelState)
}

func press(t *testing.T, m modelState, msgs ...tea.Msg) modelState {
	t.Helper()
	for _, msg := range msgs {
		out, _ := m.Update(msg)
		m = out.(modelState)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestLoginRequiresUsername(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenLogin, m.screen)
	assert.NotEmpty(t, m.loginErr)

	m = press(t, m, runes("alice"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenChat, m.screen)
	assert.Empty(t, m.loginErr)
}

func TestConnectionFailureReturnsToLogin(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, loginMsg{username: "alice"})
	require.Equal(t, screenChat, m.screen)

	m = press(t, m, connectionFailedMsg{})
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, serverDownMessage, m.loginErr)
	assert.Contains(t, m.View(), serverDownMessage)
}

func TestMentionPickerKeys(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, loginMsg{username: "alice"}, runes("@"))
	require.True(t, m.picker.Visible())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "@Hermes ", m.textInput.Value())
	assert.False(t, m.picker.Visible())

	m = press(t, m, runes("hi @ze"))
	require.True(t, m.picker.Visible())
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.picker.Visible())
	assert.Equal(t, "@Hermes hi @ze", m.textInput.Value())
}

func TestPersonaCommand(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, loginMsg{username: "alice"})

	out, cmd := m.submit("/persona zeus")
	m = out.(modelState)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.notice, "Zeus")

	out, cmd = m.submit("/persona nobody")
	m = out.(modelState)
	assert.Nil(t, cmd)
	assert.Contains(t, m.notice, "Unknown persona")
}

func TestStateMsgUpdatesView(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, loginMsg{username: "alice"})

	snap := chat.Snapshot{
		Status:   chat.StatusConnected,
		Username: "alice",
		Presence: chat.NewUserSet("alice", "bob"),
		Typing:   chat.NewUserSet("bob"),
		Entries: []chat.Entry{
			{ID: 1, Sender: model.SenderUser, Username: "bob", Text: "hello alice"},
		},
	}
	m = press(t, m, stateMsg(snap))
	view := m.View()
	assert.Contains(t, view, "hello alice")
	assert.Contains(t, view, "bob is typing...")
	assert.Contains(t, view, "alice (You)")
}

func TestResolveFactID(t *testing.T) {
	m := newTestModel(t)
	m.facts = []model.Fact{{ID: "0a1b2c3d-4e5f"}, {ID: "ffff0000-1111"}}
	assert.Equal(t, "ffff0000-1111", m.resolveFactID("ffff0000"))
	assert.Equal(t, "zzz", m.resolveFactID("zzz"))
}
