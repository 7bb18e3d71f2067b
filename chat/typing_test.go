package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []bool
}

func (r *recordingSender) SendTypingIndicator(v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, v)
	return nil
}

func (r *recordingSender) values() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.sent...)
}

func TestTypingNotifierInactivity(t *testing.T) {
	rec := &recordingSender{}
	n := NewTypingNotifier(rec, 30*time.Millisecond)

	n.Keystroke("h")
	n.Keystroke("he")
	require.Eventually(t, func() bool { return len(rec.values()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, true, false}, rec.values())
}

func TestTypingNotifierClearedInput(t *testing.T) {
	rec := &recordingSender{}
	n := NewTypingNotifier(rec, time.Hour)
	defer n.Stop()

	n.Keystroke("   ")
	assert.Equal(t, []bool{false}, rec.values())
}

func TestTypingNotifierBlur(t *testing.T) {
	rec := &recordingSender{}
	n := NewTypingNotifier(rec, 30*time.Millisecond)

	n.Keystroke("hi")
	n.Blur()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.values(), "blur cancels the pending timer")
}
