package chat

import (
	"strings"
	"sync"
	"time"
)

// DefaultTypingTimeout is the inactivity period after which typing stops.
const DefaultTypingTimeout = 2 * time.Second

// TypingSender transmits typing deltas. *Session implements it.
type TypingSender interface {
	SendTypingIndicator(isTyping bool) error
}

// TypingNotifier turns keystrokes into typing deltas and owns the
// inactivity timer that reports the end of typing.
type TypingNotifier struct {
	sender  TypingSender
	timeout time.Duration

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// NewTypingNotifier returns a notifier. A non-positive timeout selects
// DefaultTypingTimeout.
func NewTypingNotifier(sender TypingSender, timeout time.Duration) *TypingNotifier {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingNotifier{sender: sender, timeout: timeout}
}

// Keystroke reports the current input value after an edit.
func (n *TypingNotifier) Keystroke(input string) {
	n.mu.Lock()
	n.stopLocked()
	n.seq++
	seq := n.seq
	n.timer = time.AfterFunc(n.timeout, func() { n.expire(seq) })
	n.mu.Unlock()

	_ = n.sender.SendTypingIndicator(strings.TrimSpace(input) != "")
}

// Blur cancels the timer and reports that typing stopped.
func (n *TypingNotifier) Blur() {
	n.Stop()
	_ = n.sender.SendTypingIndicator(false)
}

// Stop cancels the timer without sending anything.
func (n *TypingNotifier) Stop() {
	n.mu.Lock()
	n.stopLocked()
	n.seq++
	n.mu.Unlock()
}

func (n *TypingNotifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *TypingNotifier) expire(seq uint64) {
	n.mu.Lock()
	if seq != n.seq {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	n.mu.Unlock()

	_ = n.sender.SendTypingIndicator(false)
}
