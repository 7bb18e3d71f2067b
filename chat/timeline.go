package chat

import "github.com/puyokura/odysseychat/model"

// PendingText is the body of a placeholder awaiting an AI reply.
const PendingText = "..."

// Entry is one line of the message timeline.
type Entry struct {
	ID            uint64
	Sender        model.Sender
	Username      string
	Text          string
	TargetPersona string
	Pending       bool
	RequestID     string
	CreatedAt     string
}

// Timeline is the ordered chat log. Identifiers come from a counter local
// to the timeline and are never reused.
type Timeline struct {
	entries []Entry
	nextID  uint64
}

// NewTimeline returns an empty timeline whose first identifier is 1.
func NewTimeline() *Timeline {
	return &Timeline{nextID: 1}
}

func (t *Timeline) add(e Entry) Entry {
	e.ID = t.nextID
	t.nextID++
	t.entries = append(t.entries, e)
	return e
}

// AppendSelf appends a finalized entry authored locally.
func (t *Timeline) AppendSelf(text, username, targetPersona string) Entry {
	return t.add(Entry{
		Sender:        model.SenderSelf,
		Username:      username,
		Text:          text,
		TargetPersona: targetPersona,
	})
}

// AppendPendingPlaceholder appends a loading entry that the next reply replaces.
func (t *Timeline) AppendPendingPlaceholder() Entry {
	return t.add(Entry{Sender: model.SenderServer, Text: PendingText, Pending: true})
}

// ResolveOrAppend turns the newest pending entry into the finalized reply,
// keeping its identifier, or appends the reply when nothing is pending.
func (t *Timeline) ResolveOrAppend(env model.Envelope, self string) Entry {
	sender, username := env.Author(self)
	reply := Entry{
		Sender:    sender,
		Username:  username,
		Text:      env.Text,
		RequestID: env.RequestID,
		CreatedAt: env.CreatedAt,
	}

	for i := len(t.entries) - 1; i >= 0; i-- {
		if !t.entries[i].Pending {
			continue
		}
		reply.ID = t.entries[i].ID
		t.entries[i] = reply
		return reply
	}
	return t.add(reply)
}

// PendingCount returns the number of unresolved placeholders.
func (t *Timeline) PendingCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Pending {
			n++
		}
	}
	return n
}

// Len returns the number of entries.
func (t *Timeline) Len() int { return len(t.entries) }

// Entries returns a copy of the log.
func (t *Timeline) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}
