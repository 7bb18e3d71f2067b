package model

import (
	"encoding/json"
	"strconv"
)

// Envelope is one decoded wire message. Plain is set when the raw text was
// not a JSON object; in that case only Raw and Text are meaningful.
type Envelope struct {
	Type          EventType
	Username      string
	Text          string
	IsTyping      bool
	Persona       string
	TargetPersona string
	RequestID     string
	CreatedAt     string
	Raw           string
	Plain         bool
}

// Decode never fails. Anything that is not a JSON object degrades to a plain
// text envelope; missing or mistyped fields degrade to empty strings.
func Decode(raw []byte) Envelope {
	env := Envelope{Raw: string(raw)}

	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		env.Plain = true
		env.Text = env.Raw
		return env
	}

	env.Type = EventType(f.str("type"))
	env.Username = f.str("username")
	env.IsTyping = truthy(f["isTyping"])
	env.Persona = f.str("persona")
	env.TargetPersona = f.str("targetPersona")
	env.RequestID = f.str("request_id")
	env.CreatedAt = f.str("created_at")

	switch env.Type {
	case EventAI, EventSystem:
		env.Text = f.str("text")
	case EventMessage:
		env.Text = f.str("text", "message")
	default:
		env.Text = f.str("text", "message")
		if env.Text == "" && env.Type != EventTyping &&
			env.Type != EventUserJoined && env.Type != EventUserLeft {
			env.Text = env.Raw
		}
	}
	return env
}

// IsPresence reports whether the envelope is a join/leave delta.
func (e Envelope) IsPresence() bool {
	return !e.Plain && (e.Type == EventUserJoined || e.Type == EventUserLeft)
}

// IsTypingSignal reports whether the envelope is a typing delta.
func (e Envelope) IsTypingSignal() bool {
	return !e.Plain && e.Type == EventTyping
}

// Author returns the rendered sender role and display username for an
// envelope that lands on the timeline. self is the local username; a
// message echoed back by the broker under that name renders as SenderSelf.
func (e Envelope) Author(self string) (Sender, string) {
	if e.Plain {
		return SenderServer, ""
	}
	switch e.Type {
	case EventMessage:
		name := e.Username
		if name == "" {
			name = UnknownUsername
		}
		if name == self {
			return SenderSelf, name
		}
		return SenderUser, name
	case EventAI:
		return SenderAI, ""
	case EventSystem:
		return SenderServer, ""
	default:
		if e.Username != "" {
			return SenderUser, e.Username
		}
		return SenderServer, ""
	}
}

// MessageEvent re-encodes a decoded message envelope.
func (e Envelope) MessageEvent() MessageEvent {
	return MessageEvent{
		Type:      EventMessage,
		Text:      e.Text,
		Username:  e.Username,
		RequestID: e.RequestID,
		CreatedAt: e.CreatedAt,
	}
}

// Encode serializes any outbound event.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// NewJoin builds the join announcement.
func NewJoin(username string) JoinEvent {
	return JoinEvent{Type: EventJoin, Username: username}
}

// NewTyping builds a typing delta.
func NewTyping(username string, isTyping bool) TypingEvent {
	return TypingEvent{Type: EventTyping, Username: username, IsTyping: isTyping}
}

// NewChat builds a chat payload. An empty persona encodes as null.
func NewChat(text, username, persona, targetPersona string) ChatPayload {
	p := ChatPayload{Text: text, Username: username, TargetPersona: targetPersona}
	if persona != "" {
		p.Persona = &persona
	}
	return p
}

// NewPresence builds a user.joined or user.left broadcast.
func NewPresence(t EventType, username string) PresenceEvent {
	return PresenceEvent{Type: t, Username: username}
}

// NewSystem builds a broker notice.
func NewSystem(text string) SystemEvent {
	return SystemEvent{Type: EventSystem, Text: text}
}

type fields map[string]json.RawMessage

// str returns the string form of the first truthy value among keys.
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := stringOf(f[k]); ok {
			return s
		}
	}
	return ""
}

// stringOf follows loose scripting semantics: falsy values (absent, null,
// false, 0, "") report ok=false, numbers and booleans are stringified and
// composite values keep their JSON text.
func stringOf(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case float64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case string:
		return t, t != ""
	default:
		return string(raw), true
	}
}

func truthy(raw json.RawMessage) bool {
	_, ok := stringOf(raw)
	return ok
}
