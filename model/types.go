package model

// EventType is the "type" discriminator carried by a wire envelope.
type EventType string

const (
	EventJoin       EventType = "join"
	EventUserJoined EventType = "user.joined"
	EventUserLeft   EventType = "user.left"
	EventTyping     EventType = "typing"
	EventMessage    EventType = "message"
	EventAI         EventType = "ai"
	EventSystem     EventType = "system"
)

// Sender is the rendered author role of a chat entry.
type Sender string

const (
	SenderSelf   Sender = "self"
	SenderUser   Sender = "user"
	SenderServer Sender = "server"
	SenderAI     Sender = "ai"
)

// UnknownUsername is shown for chat messages that arrive without a username.
const UnknownUsername = "unknown"

// JoinEvent announces the local user to the broker.
type JoinEvent struct {
	Type     EventType `json:"type"`
	Username string    `json:"username"`
}

// PresenceEvent is broadcast by the broker when a user joins or leaves.
type PresenceEvent struct {
	Type     EventType `json:"type"`
	Username string    `json:"username"`
}

// TypingEvent toggles a user's typing state.
type TypingEvent struct {
	Type     EventType `json:"type"`
	Username string    `json:"username"`
	IsTyping bool      `json:"isTyping"`
}

// ChatPayload is the outbound chat message. It carries no type field; the
// broker treats it as an implicit "message". Persona is always present and
// encodes as null when no persona has been chosen.
type ChatPayload struct {
	Text          string  `json:"text"`
	Username      string  `json:"username"`
	Persona       *string `json:"persona"`
	TargetPersona string  `json:"targetPersona,omitempty"`
}

// MessageEvent is a chat message relayed by the broker.
type MessageEvent struct {
	Type      EventType `json:"type"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// AIEvent is a persona reply. Username names the persona that answered; the
// client does not display it.
type AIEvent struct {
	Type      EventType `json:"type"`
	Text      string    `json:"text"`
	RequestID string    `json:"request_id,omitempty"`
	Username  string    `json:"username,omitempty"`
}

// SystemEvent is a broker notice.
type SystemEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}
