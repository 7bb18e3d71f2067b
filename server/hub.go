package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/chat"
	"github.com/puyokura/odysseychat/model"
	"github.com/puyokura/odysseychat/persona"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local tool
	},
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Only the hub loop sends on it
	// or closes it.
	send chan []byte

	mu       sync.Mutex
	username string
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) setUsername(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

// outbound is one frame queued for delivery. With to set it goes to that
// client only, otherwise to every client except exclude. drop disconnects
// the recipient after delivery.
type outbound struct {
	data    []byte
	to      *Client
	exclude *Client
	drop    bool
}

// Hub maintains the set of active clients and broadcasts messages to the clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	store     *Store
	config    *Config
	personas  persona.Directory
	responder Responder
	log       *zap.Logger

	// ctx bounds responder calls; it is cancelled when Run returns.
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewHub(store *Store, config *Config, personas persona.Directory, responder Responder, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		broadcast:  make(chan outbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		store:      store,
		config:     config,
		personas:   personas,
		responder:  responder,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run serves the client set until ctx is cancelled. On return every client
// send channel is closed, which makes the write pumps hang up.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		h.stopped = true
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		h.cancel()
		close(h.done)
		h.pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case out := <-h.broadcast:
			h.mu.Lock()
			if out.to != nil {
				h.deliver(out.to, out)
			} else {
				for client := range h.clients {
					if client != out.exclude {
						h.deliver(client, out)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(client *Client, out outbound) {
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- out.data:
		if out.drop {
			h.remove(client)
		}
	default:
		h.log.Warn("send buffer full, dropping client", zap.String("username", client.Username()))
		h.remove(client)
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// enqueue hands a frame to the hub loop. It gives up once the hub stopped.
func (h *Hub) enqueue(out outbound) {
	select {
	case h.broadcast <- out:
	case <-h.done:
	}
}

func (h *Hub) encode(v any) []byte {
	data, err := model.Encode(v)
	if err != nil {
		h.log.Error("encode frame", zap.Error(err))
		return nil
	}
	return data
}

// Broadcast sends v to every client except exclude, which may be nil.
func (h *Hub) Broadcast(v any, exclude *Client) {
	if data := h.encode(v); data != nil {
		h.enqueue(outbound{data: data, exclude: exclude})
	}
}

// SendTo sends v to one client.
func (h *Hub) SendTo(c *Client, v any) {
	if data := h.encode(v); data != nil {
		h.enqueue(outbound{data: data, to: c})
	}
}

func (c *Client) sendSystemMessage(text string) {
	c.hub.SendTo(c, model.NewSystem(text))
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		if name := c.Username(); name != "" {
			c.hub.log.Info("user left", zap.String("username", name))
			c.hub.Broadcast(model.NewPresence(model.EventUserLeft, name), nil)
		}
	}()
	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("read failed", zap.Error(err))
			}
			break
		}
		c.handleFrame(message)
	}
}

// writePump sends one websocket text frame per queued message; the client
// decodes each frame as a single envelope.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(data []byte) {
	env := model.Decode(data)

	switch {
	case env.IsTypingSignal():
		if env.Username != "" {
			c.setUsername(env.Username)
		}
		c.hub.Broadcast(model.NewTyping(env.Username, env.IsTyping), c)
		return
	case !env.Plain && env.Type == model.EventJoin:
		c.join(env.Username)
		return
	}

	text := strings.TrimSpace(env.Text)
	if text == "" {
		return
	}
	username := c.Username()
	if !env.Plain && env.Username != "" {
		username = env.Username
	}
	if username == "" {
		username = model.UnknownUsername
	}

	if strings.HasPrefix(text, "/") {
		c.handleCommand(text, username)
		return
	}
	c.processMessage(env, text, username)
}

func (c *Client) join(username string) {
	if username == "" {
		return
	}
	if c.hub.config.IsBanned(username) {
		c.hub.log.Info("banned user rejected", zap.String("username", username))
		c.hub.enqueue(outbound{data: c.hub.encode(model.NewSystem("You are banned from this server.")), to: c, drop: true})
		return
	}
	c.setUsername(username)
	c.hub.log.Info("user joined", zap.String("username", username))
	c.hub.Broadcast(model.NewPresence(model.EventUserJoined, username), nil)
}

func (c *Client) processMessage(env model.Envelope, text, username string) {
	h := c.hub
	ctx := h.ctx

	requestID, err := h.store.CreateRequest(ctx, username, text)
	if err != nil {
		h.log.Warn("failed to log request", zap.Error(err))
		requestID = uuid.NewString()
	}

	c.rememberFacts(text, username, requestID)

	h.Broadcast(model.MessageEvent{
		Type:      model.EventMessage,
		Text:      text,
		Username:  username,
		RequestID: requestID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, c)

	target, body := env.TargetPersona, text
	if target == "" {
		m, ok := chat.ParseMention(text)
		if !ok {
			return
		}
		target, body = m.Token, m.Rest
	}

	p, ok := h.personas.FindByID(target)
	if !ok {
		c.sendSystemMessage("Unknown persona: " + target)
		return
	}

	h.spawn(func() { h.answer(p, username, requestID, body) })
}

// spawn runs fn in a goroutine that Run waits for. It reports false and
// drops fn once the hub has stopped.
func (h *Hub) spawn(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		fn()
	}()
	return true
}

// rememberFacts stores extracted facts, but only when the user asked for it.
func (c *Client) rememberFacts(text, username, requestID string) {
	candidates := ExtractFacts(text)
	if len(candidates) == 0 {
		return
	}
	if !IsExplicitSave(text) {
		c.hub.log.Debug("fact candidates not saved without an explicit request",
			zap.String("username", username), zap.Int("candidates", len(candidates)))
		return
	}
	for _, fc := range candidates {
		_, err := c.hub.store.UpsertFact(c.hub.ctx, model.Fact{
			Username:        username,
			RequestID:       requestID,
			FactType:        fc.Type,
			Value:           fc.Value,
			NormalizedValue: fc.Normalized,
			Confidence:      fc.Confidence,
			Source:          fc.Source,
		})
		if err != nil {
			c.hub.log.Warn("failed to persist fact", zap.String("type", fc.Type), zap.Error(err))
			continue
		}
		c.sendSystemMessage("Saved: " + fc.Type + " = " + fc.Value)
	}
}

func (h *Hub) answer(p persona.Persona, username, requestID, body string) {
	ctx, cancel := context.WithTimeout(h.ctx, h.config.Timeout())
	defer cancel()

	facts, err := h.store.ListFacts(ctx, username)
	if err != nil {
		h.log.Warn("failed to load facts", zap.String("username", username), zap.Error(err))
	}

	reply, err := h.responder.Respond(ctx, p, facts, body)
	if err != nil {
		h.log.Error("responder failed", zap.String("persona", p.ID), zap.Error(err))
		h.Broadcast(model.NewSystem("Error processing request: "+err.Error()), nil)
		return
	}
	if err := h.store.CompleteRequest(ctx, requestID, p.ID, reply); err != nil {
		h.log.Warn("failed to store reply", zap.Error(err))
	}
	h.log.Info("persona replied", zap.String("persona", p.ID), zap.String("request_id", requestID), zap.Int("tokens", reply.Tokens))
	h.Broadcast(model.AIEvent{Type: model.EventAI, Text: reply.Text, RequestID: requestID, Username: p.ID}, nil)
}

// Who returns the sorted usernames of joined clients.
func (h *Hub) Who() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var names []string
	for client := range h.clients {
		if name := client.Username(); name != "" {
			names = append(names, name)
		}
	}
	return chat.NewUserSet(names...).Members()
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	if msg := hub.config.WelcomeMessage; msg != "" {
		client.sendSystemMessage(msg)
	}
}

// KickUser disconnects every client joined as username.
func (h *Hub) KickUser(username string) bool {
	h.mu.Lock()
	var targets []*Client
	for client := range h.clients {
		if strings.EqualFold(client.Username(), username) {
			targets = append(targets, client)
		}
	}
	h.mu.Unlock()

	notice := h.encode(model.NewSystem("You have been kicked by admin."))
	for _, client := range targets {
		h.enqueue(outbound{data: notice, to: client, drop: true})
	}
	return len(targets) > 0
}

func (h *Hub) BroadcastSystemMessage(msg string) {
	h.Broadcast(model.NewSystem(msg), nil)
}
