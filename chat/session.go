package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/model"
)

const (
	// DefaultEndpoint is the broker address used when none is configured.
	DefaultEndpoint = "ws://localhost:8000/ws"

	// DefaultOpenTimeout bounds how long a connect may stay unanswered.
	DefaultOpenTimeout = 2 * time.Second
)

var (
	ErrNotConnected = errors.New("chat: not connected")
	ErrClosed       = errors.New("chat: session closed")
	ErrNoUsername   = errors.New("chat: username required")
)

// Options configures a Session. Every field is optional.
type Options struct {
	Endpoint    string
	OpenTimeout time.Duration
	Persona     string
	Dialer      Dialer
	Logger      *zap.Logger

	// OnConnectionFailed is invoked on the session loop for every fatal
	// connectivity condition. It must not call back into the Session
	// synchronously.
	OnConnectionFailed func()

	// OnChange is invoked on the session loop after every state update.
	OnChange func(Snapshot)
}

// Snapshot is an immutable view of the session state.
type Snapshot struct {
	Status            Status
	Username          string
	Persona           string
	ReconnectAttempts int
	Entries           []Entry
	Presence          UserSet
	Typing            UserSet
}

// Session owns the single broker connection of a client and all state
// derived from it. A private loop goroutine serializes transport events,
// timers and action calls so none of them run concurrently.
type Session struct {
	endpoint    string
	openTimeout time.Duration
	dialer      Dialer
	log         *zap.Logger
	onFailed    func()
	onChange    func(Snapshot)

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup
	state     atomic.Pointer[Snapshot]

	// Owned by the loop goroutine.
	status     Status
	gen        uint64
	conn       Conn
	dialCancel context.CancelFunc
	watchdog   *time.Timer
	attempts   int
	username   string
	persona    string
	tracker    Tracker
	timeline   *Timeline
	closed     bool
}

// NewSession starts the session loop. No connection is made until Connect
// or SetUsername.
func NewSession(username string, opts Options) *Session {
	s := &Session{
		endpoint:    opts.Endpoint,
		openTimeout: opts.OpenTimeout,
		dialer:      opts.Dialer,
		log:         opts.Logger,
		onFailed:    opts.OnConnectionFailed,
		onChange:    opts.OnChange,
		ops:         make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		status:      StatusDisconnected,
		username:    username,
		persona:     opts.Persona,
		timeline:    NewTimeline(),
	}
	if s.endpoint == "" {
		s.endpoint = DefaultEndpoint
	}
	if s.openTimeout <= 0 {
		s.openTimeout = DefaultOpenTimeout
	}
	if s.dialer == nil {
		s.dialer = WebsocketDialer{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.state.Store(s.snapshot())

	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.ops:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case s.ops <- func() { fn(); close(finished) }:
	case <-s.done:
		return ErrClosed
	}
	<-finished
	return nil
}

// post hands fn to the loop without waiting. It reports false once the
// loop has stopped.
func (s *Session) post(fn func()) bool {
	select {
	case s.ops <- fn:
		return true
	case <-s.done:
		return false
	}
}

// State returns the latest snapshot. Safe from any goroutine.
func (s *Session) State() Snapshot {
	return *s.state.Load()
}

// Connect opens the transport. It is a no-op while connecting or connected.
func (s *Session) Connect() error {
	var err error
	if derr := s.do(func() {
		switch {
		case s.closed:
			err = ErrClosed
		case s.username == "":
			err = ErrNoUsername
		default:
			s.step(evConnect)
		}
	}); derr != nil {
		return derr
	}
	return err
}

// SetUsername switches the owning user. The current transport is torn down
// and, for a non-empty name, a new connection is started.
func (s *Session) SetUsername(name string) error {
	var err error
	if derr := s.do(func() {
		if s.closed {
			err = ErrClosed
			return
		}
		if name == s.username {
			return
		}
		s.step(evTeardown)
		s.username = name
		s.publish()
		if name != "" {
			s.step(evConnect)
		}
	}); derr != nil {
		return derr
	}
	return err
}

// SetPersona changes the persona sent along with chat messages.
func (s *Session) SetPersona(persona string) error {
	return s.do(func() {
		s.persona = persona
		s.publish()
	})
}

// Close tears the transport down without notifying the failure callback
// and stops the loop. It waits for every goroutine the session started.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.do(func() {
			s.step(evTeardown)
			s.closed = true
		})
		close(s.quit)
	})
	<-s.done
	s.workers.Wait()
	return nil
}

// step feeds a locally raised event through the state machine.
func (s *Session) step(ev event) {
	next, eff := transition(s.status, ev)
	s.apply(ev, next, eff)
}

// handle feeds a transport or timer event, dropping it when it belongs
// to a superseded connection attempt.
func (s *Session) handle(gen uint64, ev event, cause error) {
	if gen != s.gen {
		return
	}
	next, eff := transition(s.status, ev)
	if eff == 0 && next == s.status {
		return
	}
	if cause != nil {
		s.log.Warn("websocket event",
			zap.String("event", ev.String()),
			zap.String("username", s.username),
			zap.Error(cause))
	}
	s.apply(ev, next, eff)
}

func (s *Session) apply(ev event, next Status, eff effect) {
	prev := s.status
	s.status = next

	if eff.has(effStopWatchdog) && s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	if eff.has(effCloseTransport) {
		s.dropTransport()
	}
	if eff.has(effDial) {
		s.startDial()
	}
	if eff.has(effStartWatchdog) {
		gen := s.gen
		s.watchdog = time.AfterFunc(s.openTimeout, func() {
			s.post(func() { s.handle(gen, evWatchdog, nil) })
		})
	}
	if eff.has(effResetAttempts) {
		s.attempts = 0
	}
	if eff.has(effAddSelf) {
		s.tracker.Joined(s.username)
	}
	if eff.has(effClearPresence) {
		s.tracker.ResetPresence()
	}
	if eff.has(effSendJoin) && s.username != "" {
		if err := s.write(model.NewJoin(s.username)); err != nil {
			s.log.Error("failed to send join event", zap.Error(err))
		}
	}

	if prev != next {
		s.log.Info("connection status",
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
			zap.String("event", ev.String()),
			zap.String("endpoint", s.endpoint))
	}
	if eff.has(effNotifyFailed) {
		s.log.Error("connection failed, returning to login",
			zap.String("event", ev.String()),
			zap.String("endpoint", s.endpoint))
		if s.onFailed != nil {
			s.onFailed()
		}
	}
	s.publish()
}

func (s *Session) startDial() {
	s.gen++
	s.attempts++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.dialCancel = cancel

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		conn, err := s.dialer.Dial(ctx, s.endpoint)
		if err != nil {
			s.post(func() { s.handle(gen, evDialFailed, err) })
			return
		}
		if !s.post(func() { s.opened(gen, conn) }) {
			conn.Close()
		}
	}()
}

func (s *Session) opened(gen uint64, conn Conn) {
	if gen != s.gen || s.status != StatusConnecting {
		conn.Close()
		return
	}
	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
	s.conn = conn

	s.workers.Add(1)
	go s.read(gen, conn)

	s.step(evOpen)
}

func (s *Session) read(gen uint64, conn Conn) {
	defer s.workers.Done()
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.post(func() { s.handle(gen, classify(err), err) })
			return
		}
		if !s.post(func() { s.receive(gen, data) }) {
			return
		}
	}
}

func (s *Session) dropTransport() {
	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debug("close transport", zap.Error(err))
		}
		s.conn = nil
	}
}

// receive applies one inbound envelope. Each envelope produces exactly one
// state update.
func (s *Session) receive(gen uint64, data []byte) {
	if gen != s.gen || s.conn == nil {
		return
	}
	env := model.Decode(data)
	switch {
	case env.IsPresence():
		if env.Type == model.EventUserJoined {
			s.tracker.Joined(env.Username)
		} else {
			s.tracker.Left(env.Username)
		}
	case env.IsTypingSignal():
		s.tracker.Typing(env.Username, env.IsTyping)
	default:
		s.timeline.ResolveOrAppend(env, s.username)
	}
	s.publish()
}

func (s *Session) isOpen() bool {
	return s.status == StatusConnected && s.conn != nil
}

func (s *Session) write(v any) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	data, err := model.Encode(v)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(data)
}

func (s *Session) snapshot() *Snapshot {
	return &Snapshot{
		Status:            s.status,
		Username:          s.username,
		Persona:           s.persona,
		ReconnectAttempts: s.attempts,
		Entries:           s.timeline.Entries(),
		Presence:          s.tracker.Presence(),
		Typing:            s.tracker.TypingUsers(),
	}
}

func (s *Session) publish() {
	snap := s.snapshot()
	s.state.Store(snap)
	if s.onChange != nil {
		s.onChange(*snap)
	}
}
