package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/chat"
	"github.com/puyokura/odysseychat/facts"
	"github.com/puyokura/odysseychat/model"
)

// Network bridges the chat session and the facts client into bubbletea
// messages. Session callbacks only signal; the UI reads state on its own
// goroutine.
type Network struct {
	session *chat.Session
	facts   *facts.Client
	log     *zap.Logger

	changed chan struct{}
	failed  chan struct{}
}

func NewNetwork(cfg *Config, factsClient *facts.Client, log *zap.Logger) *Network {
	n := &Network{
		facts:   factsClient,
		log:     log,
		changed: make(chan struct{}, 1),
		failed:  make(chan struct{}, 1),
	}
	n.session = chat.NewSession("", chat.Options{
		Endpoint:           cfg.URL,
		OpenTimeout:        cfg.OpenTimeoutDuration(),
		Persona:            cfg.Persona,
		Logger:             log.Named("session"),
		OnChange:           func(chat.Snapshot) { signal(n.changed) },
		OnConnectionFailed: func() { signal(n.failed) },
	})
	return n
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

type stateMsg chat.Snapshot

type connectionFailedMsg struct{}

type factsMsg struct {
	facts []model.Fact
	err   error
}

type factDeletedMsg struct {
	id  string
	err error
}

type errMsg error

// WaitForMessage is a tea.Cmd that blocks until the session changes or
// reports a failure. A failure wins over a pending change.
func (n *Network) WaitForMessage() tea.Msg {
	select {
	case <-n.failed:
		return connectionFailedMsg{}
	default:
	}
	select {
	case <-n.failed:
		return connectionFailedMsg{}
	case <-n.changed:
		return stateMsg(n.session.State())
	}
}

func (n *Network) Login(username string) tea.Cmd {
	return func() tea.Msg {
		if err := n.session.SetUsername(username); err != nil {
			return errMsg(err)
		}
		if err := n.session.Connect(); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (n *Network) Logout() tea.Cmd {
	return func() tea.Msg {
		if err := n.session.SetUsername(""); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (n *Network) SendMessage(content string) tea.Cmd {
	return func() tea.Msg {
		if err := n.session.SendChatMessage(content); err != nil {
			n.log.Warn("send message", zap.Error(err))
		}
		return nil
	}
}

func (n *Network) SetPersona(id string) tea.Cmd {
	return func() tea.Msg {
		if err := n.session.SetPersona(id); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

// SendTypingIndicator lets Network act as the typing notifier's sender.
func (n *Network) SendTypingIndicator(isTyping bool) error {
	return n.session.SendTypingIndicator(isTyping)
}

func (n *Network) LoadFacts(username string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		list, err := n.facts.List(ctx, username)
		return factsMsg{facts: list, err: err}
	}
}

func (n *Network) DeleteFact(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return factDeletedMsg{id: id, err: n.facts.Delete(ctx, id)}
	}
}

func (n *Network) State() chat.Snapshot {
	return n.session.State()
}

func (n *Network) Close() {
	if err := n.session.Close(); err != nil {
		n.log.Warn("close session", zap.Error(err))
	}
}
