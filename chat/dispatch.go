package chat

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/model"
)

// SendChatMessage appends the local entries for raw and transmits it.
//
// A leading "@persona rest" adds a pending placeholder for the reply. When
// the transport is not open such a send stops after the local entries and
// returns ErrNotConnected, leaving the placeholder in place. Plain messages
// are written optimistically and write failures are only logged.
func (s *Session) SendChatMessage(raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	var err error
	if derr := s.do(func() {
		if s.closed {
			err = ErrClosed
			return
		}
		err = s.sendChat(text)
		s.publish()
	}); derr != nil {
		return derr
	}
	return err
}

func (s *Session) sendChat(text string) error {
	m, ok := ParseMention(text)
	if !ok {
		s.timeline.AppendSelf(text, s.username, "")
		if err := s.write(model.NewChat(text, s.username, s.persona, "")); err != nil {
			s.log.Error("failed to send message",
				zap.String("username", s.username),
				zap.Error(err))
		}
		return nil
	}

	body := m.Rest
	if body == "" {
		body = fmt.Sprintf("(calling %s)", m.Token)
	}
	s.timeline.AppendSelf(body, s.username, m.Token)
	s.timeline.AppendPendingPlaceholder()

	if !s.isOpen() {
		s.log.Warn("socket not open, mention dropped",
			zap.String("username", s.username),
			zap.String("target_persona", m.Token))
		return ErrNotConnected
	}
	if err := s.write(model.NewChat(body, s.username, s.persona, m.Token)); err != nil {
		s.log.Error("failed to send mention",
			zap.String("target_persona", m.Token),
			zap.Error(err))
		return fmt.Errorf("send mention: %w", err)
	}
	return nil
}

// SendTypingIndicator transmits a typing delta. It does nothing unless the
// transport is open.
func (s *Session) SendTypingIndicator(isTyping bool) error {
	return s.do(func() {
		if !s.isOpen() || s.username == "" {
			return
		}
		if err := s.write(model.NewTyping(s.username, isTyping)); err != nil {
			s.log.Debug("failed to send typing", zap.Error(err))
		}
	})
}
