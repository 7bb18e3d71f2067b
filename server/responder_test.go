package main

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puyokura/odysseychat/model"
	"github.com/puyokura/odysseychat/persona"
)

type recordingModel struct {
	got   []*schema.Message
	reply *schema.Message
	err   error
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.got = input
	return m.reply, m.err
}

func zeus(t *testing.T) persona.Persona {
	t.Helper()
	p, ok := persona.NewMemoryDirectory(persona.Seed()).FindByID("zeus")
	require.True(t, ok)
	return p
}

func TestEinoResponderPrompt(t *testing.T) {
	m := &recordingModel{reply: &schema.Message{
		Role:         schema.Assistant,
		Content:      "So it shall be.",
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{TotalTokens: 42}},
	}}
	r := NewEinoResponder(m)

	facts := []model.Fact{{FactType: "birthday", Value: "May 3", NormalizedValue: "0000-05-03"}}
	reply, err := r.Respond(context.Background(), zeus(t), facts, "what should I do")
	require.NoError(t, err)
	assert.Equal(t, "So it shall be.", reply.Text)
	assert.Equal(t, 42, reply.Tokens)

	require.Len(t, m.got, 3)
	assert.Equal(t, schema.System, m.got[0].Role)
	assert.Contains(t, m.got[0].Content, "You are Zeus")
	assert.Equal(t, "Known facts about the user:\n- birthday: May 3 (normalized: 0000-05-03)", m.got[1].Content)
	assert.Equal(t, schema.User, m.got[2].Role)
	assert.Equal(t, "what should I do", m.got[2].Content)
}

func TestEinoResponderWithoutFacts(t *testing.T) {
	m := &recordingModel{reply: &schema.Message{Role: schema.Assistant, Content: "ok"}}
	reply, err := NewEinoResponder(m).Respond(context.Background(), zeus(t), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, 0, reply.Tokens)
	assert.Len(t, m.got, 2)
}

func TestEinoResponderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewEinoResponder(&recordingModel{err: boom}).Respond(context.Background(), zeus(t), nil, "hi")
	assert.ErrorIs(t, err, boom)
}

func TestCannedResponder(t *testing.T) {
	reply, err := CannedResponder{}.Respond(context.Background(), zeus(t),
		[]model.Fact{{FactType: "name", Value: "Alice"}}, "hello")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Zeus")
	assert.Contains(t, reply.Text, `"hello"`)
	assert.Contains(t, reply.Text, "Alice")
}

func TestNewArkResponderRequiresCredentials(t *testing.T) {
	cfg := NewConfig("unused.json")
	_, err := NewArkResponder(context.Background(), cfg)
	assert.Error(t, err)
}
