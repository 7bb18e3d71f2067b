package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/puyokura/odysseychat/model"
	"github.com/puyokura/odysseychat/persona"
)

// Reply is a persona answer plus the token usage reported by the model.
type Reply struct {
	Text   string
	Tokens int
}

// Responder answers a message addressed to a persona.
type Responder interface {
	Respond(ctx context.Context, p persona.Persona, facts []model.Fact, text string) (Reply, error)
}

// ChatGenerator is the part of an eino chat model the broker uses.
type ChatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// EinoResponder sends persona prompts to an eino chat model.
type EinoResponder struct {
	model ChatGenerator
}

func NewEinoResponder(m ChatGenerator) *EinoResponder {
	return &EinoResponder{model: m}
}

// NewArkResponder builds an EinoResponder on a Volcengine Ark chat model.
func NewArkResponder(ctx context.Context, cfg *Config) (*EinoResponder, error) {
	if !cfg.AIEnabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY and ark_model")
	}
	cfg.mu.RLock()
	arkCfg := &ark.ChatModelConfig{
		BaseURL:   cfg.ArkBaseURL,
		Region:    cfg.ArkRegion,
		APIKey:    cfg.ArkAPIKey,
		AccessKey: cfg.ArkAccessKey,
		SecretKey: cfg.ArkSecretKey,
		Model:     cfg.ArkModel,
	}
	cfg.mu.RUnlock()

	chatModel, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewEinoResponder(chatModel), nil
}

func (r *EinoResponder) Respond(ctx context.Context, p persona.Persona, facts []model.Fact, text string) (Reply, error) {
	messages := []*schema.Message{schema.SystemMessage(systemPrompt(p))}
	if fc := factContext(facts); fc != "" {
		messages = append(messages, schema.SystemMessage(fc))
	}
	messages = append(messages, schema.UserMessage(text))

	out, err := r.model.Generate(ctx, messages)
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{Text: out.Content}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		reply.Tokens = out.ResponseMeta.Usage.TotalTokens
	}
	return reply, nil
}

func systemPrompt(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a persona in a group chat.", p.Name)
	if p.Description != "" {
		b.WriteString(" ")
		b.WriteString(p.Description)
	}
	if p.PromptHint != "" {
		b.WriteString("\n")
		b.WriteString(p.PromptHint)
	}
	b.WriteString("\nStay in character and keep answers suitable for a chat window.")
	return b.String()
}

// factContext renders stored facts so the model can act on them.
func factContext(facts []model.Fact) string {
	if len(facts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(facts)+1)
	lines = append(lines, "Known facts about the user:")
	for _, f := range facts {
		line := fmt.Sprintf("- %s: %s", f.FactType, f.Value)
		if f.NormalizedValue != "" {
			line += fmt.Sprintf(" (normalized: %s)", f.NormalizedValue)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// CannedResponder answers without a model. It is used when no Ark
// credentials are configured.
type CannedResponder struct{}

func (CannedResponder) Respond(_ context.Context, p persona.Persona, facts []model.Fact, text string) (Reply, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s hears you: %q.", p.Name, text)
	for _, f := range facts {
		if f.FactType == "name" {
			fmt.Fprintf(&b, " Good to see you, %s.", f.Value)
			break
		}
	}
	b.WriteString(" (AI replies are offline; configure Ark credentials to enable them.)")
	return Reply{Text: b.String()}, nil
}
