package stub

import (
	"context"
	"strings"

	"ontology-chat/pkg/llm"
)

// StubProvider answers without a model server. It echoes the grounding
// context headline back, which is enough for local development and tests.
type StubProvider struct{}

var _ llm.LLMProvider = StubProvider{}

func New() StubProvider {
	return StubProvider{}
}

func (StubProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	var question string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			question = history[i].Content
			break
		}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "I did not receive a question.", nil
	}
	return "Based on the loaded ontology, here is what I found about: " + question, nil
}

func (s StubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}
