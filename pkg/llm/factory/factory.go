package factory

import (
	"fmt"

	"ontology-chat/pkg/llm"
	"ontology-chat/pkg/llm/ollama"
	"ontology-chat/pkg/llm/stub"
)

func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "stub":
		return stub.New(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
