package factory

import (
	"fmt"

	"hmo-assistant-be/pkg/llm"
	"hmo-assistant-be/pkg/llm/ollama"
	"hmo-assistant-be/pkg/llm/openai"
)

// Settings selects and configures a chat backend.
type Settings struct {
	Provider string // "ollama", "huggingface", "openai", "azure"
	Model    string
	BaseURL  string // ollama or compatible router
	APIKey   string

	AzureEndpoint   string
	AzureAPIVersion string
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, s.Model), nil
	case "openai":
		if s.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewProvider(s.APIKey, s.Model), nil
	case "huggingface":
		return openai.NewCompatibleProvider(s.APIKey, openai.HuggingFaceRouterURL, s.Model), nil
	case "azure":
		if s.AzureEndpoint == "" || s.APIKey == "" {
			return nil, fmt.Errorf("azure provider requires an endpoint and an API key")
		}
		return openai.NewAzureProvider(s.APIKey, s.AzureEndpoint, s.AzureAPIVersion, s.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
