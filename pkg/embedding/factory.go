package embedding

import "fmt"

// NewProvider picks an embedding backend by name.
func NewProvider(name, model, apiKey, ollamaBaseURL string) (EmbeddingProvider, error) {
	switch name {
	case "ollama":
		return NewOllamaProvider(ollamaBaseURL, model), nil
	case "gemini":
		return NewGeminiProvider(apiKey), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		return NewOpenAIProvider(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
}
