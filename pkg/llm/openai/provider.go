// Package openai backs llm.LLMProvider with the OpenAI chat completion API.
// The same client serves Azure OpenAI deployments and OpenAI-compatible
// routers such as the Hugging Face inference router.
package openai

import (
	"context"
	"errors"
	"math"

	goopenai "github.com/sashabaranov/go-openai"

	"hmo-assistant-be/pkg/llm"
)

const HuggingFaceRouterURL = "https://router.huggingface.co/v1"

type Provider struct {
	client *goopenai.Client
	model  string
}

var _ llm.LLMProvider = &Provider{}

// NewProvider talks to api.openai.com.
func NewProvider(apiKey, model string) *Provider {
	return &Provider{client: goopenai.NewClient(apiKey), model: model}
}

// NewCompatibleProvider talks to any OpenAI-compatible base URL.
func NewCompatibleProvider(apiKey, baseURL, model string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: goopenai.NewClientWithConfig(cfg), model: model}
}

// NewAzureProvider targets an Azure OpenAI resource; model is the deployment name.
func NewAzureProvider(apiKey, endpoint, apiVersion, deployment string) *Provider {
	cfg := goopenai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.AzureModelMapperFunc = func(string) string { return deployment }
	return &Provider{client: goopenai.NewClientWithConfig(cfg), model: deployment}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if p.client == nil {
		return "", errors.New("openai client not initialized")
	}
	options := llm.NewOptions(0.2, opts...)

	msgs := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := m.Role
		if role != goopenai.ChatMessageRoleSystem && role != goopenai.ChatMessageRoleUser && role != goopenai.ChatMessageRoleAssistant {
			role = goopenai.ChatMessageRoleUser
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	// temperature is omitempty on the wire; a literal zero would fall back to the API default
	temperature := float32(options.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   options.MaxTokens,
	}
	if options.JSONMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
