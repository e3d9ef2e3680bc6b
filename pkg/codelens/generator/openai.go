package generator

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/stackvity/codelens/pkg/codelens/explain"
)

// OpenAI generates explanations through a chat completion endpoint. Any
// OpenAI-compatible server works when BaseURL points at it.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates an OpenAI generator. An empty API key is rejected.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key not set", explain.ErrGeneratorUnavailable)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: model, maxTokens: maxTokens}, nil
}

// Generate implements explain.Generator.
func (o *OpenAI) Generate(ctx context.Context, prompt, excerpt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(prompt, excerpt)},
		},
		MaxCompletionTokens: o.maxTokens,
	})
	if err != nil {
		return "", classify(ctx, "openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices returned", explain.ErrGeneratorUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
