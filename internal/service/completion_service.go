package service

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	systemPrompt = "You are a helpful assistant."
	// MaxTokensCap bounds max_tokens regardless of configuration.
	MaxTokensCap       = 1500
	defaultTemperature = 0.7
	// NoResponse is returned when the API answers without content.
	NoResponse = "(No response)"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CompletionOptions configures CompletionService.
type CompletionOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// CompletionService sends one chat completion per prompt. It never retries.
type CompletionService struct {
	client    chatCompleter
	model     string
	maxTokens int
}

func NewCompletionService(opts CompletionOptions) *CompletionService {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return newCompletionService(openai.NewClientWithConfig(cfg), opts)
}

func newCompletionService(client chatCompleter, opts CompletionOptions) *CompletionService {
	model := opts.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &CompletionService{
		client:    client,
		model:     model,
		maxTokens: clampTokens(opts.MaxTokens),
	}
}

// Complete returns the first choice's content, or NoResponse when it is empty.
func (s *CompletionService) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return NoResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func clampTokens(n int) int {
	if n <= 0 || n > MaxTokensCap {
		return MaxTokensCap
	}
	return n
}
