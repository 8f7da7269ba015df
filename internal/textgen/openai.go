package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a generator backed by any OpenAI-compatible API.
// Set baseURL to a non-empty string to point at a local server (LM Studio,
// llama.cpp, Ollama's /v1 endpoint, etc.); leave empty for api.openai.com.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAIClient) Summarize(title, body string) (string, error) {
	return o.complete(summarizePrompt(title, body), 120, 0.3)
}

func (o *OpenAIClient) Score(title, body string) (int, error) {
	reply, err := o.complete(scorePrompt(title, body), 10, 0.1)
	if err != nil {
		return 0, err
	}
	return parseScore(reply)
}

func (o *OpenAIClient) Categorize(title, body string) (string, error) {
	return o.complete(categorizePrompt(title, body), 20, 0.1)
}

func (o *OpenAIClient) SubjectLine(titles []string) (string, error) {
	return o.complete(subjectPrompt(titles), 30, 0.5)
}

func (o *OpenAIClient) complete(prompt string, maxTokens int, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %q", o.model)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
