package textgen

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
)

type OllamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	mu      sync.Mutex
}

func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	httpClient := &http.Client{}

	c := api.NewClient(&url.URL{
		Scheme: "http",
		Host:   baseURL,
		Path:   "/",
	}, httpClient)

	return &OllamaClient{
		client:  c,
		model:   model,
		timeout: timeout,
	}
}

func (o *OllamaClient) Summarize(title, body string) (string, error) {
	return o.generate(summarizePrompt(title, body))
}

func (o *OllamaClient) Score(title, body string) (int, error) {
	reply, err := o.generate(scorePrompt(title, body))
	if err != nil {
		return 0, err
	}
	return parseScore(reply)
}

func (o *OllamaClient) Categorize(title, body string) (string, error) {
	return o.generate(categorizePrompt(title, body))
}

func (o *OllamaClient) SubjectLine(titles []string) (string, error) {
	return o.generate(subjectPrompt(titles))
}

func (o *OllamaClient) generate(prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	var responseFlow []string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		responseFlow = append(responseFlow, resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.Join(responseFlow, "")), nil
}
