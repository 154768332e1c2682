// Package openai implements the inference engine port against any
// OpenAI-compatible chat completion endpoint. Primary and fallback
// engines are two instances of this client with different base URLs.
package openai

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/infra/ai/prompt"
)

const maxTokens = 2048

type Engine struct {
	client  *openai.Client
	name    string
	model   string
	timeout time.Duration
}

// New builds an engine against an OpenAI-compatible endpoint. An empty
// baseURL keeps the upstream default.
func New(name, apiKey, baseURL, model string, timeout time.Duration) *Engine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Engine{
		client:  openai.NewClientWithConfig(cfg),
		name:    name,
		model:   model,
		timeout: timeout,
	}
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Analyze(ctx context.Context, o domain.ExtractionOutcome) (domain.AnalysisDraft, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: e.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.UserPrompt(o)},
		},
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(e.model, "o1") || strings.HasPrefix(e.model, "o3") ||
		strings.HasPrefix(e.model, "o4") || strings.HasPrefix(e.model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.AnalysisDraft{}, domain.WrapError(domain.ErrEngineUnavailable,
			e.name+": chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return domain.AnalysisDraft{}, domain.NewError(domain.ErrEngineUnavailable,
			e.name+": empty completion")
	}

	params, conf, err := prompt.ParseDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.AnalysisDraft{}, domain.WrapError(domain.ErrEngineUnavailable,
			e.name+": unusable completion", err)
	}
	return domain.AnalysisDraft{
		Parameters:       params,
		EngineUsed:       e.name,
		EngineConfidence: conf,
	}, nil
}

// Probe checks endpoint reachability with a cheap model listing.
func (e *Engine) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.client.ListModels(ctx)
	return err == nil
}
