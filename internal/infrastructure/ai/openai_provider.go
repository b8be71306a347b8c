package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/propman/backend/internal/domain/aiusage"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider implements the aiusage.Provider interface against an
// OpenAI-compatible chat completion API. Token counts are taken from the
// provider's usage report, not estimated locally.
type OpenAIProvider struct {
	client  *openai.Client
	timeout time.Duration
	logger  *zap.Logger
}

// OpenAIConfig holds provider connection configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string        // Optional; empty uses the default endpoint
	Timeout time.Duration // Per-request deadline; zero means no extra deadline
}

// NewOpenAIProvider creates a provider backed by the OpenAI chat API
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Invoke sends a single-turn chat completion request
func (p *OpenAIProvider) Invoke(ctx context.Context, model, prompt string, maxTokens int64) (*aiusage.InvokeResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: int(maxTokens),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		p.logger.Warn("AI invocation failed",
			zap.String("model", model),
			zap.Error(err))
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &aiusage.InvokeResult{
		Content:      content,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
		Success:      true,
	}, nil
}

// Ensure OpenAIProvider implements the interface
var _ aiusage.Provider = (*OpenAIProvider)(nil)
