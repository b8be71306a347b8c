package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/propman/backend/internal/domain/automation"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const classifierSystemPrompt = `You evaluate whether a condition holds for a tenant's AI usage metrics.
Answer with exactly one word: YES or NO.`

// OpenAIClassifier implements the automation.Classifier interface by asking a
// small model a yes/no question about the tenant's usage snapshot.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClassifier creates a classifier using the given model
func NewOpenAIClassifier(cfg OpenAIConfig, model string, logger *zap.Logger) (*OpenAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Classify asks the model whether the condition holds for the snapshot.
// Anything other than an affirmative answer is treated as no-trigger.
func (c *OpenAIClassifier) Classify(ctx context.Context, condition string, snapshot automation.MetricsSnapshot) (bool, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildClassifierPrompt(condition, snapshot)},
		},
	})
	if err != nil {
		return false, err
	}
	if len(resp.Choices) == 0 {
		return false, nil
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	matched := strings.HasPrefix(answer, "YES")

	c.logger.Debug("Classification evaluated",
		zap.String("condition", condition),
		zap.String("answer", answer),
		zap.Bool("matched", matched))

	return matched, nil
}

func buildClassifierPrompt(condition string, snapshot automation.MetricsSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Condition: %s\n\n", condition)
	fmt.Fprintf(&b, "Metrics for window %s to %s:\n",
		snapshot.WindowStart.Format("2006-01-02 15:04"),
		snapshot.WindowEnd.Format("2006-01-02 15:04"))
	for feature, cost := range snapshot.CostByFeature {
		fmt.Fprintf(&b, "- %s: cost=%s calls=%d error_rate=%.2f\n",
			feature, cost, snapshot.CallCounts[feature], snapshot.ErrorRates[feature])
	}
	b.WriteString("\nDoes the condition hold?")
	return b.String()
}

// Ensure OpenAIClassifier implements the interface
var _ automation.Classifier = (*OpenAIClassifier)(nil)
