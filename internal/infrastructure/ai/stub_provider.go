package ai

import (
	"context"

	"github.com/propman/backend/internal/domain/aiusage"
)

// StubProvider is a placeholder implementation of aiusage.Provider.
// It echoes a canned response with deterministic token counts.
// Use this for development until a real provider key is configured.
type StubProvider struct {
	// Content is the canned completion returned for every call
	Content string
}

// NewStubProvider creates a new StubProvider
func NewStubProvider() *StubProvider {
	return &StubProvider{Content: "stub response"}
}

// Invoke returns the canned response. Input tokens are estimated at four
// characters per token; output tokens from the canned content the same way.
func (s *StubProvider) Invoke(ctx context.Context, model, prompt string, maxTokens int64) (*aiusage.InvokeResult, error) {
	return &aiusage.InvokeResult{
		Content:      s.Content,
		InputTokens:  int64(len(prompt)/4) + 1,
		OutputTokens: int64(len(s.Content)/4) + 1,
		Success:      true,
	}, nil
}

// Ensure StubProvider implements the interface
var _ aiusage.Provider = (*StubProvider)(nil)
