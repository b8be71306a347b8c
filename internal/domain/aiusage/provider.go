package aiusage

import "context"

// InvokeResult is the outcome of one AI model invocation. Token counts come
// from the provider; cost is derived later by the ledger.
type InvokeResult struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
	Success      bool
}

// Provider is the opaque AI backend every governed call is wrapped around.
// A transport error still yields a result with Success=false so the attempt
// can be recorded.
type Provider interface {
	Invoke(ctx context.Context, model, prompt string, maxTokens int64) (*InvokeResult, error)
}
