package llm

import (
	"context"
	"time"
)

// CompletionRequest is a single-turn prompt.
type CompletionRequest struct {
	System string
	User   string
}

// Completion is the text produced for a CompletionRequest.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer sends prompts to an LLM provider.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Provider() string
	Model() string
}

// retryLoop runs attempt up to maxRetries+1 times, retrying transient errors
// after delay(attempt).
func retryLoop(ctx context.Context, maxRetries int, delay func(attempt int) time.Duration, attempt func() (*Completion, error)) (*Completion, error) {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			timer := time.NewTimer(delay(i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		out, err := attempt()
		if err == nil {
			return out, nil
		}
		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
