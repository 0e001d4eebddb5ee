package port

import "context"

// CompletionRequest carries a single prompt to a text-completion model.
type CompletionRequest struct {
	Prompt      string
	Model       string
	Temperature float32
}

// Completer abstracts a text-completion service. Implementations must be
// safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
