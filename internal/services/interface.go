package services

import "context"

// Completion is one response from the generation API, with the usage the
// provider reported.
type Completion struct {
	Content    string
	TokensUsed int
}

// GenerationClient is the contract with the remote generative-text API.
type GenerationClient interface {
	// Complete sends a system/user prompt pair and returns the generated
	// text plus token usage.
	Complete(ctx context.Context, system, prompt string) (*Completion, error)
}
