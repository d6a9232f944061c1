// Package searchchat provides the core abstractions shared by the reasoning
// agent, the model clients and the lookup tools.
package searchchat

import (
	"context"
	"fmt"
	"strings"
)

// ModelInfo represents information about an available model from a provider.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "llama3-8b-8192")
	Description string // Human-readable description of the model
	IsDefault   bool   // Whether this is the default model for the provider
}

// Request is the input to one streamed completion.
type Request struct {
	System   string    // System prompt, sent ahead of Messages
	Messages []Message // Conversation in order
	Stop     []string  // Stop sequences
}

// Chunk is a single incremental piece of a streamed completion.
type Chunk struct {
	Delta string
}

// Model defines the interface for streaming language model clients.
//
// Stream sends the completion for req to ch as it is produced and closes ch
// when the response is complete or an error occurs. Errors are classified
// with the ModelError kinds so callers can tell credential problems from
// transient ones.
//
// Example usage:
//
//	ch := make(chan searchchat.Chunk, 64)
//	go func() { err = model.Stream(ctx, req, ch) }()
//	for chunk := range ch {
//		fmt.Print(chunk.Delta)
//	}
type Model interface {
	Stream(ctx context.Context, req Request, ch chan<- Chunk) error
}

// ParseModelString parses a model string in "provider:model" format.
// Returns (provider, model, error).
//
// Example:
//
//	provider, model, err := ParseModelString("groq:llama3-8b-8192")
//	// provider = "groq", model = "llama3-8b-8192"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid model format: %s (expected format: provider:model, e.g., groq:llama3-8b-8192)", modelStr)
	}

	provider := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])

	if provider == "" || model == "" {
		return "", "", fmt.Errorf("provider and model cannot be empty")
	}

	return provider, model, nil
}

// FormatModelString formats provider and model into "provider:model" format.
func FormatModelString(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}
