package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/longkey1/searchchat/internal/searchchat"
)

// CouldNotComplete is the answer returned when the budget runs out before
// the model produced anything usable.
const CouldNotComplete = "I could not complete the request within the allowed number of reasoning steps."

// ErrBudgetExceeded matches BudgetExceededError through errors.Is.
var ErrBudgetExceeded = errors.New("iteration budget exceeded")

// DirectiveParseError reports a completion the loop could not act on.
type DirectiveParseError struct {
	Output string // raw completion
	Reason string // observation fed back to the model
}

func (e *DirectiveParseError) Error() string {
	return "could not parse model output: " + e.Reason
}

// BudgetExceededError is returned when the loop ran out of cycles.
type BudgetExceededError struct {
	Iterations int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("agent stopped after %d iterations without a final answer", e.Iterations)
}

func (e *BudgetExceededError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// Diagnose converts a run error into a message that is safe to show to the
// user. It returns an empty string for a nil error.
func Diagnose(err error) string {
	var parseErr *DirectiveParseError
	var modelErr *searchchat.ModelError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, searchchat.ErrCredential):
		return "Please enter your Groq API key to continue."
	case errors.Is(err, searchchat.ErrAuthentication):
		return "Groq rejected the API key. Please check it and enter it again."
	case errors.Is(err, searchchat.ErrRateLimit):
		return "The Groq API rate limit was reached. Please wait a moment and try again."
	case errors.Is(err, searchchat.ErrServiceUnavailable):
		return "The Groq API is temporarily unavailable. Please try again later."
	case errors.Is(err, searchchat.ErrNetwork):
		return "Could not reach the Groq API. Please check your network connection and try again."
	case errors.As(err, &modelErr):
		return "Groq API error. Possible causes:\n- Invalid API key.\n- Network issues.\n- API rate limits or downtime."
	case errors.Is(err, ErrBudgetExceeded):
		return "I gave up after too many reasoning steps without reaching a final answer."
	case errors.As(err, &parseErr):
		return "I could not produce a well-formed answer. Please try rephrasing your question."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request took too long and was stopped. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	default:
		return "An error occurred while processing your request. Please try again."
	}
}
