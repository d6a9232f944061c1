package agent

import (
	"io"
	"time"

	"github.com/longkey1/searchchat/internal/searchchat/prompt"
)

const (
	DefaultMaxIterations  = 15
	DefaultMaxParseErrors = 3
	DefaultToolTimeout    = 20 * time.Second
)

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations sets the maximum number of reasoning cycles.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithMaxParseErrors sets how many malformed directives in a row are
// tolerated before the run fails.
func WithMaxParseErrors(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxParseErrors = n
		}
	}
}

// WithToolTimeout bounds each tool invocation. Zero disables the bound.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Agent) { a.toolTimeout = d }
}

// WithRunTimeout bounds a whole run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(a *Agent) { a.runTimeout = d }
}

// WithPrompt replaces the built-in ReAct prompt.
func WithPrompt(p *prompt.Prompt) Option {
	return func(a *Agent) {
		if p != nil {
			a.prompt = p
		}
	}
}

// WithDebug writes every prompt and completion to w.
func WithDebug(w io.Writer) Option {
	return func(a *Agent) { a.debug = w }
}
