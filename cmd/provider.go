package cmd

import (
	"fmt"
	"io"

	"github.com/longkey1/searchchat/internal/arxiv"
	"github.com/longkey1/searchchat/internal/duckduckgo"
	"github.com/longkey1/searchchat/internal/groq"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/longkey1/searchchat/internal/searchchat/conversation"
	"github.com/longkey1/searchchat/internal/searchchat/prompt"
	"github.com/longkey1/searchchat/internal/wikipedia"
)

// newModelFactory returns a factory that builds the configured model for a
// credential.
func newModelFactory(cfg *config.Config) (conversation.ModelFactory, error) {
	provider, err := cfg.GetProvider()
	if err != nil {
		return nil, err
	}
	modelName, err := cfg.GetModelName()
	if err != nil {
		return nil, err
	}

	switch provider {
	case groq.ProviderName:
		return func(c searchchat.Credential) (searchchat.Model, error) {
			client, err := groq.NewClient(groq.Config{
				BaseURL:    cfg.GroqBaseURL,
				Token:      c,
				Model:      modelName,
				MaxRetries: cfg.MaxRetries,
			})
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// newTools builds the tool set in the order the agent presents it.
func newTools(cfg *config.Config) (*searchchat.Registry, error) {
	return searchchat.NewRegistry(
		duckduckgo.New(),
		arxiv.New(cfg.TopKResults, cfg.DocContentCharsMax),
		wikipedia.New(cfg.TopKResults, cfg.DocContentCharsMax),
	)
}

// agentOptions translates the configuration into loop options. debug, when
// non-nil, receives every prompt and completion.
func agentOptions(cfg *config.Config, debug io.Writer) ([]agent.Option, error) {
	opts := []agent.Option{
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithMaxParseErrors(cfg.MaxParseErrors),
		agent.WithToolTimeout(cfg.ToolTimeout),
		agent.WithRunTimeout(cfg.RunTimeout),
	}
	if cfg.PromptFile != "" {
		p, err := prompt.LoadPrompt(cfg.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("loading prompt file %s: %w", cfg.PromptFile, err)
		}
		opts = append(opts, agent.WithPrompt(p))
	}
	if debug != nil {
		opts = append(opts, agent.WithDebug(debug))
	}
	return opts, nil
}
