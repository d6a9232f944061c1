package config

import (
	"fmt"
	"time"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/spf13/viper"
)

// Config holds the configuration for the chat agent and its tools
type Config struct {
	Model              string        `toml:"model" mapstructure:"model"` // Format: "provider:model" (e.g., "groq:llama3-8b-8192")
	GroqBaseURL        string        `toml:"groq_base_url" mapstructure:"groq_base_url"`
	GroqToken          string        `toml:"groq_token" mapstructure:"groq_token"`
	MaxRetries         int           `toml:"max_retries" mapstructure:"max_retries"`
	MaxIterations      int           `toml:"max_iterations" mapstructure:"max_iterations"`
	MaxParseErrors     int           `toml:"max_parse_errors" mapstructure:"max_parse_errors"`
	ToolTimeout        time.Duration `toml:"tool_timeout" mapstructure:"tool_timeout"`
	RunTimeout         time.Duration `toml:"run_timeout" mapstructure:"run_timeout"` // 0 = disabled
	TopKResults        int           `toml:"top_k_results" mapstructure:"top_k_results"`
	DocContentCharsMax int           `toml:"doc_content_chars_max" mapstructure:"doc_content_chars_max"`
	PromptFile         string        `toml:"prompt_file" mapstructure:"prompt_file"` // Optional TOML prompt override
	ListenAddr         string        `toml:"listen_addr" mapstructure:"listen_addr"`
}

// GetProvider extracts provider name from the model string
func (c *Config) GetProvider() (string, error) {
	provider, _, err := searchchat.ParseModelString(c.Model)
	return provider, err
}

// GetModelName extracts model name from the model string
func (c *Config) GetModelName() (string, error) {
	_, model, err := searchchat.ParseModelString(c.Model)
	return model, err
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig() *Config {
	return &Config{
		Model:              "groq:llama3-8b-8192",
		GroqBaseURL:        "https://api.groq.com/openai/v1",
		GroqToken:          "$GROQ_API_KEY", // Default to env var
		MaxRetries:         2,
		MaxIterations:      15,
		MaxParseErrors:     3,
		ToolTimeout:        20 * time.Second,
		RunTimeout:         3 * time.Minute,
		TopKResults:        1,
		DocContentCharsMax: 200,
		PromptFile:         "",
		ListenAddr:         "127.0.0.1:8501",
	}
}

// SetDefaults registers the default values with viper.
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("model", d.Model)
	v.SetDefault("groq_base_url", d.GroqBaseURL)
	v.SetDefault("groq_token", d.GroqToken)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("max_iterations", d.MaxIterations)
	v.SetDefault("max_parse_errors", d.MaxParseErrors)
	v.SetDefault("tool_timeout", d.ToolTimeout)
	v.SetDefault("run_timeout", d.RunTimeout)
	v.SetDefault("top_k_results", d.TopKResults)
	v.SetDefault("doc_content_chars_max", d.DocContentCharsMax)
	v.SetDefault("prompt_file", d.PromptFile)
	v.SetDefault("listen_addr", d.ListenAddr)
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v, expands environment references and
// validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	var err error
	if config.GroqToken, err = expandEnvVar(config.GroqToken); err != nil {
		return nil, err
	}
	if config.GroqBaseURL, err = expandEnvVar(config.GroqBaseURL); err != nil {
		return nil, err
	}

	if config.PromptFile != "" {
		absPath, err := ResolvePath(config.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt file path '%s': %v", config.PromptFile, err)
		}
		config.PromptFile = absPath
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	provider, _, err := searchchat.ParseModelString(c.Model)
	if err != nil {
		return err
	}
	if provider != "groq" {
		return fmt.Errorf("unsupported provider: %s (supported providers: groq)", provider)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive (got %d)", c.MaxIterations)
	}
	if c.MaxParseErrors <= 0 {
		return fmt.Errorf("max_parse_errors must be positive (got %d)", c.MaxParseErrors)
	}
	if c.TopKResults <= 0 {
		return fmt.Errorf("top_k_results must be positive (got %d)", c.TopKResults)
	}
	if c.DocContentCharsMax <= 0 {
		return fmt.Errorf("doc_content_chars_max must be positive (got %d)", c.DocContentCharsMax)
	}
	if c.ToolTimeout < 0 || c.RunTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}
