package cmd

import (
	"fmt"
	"strings"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFields = []string{
	"configfile", "model", "groq_base_url", "groq_token", "max_retries", "max_iterations",
	"max_parse_errors", "tool_timeout", "run_timeout", "top_k_results", "doc_content_chars_max",
	"prompt_file", "listen_addr",
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.
The API token is always shown masked.

If a field name is specified, only that field's value is displayed.
Available fields: ` + strings.Join(configFields, ", ") + `

Examples:
  searchchat config                 # Show all configuration
  searchchat config model           # Show only model
  searchchat config groq_token      # Show only the (masked) Groq token
  searchchat config tool_timeout    # Show only the per-tool timeout`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		values := configValues(cfg)
		if len(args) > 0 {
			field := strings.ToLower(args[0])
			value, ok := values[field]
			if !ok {
				return fmt.Errorf("unknown field: %s\nAvailable fields: %s", args[0], strings.Join(configFields, ", "))
			}
			fmt.Println(value)
			return nil
		}

		for _, field := range configFields {
			fmt.Printf("%s: %s\n", field, values[field])
		}
		return nil
	},
}

// configValues renders every field for display. The token is masked.
func configValues(cfg *config.Config) map[string]string {
	return map[string]string{
		"configfile":            viper.ConfigFileUsed(),
		"model":                 cfg.Model,
		"groq_base_url":         cfg.GroqBaseURL,
		"groq_token":            searchchat.MaskToken(cfg.GroqToken),
		"max_retries":           fmt.Sprint(cfg.MaxRetries),
		"max_iterations":        fmt.Sprint(cfg.MaxIterations),
		"max_parse_errors":      fmt.Sprint(cfg.MaxParseErrors),
		"tool_timeout":          cfg.ToolTimeout.String(),
		"run_timeout":           cfg.RunTimeout.String(),
		"top_k_results":         fmt.Sprint(cfg.TopKResults),
		"doc_content_chars_max": fmt.Sprint(cfg.DocContentCharsMax),
		"prompt_file":           cfg.PromptFile,
		"listen_addr":           cfg.ListenAddr,
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
}
