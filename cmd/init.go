package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration file",
	Long: `Initialize the configuration file with default settings.
The config file will be created at $HOME/.config/searchchat/config.toml by default.
You can specify a different location using the --config option.

The generated file reads the Groq API key from $GROQ_API_KEY; it never
contains a secret unless you put one there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := userConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %v", err)
		}

		configFile := filepath.Join(configDir, "config.toml")
		if cfgFile != "" {
			configFile = cfgFile
		}

		if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %v", err)
		}

		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("config file already exists at: %s", configFile)
		}

		f, err := os.OpenFile(configFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("failed to create config file: %v", err)
		}
		defer f.Close()

		encoder := toml.NewEncoder(f)
		if err := encoder.Encode(defaultConfigFile(config.NewDefaultConfig())); err != nil {
			return fmt.Errorf("failed to encode config: %v", err)
		}

		fmt.Printf("Configuration file created at: %s\n", configFile)
		return nil
	},
}

// defaultConfigFile lays out cfg the way a user would write it, with
// durations as strings such as "20s".
func defaultConfigFile(cfg *config.Config) map[string]any {
	return map[string]any{
		"model":                 cfg.Model,
		"groq_base_url":         cfg.GroqBaseURL,
		"groq_token":            cfg.GroqToken,
		"max_retries":           cfg.MaxRetries,
		"max_iterations":        cfg.MaxIterations,
		"max_parse_errors":      cfg.MaxParseErrors,
		"tool_timeout":          cfg.ToolTimeout.String(),
		"run_timeout":           cfg.RunTimeout.String(),
		"top_k_results":         cfg.TopKResults,
		"doc_content_chars_max": cfg.DocContentCharsMax,
		"listen_addr":           cfg.ListenAddr,
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
