/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/longkey1/searchchat/internal/groq"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/spf13/cobra"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available to your Groq API key",
	Long: `List all models the configured Groq API key can use.
Fetches the latest model information directly from the Groq API.

Example:
  searchchat models
  searchchat chat --model groq:<model id> "your question"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		token, err := cfg.GetToken(groq.ProviderName)
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}
		baseURL, err := cfg.GetBaseURL(groq.ProviderName)
		if err != nil {
			return err
		}

		client, err := groq.NewClient(groq.Config{
			BaseURL:    baseURL,
			Token:      searchchat.Credential(token),
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return fmt.Errorf("%s (set groq_token, SEARCHCHAT_GROQ_TOKEN or GROQ_API_KEY)", agent.Diagnose(err))
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Listing models from: %s\n", baseURL)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		models, err := client.ListModels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list models: %s", agent.Diagnose(err))
		}
		if len(models) == 0 {
			return fmt.Errorf("no models returned from API")
		}

		fmt.Printf("Available models for %s:\n\n", groq.ProviderName)

		maxModelWidth := 15
		maxModelIDWidth := 15
		for _, model := range models {
			if n := len(searchchat.FormatModelString(groq.ProviderName, model.ID)); n > maxModelWidth {
				maxModelWidth = n
			}
			if len(model.ID) > maxModelIDWidth {
				maxModelIDWidth = len(model.ID)
			}
		}

		fmt.Printf("%-*s  %-*s  %-10s  %s\n", maxModelWidth, "MODEL", maxModelIDWidth, "MODEL ID", "DEFAULT", "OWNED BY")
		fmt.Printf("%s  %s  %s  %s\n",
			strings.Repeat("-", maxModelWidth),
			strings.Repeat("-", maxModelIDWidth),
			strings.Repeat("-", 10),
			strings.Repeat("-", 20))

		for _, model := range models {
			defaultMark := ""
			if model.IsDefault {
				defaultMark = "Yes"
			}
			fmt.Printf("%-*s  %-*s  %-10s  %s\n",
				maxModelWidth,
				searchchat.FormatModelString(groq.ProviderName, model.ID),
				maxModelIDWidth,
				model.ID,
				defaultMark,
				model.Description)
		}

		fmt.Printf("\nUse a model with: searchchat chat --model <model> [message]\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
