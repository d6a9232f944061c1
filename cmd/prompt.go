/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/longkey1/searchchat/internal/searchchat/prompt"
	"github.com/spf13/cobra"
)

var (
	promptQuestion string
	promptExport   bool
)

// promptCmd represents the prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Show the reasoning prompt sent to the model",
	Long: `Show the system prompt and the first user turn exactly as the agent sends
them, with the tool catalog filled in.

The built-in prompt can be replaced by a TOML file set with prompt_file in the
configuration. The file has two keys, both optional:
system = "Instructions with {{tools}} and {{tool_names}} placeholders"
suffix = "Question: {{input}}\nThought:{{agent_scratchpad}}"

Use --export to print the active prompt as such a file, ready to edit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		p := prompt.Default
		if cfg.PromptFile != "" {
			loaded, err := prompt.LoadPrompt(cfg.PromptFile)
			if err != nil {
				return err
			}
			p = *loaded
			if verbose {
				fmt.Fprintf(os.Stderr, "Prompt file: %s\n", cfg.PromptFile)
			}
		}

		if promptExport {
			return toml.NewEncoder(os.Stdout).Encode(p)
		}

		tools, err := newTools(cfg)
		if err != nil {
			return err
		}
		infos := make([]prompt.ToolInfo, 0, tools.Len())
		for _, t := range tools.List() {
			infos = append(infos, prompt.ToolInfo{Name: t.Name(), Description: t.Description()})
		}

		system, user := p.Format(infos, promptQuestion, "")
		fmt.Println("=== System ===")
		fmt.Println(system)
		fmt.Println("\n=== User ===")
		fmt.Println(user)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptQuestion, "question", "What is machine learning?", "Question to fill in")
	promptCmd.Flags().BoolVar(&promptExport, "export", false, "Print the active prompt as a TOML prompt file")
}
