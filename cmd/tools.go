package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/spf13/cobra"
)

// toolsCmd represents the tools command
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the lookup tools the assistant can use",
	Long: `List the lookup tools in the order they are offered to the model,
with the description the model sees.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		tools, err := newTools(cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, t := range tools.List() {
			fmt.Fprintf(w, "%s\t%s\n", t.Name(), t.Description())
		}
		return w.Flush()
	},
}

// toolsRunCmd represents the tools run command
var toolsRunCmd = &cobra.Command{
	Use:   "run <name> <query...>",
	Short: "Invoke one tool directly",
	Long: `Invoke a lookup tool directly and print what the model would observe.

Example:
  searchchat tools run wikipedia "Alan Turing"
  searchchat tools run arxiv 1706.03762`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		tools, err := newTools(cfg)
		if err != nil {
			return err
		}

		tool, ok := tools.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown tool: %s (available: %s)", args[0], strings.Join(tools.Names(), ", "))
		}
		query := strings.Join(args[1:], " ")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if cfg.ToolTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ToolTimeout)
			defer cancel()
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Invoking %s with %q\n", tool.Name(), query)
		}
		out, err := tool.Invoke(ctx, query)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsRunCmd)
}
