/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/longkey1/searchchat/internal/searchchat/conversation"
	"github.com/longkey1/searchchat/internal/searchchat/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	model      string
	showTrace  bool
	quiet      bool
	skipVerify bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a question, or start an interactive chat",
	Long: `Ask the assistant a question and print the answer.

If a message is given as arguments, or stdin is not a terminal, the question
is answered once and the command exits. Otherwise an interactive session
starts; type '/help' inside it for the available commands.

The Groq API key is taken from the configuration (groq_token, default
$GROQ_API_KEY) or the SEARCHCHAT_GROQ_TOKEN environment variable. In
interactive mode you are asked for it when none is configured.

While the assistant works, its thoughts, tool calls and observations are
streamed to stderr. Use --quiet to hide them and --trace to print the full
reasoning trace as YAML after the answer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("model") {
			if _, _, err := searchchat.ParseModelString(model); err != nil {
				return fmt.Errorf("invalid model from flag: %w", err)
			}
			cfg.Model = model
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		factory, err := newModelFactory(cfg)
		if err != nil {
			return fmt.Errorf("creating model: %w", err)
		}
		tools, err := newTools(cfg)
		if err != nil {
			return fmt.Errorf("registering tools: %w", err)
		}
		var debug io.Writer
		if verbose {
			debug = os.Stderr
		}
		opts, err := agentOptions(cfg, debug)
		if err != nil {
			return err
		}

		stdinIsTerminal := term.IsTerminal(int(os.Stdin.Fd()))
		oneShot := len(args) > 0 || !stdinIsTerminal

		surface := newTerminalSurface(os.Stdout, os.Stderr, oneShot, !quiet, verbose)
		sess := session.New(cfg.Model)
		conv := conversation.New(sess, surface, factory, tools, opts...)

		if verbose {
			fmt.Fprintf(os.Stderr, "Session: %s\n", sess.GetShortID())
			fmt.Fprintf(os.Stderr, "Model: %s\n", sess.Model)
			fmt.Fprintf(os.Stderr, "Tools: %s\n", strings.Join(tools.Names(), ", "))
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		credential := searchchat.Credential(cfg.GroqToken)

		if oneShot {
			var message string
			if len(args) > 0 {
				message = strings.Join(args, " ")
			} else {
				input, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading from stdin: %w", err)
				}
				message = strings.TrimSpace(string(input))
			}
			if message == "" {
				return fmt.Errorf("no message given")
			}
			if credential.Empty() {
				return fmt.Errorf("%w: set groq_token in the config file, SEARCHCHAT_GROQ_TOKEN or GROQ_API_KEY", searchchat.ErrCredential)
			}
			if err := conv.SetCredential(ctx, credential, !skipVerify); err != nil {
				return err
			}
			return runTurn(ctx, conv, message)
		}

		if credential.Empty() {
			credential, err = readCredential(os.Stdin, os.Stderr)
			if err != nil {
				return fmt.Errorf("reading API key: %w", err)
			}
		}
		// A rejected key is reported through the surface; /key retries.
		conv.SetCredential(ctx, credential, !skipVerify)
		return runInteractiveMode(ctx, conv)
	},
}

// runTurn submits one prompt, cancelling it on Ctrl+C, and prints the trace
// when requested.
func runTurn(parent context.Context, conv *conversation.Conversation, message string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	res, err := conv.Submit(ctx, message)
	if showTrace && res != nil {
		printTrace(os.Stderr, res)
	}
	return err
}

func printTrace(w io.Writer, res *agent.Result) {
	out, err := agent.TraceYAML(res.Steps)
	if err != nil {
		fmt.Fprintf(w, "Error rendering trace: %v\n", err)
		return
	}
	fmt.Fprintf(w, "\n--- trace (run %s, %d iterations, %s) ---\n%s", res.RunID, res.Iterations, res.Final, out)
}

// readCredential prompts for the API key without echoing it.
func readCredential(in *os.File, out io.Writer) (searchchat.Credential, error) {
	fmt.Fprint(out, "Enter your Groq API Key: ")
	secret, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return searchchat.Credential(strings.TrimSpace(string(secret))), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&model, "model", "m", config.NewDefaultConfig().Model, "Model to use (format: provider:model, e.g., groq:llama3-8b-8192)")
	chatCmd.Flags().BoolVar(&showTrace, "trace", false, "Print the reasoning trace as YAML after each answer")
	chatCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not stream thoughts and observations")
	chatCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Do not check the API key before the first question")
}
