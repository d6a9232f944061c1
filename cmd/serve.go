package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/config"
	"github.com/longkey1/searchchat/internal/web"
	"github.com/spf13/cobra"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat in the browser",
	Long: `Start a small web server with a chat page.

Each browser tab gets its own session. The page asks for a Groq API key
unless one is configured (groq_token or SEARCHCHAT_GROQ_TOKEN), in which case
every session starts with it.

Example:
  searchchat serve --addr 127.0.0.1:8501`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = listenAddr
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

		server := web.NewServer(web.Options{
			Model:        cfg.Model,
			NewModel:     factory,
			Tools:        tools,
			AgentOptions: opts,
			Credential:   searchchat.Credential(cfg.GroqToken),
			Verify:       !skipVerify,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", config.NewDefaultConfig().ListenAddr, "Address to listen on")
	serveCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Do not check API keys before accepting them")
}
