package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
	"github.com/longkey1/searchchat/internal/searchchat/conversation"
)

const maxObservationWidth = 300

// terminalSurface prints answers to out and everything else to errOut.
type terminalSurface struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	oneShot  bool
	thoughts bool
	states   bool
	spinner  *spinner
}

func newTerminalSurface(out, errOut io.Writer, oneShot, thoughts, states bool) *terminalSurface {
	return &terminalSurface{out: out, errOut: errOut, oneShot: oneShot, thoughts: thoughts, states: states}
}

func (s *terminalSurface) Render(msg searchchat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpinnerLocked()

	if msg.Role != searchchat.RoleAssistant {
		// The user already sees what they typed.
		if !s.oneShot {
			s.spinner = startSpinner(s.errOut)
		}
		return
	}
	if s.oneShot {
		fmt.Fprintln(s.out, msg.Content)
		return
	}
	fmt.Fprintf(s.out, "\nAssistant> %s\n\n", msg.Content)
}

func (s *terminalSurface) RenderEvent(ev agent.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case agent.EventState:
		if s.states {
			s.stopSpinnerLocked()
			fmt.Fprintf(s.errOut, "[%s #%d]\n", ev.State, ev.Iteration)
		}
	case agent.EventToken:
		if s.thoughts {
			s.stopSpinnerLocked()
			fmt.Fprint(s.errOut, ev.Token)
		}
	case agent.EventObservation:
		if s.thoughts {
			fmt.Fprintf(s.errOut, "\nObservation: %s\n", searchchat.Truncate(strings.TrimSpace(ev.Step.Observation), maxObservationWidth))
		}
	case agent.EventAnswer, agent.EventDone, agent.EventFailed:
		s.stopSpinnerLocked()
		if s.thoughts && ev.Type == agent.EventAnswer {
			fmt.Fprintln(s.errOut)
		}
	}
}

func (s *terminalSurface) Warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpinnerLocked()
	fmt.Fprintf(s.errOut, "Warning: %s\n", msg)
}

func (s *terminalSurface) Notice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.errOut, msg)
}

func (s *terminalSurface) stopSpinnerLocked() {
	if s.spinner != nil {
		s.spinner.Stop()
		s.spinner = nil
	}
}

// spinner animates a waiting line until stopped.
type spinner struct {
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func startSpinner(w io.Writer) *spinner {
	s := &spinner{done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(frames) {
			fmt.Fprintf(w, "\r%s Thinking...", frames[i])
			select {
			case <-s.done:
				fmt.Fprint(w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Stop clears the spinner line and waits for the animation to end.
func (s *spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

// runInteractiveMode reads prompts until /exit or Ctrl+D.
func runInteractiveMode(ctx context.Context, conv *conversation.Conversation) error {
	sess := conv.Session()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/help"),
			readline.PcItem("/info"),
			readline.PcItem("/trace"),
			readline.PcItem("/key"),
			readline.PcItem("/clear"),
			readline.PcItem("/exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stderr(), "\n=== Interactive Session [%s] ===\n", sess.GetShortID())
	fmt.Fprintf(rl.Stderr(), "Model: %s\n", sess.Model)
	fmt.Fprintf(rl.Stderr(), "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n")
	fmt.Fprintf(rl.Stderr(), "===================================\n")
	conv.Replay()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(rl.Stderr(), "Goodbye!")
			break
		}
		if err != nil {
			return fmt.Errorf("input error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if handleSpecialCommand(ctx, input, conv, rl) {
				continue
			}
			break
		}

		// Failures are already reported through the surface.
		runTurn(ctx, conv, input)
	}
	return nil
}

// handleSpecialCommand processes special commands in interactive mode
// Returns true to continue the loop, false to exit
func handleSpecialCommand(ctx context.Context, command string, conv *conversation.Conversation, rl *readline.Instance) bool {
	command = strings.ToLower(strings.TrimSpace(command))
	w := rl.Stderr()

	switch command {
	case "/help", "/h":
		fmt.Fprintln(w, "\nAvailable commands:")
		fmt.Fprintln(w, "  /help, /h     - Show this help message")
		fmt.Fprintln(w, "  /info, /i     - Show session information")
		fmt.Fprintln(w, "  /trace, /t    - Show the reasoning trace of the last answer")
		fmt.Fprintln(w, "  /key, /k      - Enter a new Groq API key")
		fmt.Fprintln(w, "  /clear, /c    - Start over with a fresh transcript")
		fmt.Fprintln(w, "  /exit, /quit  - Exit interactive mode")
		fmt.Fprintln(w, "  Ctrl+D        - Exit interactive mode")
		fmt.Fprintln(w, "  Ctrl+C        - Stop the running answer")
		fmt.Fprintln(w, "")
		return true

	case "/info", "/i":
		writeSessionInfo(w, conv)
		return true

	case "/trace", "/t":
		res := conv.LastResult()
		if res == nil {
			fmt.Fprintln(w, "No answer yet.")
			return true
		}
		printTrace(w, res)
		return true

	case "/key", "/k":
		secret, err := rl.ReadPassword("Enter your Groq API Key: ")
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return true
		}
		// Rejections are already reported through the surface.
		conv.SetCredential(ctx, searchchat.Credential(strings.TrimSpace(string(secret))), !skipVerify)
		return true

	case "/clear", "/c":
		fmt.Fprint(w, "\033[H\033[2J")
		conv.Clear()
		return true

	case "/exit", "/quit", "/q":
		fmt.Fprintln(w, "Goodbye!")
		return false

	default:
		fmt.Fprintf(w, "Unknown command: %s (type '/help' for available commands)\n", command)
		return true
	}
}

// writeSessionInfo prints the /info summary. The API key itself is never
// shown, only whether one is in use.
func writeSessionInfo(w io.Writer, conv *conversation.Conversation) {
	sess := conv.Session()
	key := "not set"
	if conv.Ready() {
		key = "set"
	}
	fmt.Fprintln(w, "\nSession Information:")
	fmt.Fprintf(w, "  ID: %s\n", sess.GetShortID())
	fmt.Fprintf(w, "  Full ID: %s\n", sess.ID)
	fmt.Fprintf(w, "  Model: %s\n", sess.Model)
	fmt.Fprintf(w, "  API key: %s\n", key)
	fmt.Fprintf(w, "  Messages: %d\n", sess.MessageCount())
	fmt.Fprintf(w, "  Created: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "")
}
