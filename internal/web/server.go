// Package web serves the browser surface: a single embedded page that talks
// to a conversation over a websocket.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
	"github.com/longkey1/searchchat/internal/searchchat/conversation"
	"github.com/longkey1/searchchat/internal/searchchat/session"
)

//go:embed static
var staticFiles embed.FS

const maxFrameSize = 64 << 10

// Busy is the warning sent for a frame that arrives while a turn is running
// and another frame is already waiting.
const Busy = "Still working on the previous question. Please wait for the answer."

// Options configures a Server.
type Options struct {
	Model        string // "provider:model", recorded on each session
	NewModel     conversation.ModelFactory
	Tools        *searchchat.Registry
	AgentOptions []agent.Option
	Credential   searchchat.Credential // applied to every new connection when set
	Verify       bool                  // check credentials upstream before accepting them
	Logger       *log.Logger
}

// Server hosts one conversation per websocket connection.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewServer creates a server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the HTTP routes: the page at "/", the socket at "/ws" and
// a liveness probe at "/health".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", s.serveSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("searchchat web starting on http://%s (model=%s, tools=%d)", addr, s.opts.Model, s.opts.Tools.Len())
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WARNING: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	surface := newSocketSurface(conn)
	sess := session.New(s.opts.Model)
	conv := conversation.New(sess, surface, s.opts.NewModel, s.opts.Tools, s.opts.AgentOptions...)
	s.logger.Printf("session %s connected from %s", sess.GetShortID(), r.RemoteAddr)

	conv.Replay()
	if !s.opts.Credential.Empty() {
		// A rejected key is reported through the surface.
		conv.SetCredential(ctx, s.opts.Credential, s.opts.Verify)
	} else {
		surface.Warn(conversation.MissingCredential)
	}

	// The reader never blocks on a running turn, so a closed socket always
	// cancels ctx. One frame may wait behind the turn; more are refused.
	frames := make(chan Frame, 1)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Printf("session %s read error: %v", conv.Session().GetShortID(), err)
				}
				return
			}
			select {
			case frames <- f:
			default:
				surface.Warn(Busy)
			}
		}
	}()

	for f := range frames {
		if ctx.Err() != nil {
			break
		}
		s.handleFrame(ctx, conv, surface, f)
		if surface.Err() != nil {
			break
		}
	}
	s.logger.Printf("session %s closed after %d messages", conv.Session().GetShortID(), conv.Session().MessageCount())
}

// handleFrame runs one client frame to completion.
func (s *Server) handleFrame(ctx context.Context, conv *conversation.Conversation, surface *socketSurface, f Frame) {
	id := conv.Session().GetShortID()
	switch f.Type {
	case FrameCredential:
		if err := conv.SetCredential(ctx, searchchat.Credential(f.Content), s.opts.Verify); err != nil {
			s.logger.Printf("session %s credential rejected: %v", id, err)
		}
	case FramePrompt:
		if _, err := conv.Submit(ctx, f.Content); err != nil {
			s.logger.Printf("session %s turn failed: %v", id, err)
		}
	case FrameClear:
		conv.Clear()
	default:
		surface.Warn("Unknown frame type: " + f.Type)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
