package web

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
)

// Frame types exchanged over the socket.
const (
	FrameCredential = "credential" // client -> server
	FramePrompt     = "prompt"     // client -> server
	FrameClear      = "clear"      // client -> server
	FrameMessage    = "message"    // server -> client
	FrameEvent      = "event"      // server -> client
	FrameWarning    = "warning"    // server -> client
	FrameNotice     = "notice"     // server -> client
)

const writeWait = 10 * time.Second

// Frame is the JSON envelope for every socket message.
type Frame struct {
	Type    string              `json:"type"`
	Content string              `json:"content,omitempty"`
	Message *searchchat.Message `json:"message,omitempty"`
	Event   *agent.Event        `json:"event,omitempty"`
}

// socketSurface renders a conversation onto one websocket connection.
type socketSurface struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

func newSocketSurface(conn *websocket.Conn) *socketSurface {
	return &socketSurface{conn: conn}
}

func (s *socketSurface) Render(msg searchchat.Message) {
	s.write(Frame{Type: FrameMessage, Message: &msg})
}

func (s *socketSurface) RenderEvent(ev agent.Event) {
	s.write(Frame{Type: FrameEvent, Event: &ev})
}

func (s *socketSurface) Warn(msg string) {
	s.write(Frame{Type: FrameWarning, Content: msg})
}

func (s *socketSurface) Notice(msg string) {
	s.write(Frame{Type: FrameNotice, Content: msg})
}

// write sends f unless an earlier write already failed.
func (s *socketSurface) write(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.err = s.conn.WriteJSON(f)
}

func (s *socketSurface) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
