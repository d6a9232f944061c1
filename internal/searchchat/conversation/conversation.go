// Package conversation drives one chat session: it owns the transcript,
// turns a credential into a model, and runs the agent for each prompt while
// a Surface renders what happens.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/agent"
	"github.com/longkey1/searchchat/internal/searchchat/session"
)

const (
	MissingCredential = "Please enter your Groq API key to continue."
	CredentialValid   = "API key is valid! Model initialized."
	ProcessingFailed  = "An error occurred while processing your request. Please try again."
)

// ErrEmptyPrompt is returned by Submit for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Surface renders a conversation. Implementations must be safe to call from
// the goroutine running Submit.
type Surface interface {
	Render(msg searchchat.Message)
	RenderEvent(ev agent.Event)
	Warn(msg string)
	Notice(msg string)
}

// ModelFactory builds a model for a credential without contacting the
// upstream.
type ModelFactory func(searchchat.Credential) (searchchat.Model, error)

// Verifier is implemented by models that can check their credential.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Conversation is safe for concurrent use; turns are serialized.
type Conversation struct {
	surface   Surface
	newModel  ModelFactory
	tools     *searchchat.Registry
	agentOpts []agent.Option

	mu         sync.Mutex
	session    *session.Session
	model      searchchat.Model
	lastResult *agent.Result
}

// New creates a conversation over sess.
func New(sess *session.Session, surface Surface, newModel ModelFactory, tools *searchchat.Registry, opts ...agent.Option) *Conversation {
	return &Conversation{
		session:   sess,
		surface:   surface,
		newModel:  newModel,
		tools:     tools,
		agentOpts: opts,
	}
}

// Session returns the current transcript store. Clear replaces it.
func (c *Conversation) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Replay renders the whole transcript, oldest first.
func (c *Conversation) Replay() {
	for _, msg := range c.Session().All() {
		c.surface.Render(msg)
	}
}

// Ready reports whether a credential has been accepted and not since
// rejected upstream.
func (c *Conversation) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model != nil
}

// SetCredential builds a model for secret and, when verify is set, checks
// the secret upstream. On failure the previous credential stays in effect
// and the problem is reported through Warn.
func (c *Conversation) SetCredential(ctx context.Context, secret searchchat.Credential, verify bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if secret.Empty() {
		c.surface.Warn(MissingCredential)
		return searchchat.ErrCredential
	}

	model, err := c.newModel(secret)
	if err != nil {
		c.surface.Warn(agent.Diagnose(err))
		return err
	}
	if v, ok := model.(Verifier); ok && verify {
		if err := v.Verify(ctx); err != nil {
			c.surface.Warn(agent.Diagnose(err))
			return err
		}
	}

	c.session.SetCredential(secret)
	c.model = model
	c.surface.Notice(CredentialValid)
	return nil
}

// Submit runs one turn. It appends the prompt, streams the agent's events
// to the surface and appends the answer, or a diagnostic when the run
// failed. Without a credential it warns and returns ErrCredential without
// touching the transcript.
func (c *Conversation) Submit(ctx context.Context, prompt string) (*agent.Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == nil {
		c.surface.Warn(MissingCredential)
		return nil, searchchat.ErrCredential
	}

	question := searchchat.NewMessage(searchchat.RoleUser, prompt)
	c.session.Append(question)
	c.surface.Render(question)

	a := agent.New(c.model, c.tools, c.agentOpts...)
	events := make(chan agent.Event, 64)
	go a.RunStream(ctx, c.session.All(), events)

	var (
		result *agent.Result
		runErr error
	)
	for ev := range events {
		c.surface.RenderEvent(ev)
		switch ev.Type {
		case agent.EventDone:
			result = ev.Result
		case agent.EventFailed:
			result, runErr = ev.Result, ev.Err
		}
	}
	if result == nil && runErr == nil {
		runErr = ctx.Err()
		if runErr == nil {
			runErr = errors.New("agent stopped without a result")
		}
	}
	c.lastResult = result

	// A rejected key blocks further calls until a new one is entered.
	var modelErr *searchchat.ModelError
	if errors.As(runErr, &modelErr) && !modelErr.Transient() {
		c.model = nil
		c.session.SetCredential("")
	}

	answer := c.answer(result, runErr)
	reply := searchchat.NewMessage(searchchat.RoleAssistant, answer)
	c.session.Append(reply)
	c.surface.Render(reply)
	return result, runErr
}

// answer picks the assistant reply for a finished run and reports
// failures through the surface.
func (c *Conversation) answer(result *agent.Result, err error) string {
	if err == nil {
		return result.Answer
	}

	diagnosis := agent.Diagnose(err)
	c.surface.Warn(diagnosis)

	var parseErr *agent.DirectiveParseError
	degradable := errors.Is(err, agent.ErrBudgetExceeded) || errors.As(err, &parseErr)
	if degradable && result != nil && result.Answer != "" {
		return result.Answer
	}
	var modelErr *searchchat.ModelError
	if errors.As(err, &modelErr) {
		return ProcessingFailed
	}
	return diagnosis
}

// LastResult returns the result of the most recent turn, or nil.
func (c *Conversation) LastResult() *agent.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// Clear starts a new session that keeps the credential and renders its
// greeting. The previous session is left untouched.
func (c *Conversation) Clear() {
	c.mu.Lock()
	next := session.New(c.session.Model)
	next.SetCredential(c.session.Credential())
	c.session = next
	c.lastResult = nil
	c.mu.Unlock()
	c.Replay()
}
