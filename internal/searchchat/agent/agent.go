package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/searchchat/prompt"
)

// stopSequences end a completion before the model invents an observation.
var stopSequences = []string{"\nObservation:", "\n\tObservation:"}

// Agent runs the reasoning loop against one model and one tool set.
type Agent struct {
	model          searchchat.Model
	tools          *searchchat.Registry
	prompt         *prompt.Prompt
	maxIterations  int
	maxParseErrors int
	toolTimeout    time.Duration
	runTimeout     time.Duration
	debug          io.Writer
}

// Result is the outcome of a run.
type Result struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	Answer     string  `json:"answer" yaml:"answer"`
	Steps      []Step  `json:"steps" yaml:"steps"`
	States     []State `json:"states" yaml:"states"`
	Iterations int     `json:"iterations" yaml:"iterations"`
	Final      State   `json:"final" yaml:"final"`
}

// New constructs an Agent.
func New(model searchchat.Model, tools *searchchat.Registry, opts ...Option) *Agent {
	a := &Agent{
		model:          model,
		tools:          tools,
		prompt:         &prompt.Default,
		maxIterations:  DefaultMaxIterations,
		maxParseErrors: DefaultMaxParseErrors,
		toolTimeout:    DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the loop for a transcript ending in a user message and
// returns when it reaches Done or Failed. On failure the Result still
// carries the trace and a degraded answer where one is available.
func (a *Agent) Run(ctx context.Context, transcript []searchchat.Message) (*Result, error) {
	return a.run(ctx, transcript, func(Event) {})
}

// RunStream executes the loop and streams events to eventCh. The last
// event is EventDone or EventFailed unless ctx is cancelled first. eventCh
// is closed when the run ends.
func (a *Agent) RunStream(ctx context.Context, transcript []searchchat.Message, eventCh chan<- Event) {
	defer close(eventCh)

	send := func(e Event) {
		select {
		case eventCh <- e:
		case <-ctx.Done():
		}
	}

	res, err := a.run(ctx, transcript, send)
	final := Event{Type: EventDone, RunID: res.RunID, State: res.Final, Result: res}
	if err != nil {
		final.Type = EventFailed
		final.Err = err
		final.Error = Diagnose(err)
	}
	send(final)
}

func (a *Agent) run(ctx context.Context, transcript []searchchat.Message, emit func(Event)) (*Result, error) {
	r := &run{
		agent: a,
		id:    uuid.New().String(),
		emit:  emit,
	}

	if a.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.runTimeout)
		defer cancel()
	}

	if err := r.init(transcript); err != nil {
		r.fail(err)
	} else {
		r.enter(StateThinking)
	}

	for !r.state.Terminal() {
		switch r.state {
		case StateThinking:
			r.think(ctx)
		case StateToolSelected:
			r.selectTool()
		case StateObserving:
			r.observe(ctx)
		case StateAnswering:
			r.answer()
		default:
			r.fail(fmt.Errorf("agent: unexpected state %s", r.state))
		}
	}

	return r.result(), r.err
}

// run is the mutable state of one loop invocation.
type run struct {
	agent *Agent
	id    string
	emit  func(Event)

	question string
	history  []searchchat.Message

	state       State
	states      []State
	steps       []Step
	iteration   int
	parseErrors int
	pending     Directive
	pendingLog  string
	answerText  string
	err         error
}

func (r *run) init(transcript []searchchat.Message) error {
	if r.agent.model == nil {
		return errors.New("agent: model is not configured")
	}
	if r.agent.tools == nil || r.agent.tools.Len() == 0 {
		return errors.New("agent: no tools are registered")
	}
	if len(transcript) == 0 {
		return errors.New("agent: transcript is empty")
	}
	last := transcript[len(transcript)-1]
	if last.Role != searchchat.RoleUser || strings.TrimSpace(last.Content) == "" {
		return errors.New("agent: transcript must end with a user message")
	}
	r.question = strings.TrimSpace(last.Content)
	r.history = transcript[:len(transcript)-1]
	return nil
}

func (r *run) enter(s State) {
	r.state = s
	r.states = append(r.states, s)
	r.emit(Event{Type: EventState, RunID: r.id, State: s, Iteration: r.iteration})
}

func (r *run) fail(err error) {
	r.err = err
	r.enter(StateFailed)
}

// think asks the model for the next directive.
func (r *run) think(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		r.fail(err)
		return
	}
	if r.iteration >= r.agent.maxIterations {
		r.answerText = r.partialAnswer()
		r.fail(&BudgetExceededError{Iterations: r.iteration})
		return
	}
	r.iteration++

	output, err := r.complete(ctx, r.request())
	if err != nil {
		r.fail(err)
		return
	}

	directive, err := ParseDirective(output)
	if err != nil {
		var perr *DirectiveParseError
		if !errors.As(err, &perr) {
			perr = &DirectiveParseError{Output: output, Reason: err.Error()}
		}
		r.rejectDirective(output, Directive{}, perr)
		return
	}

	r.pending = directive
	r.pendingLog = output
	switch directive.Kind {
	case DirectiveFinalAnswer:
		r.enter(StateAnswering)
	default:
		r.enter(StateToolSelected)
	}
}

// selectTool checks the pending tool call against the active tool set.
func (r *run) selectTool() {
	tool, ok := r.agent.tools.Get(r.pending.Tool)
	if !ok {
		r.rejectDirective(r.pendingLog, r.pending, &DirectiveParseError{
			Output: r.pendingLog,
			Reason: fmt.Sprintf("%s is not a valid tool, try one of [%s].", r.pending.Tool, strings.Join(r.agent.tools.Names(), ", ")),
		})
		return
	}
	r.pending.Tool = tool.Name()
	r.parseErrors = 0
	step := r.newStep()
	step.Tool = r.pending.Tool
	step.ToolInput = r.pending.Input
	r.emit(Event{Type: EventAction, RunID: r.id, Iteration: r.iteration, Step: &step})
	r.enter(StateObserving)
}

// observe invokes the selected tool and records its result.
func (r *run) observe(ctx context.Context) {
	tool, _ := r.agent.tools.Get(r.pending.Tool)
	step := r.newStep()
	step.Tool = r.pending.Tool
	step.ToolInput = r.pending.Input

	out, err := r.invoke(ctx, tool, r.pending.Input)
	if err != nil {
		step.Observation = fmt.Sprintf("Error: %v", err)
		step.Failed = true
	} else {
		step.Observation = out
	}
	r.record(step)
	r.enter(StateThinking)
}

func (r *run) answer() {
	step := r.newStep()
	step.FinalAnswer = r.pending.Answer
	r.answerText = r.pending.Answer
	r.steps = append(r.steps, step)
	r.emit(Event{Type: EventAnswer, RunID: r.id, Iteration: r.iteration, Step: &step})
	r.enter(StateDone)
}

// rejectDirective records a synthetic observation for an unusable
// directive and returns to Thinking, or fails once the retries run out.
func (r *run) rejectDirective(output string, d Directive, perr *DirectiveParseError) {
	r.parseErrors++
	step := Step{
		ID:          uuid.New().String(),
		Thought:     d.Thought,
		Tool:        d.Tool,
		ToolInput:   d.Input,
		Observation: perr.Reason,
		Failed:      true,
		Log:         output,
	}
	if step.Thought == "" {
		step.Thought = cleanThought(output)
	}
	r.record(step)

	if r.parseErrors >= r.agent.maxParseErrors {
		r.answerText = r.partialAnswer()
		r.fail(fmt.Errorf("%d malformed directives in a row: %w", r.parseErrors, perr))
		return
	}
	r.enter(StateThinking)
}

func (r *run) record(step Step) {
	r.steps = append(r.steps, step)
	r.emit(Event{Type: EventObservation, RunID: r.id, Iteration: r.iteration, Step: &step})
}

func (r *run) newStep() Step {
	return Step{
		ID:      uuid.New().String(),
		Thought: r.pending.Thought,
		Log:     r.pendingLog,
	}
}

func (r *run) request() searchchat.Request {
	tools := r.agent.tools.List()
	infos := make([]prompt.ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, prompt.ToolInfo{Name: t.Name(), Description: t.Description()})
	}
	system, user := r.agent.prompt.Format(infos, r.question, scratchpad(r.steps))

	msgs := make([]searchchat.Message, 0, len(r.history)+1)
	msgs = append(msgs, r.history...)
	msgs = append(msgs, searchchat.Message{Role: searchchat.RoleUser, Content: user})
	return searchchat.Request{System: system, Messages: msgs, Stop: stopSequences}
}

// complete streams one completion, forwarding tokens as events.
func (r *run) complete(ctx context.Context, req searchchat.Request) (string, error) {
	if r.agent.debug != nil {
		fmt.Fprintf(r.agent.debug, "[AGENT DEBUG] System Prompt:\n%s\n", req.System)
		fmt.Fprintf(r.agent.debug, "[AGENT DEBUG] User Prompt:\n%s\n", req.Messages[len(req.Messages)-1].Content)
	}

	chunkCh := make(chan searchchat.Chunk, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.agent.model.Stream(ctx, req, chunkCh)
	}()

	var b strings.Builder
	for chunk := range chunkCh {
		if chunk.Delta == "" {
			continue
		}
		b.WriteString(chunk.Delta)
		r.emit(Event{Type: EventToken, RunID: r.id, Iteration: r.iteration, Token: chunk.Delta})
	}
	if err := <-errCh; err != nil {
		return "", err
	}

	if r.agent.debug != nil {
		fmt.Fprintf(r.agent.debug, "[AGENT DEBUG] Response:\n%s\n", b.String())
	}
	return b.String(), nil
}

// invoke runs one tool call. Errors and panics become ToolFailures.
func (r *run) invoke(ctx context.Context, tool searchchat.Tool, input string) (out string, err error) {
	if r.agent.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.agent.toolTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			out = ""
			err = searchchat.NewToolFailure(tool.Name(), input, fmt.Errorf("panic: %v", p))
		}
	}()

	out, err = tool.Invoke(ctx, input)
	if err != nil {
		return "", searchchat.NewToolFailure(tool.Name(), input, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", searchchat.NewToolFailure(tool.Name(), input, searchchat.ErrNoResults)
	}
	return out, nil
}

// partialAnswer is the best text available when the loop gives up.
func (r *run) partialAnswer() string {
	for i := len(r.steps) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(r.steps[i].Thought); t != "" {
			return t
		}
	}
	return CouldNotComplete
}

func (r *run) result() *Result {
	return &Result{
		RunID:      r.id,
		Answer:     r.answerText,
		Steps:      r.steps,
		States:     r.states,
		Iterations: r.iteration,
		Final:      r.state,
	}
}
