package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/longkey1/searchchat/internal/arxiv"
	"github.com/longkey1/searchchat/internal/duckduckgo"
	"github.com/longkey1/searchchat/internal/searchchat"
	"github.com/longkey1/searchchat/internal/wikipedia"
)

// scriptedModel replays canned completions. Past the end of the script it
// repeats the last entry.
type scriptedModel struct {
	mu       sync.Mutex
	outputs  []string
	errs     []error
	requests []searchchat.Request
}

func (m *scriptedModel) Stream(ctx context.Context, req searchchat.Request, ch chan<- searchchat.Chunk) error {
	defer close(ch)

	m.mu.Lock()
	i := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if i < len(m.errs) && m.errs[i] != nil {
		return m.errs[i]
	}
	out := m.outputs[len(m.outputs)-1]
	if i < len(m.outputs) {
		out = m.outputs[i]
	}
	for _, part := range strings.SplitAfter(out, " ") {
		select {
		case ch <- searchchat.Chunk{Delta: part}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// blockingModel waits for cancellation.
type blockingModel struct{}

func (blockingModel) Stream(ctx context.Context, _ searchchat.Request, ch chan<- searchchat.Chunk) error {
	defer close(ch)
	<-ctx.Done()
	return ctx.Err()
}

type funcTool struct {
	name string
	fn   func(ctx context.Context, query string) (string, error)

	mu      sync.Mutex
	queries []string
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return "looks things up in " + t.name }

func (t *funcTool) Invoke(ctx context.Context, query string) (string, error) {
	t.mu.Lock()
	t.queries = append(t.queries, query)
	t.mu.Unlock()
	return t.fn(ctx, query)
}

func echoTool(name string) *funcTool {
	return &funcTool{name: name, fn: func(_ context.Context, q string) (string, error) {
		return "result for " + q, nil
	}}
}

func newRegistry(t *testing.T, tools ...searchchat.Tool) *searchchat.Registry {
	t.Helper()
	reg, err := searchchat.NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func question(q string) []searchchat.Message {
	return []searchchat.Message{
		{Role: searchchat.RoleAssistant, Content: "Hi, how can I help you?"},
		{Role: searchchat.RoleUser, Content: q},
	}
}

const (
	searchX  = " I should search for it\nAction: Search\nAction Input: X"
	answerY  = " I now know the final answer\nFinal Answer: Y"
	confused = " I am not sure what to do"
)

func TestRunToolThenAnswer(t *testing.T) {
	model := &scriptedModel{outputs: []string{searchX, answerY}}
	search := echoTool("Search")
	a := New(model, newRegistry(t, search, echoTool("Wikipedia")))

	res, err := a.Run(context.Background(), question("what is X?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(search.queries, []string{"X"}) {
		t.Errorf("Search queries = %v, want [X]", search.queries)
	}
	if res.Answer != "Y" {
		t.Errorf("Answer = %q, want %q", res.Answer, "Y")
	}
	if len(res.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(res.Steps))
	}
	if res.Steps[0].Tool != "Search" || res.Steps[0].Observation != "result for X" {
		t.Errorf("Steps[0] = %+v", res.Steps[0])
	}
	if !res.Steps[1].IsFinal() {
		t.Errorf("Steps[1] is not final: %+v", res.Steps[1])
	}
	if res.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", res.Iterations)
	}
	wantStates := []State{StateThinking, StateToolSelected, StateObserving, StateThinking, StateAnswering, StateDone}
	if !reflect.DeepEqual(res.States, wantStates) {
		t.Errorf("States = %v, want %v", res.States, wantStates)
	}
	if res.Final != StateDone {
		t.Errorf("Final = %v, want %v", res.Final, StateDone)
	}

	second := model.requests[1]
	last := second.Messages[len(second.Messages)-1].Content
	if !strings.Contains(last, "Observation: result for X") {
		t.Errorf("second request does not replay the observation:\n%s", last)
	}
	if !reflect.DeepEqual(second.Stop, stopSequences) {
		t.Errorf("Stop = %v, want %v", second.Stop, stopSequences)
	}
}

func TestRunRequestShape(t *testing.T) {
	model := &scriptedModel{outputs: []string{answerY}}
	a := New(model, newRegistry(t, echoTool("Search"), echoTool("Wikipedia")))

	if _, err := a.Run(context.Background(), question("what is X?")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	req := model.requests[0]
	if !strings.Contains(req.System, "Search: looks things up in Search\nWikipedia: looks things up in Wikipedia") {
		t.Errorf("system prompt lacks the tool catalog:\n%s", req.System)
	}
	if !strings.Contains(req.System, "[Search, Wikipedia]") {
		t.Errorf("system prompt lacks the tool names:\n%s", req.System)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != searchchat.RoleAssistant {
		t.Errorf("history not forwarded: %+v", req.Messages[0])
	}
	if got := req.Messages[1].Content; got != "Question: what is X?\nThought:" {
		t.Errorf("user turn = %q", got)
	}
}

func TestRunBudgetExceeded(t *testing.T) {
	model := &scriptedModel{outputs: []string{searchX}}
	a := New(model, newRegistry(t, echoTool("Search")))

	res, err := a.Run(context.Background(), question("loop forever"))
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Run() error = %v, want ErrBudgetExceeded", err)
	}
	if got := model.calls(); got != DefaultMaxIterations {
		t.Errorf("model calls = %d, want %d", got, DefaultMaxIterations)
	}
	if res.Final != StateFailed {
		t.Errorf("Final = %v, want %v", res.Final, StateFailed)
	}
	if res.Answer != "I should search for it" {
		t.Errorf("Answer = %q, want last thought", res.Answer)
	}
	if len(res.Steps) != DefaultMaxIterations {
		t.Errorf("len(Steps) = %d, want %d", len(res.Steps), DefaultMaxIterations)
	}
}

func TestRunBudgetOption(t *testing.T) {
	model := &scriptedModel{outputs: []string{searchX}}
	a := New(model, newRegistry(t, echoTool("Search")), WithMaxIterations(3))

	_, err := a.Run(context.Background(), question("loop"))
	var budget *BudgetExceededError
	if !errors.As(err, &budget) {
		t.Fatalf("Run() error = %v, want *BudgetExceededError", err)
	}
	if budget.Iterations != 3 || model.calls() != 3 {
		t.Errorf("Iterations = %d, calls = %d, want 3", budget.Iterations, model.calls())
	}
}

func TestRunToolFailuresContinue(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) (string, error)
		want string
	}{
		{
			name: "error",
			fn: func(context.Context, string) (string, error) {
				return "", errors.New("upstream down")
			},
			want: `Error: tool Search failed for "X": upstream down`,
		},
		{
			name: "empty",
			fn: func(context.Context, string) (string, error) {
				return "  ", nil
			},
			want: `Error: tool Search failed for "X": no good results found`,
		},
		{
			name: "panic",
			fn: func(context.Context, string) (string, error) {
				panic("boom")
			},
			want: `Error: tool Search failed for "X": panic: boom`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{outputs: []string{searchX, answerY}}
			a := New(model, newRegistry(t, &funcTool{name: "Search", fn: tt.fn}))

			res, err := a.Run(context.Background(), question("what is X?"))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Answer != "Y" {
				t.Errorf("Answer = %q, want Y", res.Answer)
			}
			if !res.Steps[0].Failed {
				t.Error("Steps[0].Failed = false, want true")
			}
			if res.Steps[0].Observation != tt.want {
				t.Errorf("Observation = %q, want %q", res.Steps[0].Observation, tt.want)
			}
		})
	}
}

func TestRunToolTimeout(t *testing.T) {
	slow := &funcTool{name: "Search", fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	model := &scriptedModel{outputs: []string{searchX, answerY}}
	a := New(model, newRegistry(t, slow), WithToolTimeout(10*time.Millisecond))

	res, err := a.Run(context.Background(), question("what is X?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(res.Steps[0].Observation, context.DeadlineExceeded.Error()) {
		t.Errorf("Observation = %q, want deadline failure", res.Steps[0].Observation)
	}
}

func TestRunUnknownTool(t *testing.T) {
	model := &scriptedModel{outputs: []string{" I will compute\nAction: Calculator\nAction Input: 2+2", answerY}}
	a := New(model, newRegistry(t, echoTool("Search"), echoTool("Wikipedia")))

	res, err := a.Run(context.Background(), question("2+2?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "Calculator is not a valid tool, try one of [Search, Wikipedia]."
	if res.Steps[0].Observation != want {
		t.Errorf("Observation = %q, want %q", res.Steps[0].Observation, want)
	}
	if res.Answer != "Y" {
		t.Errorf("Answer = %q, want Y", res.Answer)
	}
}

func TestRunToolNameIgnoresCase(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<table><tr><td><a rel="nofollow" href="https://example.org/x" class='result-link'>About X</a></td></tr>
<tr><td class='result-snippet'>X is a letter.</td></tr></table>`)
	}))
	defer srv.Close()

	tools := newRegistry(t,
		duckduckgo.New(duckduckgo.WithEndpoint(srv.URL), duckduckgo.WithMinInterval(0)),
		arxiv.New(1, 200),
		wikipedia.New(1, 200),
	)
	model := &scriptedModel{outputs: []string{" I should look it up\nAction: search\nAction Input: X", answerY}}

	res, err := New(model, tools).Run(context.Background(), question("What is X?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("search endpoint hit %d times, want 1", n)
	}
	first := res.Steps[0]
	if first.Failed || first.Tool != duckduckgo.ToolName {
		t.Fatalf("first step = %+v, want a successful %s call", first, duckduckgo.ToolName)
	}
	if want := "About X\nX is a letter.\nhttps://example.org/x"; first.Observation != want {
		t.Errorf("Observation = %q, want %q", first.Observation, want)
	}
	if res.Answer != "Y" {
		t.Errorf("Answer = %q, want Y", res.Answer)
	}
}

func TestRunParseErrorsBounded(t *testing.T) {
	model := &scriptedModel{outputs: []string{confused}}
	a := New(model, newRegistry(t, echoTool("Search")))

	res, err := a.Run(context.Background(), question("?"))
	var perr *DirectiveParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Run() error = %v, want *DirectiveParseError", err)
	}
	if got := model.calls(); got != DefaultMaxParseErrors {
		t.Errorf("model calls = %d, want %d", got, DefaultMaxParseErrors)
	}
	if res.Answer != "I am not sure what to do" {
		t.Errorf("Answer = %q, want degraded answer", res.Answer)
	}
	if res.Final != StateFailed {
		t.Errorf("Final = %v, want failed", res.Final)
	}
}

func TestRunParseErrorRecovers(t *testing.T) {
	model := &scriptedModel{outputs: []string{confused, answerY}}
	a := New(model, newRegistry(t, echoTool("Search")))

	res, err := a.Run(context.Background(), question("?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Answer != "Y" {
		t.Errorf("Answer = %q, want Y", res.Answer)
	}
	if got := res.Steps[0].Observation; got != "Invalid Format: Missing 'Action:' after 'Thought:'" {
		t.Errorf("Observation = %q", got)
	}
}

func TestRunModelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"authentication", &searchchat.ModelError{Kind: searchchat.KindAuthentication, StatusCode: 401}, searchchat.ErrAuthentication},
		{"rate limit", &searchchat.ModelError{Kind: searchchat.KindRateLimit, StatusCode: 429}, searchchat.ErrRateLimit},
		{"network", &searchchat.ModelError{Kind: searchchat.KindNetwork}, searchchat.ErrNetwork},
		{"service", &searchchat.ModelError{Kind: searchchat.KindServiceUnavailable, StatusCode: 503}, searchchat.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{outputs: []string{answerY}, errs: []error{tt.err}}
			a := New(model, newRegistry(t, echoTool("Search")))

			res, err := a.Run(context.Background(), question("?"))
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("Run() error = %v, want %v", err, tt.sentinel)
			}
			if model.calls() != 1 {
				t.Errorf("model calls = %d, want 1", model.calls())
			}
			if res.Final != StateFailed {
				t.Errorf("Final = %v, want failed", res.Final)
			}
		})
	}
}

func TestRunInvalidTranscript(t *testing.T) {
	tests := []struct {
		name       string
		transcript []searchchat.Message
	}{
		{"empty", nil},
		{"ends with assistant", []searchchat.Message{{Role: searchchat.RoleAssistant, Content: "hi"}}},
		{"blank question", []searchchat.Message{{Role: searchchat.RoleUser, Content: "  "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{outputs: []string{answerY}}
			a := New(model, newRegistry(t, echoTool("Search")))

			res, err := a.Run(context.Background(), tt.transcript)
			if err == nil {
				t.Fatal("Run() error = nil, want error")
			}
			if model.calls() != 0 {
				t.Errorf("model calls = %d, want 0", model.calls())
			}
			if res.Final != StateFailed {
				t.Errorf("Final = %v, want failed", res.Final)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &scriptedModel{outputs: []string{answerY}}
	a := New(model, newRegistry(t, echoTool("Search")))

	_, err := a.Run(ctx, question("?"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if model.calls() != 0 {
		t.Errorf("model calls = %d, want 0", model.calls())
	}
}

func TestRunTimeout(t *testing.T) {
	a := New(blockingModel{}, newRegistry(t, echoTool("Search")), WithRunTimeout(20*time.Millisecond))

	_, err := a.Run(context.Background(), question("?"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if got := Diagnose(err); !strings.Contains(got, "too long") {
		t.Errorf("Diagnose() = %q", got)
	}
}

func TestRunDeterministic(t *testing.T) {
	run := func() ([]searchchat.Request, *Result) {
		model := &scriptedModel{outputs: []string{searchX, confused, answerY}}
		a := New(model, newRegistry(t, echoTool("Search")))
		res, err := a.Run(context.Background(), question("what is X?"))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return model.requests, res
	}

	reqA, resA := run()
	reqB, resB := run()
	if !reflect.DeepEqual(reqA, reqB) {
		t.Error("requests differ between identical runs")
	}
	if !reflect.DeepEqual(resA.States, resB.States) || resA.Answer != resB.Answer {
		t.Errorf("results differ: %v/%q vs %v/%q", resA.States, resA.Answer, resB.States, resB.Answer)
	}
}

func TestRunStreamEvents(t *testing.T) {
	model := &scriptedModel{outputs: []string{searchX, answerY}}
	a := New(model, newRegistry(t, echoTool("Search")))

	events := make(chan Event)
	go a.RunStream(context.Background(), question("what is X?"), events)

	var (
		types  []EventType
		tokens strings.Builder
		last   Event
	)
	for ev := range events {
		if ev.Type == EventToken {
			tokens.WriteString(ev.Token)
			continue
		}
		types = append(types, ev.Type)
		last = ev
	}

	if tokens.String() != searchX+answerY {
		t.Errorf("tokens = %q", tokens.String())
	}
	want := []EventType{
		EventState, EventState, EventAction, EventState, EventObservation, EventState,
		EventState, EventAnswer, EventState, EventDone,
	}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("event types = %v, want %v", types, want)
	}
	if last.Result == nil || last.Result.Answer != "Y" {
		t.Errorf("done event result = %+v", last.Result)
	}
	if last.RunID == "" || last.RunID != last.Result.RunID {
		t.Errorf("RunID = %q, result RunID = %q", last.RunID, last.Result.RunID)
	}
}

func TestRunStreamFailure(t *testing.T) {
	model := &scriptedModel{
		outputs: []string{answerY},
		errs:    []error{&searchchat.ModelError{Kind: searchchat.KindAuthentication, StatusCode: 401}},
	}
	a := New(model, newRegistry(t, echoTool("Search")))

	events := make(chan Event, 16)
	go a.RunStream(context.Background(), question("?"), events)

	var last Event
	for ev := range events {
		last = ev
	}
	if last.Type != EventFailed {
		t.Fatalf("last event = %s, want failed", last.Type)
	}
	if last.Error != Diagnose(last.Err) || last.Error == "" {
		t.Errorf("Error = %q", last.Error)
	}
	if !strings.Contains(last.Error, "rejected the API key") {
		t.Errorf("Error = %q, want authentication message", last.Error)
	}
}
