package searchchat

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type namedTool struct{ name string }

func (n namedTool) Name() string        { return n.name }
func (n namedTool) Description() string { return "test tool " + n.name }
func (n namedTool) Invoke(_ context.Context, q string) (string, error) {
	return n.name + ":" + q, nil
}

func TestRegistryKeepsOrder(t *testing.T) {
	reg, err := NewRegistry(namedTool{"search"}, namedTool{"arxiv"}, namedTool{"wikipedia"})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	want := []string{"search", "arxiv", "wikipedia"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	tools := reg.List()
	for i, tool := range tools {
		if tool.Name() != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, tool.Name(), want[i])
		}
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d", reg.Len())
	}
}

func TestRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	tests := []struct {
		name  string
		tools []Tool
		want  string
	}{
		{name: "duplicate", tools: []Tool{namedTool{"search"}, namedTool{"search"}}, want: "already registered"},
		{name: "empty name", tools: []Tool{namedTool{""}}, want: "name is empty"},
		{name: "nil tool", tools: []Tool{nil}, want: "tool is nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.tools...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewRegistry() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRegistryGet(t *testing.T) {
	reg, _ := NewRegistry(namedTool{"search"})
	if _, ok := reg.Get("search"); !ok {
		t.Error("Get(search) not found")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Get(missing) found")
	}
}

func TestRegistryGetIgnoresCase(t *testing.T) {
	reg, err := NewRegistry(namedTool{"Search"}, namedTool{"arxiv"})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tests := []struct {
		query string
		want  string
	}{
		{"Search", "Search"},
		{"search", "Search"},
		{"SEARCH", "Search"},
		{" search ", "Search"},
		{"ArXiv", "arxiv"},
	}
	for _, tt := range tests {
		got, ok := reg.Get(tt.query)
		if !ok {
			t.Errorf("Get(%q) not found", tt.query)
			continue
		}
		if got.Name() != tt.want {
			t.Errorf("Get(%q) = %s, want %s", tt.query, got.Name(), tt.want)
		}
	}

	if err := reg.Register(namedTool{"search"}); err == nil {
		t.Error("Register(search) accepted a name differing only in case")
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "Search" {
		t.Errorf("Names() = %v", got)
	}
}

func TestToolFailureWrapping(t *testing.T) {
	err := NewToolFailure("wikipedia", "go", ErrNoResults)
	var tf *ToolFailure
	if !errors.As(err, &tf) {
		t.Fatalf("expected ToolFailure, got %T", err)
	}
	if !errors.Is(err, ErrNoResults) {
		t.Error("ToolFailure should unwrap to ErrNoResults")
	}
	if again := NewToolFailure("search", "x", err); again != err {
		t.Error("NewToolFailure should not double wrap")
	}
}

func TestModelErrorIs(t *testing.T) {
	tests := []struct {
		kind   ErrorKind
		target error
	}{
		{KindAuthentication, ErrAuthentication},
		{KindRateLimit, ErrRateLimit},
		{KindNetwork, ErrNetwork},
		{KindServiceUnavailable, ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := error(&ModelError{Kind: tt.kind, StatusCode: 500, Message: "boom"})
			if !errors.Is(err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.target)
			}
			if errors.Is(err, ErrCredential) {
				t.Error("model error must not match ErrCredential")
			}
		})
	}
	if (&ModelError{Kind: KindAuthentication}).Transient() {
		t.Error("authentication errors are not transient")
	}
	if !(&ModelError{Kind: KindRateLimit}).Transient() {
		t.Error("rate limit errors are transient")
	}
}

func TestCredentialMasking(t *testing.T) {
	c := Credential("gsk_abcdefghijklmnop")
	if got := c.String(); got != "gsk_...mnop" {
		t.Errorf("String() = %q", got)
	}
	if strings.Contains(fmtAll(c), "abcdefghijkl") {
		t.Error("credential leaked through formatting")
	}
	if c.Reveal() != "gsk_abcdefghijklmnop" {
		t.Error("Reveal() must return the raw secret")
	}
	if !errors.Is(Credential("  ").Validate(), ErrCredential) {
		t.Error("blank credential must fail validation")
	}
	if Credential("short").String() != "********" {
		t.Error("short credentials must be fully masked")
	}
}

func fmtAll(v any) string {
	return fmt.Sprintf("%v %s %#v %+v", v, v, v, v)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, "hello"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
