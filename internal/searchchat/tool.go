package searchchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoResults is wrapped in a ToolFailure when the upstream returned nothing.
var ErrNoResults = errors.New("no good results found")

// Tool is a lookup capability the agent can invoke with a free-text query.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, query string) (string, error)
}

// ToolFailure is the typed error every adapter returns when an invocation
// does not produce a usable result.
type ToolFailure struct {
	Tool  string
	Query string
	Err   error
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("tool %s failed for %q: %v", e.Tool, e.Query, e.Err)
}

func (e *ToolFailure) Unwrap() error {
	return e.Err
}

// NewToolFailure wraps err for the named tool. It returns err unchanged if
// it already is a ToolFailure.
func NewToolFailure(tool, query string, err error) error {
	var tf *ToolFailure
	if errors.As(err, &tf) {
		return err
	}
	return &ToolFailure{Tool: tool, Query: query, Err: err}
}

// Registry keeps the active tool set in registration order. Names are
// unique regardless of case.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	folded map[string]string
	order  []string
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool), folded: make(map[string]string)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.folded[strings.ToLower(name)]; exists {
		return fmt.Errorf("tool %s already registered as %s", name, existing)
	}
	r.tools[name] = tool
	r.folded[strings.ToLower(name)] = name
	r.order = append(r.order, name)
	return nil
}

// Get fetches a tool by name. An exact match wins; otherwise the name is
// matched ignoring case, so "search" finds "Search".
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tools[name]; ok {
		return t, true
	}
	canonical, ok := r.folded[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return r.tools[canonical], true
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Truncate cuts s to at most max runes. A non-positive max disables it.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
