package agent

import "fmt"

// State is a node of the reasoning loop's state machine:
//
//	Thinking -> (ToolSelected -> Observing -> Thinking)* -> Answering -> Done
//
// with an edge from every state to Failed.
type State int

const (
	StateThinking State = iota + 1
	StateToolSelected
	StateObserving
	StateAnswering
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateThinking:     "thinking",
	StateToolSelected: "tool_selected",
	StateObserving:    "observing",
	StateAnswering:    "answering",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown agent state %q", text)
}
