package agent

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one reasoning cycle of a run.
type Step struct {
	ID          string `json:"id" yaml:"id"`
	Thought     string `json:"thought" yaml:"thought"`
	Tool        string `json:"tool,omitempty" yaml:"tool,omitempty"`
	ToolInput   string `json:"tool_input,omitempty" yaml:"tool_input,omitempty"`
	Observation string `json:"observation,omitempty" yaml:"observation,omitempty"`
	FinalAnswer string `json:"final_answer,omitempty" yaml:"final_answer,omitempty"`
	Failed      bool   `json:"failed,omitempty" yaml:"failed,omitempty"` // observation describes a tool or parse failure

	// Log is the raw model output for this cycle, replayed in the scratchpad.
	Log string `json:"-" yaml:"-"`
}

// IsFinal reports whether the step carries the final answer.
func (s Step) IsFinal() bool {
	return s.Tool == "" && s.FinalAnswer != ""
}

// scratchpad renders the completed steps the way the model is asked to
// write them, so the next cycle continues the same transcript.
func scratchpad(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		if s.IsFinal() {
			continue
		}
		b.WriteString(s.Log)
		b.WriteString("\nObservation: ")
		b.WriteString(s.Observation)
		b.WriteString("\nThought:")
	}
	return b.String()
}

// TraceYAML renders a trace for display.
func TraceYAML(steps []Step) ([]byte, error) {
	return yaml.Marshal(struct {
		Steps []Step `yaml:"steps"`
	}{Steps: steps})
}
