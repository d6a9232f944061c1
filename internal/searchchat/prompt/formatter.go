package prompt

import (
	"fmt"
	"strings"
)

// ToolInfo is the part of a tool the prompt describes.
type ToolInfo struct {
	Name        string
	Description string
}

// Placeholders replaced by Format.
const (
	placeholderTools      = "tools"
	placeholderToolNames  = "tool_names"
	placeholderInput      = "input"
	placeholderScratchpad = "agent_scratchpad"
)

// Format renders the system prompt and the user turn for one reasoning
// cycle. The output depends only on its arguments.
func (p *Prompt) Format(tools []ToolInfo, input, scratchpad string) (string, string) {
	var catalog []string
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		catalog = append(catalog, fmt.Sprintf("%s: %s", t.Name, t.Description))
		names = append(names, t.Name)
	}

	replacements := []struct{ key, value string }{
		{placeholderTools, strings.Join(catalog, "\n")},
		{placeholderToolNames, strings.Join(names, ", ")},
		{placeholderInput, input},
		{placeholderScratchpad, scratchpad},
	}

	system := p.System
	user := p.Suffix
	for _, r := range replacements {
		placeholder := fmt.Sprintf("{{%s}}", r.key)
		system = strings.ReplaceAll(system, placeholder, r.value)
		user = strings.ReplaceAll(user, placeholder, r.value)
	}
	return system, user
}
