package prompt

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	System string `toml:"system"`
	Suffix string `toml:"suffix"`
}

// Default is the built-in zero-shot ReAct prompt.
var Default = Prompt{
	System: `Answer the following questions as best you can. You have access to the following tools:

{{tools}}

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{{tool_names}}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Begin!`,
	Suffix: `Question: {{input}}
Thought:{{agent_scratchpad}}`,
}

// LoadPrompt loads a prompt file and returns its contents. Keys missing
// from the file fall back to Default.
func LoadPrompt(filePath string) (*Prompt, error) {
	prompt := Default
	meta, err := toml.DecodeFile(filePath, &prompt)
	if err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %v", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in prompt file: %v", undecoded)
	}
	return &prompt, nil
}
