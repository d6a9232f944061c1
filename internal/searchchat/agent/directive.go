package agent

import (
	"regexp"
	"strings"
)

const finalAnswerMarker = "Final Answer:"

var actionRegex = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
var actionOnlyRegex = regexp.MustCompile(`Action\s*\d*\s*:`)
var thoughtPrefixRegex = regexp.MustCompile(`(?i)^thought\s*:\s*`)

// DirectiveKind tells a tool call from a final answer.
type DirectiveKind int

const (
	DirectiveToolCall DirectiveKind = iota + 1
	DirectiveFinalAnswer
)

// Directive is the model's decision for one reasoning cycle.
type Directive struct {
	Kind    DirectiveKind
	Thought string
	Tool    string // DirectiveToolCall only
	Input   string // DirectiveToolCall only
	Answer  string // DirectiveFinalAnswer only
}

// ParseDirective extracts the directive from one model completion.
func ParseDirective(text string) (Directive, error) {
	includesAnswer := strings.Contains(text, finalAnswerMarker)
	match := actionRegex.FindStringSubmatch(text)

	if match != nil {
		if includesAnswer {
			return Directive{}, &DirectiveParseError{
				Output: text,
				Reason: "Parsing LLM output produced both a final answer and a parse-able action",
			}
		}
		tool := strings.Trim(strings.TrimSpace(match[1]), "`*\"' ")
		input := match[2]
		if i := strings.Index(input, "\nObservation"); i >= 0 {
			input = input[:i]
		}
		input = strings.Trim(strings.TrimSpace(input), " \"")
		if tool == "" {
			return Directive{}, &DirectiveParseError{Output: text, Reason: "Invalid Format: Missing tool name after 'Action:'"}
		}
		if input == "" {
			return Directive{}, &DirectiveParseError{Output: text, Reason: "Invalid Format: Missing 'Action Input:' after 'Action:'"}
		}
		return Directive{
			Kind:    DirectiveToolCall,
			Thought: thoughtBefore(text, match[0]),
			Tool:    tool,
			Input:   input,
		}, nil
	}

	if includesAnswer {
		idx := strings.LastIndex(text, finalAnswerMarker)
		answer := strings.TrimSpace(text[idx+len(finalAnswerMarker):])
		if answer == "" {
			return Directive{}, &DirectiveParseError{Output: text, Reason: "Invalid Format: Missing text after 'Final Answer:'"}
		}
		return Directive{
			Kind:    DirectiveFinalAnswer,
			Thought: cleanThought(text[:idx]),
			Answer:  answer,
		}, nil
	}

	if !actionOnlyRegex.MatchString(text) {
		return Directive{}, &DirectiveParseError{Output: text, Reason: "Invalid Format: Missing 'Action:' after 'Thought:'"}
	}
	return Directive{}, &DirectiveParseError{Output: text, Reason: "Invalid Format: Missing 'Action Input:' after 'Action:'"}
}

func thoughtBefore(text, action string) string {
	idx := strings.Index(text, action)
	if idx < 0 {
		return ""
	}
	return cleanThought(text[:idx])
}

func cleanThought(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(thoughtPrefixRegex.ReplaceAllString(s, ""))
}
