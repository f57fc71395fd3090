package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/types"
	"github.com/kaptinlin/jsonrepair"
)

const (
	finalAnswerMarker = "Final Answer:"
	// finalAnswerAction is the action name some models use in JSON blobs.
	finalAnswerAction = "Final Answer"
)

var (
	actionRe      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyRe  = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)
	inputOnlyRe   = regexp.MustCompile(`(?s)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	jsonBlockRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	observationRe = regexp.MustCompile(`(?s)\n\s*Observation:.*$`)
)

// Decision is a parsed LLM output: an action or a final answer.
type Decision struct {
	Thought     string
	Action      *Action
	FinalAnswer string
}

// IsFinal reports whether the decision ends the run.
func (d Decision) IsFinal() bool { return d.Action == nil }

// ParseError describes LLM output that is neither an action nor an answer.
type ParseError struct {
	Output string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse LLM output: %s", e.Reason)
}

// Unwrap classifies the error as a parse failure.
func (e *ParseError) Unwrap() error {
	return types.NewError(types.ErrParseFailure, e.Reason)
}

// Observation is the text fed back to the LLM after a parse failure.
func (e *ParseError) Observation() string {
	return "Invalid Format: " + e.Reason
}

// ParseOutput interprets an assistant message. Native tool calls win over
// text; text may follow the ReAct format or carry a JSON action blob.
func ParseOutput(msg llm.Message) (Decision, error) {
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		return Decision{
			Thought: strings.TrimSpace(msg.Content),
			Action:  &Action{Tool: strings.TrimSpace(tc.Name), Input: queryFromArguments(tc.Arguments)},
		}, nil
	}
	return ParseText(msg.Content)
}

// ParseText interprets ReAct-formatted text.
func ParseText(text string) (Decision, error) {
	// Models sometimes hallucinate the observation; anything from there on
	// is not theirs to write.
	text = observationRe.ReplaceAllString(text, "")
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Decision{}, &ParseError{Output: text, Reason: "empty response"}
	}

	finalIdx := strings.Index(trimmed, finalAnswerMarker)
	if m := actionRe.FindStringSubmatchIndex(trimmed); m != nil {
		// 同时包含答案与动作时无法判断意图，无论顺序
		if finalIdx >= 0 {
			return Decision{}, &ParseError{Output: text, Reason: "output contains both a final answer and an action"}
		}
		tool := strings.TrimSpace(trimmed[m[2]:m[3]])
		input := cleanInput(trimmed[m[4]:m[5]])
		return Decision{
			Thought: thoughtOf(trimmed[:m[0]]),
			Action:  &Action{Tool: strings.Trim(tool, "`*[] "), Input: input},
		}, nil
	}

	if finalIdx >= 0 {
		answer := strings.TrimSpace(trimmed[finalIdx+len(finalAnswerMarker):])
		if answer == "" {
			return Decision{}, &ParseError{Output: text, Reason: "final answer is empty"}
		}
		return Decision{Thought: thoughtOf(trimmed[:finalIdx]), FinalAnswer: answer}, nil
	}

	if d, ok := parseJSONBlob(trimmed); ok {
		return d, nil
	}

	switch {
	case !actionOnlyRe.MatchString(trimmed):
		return Decision{}, &ParseError{Output: text, Reason: "Missing 'Action:' after 'Thought:'"}
	case !inputOnlyRe.MatchString(trimmed):
		return Decision{}, &ParseError{Output: text, Reason: "Missing 'Action Input:' after 'Action:'"}
	default:
		return Decision{}, &ParseError{Output: text, Reason: "output is neither an action nor a final answer"}
	}
}

// parseJSONBlob accepts {"action": ..., "action_input": ...}: fenced, the
// whole output, or the last balanced object after some prose. A stray brace
// in a thought is never repaired into an action.
func parseJSONBlob(text string) (Decision, bool) {
	var raw, prefix string
	if m := jsonBlockRe.FindStringSubmatchIndex(text); m != nil {
		raw = text[m[2]:m[3]]
		prefix = text[:m[0]]
	} else if strings.HasPrefix(text, "{") {
		raw = text
	} else if start, end, ok := lastBalancedObject(text); ok {
		raw = text[start:end]
		prefix = text[:start]
	} else {
		return Decision{}, false
	}

	var blob struct {
		Action      string          `json:"action"`
		ActionInput json.RawMessage `json:"action_input"`
	}
	if err := unmarshalJSON([]byte(raw), &blob); err != nil || strings.TrimSpace(blob.Action) == "" {
		return Decision{}, false
	}

	input := queryFromArguments(blob.ActionInput)
	thought := thoughtOf(prefix)
	if strings.EqualFold(strings.TrimSpace(blob.Action), finalAnswerAction) {
		if input == "" {
			return Decision{}, false
		}
		return Decision{Thought: thought, FinalAnswer: input}, true
	}
	return Decision{Thought: thought, Action: &Action{Tool: strings.TrimSpace(blob.Action), Input: input}}, true
}

// lastBalancedObject finds the last top-level {...} in text, skipping braces
// inside JSON strings.
func lastBalancedObject(text string) (start, end int, ok bool) {
	depth, open := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				open = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				start, end, ok = open, i+1, true
			}
		}
	}
	return start, end, ok
}

// queryFromArguments extracts the query from tool arguments: a JSON string,
// an object with a "query" (or single string) field, or raw text.
func queryFromArguments(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return ""
	}
	var str string
	if err := json.Unmarshal([]byte(s), &str); err == nil {
		return strings.TrimSpace(str)
	}
	var obj map[string]any
	if err := unmarshalJSON([]byte(s), &obj); err == nil {
		if q, ok := obj["query"].(string); ok {
			return strings.TrimSpace(q)
		}
		if len(obj) == 1 {
			for _, v := range obj {
				if q, ok := v.(string); ok {
					return strings.TrimSpace(q)
				}
			}
		}
		return s
	}
	return cleanInput(s)
}

// unmarshalJSON unmarshals data into v, repairing malformed JSON on a
// syntax error before retrying.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return rerr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

func cleanInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, " \"")
	return strings.TrimSpace(s)
}

func thoughtOf(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Thought:")
	return strings.TrimSpace(s)
}
