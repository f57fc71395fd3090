package agent

import (
	"strings"

	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/tokenizer"
	"github.com/BaSui01/searchflow/types"
)

const promptPrefix = "Answer the following questions as best you can. You have access to the following tools:"

const formatInstructions = `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{tool_names}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question`

const promptSuffix = "Begin!"

// stopSequences keep the model from writing its own observations.
var stopSequences = []string{"\nObservation:", "\n\tObservation:"}

// SystemPrompt renders the zero-shot ReAct instructions for the registry.
func SystemPrompt(describe string, names []string) string {
	var b strings.Builder
	b.WriteString(promptPrefix)
	b.WriteString("\n\n")
	b.WriteString(describe)
	b.WriteString("\n\n")
	b.WriteString(strings.ReplaceAll(formatInstructions, "{tool_names}", strings.Join(names, ", ")))
	b.WriteString("\n\n")
	b.WriteString(promptSuffix)
	return b.String()
}

// Scratchpad renders prior steps as the ReAct trace the model continues.
func Scratchpad(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		if s.Log != "" {
			b.WriteString(strings.TrimRight(s.Log, "\n"))
		} else if s.Action != nil {
			if s.Thought != "" {
				b.WriteString(s.Thought)
				b.WriteByte('\n')
			}
			b.WriteString("Action: " + s.Action.Tool + "\nAction Input: " + s.Action.Input)
		}
		b.WriteString("\nObservation: ")
		b.WriteString(s.Observation)
		b.WriteString("\nThought: ")
	}
	return b.String()
}

// buildMessages assembles the request: instructions, the trimmed history and
// the current question with its scratchpad.
func buildMessages(system string, history []types.Message, input string, steps []Step, tk tokenizer.Tokenizer, budget int) ([]llm.Message, error) {
	history = conversational(history)
	if tk != nil && budget > 0 && len(history) > 0 {
		plain := make([]tokenizer.Message, len(history))
		for i, m := range history {
			plain[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
		}
		start, err := tokenizer.KeepRecent(tk, plain, budget)
		if err != nil {
			return nil, err
		}
		history = history[start:]
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, types.NewSystemMessage(system))
	msgs = append(msgs, history...)

	question := "Question: " + input + "\nThought: " + Scratchpad(steps)
	msgs = append(msgs, types.NewUserMessage(strings.TrimRight(question, " ")))
	return msgs, nil
}

// conversational keeps only user and assistant turns with text.
func conversational(history []types.Message) []types.Message {
	out := make([]types.Message, 0, len(history))
	for _, m := range history {
		if (m.Role == types.RoleUser || m.Role == types.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			out = append(out, types.Message{Role: m.Role, Content: m.Content})
		}
	}
	return out
}
