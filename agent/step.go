package agent

import (
	"time"
)

// Action is a (tool, input) pair chosen by the LLM.
type Action struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// Step is one cycle of a run. Exactly one of Action or FinalAnswer is set,
// except for parse-failure steps which carry neither.
type Step struct {
	Thought     string  `json:"thought,omitempty"`
	Action      *Action `json:"action,omitempty"`
	Observation string  `json:"observation,omitempty"`
	FinalAnswer string  `json:"final_answer,omitempty"`
	// Log is the raw LLM output behind this step.
	Log string `json:"-"`
	// FallbackFrom is the unresolvable tool name the fallback replaced.
	FallbackFrom string `json:"fallback_from,omitempty"`
	ParseError   string `json:"parse_error,omitempty"`
}

// IsFinal reports whether the step ends the run with an answer.
func (s Step) IsFinal() bool { return s.Action == nil && s.FinalAnswer != "" }

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeAnswered   Outcome = "answered"
	OutcomeTerminated Outcome = "terminated"
	OutcomeFailed     Outcome = "failed"
	OutcomeCancelled  Outcome = "cancelled"
)

// RunTerminatedMessage is the assistant message for runs that hit the
// iteration or time cap.
const RunTerminatedMessage = "Agent stopped due to iteration limit or time limit."

// ErrorMessagePrefix prefixes the assistant message of a failed run.
const ErrorMessagePrefix = "Sorry, I encountered an error: "

// RunResult is the outcome of one user turn.
type RunResult struct {
	RunID      string        `json:"run_id"`
	SessionID  string        `json:"session_id,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	Answer     string        `json:"answer"`
	Steps      []Step        `json:"steps"`
	Iterations int           `json:"iterations"`
	ToolCalls  int           `json:"tool_calls"`
	Warnings   int           `json:"warnings"`
	Duration   time.Duration `json:"duration"`
	// Err is the classified cause for non-answered outcomes.
	Err error `json:"-"`
}

// Answered reports whether the run produced a genuine answer.
func (r *RunResult) Answered() bool { return r != nil && r.Outcome == OutcomeAnswered }
