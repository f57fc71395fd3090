package agent

import "fmt"

// State is a position in the run state machine.
type State string

const (
	StateAwaitLLM     State = "await_llm"
	StateAct          State = "act"
	StateAnswer       State = "answer"
	StateParseFailure State = "parse_failure"
	StateDone         State = "done"
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateAwaitLLM:     {StateAct, StateAnswer, StateParseFailure, StateDone},
	StateAct:          {StateAwaitLLM, StateDone},
	StateAnswer:       {StateDone},
	StateParseFailure: {StateAwaitLLM, StateDone},
	StateDone:         {},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
