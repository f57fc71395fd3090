package llm

import (
	"context"
	"fmt"
	"strings"
)

// FirstChoice safely returns the first choice from a ChatResponse.
// Returns an error if the response is nil or has no choices.
func FirstChoice(resp *ChatResponse) (ChatChoice, error) {
	if resp == nil {
		return ChatChoice{}, fmt.Errorf("nil ChatResponse")
	}
	if len(resp.Choices) == 0 {
		return ChatChoice{}, fmt.Errorf("empty choices in ChatResponse (model returned no choices)")
	}
	return resp.Choices[0], nil
}

// CollectStream drains a stream into a single assistant message. onDelta, if
// non-nil, sees every non-empty content delta in order. The first chunk error
// stops collection and is returned.
func CollectStream(ctx context.Context, stream <-chan StreamChunk, onDelta func(string)) (*ChatResponse, error) {
	var (
		content   strings.Builder
		toolCalls []ToolCall
		resp      = &ChatResponse{}
		finish    string
	)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				msg := Message{Role: RoleAssistant, Content: content.String(), ToolCalls: toolCalls}
				resp.Choices = []ChatChoice{{Index: 0, FinishReason: finish, Message: msg}}
				return resp, nil
			}
			if chunk.Err != nil {
				return nil, chunk.Err
			}
			if chunk.ID != "" {
				resp.ID = chunk.ID
			}
			if chunk.Provider != "" {
				resp.Provider = chunk.Provider
			}
			if chunk.Model != "" {
				resp.Model = chunk.Model
			}
			if chunk.Usage != nil {
				resp.Usage = *chunk.Usage
			}
			if chunk.FinishReason != "" {
				finish = chunk.FinishReason
			}
			if chunk.Delta.Content != "" {
				content.WriteString(chunk.Delta.Content)
				if onDelta != nil {
					onDelta(chunk.Delta.Content)
				}
			}
			toolCalls = mergeToolCallDeltas(toolCalls, chunk.Delta.ToolCalls)
		}
	}
}

// mergeToolCallDeltas 将增量 ToolCall 片段按 ID（缺省时按最后一个）拼接。
func mergeToolCallDeltas(acc []ToolCall, deltas []ToolCall) []ToolCall {
	for _, d := range deltas {
		id := strings.TrimSpace(d.ID)
		idx := -1
		if id != "" {
			for i := range acc {
				if acc[i].ID == id {
					idx = i
					break
				}
			}
		} else if len(acc) > 0 {
			idx = len(acc) - 1
		}
		if idx < 0 {
			acc = append(acc, ToolCall{ID: id, Name: strings.TrimSpace(d.Name), Arguments: append([]byte(nil), d.Arguments...)})
			continue
		}
		if name := strings.TrimSpace(d.Name); name != "" {
			acc[idx].Name = name
		}
		acc[idx].Arguments = append(acc[idx].Arguments, d.Arguments...)
	}
	return acc
}
