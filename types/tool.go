package types

import "encoding/json"

// ToolSchema defines a tool's interface for LLM function calling.
// Search tools take a single free-text query, so Parameters is usually the
// shared QueryParameters schema.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// QueryParameters is the JSON Schema of a `query -> text` tool.
var QueryParameters = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The search query"}},"required":["query"]}`)
