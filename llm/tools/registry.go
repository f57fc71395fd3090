package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/searchflow/types"
	"go.uber.org/zap"
)

// Registry holds tools keyed by name, preserving registration order so the
// prompt's tool block is deterministic across runs.
// Registration happens at startup; afterwards the registry is read-only and
// safe to share across sessions.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry 创建空的工具注册中心。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With(zap.String("component", "tool_registry")),
	}
}

// Register adds t. A name that is already present yields ErrDuplicateTool.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return types.NewError(types.ErrInvalidRequest, "tool is nil")
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return types.NewError(types.ErrInvalidRequest, "tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for existing := range r.tools {
		if strings.EqualFold(existing, name) {
			return types.NewError(types.ErrDuplicateTool, fmt.Sprintf("tool %s already registered", name))
		}
	}
	r.tools[name] = t
	r.order = append(r.order, name)

	r.logger.Info("tool registered", zap.String("name", name))
	return nil
}

// MustRegister registers every tool and panics on the first failure.
func (r *Registry) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the tool registered under name, or ErrUnknownTool.
// Names match case-insensitively; LLMs often capitalise tool names.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.TrimSpace(name)
	if t, ok := r.tools[key]; ok {
		return t, nil
	}
	if key != "" {
		for _, n := range r.order {
			if strings.EqualFold(n, key) {
				return r.tools[n], nil
			}
		}
	}
	return nil, types.NewError(types.ErrUnknownTool, fmt.Sprintf("tool %q not found", name))
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// DescribeAll returns the schema of every tool in registration order.
func (r *Registry) DescribeAll() []types.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, types.ToolSchema{
			Name:        name,
			Description: r.tools[name].Description(),
			Parameters:  types.QueryParameters,
		})
	}
	return out
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Describe renders one "name: description" line per tool, in order.
func (r *Registry) Describe() string {
	var b strings.Builder
	for i, s := range r.DescribeAll() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Name)
		b.WriteString(": ")
		b.WriteString(s.Description)
	}
	return b.String()
}
