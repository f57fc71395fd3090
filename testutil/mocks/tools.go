// MockTool 的搜索工具测试模拟实现。
//
// 支持固定输出、按查询定制输出、错误注入与调用记录。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/searchflow/llm/tools"
)

// MockTool 是 tools.Tool 的模拟实现
type MockTool struct {
	mu sync.Mutex

	name        string
	description string
	output      string
	outputs     map[string]string
	err         error
	fn          func(ctx context.Context, query string) (string, error)

	queries []string
}

// NewMockTool 创建返回固定输出的工具
func NewMockTool(name, output string) *MockTool {
	return &MockTool{
		name:        name,
		description: "look things up in " + name,
		output:      output,
		outputs:     map[string]string{},
	}
}

// WithDescription 设置工具描述
func (m *MockTool) WithDescription(d string) *MockTool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.description = d
	return m
}

// WithOutputFor 为特定查询设置输出
func (m *MockTool) WithOutputFor(query, output string) *MockTool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[query] = output
	return m
}

// WithError 设置调用错误
func (m *MockTool) WithError(err error) *MockTool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFunc 用自定义函数替代固定输出
func (m *MockTool) WithFunc(fn func(ctx context.Context, query string) (string, error)) *MockTool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// Name 返回工具名
func (m *MockTool) Name() string { return m.name }

// Description 返回工具描述
func (m *MockTool) Description() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.description
}

// Invoke 记录查询并返回预设结果
func (m *MockTool) Invoke(ctx context.Context, query string) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	fn, err := m.fn, m.err
	out, ok := m.outputs[query]
	if !ok {
		out = m.output
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

// Queries 返回收到的查询
func (m *MockTool) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// CallCount 返回调用次数
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

var _ tools.Tool = (*MockTool)(nil)
