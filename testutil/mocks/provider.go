// ScriptedProvider 的 LLM 提供商测试模拟实现。
//
// 按顺序回放预设回复，支持流式分块、凭据要求与错误注入。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/searchflow/llm"
)

// --- ScriptedProvider 结构 ---

// ScriptedProvider 按脚本顺序返回回复，脚本用完后重复最后一条
type ScriptedProvider struct {
	mu sync.Mutex

	// 响应配置
	replies   []string
	chunkSize int
	err       error
	healthErr error

	// 凭据
	requireKey bool
	serverKey  string

	// 调用记录
	calls []ProviderCall
}

// ProviderCall 记录单次调用
type ProviderCall struct {
	Request *llm.ChatRequest
	// APIKey 是调用时 ctx 中生效的凭据
	APIKey string
	Stream bool
}

// --- 构造函数和 Builder 方法 ---

// NewScriptedProvider 创建按 replies 回放的 Provider
func NewScriptedProvider(replies ...string) *ScriptedProvider {
	return &ScriptedProvider{replies: replies, chunkSize: 16}
}

// WithRequireKey 设置是否要求凭据
func (p *ScriptedProvider) WithRequireKey(require bool) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requireKey = require
	return p
}

// WithServerKey 设置服务端凭据（会话凭据优先）
func (p *ScriptedProvider) WithServerKey(key string) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serverKey = key
	return p
}

// WithError 设置 Completion / Stream 返回的错误
func (p *ScriptedProvider) WithError(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// WithHealthError 设置 HealthCheck 返回的错误
func (p *ScriptedProvider) WithHealthError(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthErr = err
	return p
}

// WithChunkSize 设置流式输出每块的字符数
func (p *ScriptedProvider) WithChunkSize(n int) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.chunkSize = n
	}
	return p
}

// --- llm.Provider 实现 ---

func (p *ScriptedProvider) next(ctx context.Context, req *llm.ChatRequest, stream bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, ProviderCall{
		Request: req,
		APIKey:  llm.ResolveAPIKey(ctx, p.serverKey),
		Stream:  stream,
	})
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", nil
	}
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	return p.replies[i], nil
}

// Completion 返回下一条脚本回复
func (p *ScriptedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := p.next(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{
		Provider: p.Name(),
		Model:    "scripted-1",
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		}},
		Usage: llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// Stream 将下一条脚本回复按 chunkSize 分块输出
func (p *ScriptedProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	content, err := p.next(ctx, req, true)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	size := p.chunkSize
	p.mu.Unlock()

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		runes := []rune(content)
		for start := 0; start < len(runes); start += size {
			end := min(start+size, len(runes))
			chunk := llm.StreamChunk{
				Provider: p.Name(),
				Model:    "scripted-1",
				Delta:    llm.Message{Role: llm.RoleAssistant, Content: string(runes[start:end])},
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// HealthCheck 返回健康状态或注入的错误
func (p *ScriptedProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.healthErr != nil {
		return &llm.HealthStatus{Healthy: false}, p.healthErr
	}
	return &llm.HealthStatus{Healthy: true}, nil
}

// Name 返回提供商名称
func (p *ScriptedProvider) Name() string { return "scripted" }

// RequiresCredential 是否要求凭据
func (p *ScriptedProvider) RequiresCredential() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requireKey
}

// HasCredential 会话凭据或服务端凭据任一存在即可
func (p *ScriptedProvider) HasCredential(ctx context.Context) bool {
	p.mu.Lock()
	key := p.serverKey
	p.mu.Unlock()
	return llm.ResolveAPIKey(ctx, key) != ""
}

// --- 调用记录 ---

// CallCount 返回调用次数
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Calls 返回调用记录副本
func (p *ScriptedProvider) Calls() []ProviderCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ProviderCall(nil), p.calls...)
}

// APIKeys 返回每次调用生效的凭据
func (p *ScriptedProvider) APIKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.calls))
	for i, c := range p.calls {
		keys[i] = c.APIKey
	}
	return keys
}

// Reset 清空调用记录
func (p *ScriptedProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

var _ llm.Provider = (*ScriptedProvider)(nil)
