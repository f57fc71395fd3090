package llm

import (
	"context"
	"strings"
)

type credentialOverrideKey struct{}

// CredentialOverride 用于在单个会话内覆盖 Provider 凭据（对应会话级输入的 API Key）。
// 该结构仅通过 context 传递，不会从 API JSON 反序列化。
type CredentialOverride struct {
	APIKey string
}

func (c CredentialOverride) String() string {
	if c.APIKey == "" {
		return "CredentialOverride{}"
	}
	return "CredentialOverride{APIKey:***}"
}

// WithCredentialOverride 在 ctx 中写入凭据覆盖信息。
// 空白 APIKey 不会改变 ctx。
func WithCredentialOverride(ctx context.Context, c CredentialOverride) context.Context {
	if strings.TrimSpace(c.APIKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialOverrideKey{}, c)
}

// CredentialOverrideFromContext 从 ctx 读取凭据覆盖信息。
func CredentialOverrideFromContext(ctx context.Context) (CredentialOverride, bool) {
	c, ok := ctx.Value(credentialOverrideKey{}).(CredentialOverride)
	return c, ok
}

// ResolveAPIKey 优先返回 ctx 中的覆盖凭据，否则返回 fallback。
func ResolveAPIKey(ctx context.Context, fallback string) string {
	if c, ok := CredentialOverrideFromContext(ctx); ok {
		if key := strings.TrimSpace(c.APIKey); key != "" {
			return key
		}
	}
	return strings.TrimSpace(fallback)
}
