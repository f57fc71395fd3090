package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		override string
		fallback string
		want     string
	}{
		{name: "no override uses fallback", fallback: "cfg-key", want: "cfg-key"},
		{name: "override wins", override: "session-key", fallback: "cfg-key", want: "session-key"},
		{name: "blank override ignored", override: "   ", fallback: "cfg-key", want: "cfg-key"},
		{name: "nothing configured", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := WithCredentialOverride(context.Background(), CredentialOverride{APIKey: tt.override})
			assert.Equal(t, tt.want, ResolveAPIKey(ctx, tt.fallback))
		})
	}
}

func TestCredentialOverride_StringMasksKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CredentialOverride{}", CredentialOverride{}.String())
	assert.NotContains(t, CredentialOverride{APIKey: "gsk_secret"}.String(), "gsk_secret")
}
