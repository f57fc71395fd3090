package agent

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/BaSui01/searchflow/types"
	"go.uber.org/zap"
)

// CredentialPrompt is shown when no LLM credential is available.
const CredentialPrompt = "Please enter your Groq API key to proceed."

// Agent runs user turns against sessions.
type Agent struct {
	loop   *Loop
	logger *zap.Logger
}

// New builds an Agent around a Loop.
func New(provider llm.Provider, registry *tools.Registry, cfg Config, opts ...LoopOption) (*Agent, error) {
	loop, err := NewLoop(provider, registry, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Agent{
		loop:   loop,
		logger: loop.logger.With(zap.String("component", "agent")),
	}, nil
}

// Loop returns the underlying loop.
func (a *Agent) Loop() *Loop { return a.loop }

// Ready reports whether a turn on sess could start, i.e. a credential is
// available either per session or from configuration.
func (a *Agent) Ready(ctx context.Context, sess *Session) bool {
	return a.credentialError(a.withCredential(ctx, sess)) == nil
}

// Chat runs one turn: the user message is appended, the loop runs, and
// exactly one assistant message is appended. Only a missing credential, a
// busy session or invalid input are returned as errors; in those cases the
// transcript is left untouched.
func (a *Agent) Chat(ctx context.Context, sess *Session, input string, sink Sink) (*RunResult, error) {
	if sess == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "session is required")
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "message is empty")
	}

	ctx = a.withCredential(ctx, sess)
	if err := a.credentialError(ctx); err != nil {
		a.logger.Warn("turn blocked: missing credential", zap.String("session_id", sess.ID))
		return nil, err
	}

	if !sess.running.TryLock() {
		return nil, types.NewError(types.ErrSessionBusy, "a turn is already running for this session")
	}
	defer sess.running.Unlock()

	sess.touch()
	ctx = types.WithSessionID(ctx, sess.ID)

	history := sess.transcript.Snapshot()
	sess.transcript.Append(types.NewUserMessage(input))

	result := a.loop.Run(ctx, history, input, sink)
	result.SessionID = sess.ID
	sess.transcript.Append(types.NewAssistantMessage(result.Answer))
	return result, nil
}

func (a *Agent) withCredential(ctx context.Context, sess *Session) context.Context {
	if sess == nil {
		return ctx
	}
	return llm.WithCredentialOverride(ctx, llm.CredentialOverride{APIKey: sess.APIKey()})
}

func (a *Agent) credentialError(ctx context.Context) error {
	p := a.loop.provider
	if p.RequiresCredential() && !p.HasCredential(ctx) {
		return types.NewError(types.ErrCredentialMissing, CredentialPrompt).WithHTTPStatus(http.StatusUnauthorized)
	}
	return nil
}
