package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/retry"
	"github.com/BaSui01/searchflow/llm/tokenizer"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/BaSui01/searchflow/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/searchflow/agent"

// MetricsRecorder receives loop measurements. internal/metrics.Collector
// implements it; nil disables recording.
type MetricsRecorder interface {
	RecordLLMCall(provider, model, status string, duration time.Duration, usage llm.ChatUsage)
	RecordRun(outcome string, iterations int, duration time.Duration)
	RecordStateTransition(from, to string)
	RecordFallback(requested, fallback string)
	RecordParseFailure()
}

// Loop is the ReAct state machine. It is safe for concurrent runs; all
// per-run state lives in run.
type Loop struct {
	provider  llm.Provider
	registry  *tools.Registry
	cfg       Config
	logger    *zap.Logger
	metrics   MetricsRecorder
	tracer    trace.Tracer
	tokenizer tokenizer.Tokenizer
	llmPolicy func() *retry.RetryPolicy
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) LoopOption {
	return func(l *Loop) { l.metrics = m }
}

// WithTracer overrides the global OTel tracer.
func WithTracer(t trace.Tracer) LoopOption {
	return func(l *Loop) {
		if t != nil {
			l.tracer = t
		}
	}
}

// WithTokenizer sets the tokenizer used to trim history.
func WithTokenizer(t tokenizer.Tokenizer) LoopOption {
	return func(l *Loop) {
		if t != nil {
			l.tokenizer = t
		}
	}
}

// WithLLMRetryPolicy overrides how retryable provider errors are retried.
// The factory is called per LLM call since policies carry callbacks.
func WithLLMRetryPolicy(f func() *retry.RetryPolicy) LoopOption {
	return func(l *Loop) {
		if f != nil {
			l.llmPolicy = f
		}
	}
}

// NewLoop validates cfg and checks that the fallback tool is registered.
func NewLoop(provider llm.Provider, registry *tools.Registry, cfg Config, opts ...LoopOption) (*Loop, error) {
	if provider == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "llm provider is required")
	}
	if registry == nil || registry.Len() == 0 {
		return nil, types.NewError(types.ErrInvalidConfig, "at least one tool must be registered")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !registry.Has(cfg.FallbackTool) {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("fallback tool %q is not registered", cfg.FallbackTool))
	}

	l := &Loop{
		provider: provider,
		registry: registry,
		cfg:      cfg,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("component", "agent_loop"))
	if l.tokenizer == nil {
		l.tokenizer = tokenizer.GetTokenizerOrEstimator(cfg.Model)
	}
	if l.llmPolicy == nil {
		maxRetries := cfg.LLMMaxRetries
		l.llmPolicy = func() *retry.RetryPolicy {
			p := retry.DefaultRetryPolicy()
			p.MaxRetries = maxRetries
			p.RetryIf = llmRetryable
			return p
		}
	}
	return l, nil
}

// Config returns the loop configuration.
func (l *Loop) Config() Config { return l.cfg }

// Registry returns the tool registry.
func (l *Loop) Registry() *tools.Registry { return l.registry }

// Run executes one user turn against history. It never returns an error:
// every failure is classified into the result, whose Answer is the
// assistant message to append.
func (l *Loop) Run(ctx context.Context, history []types.Message, input string, sink Sink) *RunResult {
	if sink == nil {
		sink = Discard
	}
	runID, ok := types.RunID(ctx)
	if !ok || runID == "" {
		runID = uuid.NewString()
		ctx = types.WithRunID(ctx, runID)
	}

	ctx, span := l.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.run_id", runID),
		attribute.String("llm.provider", l.provider.Name()),
	))
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, l.cfg.RunTimeout)
	defer cancel()

	r := &run{
		loop:    l,
		parent:  ctx,
		ctx:     runCtx,
		sink:    sink,
		history: history,
		input:   input,
		state:   StateAwaitLLM,
		result:  &RunResult{RunID: runID},
		start:   time.Now(),
		logger:  l.logger.With(zap.String("run_id", runID)),
	}
	if sid, ok := types.SessionID(ctx); ok {
		r.result.SessionID = sid
		r.logger = r.logger.With(zap.String("session_id", sid))
	}

	r.execute()

	res := r.result
	res.Duration = time.Since(r.start)
	span.SetAttributes(
		attribute.String("agent.outcome", string(res.Outcome)),
		attribute.Int("agent.iterations", res.Iterations),
		attribute.Int("agent.tool_calls", res.ToolCalls),
	)
	if res.Err != nil && res.Outcome != OutcomeTerminated {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	if l.metrics != nil {
		l.metrics.RecordRun(string(res.Outcome), res.Iterations, res.Duration)
	}
	r.logger.Info("run completed",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("iterations", res.Iterations),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Duration("duration", res.Duration))
	return res
}

// run holds the state of one AgentRun.
type run struct {
	loop    *Loop
	parent  context.Context
	ctx     context.Context
	sink    Sink
	history []types.Message
	input   string
	state   State
	result  *RunResult
	start   time.Time
	logger  *zap.Logger
}

func (r *run) execute() {
	l := r.loop
	system := SystemPrompt(l.registry.Describe(), l.registry.Names())
	parseFailures := 0

	for iteration := 1; ; iteration++ {
		if iteration > l.cfg.MaxIterations {
			r.logger.Warn("iteration cap reached", zap.Int("max_iterations", l.cfg.MaxIterations))
			r.terminate(fmt.Sprintf("reached max_iterations=%d", l.cfg.MaxIterations))
			return
		}
		if r.ctx.Err() != nil {
			r.interrupted(r.ctx.Err())
			return
		}
		r.result.Iterations = iteration

		msg, err := r.think(system, iteration)
		if err != nil {
			if r.ctx.Err() != nil {
				r.interrupted(err)
				return
			}
			r.logger.Error("llm call failed", zap.Int("iteration", iteration), zap.Error(err))
			r.fail(err)
			return
		}

		decision, err := ParseOutput(msg)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				perr = &ParseError{Output: msg.Content, Reason: err.Error()}
			}
			r.transition(StateParseFailure)
			parseFailures++
			if l.metrics != nil {
				l.metrics.RecordParseFailure()
			}
			r.logger.Warn("unparsable llm output",
				zap.Int("iteration", iteration),
				zap.Int("parse_failures", parseFailures),
				zap.String("reason", perr.Reason))
			r.result.Steps = append(r.result.Steps, Step{
				Log:         msg.Content,
				ParseError:  perr.Reason,
				Observation: perr.Observation(),
			})
			if parseFailures > l.cfg.MaxParseRetries {
				r.fail(perr)
				return
			}
			r.transition(StateAwaitLLM)
			continue
		}

		if decision.Thought != "" {
			r.emit(Event{Kind: EventThought, Text: decision.Thought, Iteration: iteration})
		}

		if decision.IsFinal() {
			r.transition(StateAnswer)
			r.result.Steps = append(r.result.Steps, Step{
				Thought:     decision.Thought,
				FinalAnswer: decision.FinalAnswer,
				Log:         msg.Content,
			})
			r.finish(OutcomeAnswered, decision.FinalAnswer, nil)
			return
		}

		r.transition(StateAct)
		log := msg.Content
		if len(msg.ToolCalls) > 0 {
			log = ""
		}
		step, err := r.act(iteration, decision, log)
		r.result.Steps = append(r.result.Steps, step)
		if err != nil {
			r.logger.Error("tool crashed", zap.Int("iteration", iteration), zap.Error(err))
			r.fail(err)
			return
		}
		r.transition(StateAwaitLLM)
	}
}

// think asks the LLM for the next decision. Retryable provider errors are
// retried per the loop's policy; each attempt gets CallTimeout.
func (r *run) think(system string, iteration int) (llm.Message, error) {
	l := r.loop
	msgs, err := buildMessages(system, r.history, r.input, r.result.Steps, l.tokenizer, l.cfg.MaxHistoryTokens)
	if err != nil {
		return llm.Message{}, fmt.Errorf("build prompt: %w", err)
	}
	req := &llm.ChatRequest{
		TraceID:     r.result.RunID,
		Model:       l.cfg.Model,
		Messages:    msgs,
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: l.cfg.Temperature,
		Stop:        stopSequences,
		Timeout:     l.cfg.CallTimeout,
	}
	if l.cfg.NativeTools {
		req.Tools = l.registry.DescribeAll()
		req.ToolChoice = "auto"
	}

	ctx, span := l.tracer.Start(r.ctx, "agent.llm_call", trace.WithAttributes(
		attribute.Int("agent.iteration", iteration),
		attribute.Bool("llm.stream", l.cfg.Stream),
	))
	defer span.End()

	policy := l.llmPolicy()
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		r.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	retryer := retry.NewBackoffRetryer(policy, r.logger)

	resp, err := retry.DoWithResultTyped[*llm.ChatResponse](retryer, ctx, func() (*llm.ChatResponse, error) {
		return r.callOnce(ctx, req, iteration)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.Message{}, err
	}
	choice, err := llm.FirstChoice(resp)
	if err != nil {
		return llm.Message{}, err
	}
	return choice.Message, nil
}

func (r *run) callOnce(ctx context.Context, req *llm.ChatRequest, iteration int) (*llm.ChatResponse, error) {
	l := r.loop
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	var (
		resp *llm.ChatResponse
		err  error
	)
	if l.cfg.Stream {
		var stream <-chan llm.StreamChunk
		stream, err = l.provider.Stream(callCtx, req)
		if err == nil {
			resp, err = llm.CollectStream(callCtx, stream, func(delta string) {
				r.emit(Event{Kind: EventThought, Text: delta, Partial: true, Iteration: iteration})
			})
		}
	} else {
		resp, err = l.provider.Completion(callCtx, req)
	}

	if l.metrics != nil {
		status := "success"
		var usage llm.ChatUsage
		if err != nil {
			status = "error"
		} else {
			usage = resp.Usage
		}
		model := req.Model
		if resp != nil && resp.Model != "" {
			model = resp.Model
		}
		l.metrics.RecordLLMCall(l.provider.Name(), model, status, time.Since(start), usage)
	}
	return resp, err
}

// act resolves and invokes the chosen tool. Unknown tools fall back to the
// configured tool with one warning event. Tool failures become the
// observation; only a tool panic is returned as an error.
func (r *run) act(iteration int, d Decision, log string) (Step, error) {
	l := r.loop
	requested := d.Action.Tool
	input := d.Action.Input
	step := Step{Thought: d.Thought, Log: log}

	tool, err := l.registry.Resolve(requested)
	if err != nil {
		tool, _ = l.registry.Resolve(l.cfg.FallbackTool)
		step.FallbackFrom = requested
		r.result.Warnings++
		r.emit(Event{Kind: EventWarning, Text: fallbackWarning(requested, tool.Name()), Tool: tool.Name(), Iteration: iteration})
		r.logger.Warn("unknown tool, using fallback",
			zap.String("requested", requested),
			zap.String("fallback", tool.Name()))
		if l.metrics != nil {
			l.metrics.RecordFallback(requested, tool.Name())
		}
		if strings.TrimSpace(input) == "" {
			input = r.input
		}
	}
	step.Action = &Action{Tool: tool.Name(), Input: input}
	r.emit(Event{Kind: EventAction, Text: input, Tool: tool.Name(), Iteration: iteration})

	ctx, span := l.tracer.Start(r.ctx, "agent.tool_call", trace.WithAttributes(
		attribute.String("tool.name", tool.Name()),
		attribute.Int("agent.iteration", iteration),
	))
	defer span.End()

	toolCtx, cancel := context.WithTimeout(ctx, toolTimeout(tool, l.cfg.CallTimeout))
	defer cancel()

	r.result.ToolCalls++
	out, err := invokeSafely(toolCtx, tool, input)
	if err != nil {
		var crash *toolPanic
		if errors.As(err, &crash) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return step, err
		}
		span.RecordError(err)
		out = failureObservation(tool.Name(), err)
	}
	step.Observation = out
	r.emit(Event{Kind: EventObservation, Text: out, Tool: tool.Name(), Iteration: iteration})
	return step, nil
}

// toolTimeout extends callTimeout to the tool's own budget so an adapter's
// rate-limit retry is never cut short by the loop.
func toolTimeout(tool tools.Tool, callTimeout time.Duration) time.Duration {
	if b, ok := tool.(tools.Budgeted); ok && b.CallBudget() > callTimeout {
		return b.CallBudget()
	}
	return callTimeout
}

type toolPanic struct {
	tool  string
	value any
}

func (p *toolPanic) Error() string {
	return fmt.Sprintf("tool %s crashed: %v", p.tool, p.value)
}

func invokeSafely(ctx context.Context, tool tools.Tool, input string) (out string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &toolPanic{tool: tool.Name(), value: v}
		}
	}()
	return tool.Invoke(ctx, input)
}

// failureObservation renders a tool failure for the LLM.
func failureObservation(tool string, err error) string {
	if te, ok := tools.AsToolError(err); ok {
		return te.Error()
	}
	return fmt.Sprintf("tool %s failed because %v", tool, err)
}

func fallbackWarning(requested, fallback string) string {
	if strings.TrimSpace(requested) == "" {
		return fmt.Sprintf("No tool was named, using %s instead.", fallback)
	}
	return fmt.Sprintf("%q is not a valid tool, using %s instead.", requested, fallback)
}

func (r *run) transition(to State) {
	from := r.state
	if !CanTransition(from, to) {
		// 状态机约束被破坏属于编程错误
		panic(ErrInvalidTransition{From: from, To: to})
	}
	r.state = to
	if r.loop.metrics != nil {
		r.loop.metrics.RecordStateTransition(string(from), string(to))
	}
}

func (r *run) emit(ev Event) {
	ev.RunID = r.result.RunID
	ev.Timestamp = time.Now()
	r.sink.Emit(r.parent, ev)
}

// interrupted classifies a stop caused by the contexts: the run deadline
// terminates, a cancelled caller cancels.
func (r *run) interrupted(cause error) {
	if r.parent.Err() != nil {
		err := types.NewError(types.ErrRunCancelled, "run cancelled").WithCause(r.parent.Err())
		r.finish(OutcomeCancelled, ErrorMessagePrefix+"the request was cancelled.", err)
		return
	}
	if errors.Is(r.ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("run time limit reached", zap.Duration("run_timeout", r.loop.cfg.RunTimeout))
		r.terminate(fmt.Sprintf("reached run_timeout=%s", r.loop.cfg.RunTimeout))
		return
	}
	r.fail(cause)
}

func (r *run) terminate(reason string) {
	err := types.NewError(types.ErrRunTerminated, reason)
	r.finish(OutcomeTerminated, RunTerminatedMessage, err)
}

func (r *run) fail(cause error) {
	r.finish(OutcomeFailed, ErrorMessagePrefix+cause.Error(), cause)
}

func (r *run) finish(outcome Outcome, answer string, err error) {
	if r.state != StateDone {
		r.transition(StateDone)
	}
	r.result.Outcome = outcome
	r.result.Answer = answer
	r.result.Err = err
	r.emit(Event{Kind: EventFinal, Text: answer, Final: true, Iteration: r.result.Iterations})
}

// llmRetryable reports whether a provider error may succeed on retry.
func llmRetryable(err error) bool {
	var le *llm.Error
	if errors.As(err, &le) {
		return le.Retryable
	}
	return types.IsRetryable(err)
}
