package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/types"
	"go.uber.org/zap"
)

// REPL 内置命令
const (
	cmdExit  = "/exit"
	cmdQuit  = "/quit"
	cmdReset = "/reset"
	cmdKey   = "/key"
	cmdHelp  = "/help"
)

// repl is the interactive terminal front end: one session, one turn per
// input line, events printed as they happen.
type repl struct {
	agent  *agent.Agent
	sess   *agent.Session
	in     *bufio.Scanner
	out    io.Writer
	logger *zap.Logger

	verbose bool
}

func newREPL(a *agent.Agent, sess *agent.Session, in io.Reader, out io.Writer, verbose bool, logger *zap.Logger) *repl {
	if logger == nil {
		logger = zap.NewNop()
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &repl{agent: a, sess: sess, in: sc, out: out, verbose: verbose, logger: logger}
}

// Run reads lines until EOF, /exit or ctx is done.
func (r *repl) Run(ctx context.Context) error {
	r.printGreeting()
	if !r.agent.Ready(ctx, r.sess) {
		if !r.askForKey() {
			return nil
		}
	}

	for {
		fmt.Fprint(r.out, "\n> ")
		line, ok := r.readLine()
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case cmdExit, cmdQuit:
			return nil
		case cmdHelp:
			r.printHelp()
			continue
		case cmdReset:
			if err := r.sess.Reset(); err != nil {
				fmt.Fprintf(r.out, "reset failed: %v\n", err)
				continue
			}
			fmt.Fprintln(r.out, "Conversation cleared.")
			r.printGreeting()
			continue
		case cmdKey:
			r.askForKey()
			continue
		}

		if err := r.turn(ctx, line); err != nil {
			return err
		}
	}
}

func (r *repl) turn(ctx context.Context, input string) error {
	p := &eventPrinter{out: r.out, verbose: r.verbose}
	res, err := r.agent.Chat(ctx, r.sess, input, agent.SinkFunc(p.emit))
	if err != nil {
		if types.IsErrorCode(err, types.ErrCredentialMissing) {
			fmt.Fprintln(r.out, agent.CredentialPrompt)
			if r.askForKey() {
				return r.turn(ctx, input)
			}
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		// 其它错误（会话忙等）不终止 REPL
		fmt.Fprintf(r.out, "error: %v\n", err)
		return nil
	}

	p.finish()
	if !p.sawFinal {
		fmt.Fprintf(r.out, "\n%s\n", res.Answer)
	}
	r.logger.Debug("turn finished",
		zap.String("run_id", res.RunID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("iterations", res.Iterations),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Duration("duration", res.Duration),
	)
	return nil
}

// askForKey prompts for the session API key; false on EOF or empty input.
func (r *repl) askForKey() bool {
	fmt.Fprint(r.out, "API key: ")
	line, ok := r.readLine()
	if !ok {
		fmt.Fprintln(r.out)
		return false
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return false
	}
	r.sess.SetAPIKey(key)
	return true
}

func (r *repl) readLine() (string, bool) {
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			r.logger.Warn("read input failed", zap.Error(err))
		}
		return "", false
	}
	return r.in.Text(), true
}

func (r *repl) printGreeting() {
	for _, m := range r.sess.Transcript().Snapshot() {
		if m.Role == types.RoleAssistant {
			fmt.Fprintln(r.out, m.Content)
		}
	}
}

func (r *repl) printHelp() {
	fmt.Fprintf(r.out, "Commands: %s, %s, %s, %s\n", cmdReset, cmdKey, cmdHelp, cmdExit)
}

// eventPrinter renders run events. Streamed thought deltas are printed
// inline; the consolidated thought that follows them only ends the line.
type eventPrinter struct {
	out     io.Writer
	verbose bool

	streaming bool
	sawFinal  bool
}

func (p *eventPrinter) emit(_ context.Context, ev agent.Event) {
	switch ev.Kind {
	case agent.EventThought:
		if ev.Partial {
			if !p.streaming {
				fmt.Fprint(p.out, "\n… ")
				p.streaming = true
			}
			fmt.Fprint(p.out, ev.Text)
			return
		}
		if p.streaming {
			p.finish()
			return
		}
		if ev.Text != "" {
			fmt.Fprintf(p.out, "\n… %s\n", ev.Text)
		}
	case agent.EventAction:
		p.finish()
		fmt.Fprintf(p.out, "→ %s(%q)\n", ev.Tool, ev.Text)
	case agent.EventObservation:
		p.finish()
		if p.verbose {
			fmt.Fprintf(p.out, "%s\n", indent(ev.Text, "  "))
		} else {
			fmt.Fprintf(p.out, "  %s\n", firstLine(ev.Text))
		}
	case agent.EventWarning:
		p.finish()
		fmt.Fprintf(p.out, "! %s\n", ev.Text)
	case agent.EventFinal:
		p.finish()
		p.sawFinal = true
		fmt.Fprintf(p.out, "\n%s\n", ev.Text)
	}
}

func (p *eventPrinter) finish() {
	if p.streaming {
		fmt.Fprintln(p.out)
		p.streaming = false
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
