// Package runtime provides the top-level mini runtime orchestrator.
package runtime

import (
	"errors"
	"io"

	"fortio.org/log"

	"github.com/thomasrohde/mini/pkg/config"
	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/evaluator"
	"github.com/thomasrohde/mini/pkg/formatter"
	"github.com/thomasrohde/mini/pkg/lexer"
	"github.com/thomasrohde/mini/pkg/parser"
	"github.com/thomasrohde/mini/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	// Output holds every printed line, in order.
	Output []string
	// Value is the value of the last top-level statement, or of a
	// top-level return.
	Value evaluator.Value
}

// Runtime wires together all mini components for program execution.
type Runtime struct {
	stdout io.Writer
	limits evaluator.Limits
	runID  string
	trace  func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout streams printed lines to w as they are produced.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithLimits sets the execution limits.
func WithLimits(l evaluator.Limits) Option {
	return func(rt *Runtime) {
		rt.limits = l
	}
}

// WithConfig applies the limits from a loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg != nil {
			rt.limits = cfg.ExecLimits()
		}
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default output is only collected, not streamed.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		limits: evaluator.Limits{MaxCallDepth: evaluator.DefaultMaxCallDepth},
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses and executes a mini program. Lex and parse errors are returned
// before anything runs. On a runtime error the partial result, holding the
// output printed before the fault, is returned alongside the error.
func (rt *Runtime) Run(source, filename string) (*Result, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return nil, err
	}

	log.LogVf("run %s: %d top-level statement(s)", filename, len(program.Statements))
	result, err := evaluator.Execute(program, nil, rt.execOptions())
	return toResult(result), err
}

// Check parses and statically validates a mini program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := parser.Parse(source, filename)
	if err != nil {
		if d, ok := DiagnosticOf(err); ok {
			return []diagnostics.Diagnostic{d}
		}
		return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")}
	}
	return validator.Validate(program)
}

// Format parses and formats a mini program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// Session evaluates successive inputs against one set of globals.
type Session struct {
	inner *evaluator.Session
	name  string
}

// NewSession starts an interactive session using the runtime's options.
func (rt *Runtime) NewSession(name string) *Session {
	return &Session{
		inner: evaluator.NewSession(rt.execOptions()),
		name:  name,
	}
}

// Eval parses and executes one input in the session.
func (s *Session) Eval(source string) (*Result, error) {
	program, err := parser.Parse(source, s.name)
	if err != nil {
		return nil, err
	}
	result, err := s.inner.Exec(program)
	return toResult(result), err
}

// Names returns the names bound in the session's global scope.
func (s *Session) Names() []string {
	return s.inner.Globals().Names()
}

func (rt *Runtime) execOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Stdout: rt.stdout,
		Limits: rt.limits,
		Trace:  rt.trace,
		RunID:  rt.runID,
	}
}

func toResult(r *evaluator.ExecResult) *Result {
	if r == nil {
		return nil
	}
	return &Result{Output: r.Output, Value: r.Value}
}

// RunSource tokenizes, parses and evaluates source with default options and
// returns the printed lines. On a runtime error the lines printed before the
// fault are returned with the error.
func RunSource(source string) ([]string, error) {
	res, err := New().Run(source, "<input>")
	if res == nil {
		return nil, err
	}
	return res.Output, err
}

// DiagnosticOf extracts the diagnostic carried by a lex, parse or runtime
// error.
func DiagnosticOf(err error) (diagnostics.Diagnostic, bool) {
	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return lexErr.Diag, true
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Diag, true
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr.Diagnostic(), true
	}
	return diagnostics.Diagnostic{}, false
}
