package runtime_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/thomasrohde/mini/pkg/config"
	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/evaluator"
	"github.com/thomasrohde/mini/pkg/lexer"
	"github.com/thomasrohde/mini/pkg/parser"
	"github.com/thomasrohde/mini/pkg/runtime"
)

func TestRunSource_Add(t *testing.T) {
	lines, err := runtime.RunSource(`func add(a, b) { return a + b; } print(add(3, 4));`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"7"}) {
		t.Errorf("lines = %q, want [7]", lines)
	}
}

func TestRunSource_Precedence(t *testing.T) {
	lines, err := runtime.RunSource(`print(2 + 3 * 4)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"14"}) {
		t.Errorf("lines = %q, want [14]", lines)
	}
}

func TestRunSource_PartialOutput(t *testing.T) {
	lines, err := runtime.RunSource("print(\"before\")\nprint(10 / 0)")
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EDivisionByZero {
		t.Fatalf("err = %v, want division by zero", err)
	}
	if !reflect.DeepEqual(lines, []string{"before"}) {
		t.Errorf("lines = %q, want [before]", lines)
	}
}

func TestRunSource_LexAndParseErrors(t *testing.T) {
	_, err := runtime.RunSource(`x = 1 @ 2`)
	var lexErr *lexer.LexError
	if !errors.As(err, &lexErr) {
		t.Errorf("err = %T %v, want *lexer.LexError", err, err)
	}

	lines, err := runtime.RunSource("print(1)\nprint(")
	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("err = %T %v, want *parser.ParseError", err, err)
	}
	if lines != nil {
		t.Errorf("nothing should run on a parse error, got %q", lines)
	}
}

func TestRun_StreamsStdout(t *testing.T) {
	var buf bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&buf))
	res, err := rt.Run("print(1)\nprint(2.0)\nx = 3", "prog.mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "1\n2.0\n" {
		t.Errorf("stdout = %q", buf.String())
	}
	if got, ok := res.Value.(evaluator.Int); !ok || got.Value != 3 {
		t.Errorf("value = %#v, want Int 3", res.Value)
	}
}

func TestRun_WithConfigLimits(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxIterations = 10
	rt := runtime.New(runtime.WithConfig(cfg))
	_, err := rt.Run(`while (1) { }`, "loop.mini")
	d, ok := runtime.DiagnosticOf(err)
	if !ok || d.Code != diagnostics.EBudget {
		t.Errorf("err = %v, want %s", err, diagnostics.EBudget)
	}
}

func TestRun_Trace(t *testing.T) {
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithRunID("abc"),
		runtime.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }),
	)
	if _, err := rt.Run(`print(1)`, "t.mini"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for _, ev := range events {
		if ev.RunID != "abc" {
			t.Errorf("event %s runId = %q", ev.Event, ev.RunID)
		}
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()

	if diags := rt.Check(`print(1)`, "ok.mini"); len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}

	diags := rt.Check(`print(`, "bad.mini")
	if len(diags) != 1 || diags[0].Code != diagnostics.EParse {
		t.Errorf("diags = %v, want one %s", diags, diagnostics.EParse)
	}

	diags = rt.Check("func f(a) { return a }\nf(1, 2)", "arity.mini")
	if len(diags) != 1 || diags[0].Code != diagnostics.EArityMismatch {
		t.Errorf("diags = %v, want one %s", diags, diagnostics.EArityMismatch)
	}
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	out, err := rt.Format(`func f(a){return a*2}`, "f.mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "func f(a) {\n  return a * 2\n}\n" {
		t.Errorf("format = %q", out)
	}

	if _, err := rt.Format(`func (`, "f.mini"); err == nil {
		t.Error("expected parse error")
	}
}

func TestSession(t *testing.T) {
	rt := runtime.New()
	sess := rt.NewSession("<repl>")

	if _, err := sess.Eval("func sq(x) { return x * x }"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	res, err := sess.Eval("print(sq(9))")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !reflect.DeepEqual(res.Output, []string{"81"}) {
		t.Errorf("output = %q", res.Output)
	}

	_, err = sess.Eval("print(")
	if !parser.IsIncomplete(err) {
		t.Errorf("err = %v, want incomplete input", err)
	}

	if !reflect.DeepEqual(sess.Names(), []string{"sq"}) {
		t.Errorf("names = %v", sess.Names())
	}
}

func TestDiagnosticOf(t *testing.T) {
	_, lexErr := lexer.Tokenize(`"open`, "a.mini")
	_, parseErr := parser.Parse(`if`, "a.mini")
	_, rtErr := runtime.RunSource(`nope()`)

	tests := []struct {
		err  error
		code string
	}{
		{lexErr, diagnostics.ELex},
		{parseErr, diagnostics.EParse},
		{rtErr, diagnostics.EUndefinedFunction},
	}
	for _, tt := range tests {
		d, ok := runtime.DiagnosticOf(tt.err)
		if !ok {
			t.Errorf("DiagnosticOf(%v): not recognized", tt.err)
			continue
		}
		if d.Code != tt.code {
			t.Errorf("DiagnosticOf(%v).Code = %s, want %s", tt.err, d.Code, tt.code)
		}
		if d.Span == nil {
			t.Errorf("DiagnosticOf(%v) has no span", tt.err)
		}
	}

	if _, ok := runtime.DiagnosticOf(errors.New("plain")); ok {
		t.Error("plain errors carry no diagnostic")
	}
	if !strings.Contains(rtErr.Error(), "nope") {
		t.Errorf("runtime error = %q", rtErr.Error())
	}
}
