package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/evaluator"
	"github.com/thomasrohde/mini/pkg/runtime"
)

func TestParseCommon(t *testing.T) {
	cf, rest := parseCommon([]string{"--pretty", "prog.mini", "--json", "-v", "--config", "c.yaml", "--trace", "t.jsonl"})
	if cf.file != "prog.mini" || !cf.pretty || !cf.verbose || cf.configPath != "c.yaml" {
		t.Errorf("flags = %+v", cf)
	}
	if !reflect.DeepEqual(rest, []string{"--json", "--trace", "t.jsonl"}) {
		t.Errorf("rest = %v", rest)
	}
}

func TestParseCommon_Stdin(t *testing.T) {
	cf, _ := parseCommon([]string{"-"})
	if cf.file != "-" {
		t.Errorf("file = %q, want -", cf.file)
	}
}

func TestExitCodeForDiag(t *testing.T) {
	tests := map[string]int{
		diagnostics.ELex:               2,
		diagnostics.EParse:             2,
		diagnostics.EIO:                1,
		diagnostics.EConfig:            1,
		diagnostics.EDivisionByZero:    4,
		diagnostics.EUndefinedFunction: 4,
		diagnostics.EBudget:            4,
		diagnostics.EIntOverflow:       4,
	}
	for code, want := range tests {
		if got := exitCodeForDiag(code); got != want {
			t.Errorf("exitCodeForDiag(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestCheckExitCode(t *testing.T) {
	warn := diagnostics.MakeDiag(diagnostics.EFnDup, "dup", nil, "")
	ret := diagnostics.MakeDiag(diagnostics.EReturnOutsideFunc, "ret", nil, "")
	undef := diagnostics.MakeDiag(diagnostics.EUndefinedFunction, "undef", nil, "")

	tests := []struct {
		name  string
		diags []diagnostics.Diagnostic
		want  int
	}{
		{"warnings only", []diagnostics.Diagnostic{warn, ret}, 0},
		{"error", []diagnostics.Diagnostic{undef}, 2},
		{"mixed", []diagnostics.Diagnostic{warn, undef}, 2},
		{"parse", []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, "p", nil, "")}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkExitCode(tt.diags); got != tt.want {
				t.Errorf("checkExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTraceWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	tw, err := newTraceWriter(path)
	if err != nil {
		t.Fatalf("newTraceWriter: %v", err)
	}

	rt := runtime.New(runtime.WithRunID("r1"), runtime.WithTrace(tw.Write))
	src := "func f(n) { if (n < 1) { return 0 } return f(n - 1) }\ni = 0\nwhile (i < 2) { i = i + 1 }\nprint(f(2))\nprint(1 / 0)"
	if _, err := rt.Run(src, "t.mini"); err == nil {
		t.Fatal("expected division by zero")
	}
	tw.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	s, err := computeTraceSummary(f)
	if err != nil {
		t.Fatal(err)
	}

	if s.RunID != "r1" {
		t.Errorf("runId = %q", s.RunID)
	}
	if s.Calls != 3 || s.CallsByName["f"] != 3 {
		t.Errorf("calls = %d (%v), want 3", s.Calls, s.CallsByName)
	}
	if s.MaxCallDepth != 3 {
		t.Errorf("max depth = %d, want 3", s.MaxCallDepth)
	}
	if s.Loops != 1 || s.PrintedLines != 1 {
		t.Errorf("loops = %d printed = %d", s.Loops, s.PrintedLines)
	}
	if s.Errors != 1 || s.ErrorCode != diagnostics.EDivisionByZero {
		t.Errorf("errors = %d code = %q", s.Errors, s.ErrorCode)
	}
	if s.StartTime == "" || s.EndTime == "" {
		t.Error("expected start and end times")
	}
}

func TestComputeTraceSummary_SkipsInvalidLines(t *testing.T) {
	input := strings.Join([]string{
		`{"ts":"2024-01-01T00:00:00Z","runId":"x","event":"run_start"}`,
		`not json`,
		``,
		`{"ts":"2024-01-01T00:00:00.5Z","runId":"x","event":"run_end"}`,
	}, "\n")
	s, err := computeTraceSummary(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEvents != 2 || s.InvalidEvents != 1 {
		t.Errorf("total = %d invalid = %d", s.TotalEvents, s.InvalidEvents)
	}
	if s.DurationMs != 500 {
		t.Errorf("duration = %v, want 500", s.DurationMs)
	}
}

func TestComputeTraceSummary_LongPrintLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.jsonl")
	tw, err := newTraceWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	rt := runtime.New(runtime.WithRunID("long"), runtime.WithTrace(tw.Write), runtime.WithStdout(io.Discard))
	src := "s = \"ab\"\ni = 0\nwhile (i < 16) { s = s + s; i = i + 1 }\nprint(s)\nprint(1)"
	if _, err := rt.Run(src, "long.mini"); err != nil {
		t.Fatal(err)
	}
	tw.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	s, err := computeTraceSummary(f)
	if err != nil {
		t.Fatalf("computeTraceSummary: %v", err)
	}
	if s.PrintedLines != 2 || s.EndTime == "" || s.InvalidEvents != 0 {
		t.Errorf("printed = %d end = %q invalid = %d", s.PrintedLines, s.EndTime, s.InvalidEvents)
	}
}

func TestComputeTraceSummary_ReadError(t *testing.T) {
	_, err := computeTraceSummary(iotest.ErrReader(errors.New("disk gone")))
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Errorf("err = %v, want the read error", err)
	}
}

func TestPrintTraceSummaryText(t *testing.T) {
	var buf bytes.Buffer
	printTraceSummaryText(&buf, &TraceSummary{
		RunID:        "r",
		Calls:        2,
		CallsByName:  map[string]int{"b": 1, "a": 1},
		MaxCallDepth: 1,
		ErrorCode:    diagnostics.EBudget,
		Errors:       1,
	})
	out := buf.String()
	if strings.Index(out, "  a: 1") > strings.Index(out, "  b: 1") {
		t.Errorf("call names should be sorted:\n%s", out)
	}
	if !strings.Contains(out, "Error: E_BUDGET") {
		t.Errorf("missing error line:\n%s", out)
	}
}

func TestTraceEventTypesMatchSummary(t *testing.T) {
	// The summary keys off the evaluator's event names.
	if evaluator.TraceFnCallStart != "fn_call_start" || evaluator.TraceError != "error" {
		t.Error("trace event names changed; update computeTraceSummary")
	}
}

func TestParseCommon_TraceBeforeFile(t *testing.T) {
	cf, rest := parseCommon([]string{"--trace", "out.jsonl", "prog.mini"})
	if cf.file != "prog.mini" {
		t.Errorf("file = %q, want prog.mini", cf.file)
	}
	if !reflect.DeepEqual(rest, []string{"--trace", "out.jsonl"}) {
		t.Errorf("rest = %v", rest)
	}
}
