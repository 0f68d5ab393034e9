package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"fortio.org/log"

	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/evaluator"
)

// traceWriter appends trace events to a JSONL file.
type traceWriter struct {
	f   *os.File
	w   *bufio.Writer
	err error
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &traceWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// Write records one event. The first write failure is logged and later
// events are dropped.
func (tw *traceWriter) Write(ev evaluator.TraceEvent) {
	if tw.err != nil {
		return
	}
	line, err := ev.MarshalLine()
	if err == nil {
		_, err = tw.w.Write(append(line, '\n'))
	}
	if err != nil {
		tw.err = err
		log.Warnf("trace: dropping events after write failure: %v", err)
	}
}

func (tw *traceWriter) Close() {
	if err := tw.w.Flush(); err != nil && tw.err == nil {
		log.Warnf("trace: flush failed: %v", err)
	}
	if err := tw.f.Close(); err != nil {
		log.Warnf("trace: close failed: %v", err)
	}
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: mini trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), false)
		return 1
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read trace %s: %s", file, err), nil, ""), false)
		return 1
	}

	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
		return 0
	}
	b, _ := json.Marshal(summary)
	fmt.Println(string(b))
	return 0
}

// TraceSummary aggregates the events of one traced run.
type TraceSummary struct {
	RunID         string         `json:"runId"`
	TotalEvents   int            `json:"totalEvents"`
	Calls         int            `json:"calls"`
	CallsByName   map[string]int `json:"callsByName"`
	MaxCallDepth  int            `json:"maxCallDepth"`
	Loops         int            `json:"loops"`
	PrintedLines  int            `json:"printedLines"`
	Errors        int            `json:"errors"`
	ErrorCode     string         `json:"errorCode,omitempty"`
	StartTime     string         `json:"startTime,omitempty"`
	EndTime       string         `json:"endTime,omitempty"`
	DurationMs    float64        `json:"durationMs"`
	InvalidEvents int            `json:"invalidEvents,omitempty"`
}

type traceEvent struct {
	Event string            `json:"event"`
	RunID string            `json:"runId"`
	TS    string            `json:"ts"`
	Data  map[string]string `json:"data,omitempty"`
}

// maxTraceLine bounds a single JSONL event; print events carry whole lines.
const maxTraceLine = 64 << 20

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	depth := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTraceLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			summary.InvalidEvents++
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
		case evaluator.TraceFnCallStart:
			summary.Calls++
			summary.CallsByName[event.Data["fn"]]++
			depth++
			if depth > summary.MaxCallDepth {
				summary.MaxCallDepth = depth
			}
		case evaluator.TraceFnCallEnd:
			if depth > 0 {
				depth--
			}
		case evaluator.TraceLoopStart:
			summary.Loops++
		case evaluator.TracePrint:
			summary.PrintedLines++
		case evaluator.TraceError:
			summary.Errors++
			summary.ErrorCode = event.Data["code"]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d (max depth %d)\n", s.Calls, s.MaxCallDepth)
	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}
	fmt.Fprintf(w, "Loops: %d\n", s.Loops)
	fmt.Fprintf(w, "Printed: %d line(s)\n", s.PrintedLines)
	if s.Errors > 0 {
		fmt.Fprintf(w, "Error: %s\n", s.ErrorCode)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
