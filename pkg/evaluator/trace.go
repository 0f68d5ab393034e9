package evaluator

import (
	"encoding/json"
	"time"

	"github.com/thomasrohde/mini/pkg/ast"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TracePrint       TraceEventType = "print"
	TraceLoopStart   TraceEventType = "loop_start"
	TraceLoopEnd     TraceEventType = "loop_end"
	TraceError       TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// MarshalLine encodes the event as one line of JSONL, without the newline.
func (e TraceEvent) MarshalLine() ([]byte, error) {
	return json.Marshal(e)
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	ev.emitWithData(event, span, nil)
}

func (ev *evaluator) emitWithData(event TraceEventType, span *ast.Span, data map[string]string) {
	if ev.opts.Trace == nil {
		return
	}
	ev.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ev.opts.RunID,
		Event:     event,
		Span:      span,
		Data:      data,
	})
}
