// Package diagnostics defines mini diagnostic types for lex/parse/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/mini/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex               = "E_LEX"
	EParse             = "E_PARSE"
	EUndefinedVariable = "E_UNDEFINED_VARIABLE"
	EUndefinedFunction = "E_UNDEFINED_FUNCTION"
	ENotCallable       = "E_NOT_CALLABLE"
	EArityMismatch     = "E_ARITY_MISMATCH"
	ETypeMismatch      = "E_TYPE_MISMATCH"
	EDivisionByZero    = "E_DIVISION_BY_ZERO"
	EBudget            = "E_BUDGET"
	EIntOverflow       = "E_INT_OVERFLOW"
	EFnDup             = "E_FN_DUP"
	EReturnOutsideFunc = "E_RETURN_OUTSIDE_FUNC"
	EIO                = "E_IO"
	EConfig            = "E_CONFIG"
)

// Diagnostic represents a lex, parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// IsRuntime reports whether code belongs to the runtime error family.
func IsRuntime(code string) bool {
	switch code {
	case EUndefinedVariable, EUndefinedFunction, ENotCallable,
		EArityMismatch, ETypeMismatch, EDivisionByZero, EBudget, EIntOverflow:
		return true
	}
	return false
}

// IsWarning reports whether code is advisory: the program still runs.
func IsWarning(code string) bool {
	return code == EFnDup || code == EReturnOutsideFunc
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
