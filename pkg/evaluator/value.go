// Package evaluator implements the mini tree-walking evaluator.
package evaluator

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/mini/pkg/ast"
)

// Value is the interface for all mini runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Int is an integer number.
type Int struct {
	Value int64
}

func (Int) value() {}

// Float is a floating-point number.
type Float struct {
	Value float64
}

func (Float) value() {}

// Str is a string value.
type Str struct {
	Value string
}

func (Str) value() {}

// Bool is produced by comparison operators.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Function is a user-defined function bound by a FuncDef.
type Function struct {
	Decl *ast.FuncDef
}

func (*Function) value() {}

// Name returns the declared function name.
func (f *Function) Name() string { return f.Decl.Name }

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Decl.Params) }

// None is the result of a call that finished without executing a return
// statement with a value.
type None struct{}

func (None) value() {}

// Truthiness returns the boolean interpretation of a value.
// 0, 0.0, "" and false are falsy; every other value is truthy.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case Int:
		return val.Value != 0
	case Float:
		return val.Value != 0
	case Str:
		return val.Value != ""
	case Bool:
		return val.Value
	case None:
		return false
	default:
		return true
	}
}

// TypeName returns the user-facing name of a value's type.
func TypeName(v Value) string {
	switch v.(type) {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	case Bool:
		return "bool"
	case *Function:
		return "function"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// FormatValue renders a value the way print writes it: integers without a
// decimal point, floats always with one, strings unquoted.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Int:
		return strconv.FormatInt(val.Value, 10)
	case Float:
		return formatFloat(val.Value)
	case Str:
		return val.Value
	case Bool:
		if val.Value {
			return "true"
		}
		return "false"
	case *Function:
		return "<func " + val.Name() + ">"
	case None:
		return "none"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// toFloat widens a numeric value. ok is false for non-numbers.
func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n.Value), true
	case Float:
		return n.Value, true
	}
	return 0, false
}

// Equal reports whether two values are equal. Ints and floats compare
// numerically; values of unrelated types are never equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		if bv, ok := b.(Int); ok {
			return av.Value == bv.Value
		}
		if bf, ok := b.(Float); ok {
			return float64(av.Value) == bf.Value
		}
		return false
	case Float:
		bf, ok := toFloat(b)
		return ok && av.Value == bf
	case Str:
		bv, ok := b.(Str)
		return ok && av.Value == bv.Value
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case None:
		_, ok := b.(None)
		return ok
	}
	return false
}
