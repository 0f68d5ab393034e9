package evaluator

import (
	"fmt"
	"io"
	"math"

	"fortio.org/log"

	"github.com/thomasrohde/mini/pkg/ast"
	"github.com/thomasrohde/mini/pkg/diagnostics"
)

// ExecOptions configures program execution.
type ExecOptions struct {
	// Stdout receives one line per print, as it happens. May be nil.
	Stdout io.Writer
	Limits Limits
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Value is the value of the last top-level statement executed, or the
	// value of a top-level return.
	Value Value
	// Values holds one value per executed top-level statement.
	Values []Value
	// Output holds the printed lines in evaluation order.
	Output []string
}

// RuntimeError represents a fault raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error to its diagnostic form.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

func runtimeErr(code string, span ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// flow tells a statement sequence whether to keep going or unwind to the
// nearest call boundary.
type flow int

const (
	flowNormal flow = iota
	flowReturn
)

type evaluator struct {
	opts    ExecOptions
	globals *Env
	output  []string
	usage   usage
}

// Execute runs a program against the given global environment. A nil
// globals starts from an empty one. On a runtime error the partial result,
// including output printed before the fault, is returned with the error.
func Execute(program *ast.Program, globals *Env, opts ExecOptions) (*ExecResult, error) {
	if globals == nil {
		globals = NewEnv(nil)
	}
	ev := &evaluator{
		opts:    opts,
		globals: globals,
	}

	span := program.Span
	ev.emit(TraceRunStart, &span)

	result := &ExecResult{Value: None{}}
	for _, stmt := range program.Statements {
		val, fl, err := ev.execStmt(stmt, globals)
		if err != nil {
			result.Output = ev.output
			if rtErr, ok := err.(*RuntimeError); ok {
				ev.emitWithData(TraceError, rtErr.Span, map[string]string{"code": rtErr.Code, "message": rtErr.Message})
			}
			ev.emit(TraceRunEnd, &span)
			return result, err
		}
		result.Value = val
		result.Values = append(result.Values, val)
		if fl == flowReturn {
			break
		}
	}

	ev.emit(TraceRunEnd, &span)
	result.Output = ev.output
	return result, nil
}

func (ev *evaluator) execBlock(stmts []ast.Stmt, env *Env) (Value, flow, error) {
	var last Value = None{}
	for _, stmt := range stmts {
		val, fl, err := ev.execStmt(stmt, env)
		if err != nil {
			return nil, flowNormal, err
		}
		if fl == flowReturn {
			return val, flowReturn, nil
		}
		last = val
	}
	return last, flowNormal, nil
}

func (ev *evaluator) execStmt(stmt ast.Stmt, env *Env) (Value, flow, error) {
	switch s := stmt.(type) {
	case *ast.VarAssign:
		val, err := ev.evalValue(s.Value, env)
		if err != nil {
			return nil, flowNormal, err
		}
		env.Set(s.Name, val)
		return val, flowNormal, nil

	case *ast.FuncDef:
		fn := &Function{Decl: s}
		env.Set(s.Name, fn)
		return fn, flowNormal, nil

	case *ast.If:
		cond, err := ev.evalValue(s.Cond, env)
		if err != nil {
			return nil, flowNormal, err
		}
		if Truthiness(cond) {
			return ev.execBlock(s.Then, env)
		}
		if s.Else != nil {
			return ev.execBlock(s.Else, env)
		}
		return None{}, flowNormal, nil

	case *ast.While:
		return ev.execWhile(s, env)

	case *ast.Return:
		if s.Value == nil {
			return None{}, flowReturn, nil
		}
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return nil, flowNormal, err
		}
		return val, flowReturn, nil

	case *ast.Print:
		val, err := ev.evalValue(s.Value, env)
		if err != nil {
			return nil, flowNormal, err
		}
		ev.print(FormatValue(val), s.Span)
		return None{}, flowNormal, nil

	case *ast.ExprStmt:
		val, err := ev.evalExpr(s.Expr, env)
		if err != nil {
			return nil, flowNormal, err
		}
		return val, flowNormal, nil

	default:
		panic(fmt.Sprintf("evaluator: unhandled statement %T", stmt))
	}
}

func (ev *evaluator) execWhile(s *ast.While, env *Env) (Value, flow, error) {
	span := s.Span
	ev.emit(TraceLoopStart, &span)
	log.LogVf("while loop at %d:%d", span.StartLine, span.StartCol)

	for {
		cond, err := ev.evalValue(s.Cond, env)
		if err != nil {
			return nil, flowNormal, err
		}
		if !Truthiness(cond) {
			break
		}
		if limit := ev.opts.Limits.MaxIterations; limit > 0 && ev.usage.iterations >= limit {
			return nil, flowNormal, runtimeErr(diagnostics.EBudget, span, "iteration budget exceeded (max %d)", limit)
		}
		ev.usage.iterations++

		val, fl, err := ev.execBlock(s.Body, env)
		if err != nil {
			return nil, flowNormal, err
		}
		if fl == flowReturn {
			ev.emit(TraceLoopEnd, &span)
			return val, flowReturn, nil
		}
	}

	ev.emit(TraceLoopEnd, &span)
	return None{}, flowNormal, nil
}

func (ev *evaluator) print(line string, span ast.Span) {
	ev.output = append(ev.output, line)
	ev.emitWithData(TracePrint, &span, map[string]string{"line": line})
	if ev.opts.Stdout == nil {
		return
	}
	if _, err := fmt.Fprintln(ev.opts.Stdout, line); err != nil {
		log.Warnf("print: writing output failed: %v", err)
	}
}

// evalValue evaluates an expression whose result is consumed, so a call
// that produced no value is a type error.
func (ev *evaluator) evalValue(expr ast.Expr, env *Env) (Value, error) {
	val, err := ev.evalExpr(expr, env)
	if err != nil {
		return nil, err
	}
	if _, ok := val.(None); ok {
		if call, ok := expr.(*ast.FuncCall); ok {
			return nil, runtimeErr(diagnostics.ETypeMismatch, call.Span, "function '%s' returned no value", call.Name)
		}
		return nil, runtimeErr(diagnostics.ETypeMismatch, expr.NodeSpan(), "expression produced no value")
	}
	return val, nil
}

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		if e.IsFloat {
			return Float{Value: e.Float}, nil
		}
		return Int{Value: e.Int}, nil

	case *ast.StringLiteral:
		return Str{Value: e.Value}, nil

	case *ast.VarAccess:
		val, ok := env.Get(e.Name)
		if !ok {
			return nil, runtimeErr(diagnostics.EUndefinedVariable, e.Span, "undefined variable '%s'", e.Name)
		}
		return val, nil

	case *ast.BinaryOp:
		left, err := ev.evalValue(e.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := ev.evalValue(e.Right, env)
		if err != nil {
			return nil, err
		}
		return applyBinary(e.Op, left, right, e.Span)

	case *ast.UnaryOp:
		operand, err := ev.evalValue(e.Operand, env)
		if err != nil {
			return nil, err
		}
		switch n := operand.(type) {
		case Int:
			if n.Value == math.MinInt64 {
				return nil, runtimeErr(diagnostics.EIntOverflow, e.Span, "integer overflow: -(%d)", n.Value)
			}
			return Int{Value: -n.Value}, nil
		case Float:
			return Float{Value: -n.Value}, nil
		}
		return nil, runtimeErr(diagnostics.ETypeMismatch, e.Span, "unary '-' requires a number, got %s", TypeName(operand))

	case *ast.FuncCall:
		return ev.evalFuncCall(e, env)

	default:
		panic(fmt.Sprintf("evaluator: unhandled expression %T", expr))
	}
}

func (ev *evaluator) evalFuncCall(e *ast.FuncCall, env *Env) (Value, error) {
	callee, ok := env.Get(e.Name)
	if !ok {
		return nil, runtimeErr(diagnostics.EUndefinedFunction, e.Span, "undefined function '%s'", e.Name)
	}
	fn, ok := callee.(*Function)
	if !ok {
		return nil, runtimeErr(diagnostics.ENotCallable, e.Span, "'%s' is a %s, not a function", e.Name, TypeName(callee))
	}
	if len(e.Args) != fn.Arity() {
		return nil, runtimeErr(diagnostics.EArityMismatch, e.Span,
			"function '%s' expects %d argument(s), got %d", e.Name, fn.Arity(), len(e.Args))
	}

	// Arguments are evaluated left to right in the caller's scope.
	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		val, err := ev.evalValue(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	if limit := ev.opts.Limits.callDepth(); ev.usage.depth >= limit {
		return nil, runtimeErr(diagnostics.EBudget, e.Span, "call depth budget exceeded (max %d)", limit)
	}

	// The frame's parent is the global scope, never the caller's.
	frame := NewEnv(ev.globals)
	for i, param := range fn.Decl.Params {
		frame.Set(param, args[i])
	}

	span := e.Span
	ev.emitWithData(TraceFnCallStart, &span, map[string]string{"fn": fn.Name()})
	log.LogVf("call %s/%d depth=%d", fn.Name(), fn.Arity(), ev.usage.depth+1)

	ev.usage.depth++
	val, fl, err := ev.execBlock(fn.Decl.Body, frame)
	ev.usage.depth--

	ev.emitWithData(TraceFnCallEnd, &span, map[string]string{"fn": fn.Name()})
	if err != nil {
		return nil, err
	}
	if fl == flowReturn {
		return val, nil
	}
	return None{}, nil
}

func applyBinary(op ast.Operator, left, right Value, span ast.Span) (Value, error) {
	switch op {
	case ast.OpEqEq:
		return Bool{Value: Equal(left, right)}, nil
	case ast.OpNeq:
		return Bool{Value: !Equal(left, right)}, nil
	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		return compare(op, left, right, span)
	}

	if op == ast.OpAdd {
		if ls, ok := left.(Str); ok {
			if rs, ok := right.(Str); ok {
				return Str{Value: ls.Value + rs.Value}, nil
			}
		}
	}

	li, lInt := left.(Int)
	ri, rInt := right.(Int)
	if lInt && rInt && op != ast.OpDiv {
		var (
			r  int64
			ok bool
		)
		switch op {
		case ast.OpAdd:
			r, ok = addInt(li.Value, ri.Value)
		case ast.OpSub:
			r, ok = subInt(li.Value, ri.Value)
		case ast.OpMul:
			r, ok = mulInt(li.Value, ri.Value)
		}
		if !ok {
			return nil, runtimeErr(diagnostics.EIntOverflow, span,
				"integer overflow: %d %s %d", li.Value, op, ri.Value)
		}
		return Int{Value: r}, nil
	}

	lf, lNum := toFloat(left)
	rf, rNum := toFloat(right)
	if !lNum || !rNum {
		return nil, runtimeErr(diagnostics.ETypeMismatch, span,
			"unsupported operand types for '%s': %s and %s", op, TypeName(left), TypeName(right))
	}

	switch op {
	case ast.OpAdd:
		return Float{Value: lf + rf}, nil
	case ast.OpSub:
		return Float{Value: lf - rf}, nil
	case ast.OpMul:
		return Float{Value: lf * rf}, nil
	case ast.OpDiv:
		if rf == 0 {
			return nil, runtimeErr(diagnostics.EDivisionByZero, span, "division by zero")
		}
		return Float{Value: lf / rf}, nil
	}
	panic(fmt.Sprintf("evaluator: unhandled operator %q", op))
}

func compare(op ast.Operator, left, right Value, span ast.Span) (Value, error) {
	var cmp int
	switch {
	case isInt(left) && isInt(right):
		cmp = cmpOrdered(left.(Int).Value, right.(Int).Value)
	case isNumber(left) && isNumber(right):
		lf, _ := toFloat(left)
		rf, _ := toFloat(right)
		if math.IsNaN(lf) || math.IsNaN(rf) {
			return Bool{Value: false}, nil
		}
		cmp = cmpOrdered(lf, rf)
	default:
		ls, lok := left.(Str)
		rs, rok := right.(Str)
		if !lok || !rok {
			return nil, runtimeErr(diagnostics.ETypeMismatch, span,
				"'%s' requires two numbers or two strings, got %s and %s", op, TypeName(left), TypeName(right))
		}
		cmp = cmpOrdered(ls.Value, rs.Value)
	}

	switch op {
	case ast.OpGt:
		return Bool{Value: cmp > 0}, nil
	case ast.OpLt:
		return Bool{Value: cmp < 0}, nil
	case ast.OpGtEq:
		return Bool{Value: cmp >= 0}, nil
	default:
		return Bool{Value: cmp <= 0}, nil
	}
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func addInt(a, b int64) (int64, bool) {
	r := a + b
	return r, (r > a) == (b > 0)
}

func subInt(a, b int64) (int64, bool) {
	r := a - b
	return r, (r < a) == (b > 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return r, false
	}
	return r, r/b == a
}

func isInt(v Value) bool {
	_, ok := v.(Int)
	return ok
}

func isNumber(v Value) bool {
	_, ok := toFloat(v)
	return ok
}
