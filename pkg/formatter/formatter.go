// Package formatter implements the mini source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/mini/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.Operator]int{
	ast.OpEqEq: 1, ast.OpNeq: 1, ast.OpGt: 1, ast.OpLt: 1, ast.OpGtEq: 1, ast.OpLtEq: 1,
	ast.OpAdd: 2, ast.OpSub: 2,
	ast.OpMul: 3, ast.OpDiv: 3,
}

func needsParens(child ast.Expr, parentOp ast.Operator, isRight bool) bool {
	bin, ok := child.(*ast.BinaryOp)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Operators are left-associative, so an equal-precedence right operand keeps its parens.
	return childPrec == parentPrec && isRight
}

// Format pretty-prints a mini AST back to source code. Comments are not
// preserved.
func Format(program *ast.Program) string {
	body := formatStmts(program.Statements, 0)
	if body == "" {
		return ""
	}
	return body + "\n"
}

// HasComments checks if a source string contains mini comments (# prefix).
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '"':
			inString = !inString
		case '\n':
			// strings never span lines in well-formed input
			inString = false
		case '#':
			if !inString {
				return true
			}
		}
	}
	return false
}

func formatStmts(stmts []ast.Stmt, depth int) string {
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		line := formatStmt(s, depth)
		if i < len(stmts)-1 && (isBareReturn(s) || needsTerminator(stmts[i+1])) {
			line += ";"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.VarAssign:
		return prefix + stmt.Name + " = " + formatExpr(stmt.Value)
	case *ast.FuncDef:
		return prefix + "func " + stmt.Name + "(" + strings.Join(stmt.Params, ", ") + ") " + formatBlock(stmt.Body, depth)
	case *ast.If:
		return prefix + formatIf(stmt, depth)
	case *ast.While:
		return prefix + "while (" + formatExpr(stmt.Cond) + ") " + formatBlock(stmt.Body, depth)
	case *ast.Return:
		if stmt.Value == nil {
			return prefix + "return"
		}
		return prefix + "return " + formatExpr(stmt.Value)
	case *ast.Print:
		return prefix + "print(" + formatExpr(stmt.Value) + ")"
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr)
	}
	return ""
}

func formatIf(stmt *ast.If, depth int) string {
	out := "if (" + formatExpr(stmt.Cond) + ") " + formatBlock(stmt.Then, depth)
	if stmt.Else == nil {
		return out
	}
	if len(stmt.Else) == 1 {
		if elseIf, ok := stmt.Else[0].(*ast.If); ok {
			return out + " else " + formatIf(elseIf, depth)
		}
	}
	return out + " else " + formatBlock(stmt.Else, depth)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	return "{\n" + formatStmts(stmts, depth+1) + "\n" + strings.Repeat(indent, depth) + "}"
}

// isBareReturn reports whether s is a return without a value, which would
// swallow a following expression unless terminated.
func isBareReturn(s ast.Stmt) bool {
	ret, ok := s.(*ast.Return)
	return ok && ret.Value == nil
}

// needsTerminator reports whether a statement's source text would begin
// with '-' or '(', which the parser would otherwise read as a continuation
// of the previous expression.
func needsTerminator(s ast.Stmt) bool {
	stmt, ok := s.(*ast.ExprStmt)
	if !ok {
		return false
	}
	expr := stmt.Expr
	for {
		switch e := expr.(type) {
		case *ast.UnaryOp:
			return true
		case *ast.BinaryOp:
			if needsParens(e.Left, e.Op, false) {
				return true
			}
			expr = e.Left
		default:
			return false
		}
	}
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		if expr.IsFloat {
			return formatFloatLiteral(expr.Float)
		}
		return strconv.FormatInt(expr.Int, 10)
	case *ast.StringLiteral:
		// Strings are raw; there is no escape syntax to apply.
		return `"` + expr.Value + `"`
	case *ast.VarAccess:
		return expr.Name
	case *ast.FuncCall:
		args := make([]string, len(expr.Args))
		for i, arg := range expr.Args {
			args[i] = formatExpr(arg)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.BinaryOp:
		leftStr := formatExpr(expr.Left)
		rightStr := formatExpr(expr.Right)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.UnaryOp:
		operandStr := formatExpr(expr.Operand)
		switch expr.Operand.(type) {
		case *ast.BinaryOp, *ast.UnaryOp:
			return "-(" + operandStr + ")"
		}
		return "-" + operandStr
	}
	return ""
}

// formatFloatLiteral renders a float so that it lexes back as a float:
// plain decimal notation with at least one fractional digit.
func formatFloatLiteral(value float64) string {
	raw := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}
