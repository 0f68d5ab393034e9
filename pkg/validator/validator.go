// Package validator implements static checks over mini AST programs.
//
// The checks are advisory: the evaluator never runs them, and a program that
// fails validation may still execute. They back the `mini check` command.
package validator

import (
	"fmt"
	"maps"

	"github.com/thomasrohde/mini/pkg/ast"
	"github.com/thomasrohde/mini/pkg/diagnostics"
)

// symbols records every name the program can ever bind, by kind.
type symbols struct {
	funcs    map[string][]*ast.FuncDef
	assigned map[string]bool
	params   map[string]bool
}

func (s *symbols) bound(name string) bool {
	return len(s.funcs[name]) > 0 || s.assigned[name] || s.params[name]
}

// signature returns the single definition a call can resolve to, or nil
// when the name may be rebound at runtime.
func (s *symbols) signature(name string) *ast.FuncDef {
	defs := s.funcs[name]
	if len(defs) != 1 || s.assigned[name] || s.params[name] {
		return nil
	}
	return defs[0]
}

type validator struct {
	diags []diagnostics.Diagnostic
	syms  *symbols
}

// Validate performs static analysis on a mini program and returns diagnostics
// in source order.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{
		syms: &symbols{
			funcs:    make(map[string][]*ast.FuncDef),
			assigned: make(map[string]bool),
			params:   make(map[string]bool),
		},
	}

	v.collect(program.Statements)
	v.validateBody(program.Statements, false)

	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

// collect gathers every binding in the program, at any depth.
func (v *validator) collect(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.VarAssign:
			v.syms.assigned[s.Name] = true
		case *ast.FuncDef:
			v.syms.funcs[s.Name] = append(v.syms.funcs[s.Name], s)
			for _, p := range s.Params {
				v.syms.params[p] = true
			}
			v.collect(s.Body)
		case *ast.If:
			v.collect(s.Then)
			v.collect(s.Else)
		case *ast.While:
			v.collect(s.Body)
		}
	}
}

// validateBody checks one scope: the program, or a single function body.
// Nested if/while blocks belong to the enclosing scope.
func (v *validator) validateBody(stmts []ast.Stmt, inFunc bool) {
	defined := make(map[string]ast.Span)
	v.validateStatements(stmts, inFunc, defined)
}

func (v *validator) validateStatements(stmts []ast.Stmt, inFunc bool, defined map[string]ast.Span) {
	for _, stmt := range stmts {
		v.validateStmt(stmt, inFunc, defined)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt, inFunc bool, defined map[string]ast.Span) {
	switch s := stmt.(type) {
	case *ast.VarAssign:
		v.validateExpr(s.Value)

	case *ast.FuncDef:
		if first, dup := defined[s.Name]; dup {
			v.addDiag(diagnostics.EFnDup,
				fmt.Sprintf("function '%s' is already defined at line %d", s.Name, first.StartLine), s.Span)
		} else {
			defined[s.Name] = s.Span
		}
		v.validateBody(s.Body, true)

	case *ast.If:
		v.validateExpr(s.Cond)
		// Each branch may define its own version of a function; only
		// definitions that collide on one path are duplicates.
		thenDefs, elseDefs := maps.Clone(defined), maps.Clone(defined)
		v.validateStatements(s.Then, inFunc, thenDefs)
		v.validateStatements(s.Else, inFunc, elseDefs)
		for _, branch := range []map[string]ast.Span{thenDefs, elseDefs} {
			for name, span := range branch {
				if _, ok := defined[name]; !ok {
					defined[name] = span
				}
			}
		}

	case *ast.While:
		v.validateExpr(s.Cond)
		v.validateStatements(s.Body, inFunc, defined)

	case *ast.Return:
		if !inFunc {
			v.addDiag(diagnostics.EReturnOutsideFunc, "return outside of a function ends the program", s.Span)
		}
		if s.Value != nil {
			v.validateExpr(s.Value)
		}

	case *ast.Print:
		v.validateExpr(s.Value)

	case *ast.ExprStmt:
		v.validateExpr(s.Expr)
	}
}

func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral:
		// literals are always valid

	case *ast.VarAccess:
		if !v.syms.bound(e.Name) {
			v.addDiag(diagnostics.EUndefinedVariable, fmt.Sprintf("variable '%s' is never assigned", e.Name), e.Span)
		}

	case *ast.BinaryOp:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)

	case *ast.UnaryOp:
		v.validateExpr(e.Operand)

	case *ast.FuncCall:
		v.validateCall(e)
		for _, arg := range e.Args {
			v.validateExpr(arg)
		}
	}
}

func (v *validator) validateCall(call *ast.FuncCall) {
	if !v.syms.bound(call.Name) {
		v.addDiag(diagnostics.EUndefinedFunction, fmt.Sprintf("unknown function '%s'", call.Name), call.Span)
		return
	}
	decl := v.syms.signature(call.Name)
	if decl == nil {
		return
	}
	if len(call.Args) != len(decl.Params) {
		v.addDiag(diagnostics.EArityMismatch,
			fmt.Sprintf("function '%s' expects %d argument(s), got %d", call.Name, len(decl.Params), len(call.Args)),
			call.Span)
	}
}
