// Package parser implements the mini language parser.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/thomasrohde/mini/pkg/ast"
	"github.com/thomasrohde/mini/pkg/diagnostics"
	"github.com/thomasrohde/mini/pkg/lexer"
)

// ParseError reports the first structural mismatch found by the parser.
// Expected describes what the grammar required at that point and Got is the
// token actually found.
type ParseError struct {
	Diag     diagnostics.Diagnostic
	Expected string
	Got      lexer.Token
}

func (e *ParseError) Error() string {
	if e.Diag.Span != nil {
		return fmt.Sprintf("%d:%d: %s", e.Diag.Span.StartLine, e.Diag.Span.StartCol, e.Diag.Message)
	}
	return e.Diag.Message
}

// IsIncomplete reports whether err was caused by input ending too early,
// such as an unclosed block or string. Interactive callers use it to ask
// for more input instead of reporting the error.
func IsIncomplete(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Got.Type == lexer.TokEOF
	}
	var le *lexer.LexError
	if errors.As(err, &le) {
		return le.Char == '"'
	}
	return false
}

type parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes source and parses it into an AST.
// The returned error is a *lexer.LexError or a *ParseError.
func Parse(source, filename string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses a token stream produced by lexer.Tokenize.
func ParseTokens(tokens []lexer.Token) (*ast.Program, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		var eofSpan ast.Span
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1].Span
			eofSpan = ast.Span{File: last.File, StartLine: last.EndLine, StartCol: last.EndCol, EndLine: last.EndLine, EndCol: last.EndCol}
		}
		tokens = append(tokens[:len(tokens):len(tokens)], lexer.Token{Type: lexer.TokEOF, Span: eofSpan})
	}
	p := &parser{tokens: tokens, pos: 0}
	return p.parseProgram()
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it has type typ.
func (p *parser) expect(typ lexer.TokenType) (lexer.Token, error) {
	tok := p.current()
	if tok.Type != typ {
		return tok, p.errorf(tokenName(typ), tok, "expected %s, got %s", tokenName(typ), describe(tok))
	}
	return p.advance(), nil
}

func (p *parser) errorf(expected string, got lexer.Token, format string, args ...any) error {
	span := got.Span
	return &ParseError{
		Diag:     diagnostics.MakeDiag(diagnostics.EParse, fmt.Sprintf(format, args...), &span, ""),
		Expected: expected,
		Got:      got,
	}
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// prevSpan is the span of the most recently consumed token.
func (p *parser) prevSpan() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLCurly:
		return "'{'"
	case lexer.TokRCurly:
		return "'}'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokComma:
		return "','"
	case lexer.TokAssign:
		return "'='"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokNumber:
		return "number"
	case lexer.TokString:
		return "string"
	case lexer.TokEOF:
		return "end of input"
	default:
		return t.String()
	}
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokEOF:
		return "end of input"
	case lexer.TokString:
		return fmt.Sprintf("string %q", tok.Value)
	default:
		return fmt.Sprintf("'%s'", tok.Value)
	}
}

// --- Program ---

func (p *parser) parseProgram() (*ast.Program, error) {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	return &ast.Program{
		Span:       p.spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}, nil
}

// --- Statements ---

func (p *parser) parseStmt() (ast.Stmt, error) {
	stmt, err := p.parseStmtNoTerminator()
	if err != nil {
		return nil, err
	}
	if p.peek() == lexer.TokSemicolon {
		p.advance()
	}
	return stmt, nil
}

func (p *parser) parseStmtNoTerminator() (ast.Stmt, error) {
	tok := p.current()
	if tok.Type == lexer.TokKeyword {
		switch tok.Value {
		case "func":
			return p.parseFuncDef()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "return":
			return p.parseReturn()
		case "print":
			return p.parsePrint()
		case "for":
			return nil, p.errorf("statement", tok, "for loops are not supported; use while")
		default:
			return nil, p.errorf("statement", tok, "unexpected keyword '%s'", tok.Value)
		}
	}

	if tok.Type == lexer.TokIdent {
		// var name = expr
		if tok.Value == "var" && p.peekAt(1).Type == lexer.TokIdent && p.peekAt(2).Type == lexer.TokAssign {
			start := p.advance()
			return p.parseAssign(start.Span)
		}
		if p.peekAt(1).Type == lexer.TokAssign {
			return p.parseAssign(tok.Span)
		}
	}

	if tok.Type == lexer.TokSemicolon {
		return nil, p.errorf("statement", tok, "empty statement")
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Span: expr.NodeSpan(), Expr: expr}, nil
}

func (p *parser) parseAssign(start ast.Span) (*ast.VarAssign, error) {
	nameTok, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.VarAssign{
		Span:  p.spanFromTo(start, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}, nil
}

func (p *parser) parseFuncDef() (*ast.FuncDef, error) {
	start := p.advance() // consume 'func'
	nameTok, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	var params []string
	seen := make(map[string]bool)
	if p.peek() != lexer.TokRParen {
		for {
			paramTok, err := p.expect(lexer.TokIdent)
			if err != nil {
				return nil, err
			}
			if seen[paramTok.Value] {
				return nil, p.errorf("identifier", paramTok, "duplicate parameter '%s' in function '%s'", paramTok.Value, nameTok.Value)
			}
			seen[paramTok.Value] = true
			params = append(params, paramTok.Value)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.FuncDef{
		Span:   p.spanFromTo(start.Span, p.prevSpan()),
		Name:   nameTok.Value,
		Params: params,
		Body:   body,
	}, nil
}

func (p *parser) parseCondition() (ast.Expr, error) {
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *parser) parseIf() (*ast.If, error) {
	start := p.advance() // consume 'if'
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseBody []ast.Stmt
	if p.current().Is("else") {
		p.advance()
		if p.current().Is("if") {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			elseBody = []ast.Stmt{nested}
		} else {
			elseBody, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
			if elseBody == nil {
				elseBody = []ast.Stmt{}
			}
		}
	}

	return &ast.If{
		Span: p.spanFromTo(start.Span, p.prevSpan()),
		Cond: cond,
		Then: then,
		Else: elseBody,
	}, nil
}

func (p *parser) parseWhile() (*ast.While, error) {
	start := p.advance() // consume 'while'
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{
		Span: p.spanFromTo(start.Span, p.prevSpan()),
		Cond: cond,
		Body: body,
	}, nil
}

func (p *parser) parseReturn() (*ast.Return, error) {
	start := p.advance() // consume 'return'
	switch p.peek() {
	case lexer.TokSemicolon, lexer.TokRCurly, lexer.TokEOF:
		return &ast.Return{Span: start.Span}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Return{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Value: value,
	}, nil
}

func (p *parser) parsePrint() (*ast.Print, error) {
	start := p.advance() // consume 'print'
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.TokRParen)
	if err != nil {
		return nil, err
	}
	return &ast.Print{
		Span:  p.spanFromTo(start.Span, end.Span),
		Value: value,
	}, nil
}

// --- Block ---

func (p *parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.TokLCurly); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.peek() != lexer.TokRCurly && p.peek() != lexer.TokEOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(lexer.TokRCurly); err != nil {
		return nil, err
	}
	return stmts, nil
}

// --- Precedence climbing ---

func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseComparison()
}

func comparisonOp(tok lexer.Token) (ast.Operator, bool) {
	if tok.Type == lexer.TokEq {
		return ast.OpEqEq, true
	}
	if tok.Type != lexer.TokOperator {
		return "", false
	}
	switch tok.Value {
	case ">":
		return ast.OpGt, true
	case "<":
		return ast.OpLt, true
	case ">=":
		return ast.OpGtEq, true
	case "<=":
		return ast.OpLtEq, true
	case "!=":
		return ast.OpNeq, true
	}
	return "", false
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := comparisonOp(p.current())
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokMultiply:
			op = ast.OpMul
		case lexer.TokDivide:
			op = ast.OpDiv
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.peek() == lexer.TokMinus {
		start := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{
			Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
			Operand: operand,
		}, nil
	}
	return p.parseFactor()
}

func (p *parser) parseFactor() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen); err != nil {
			return nil, err
		}
		return expr, nil

	case lexer.TokNumber:
		return p.parseNumber()

	case lexer.TokString:
		p.advance()
		return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}, nil

	case lexer.TokIdent:
		p.advance()
		if p.peek() == lexer.TokLParen {
			return p.parseCallArgs(tok)
		}
		return &ast.VarAccess{Span: tok.Span, Name: tok.Value}, nil

	default:
		return nil, p.errorf("expression", tok, "unexpected %s, expected an expression", describe(tok))
	}
}

func (p *parser) parseNumber() (ast.Expr, error) {
	tok := p.advance()
	if tok.IsFloat {
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("number", tok, "invalid number '%s'", tok.Value)
		}
		return &ast.NumberLiteral{Span: tok.Span, IsFloat: true, Float: val}, nil
	}
	val, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, p.errorf("number", tok,
			"integer literal '%s' out of range (integers are 64-bit; add '.0' for a float)", tok.Value)
	}
	return &ast.NumberLiteral{Span: tok.Span, Int: val}, nil
}

func (p *parser) parseCallArgs(name lexer.Token) (*ast.FuncCall, error) {
	p.advance() // consume '('
	var args []ast.Expr
	if p.peek() != lexer.TokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
	}
	end, err := p.expect(lexer.TokRParen)
	if err != nil {
		return nil, err
	}
	return &ast.FuncCall{
		Span: p.spanFromTo(name.Span, end.Span),
		Name: name.Value,
		Args: args,
	}, nil
}
