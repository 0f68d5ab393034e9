// Package lexer implements the mini language tokenizer.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/thomasrohde/mini/pkg/ast"
	"github.com/thomasrohde/mini/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	TokNumber TokenType = iota
	TokString
	TokIdent
	TokKeyword
	TokOperator // > < >= <= !=

	// Punctuation
	TokLParen    // (
	TokRParen    // )
	TokLCurly    // {
	TokRCurly    // }
	TokComma     // ,
	TokSemicolon // ;
	TokAssign    // =
	TokEq        // ==

	// Arithmetic operators
	TokPlus     // +
	TokMinus    // -
	TokMultiply // *
	TokDivide   // /

	// Special
	TokEOF
)

var tokenNames = [...]string{
	TokNumber:    "NUMBER",
	TokString:    "STRING",
	TokIdent:     "IDENTIFIER",
	TokKeyword:   "KEYWORD",
	TokOperator:  "OPERATOR",
	TokLParen:    "LPAREN",
	TokRParen:    "RPAREN",
	TokLCurly:    "LCURLY",
	TokRCurly:    "RCURLY",
	TokComma:     "COMMA",
	TokSemicolon: "SEMICOLON",
	TokAssign:    "ASSIGN",
	TokEq:        "EQ",
	TokPlus:      "PLUS",
	TokMinus:     "MINUS",
	TokMultiply:  "MULTIPLY",
	TokDivide:    "DIVIDE",
	TokEOF:       "EOF",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single lexer token.
// IsFloat is only meaningful for TokNumber.
type Token struct {
	Type    TokenType
	Value   string
	IsFloat bool
	Span    ast.Span
}

// Keywords lists the reserved words of the language.
var Keywords = map[string]bool{
	"if":     true,
	"else":   true,
	"while":  true,
	"for":    true,
	"func":   true,
	"return": true,
	"print":  true,
}

// Is reports whether the token is the keyword kw.
func (t Token) Is(kw string) bool {
	return t.Type == TokKeyword && t.Value == kw
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

// scanString reads a raw string literal; there are no escape sequences.
func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // consume opening "

	start := s.pos
	for !s.atEnd() {
		if s.peek() == '"' {
			value := s.source[start:s.pos]
			s.advance() // consume closing "
			return Token{
				Type:  TokString,
				Value: value,
				Span:  s.span(startLine, startCol),
			}, nil
		}
		s.advance()
	}
	return Token{}, s.lexError(startLine, startCol, start-1, '"', "unterminated string literal")
}

// scanNumber consumes digits and at most one '.'.
func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() {
		ch := s.peek()
		if isDigit(ch) {
			s.advance()
		} else if ch == '.' && !isFloat {
			isFloat = true
			s.advance()
		} else {
			break
		}
	}

	return Token{
		Type:    TokNumber,
		Value:   s.source[startPos:s.pos],
		IsFloat: isFloat,
		Span:    s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	typ := TokIdent
	if Keywords[text] {
		typ = TokKeyword
	}
	return Token{
		Type:  typ,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col, offset int, ch rune, msg string) error {
	span := ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}
	diag := diagnostics.MakeDiag(diagnostics.ELex, msg, &span, "")
	return &LexError{Diag: diag, Char: ch, Offset: offset}
}

// LexError wraps a diagnostic for lex errors. Char is the offending
// character and Offset its byte offset in the source.
type LexError struct {
	Diag   diagnostics.Diagnostic
	Char   rune
	Offset int
}

func (e *LexError) Error() string {
	if e.Diag.Span != nil {
		return fmt.Sprintf("%d:%d: %s", e.Diag.Span.StartLine, e.Diag.Span.StartCol, e.Diag.Message)
	}
	return e.Diag.Message
}

func (s *scanner) single(typ TokenType) Token {
	startLine, startCol := s.line, s.col
	ch := s.advance()
	return Token{Type: typ, Value: string(ch), Span: s.span(startLine, startCol)}
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	// Single-char tokens
	switch ch {
	case '(':
		return s.single(TokLParen), nil
	case ')':
		return s.single(TokRParen), nil
	case '{':
		return s.single(TokLCurly), nil
	case '}':
		return s.single(TokRCurly), nil
	case ',':
		return s.single(TokComma), nil
	case ';':
		return s.single(TokSemicolon), nil
	case '+':
		return s.single(TokPlus), nil
	case '-':
		return s.single(TokMinus), nil
	case '*':
		return s.single(TokMultiply), nil
	case '/':
		return s.single(TokDivide), nil
	}

	// Multi-char tokens
	switch ch {
	case '=':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokEq, Value: "==", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokAssign, Value: "=", Span: s.span(startLine, startCol)}, nil

	case '>', '<':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokOperator, Value: string(ch) + "=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokOperator, Value: string(ch), Span: s.span(startLine, startCol)}, nil

	case '!':
		if s.peekAt(1) == '=' {
			s.advance()
			s.advance()
			return Token{Type: TokOperator, Value: "!=", Span: s.span(startLine, startCol)}, nil
		}
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}

	if ch == '"' {
		return s.scanString()
	}

	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return Token{}, s.lexError(startLine, startCol, s.pos, r, fmt.Sprintf("illegal character %q", r))
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
// It is all-or-nothing: on error no tokens are returned.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
