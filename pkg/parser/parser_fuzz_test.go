package parser_test

import (
	"errors"
	"testing"

	"github.com/thomasrohde/mini/pkg/lexer"
	"github.com/thomasrohde/mini/pkg/parser"
)

// FuzzParse checks that the parser never panics and always reports failures
// as one of the two typed errors.
func FuzzParse(f *testing.F) {
	seeds := []string{
		// Function definition and call
		`func add(a, b) { return a + b; } print(add(3, 4));`,
		// Control flow
		`x = 5
while (x > 0) { print(x); x = x - 1; }`,
		`if (x == 1) { print("one") } else if (x == 2) { print("two") } else { print("many") }`,
		// Arithmetic
		`print(2 + 3 * 4)`,
		`print(-(1 - 2) / 3.5)`,
		// Comments
		`# comment
print(42)`,
		// Empty program
		``,
		// Just whitespace
		`   `,
		// Unclosed brace
		`func f() {`,
		// Unclosed paren
		`print((1 + 2)`,
		// Unterminated string
		`print("hello`,
		// Reserved keyword
		`for (i) { }`,
		// Stray tokens
		`) } , ; = ==`,
		`return`,
		`var var = var`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("parser.Parse panicked on input %q: %v", input, r)
				}
			}()
			prog, err := parser.Parse(input, "fuzz.mini")
			if err == nil {
				if prog == nil {
					t.Fatal("nil program without error")
				}
				return
			}
			var pe *parser.ParseError
			var le *lexer.LexError
			if !errors.As(err, &pe) && !errors.As(err, &le) {
				t.Fatalf("unexpected error type %T", err)
			}
		}()
	})
}
