package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; it should return an error for invalid input.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		`if else while for func return print`,
		`42 3.14 0 1.`,
		`"hello" "multi
line"`,
		`+ - * / > < >= <= == != =`,
		`( ) { } , ;`,
		`x foo bar_baz myVar`,
		`# this is a comment`,
		`x = 42;`,
		`func add(a, b) { return a + b; } print(add(3, 4));`,
		``,
		`   `,
		"\t\n\r",
		`"unterminated`,
		`"""`,
		`@#$^&`,
		`!`,
		`1.2.3`,
		"\xff\xfe",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		tokens, err := Tokenize(input, "fuzz.mini")
		if err != nil {
			if tokens != nil {
				t.Errorf("tokens returned alongside error %v", err)
			}
			if _, ok := err.(*LexError); !ok {
				t.Errorf("expected *LexError, got %T", err)
			}
			return
		}
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokEOF {
			t.Errorf("token stream must end with EOF")
		}
	})
}
