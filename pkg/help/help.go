// Package help holds the mini quick reference and help topics shown by
// `mini help`.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the language version shown in the quick reference.
const Version = "v0.1"

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "types", "flow", "functions", "diagnostics", "config", "examples"}

// QUICKREF is printed by `mini help` with no topic.
var QUICKREF = `mini ` + Version + ` quick reference

  x = 1 + 2 * 3          assignment (optional "var" prefix)
  print(x)               write a line to stdout
  if (x > 5) { ... } else { ... }
  while (x > 0) { x = x - 1 }
  func add(a, b) { return a + b }
  # comment to end of line

Commands: run, check, fmt, repl, trace, help, config

Topics: ` + strings.Join(TopicList, ", ") + `
Run "mini help <topic>" for details; a unique prefix is enough.
`

// Topics maps a topic name to its help text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Statements are separated by newlines or an optional ";".
  name = expr            bind name in the current scope
  var name = expr        same as above
  print(expr)            print exactly one value
  expr                   expression statement (value is discarded)

Expressions, loosest to tightest binding:
  == != > < >= <=        comparison
  + -                    additive
  * /                    multiplicative
  -x                     unary minus
  literal, name, call(args), (expr)

Literals: 12 (int), 12.5 (float), "text" (no escape sequences).
"for" is reserved and rejected; use while.
`,

	"types": `TYPES

  int      64-bit integer             12
  float    64-bit IEEE float          12.5
  string   raw text                   "hi"
  bool     result of a comparison     1 < 2
  function bound by func              func f() {}

Arithmetic: int op int stays int for + - *; any float makes a float.
"/" always produces a float; dividing by zero is E_DIVISION_BY_ZERO.
Int results outside the 64-bit range are E_INT_OVERFLOW; integer literals
outside it are a parse error.
"+" on two strings concatenates.
== and != compare ints and floats numerically; values of unrelated types
are never equal.

Truthiness: 0, 0.0, "" and false are falsy; everything else is truthy.
`,

	"flow": `CONTROL FLOW

  if (cond) { ... }
  if (cond) { ... } else if (cond) { ... } else { ... }
  while (cond) { ... }

Blocks do not open a new scope; assignments inside an if or while body
are visible after it. A top-level return ends the program.
limits.max_iterations bounds the total number of loop iterations.
`,

	"functions": `FUNCTIONS

  func name(a, b) { return a + b }

Calls evaluate arguments left to right. Each call gets a fresh scope whose
parent is the global scope: a function sees globals and its parameters,
never its caller's locals. Assignment inside a function binds locally.

A function that finishes without "return value" produces no value; using
that result in an expression is E_TYPE_MISMATCH.
Recursion depth is bounded by limits.max_call_depth (default 1000, at most 100000).
`,

	"diagnostics": `DIAGNOSTICS

  E_LEX                 illegal character or unterminated string (exit 2)
  E_PARSE               syntax error (exit 2)
  E_UNDEFINED_VARIABLE  name is not bound (exit 4)
  E_UNDEFINED_FUNCTION  call to an unknown function (exit 4)
  E_NOT_CALLABLE        call of a non-function value (exit 4)
  E_ARITY_MISMATCH      wrong number of arguments (exit 4)
  E_TYPE_MISMATCH       unsupported operand types or no value (exit 4)
  E_DIVISION_BY_ZERO    division by zero (exit 4)
  E_BUDGET              call depth or iteration limit exceeded (exit 4)
  E_INT_OVERFLOW        int arithmetic left the 64-bit range (exit 4)
  E_IO                  file could not be read or written (exit 1)

check only (warnings; check still exits 0 when these are all it finds):
  E_FN_DUP              function defined twice on one path through a scope
  E_RETURN_OUTSIDE_FUNC return at top level

Output printed before a runtime error is kept.
`,

	"config": `CONFIG

mini reads YAML configuration from the first of:
  --config <path>, ./.mini.yaml, ~/.mini/config.yaml
Unknown keys are errors.

  limits:
    max_call_depth: 1000
    max_iterations: 0      # 0 = unlimited
  output:
    pretty: false
  log_level: info          # debug, verbose, info, warning, error
  repl:
    history_file: ~/.mini/history
    prompt: "mini> "

"mini config" prints the effective configuration.
`,

	"examples": `EXAMPLES

  func add(a, b) { return a + b }
  print(add(3, 4))                  # 7

  func fact(n) {
    if (n < 2) { return 1 }
    return n * fact(n - 1)
  }
  print(fact(10))                   # 3628800

  i = 0
  while (i < 3) { print(i); i = i + 1 }
`,
}

// MatchTopic resolves a topic name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q (available: %s)", query, strings.Join(TopicList, ", "))
	}
	sort.Strings(matches)
	return "", "", fmt.Errorf("ambiguous help topic %q (matches: %s)", query, strings.Join(matches, ", "))
}
