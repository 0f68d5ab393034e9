package evaluator

import "github.com/thomasrohde/mini/pkg/ast"

// Session executes a sequence of programs against one global environment,
// so definitions made by earlier inputs stay visible to later ones.
type Session struct {
	globals *Env
	opts    ExecOptions
}

// NewSession creates a session with a fresh global environment.
func NewSession(opts ExecOptions) *Session {
	return &Session{
		globals: NewEnv(nil),
		opts:    opts,
	}
}

// Exec runs one program in the session. Bindings made before a runtime
// error are kept.
func (s *Session) Exec(program *ast.Program) (*ExecResult, error) {
	return Execute(program, s.globals, s.opts)
}

// Globals returns the session's global environment.
func (s *Session) Globals() *Env {
	return s.globals
}
