package evaluator

import "sort"

// Env is a scoped environment for variable and function bindings.
// It supports parent-chained lookup for lexical scoping.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
// The global environment is the one with a nil parent.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Parent returns the enclosing scope, or nil for the global environment.
func (e *Env) Parent() *Env {
	return e.parent
}

// Get looks up a name, starting here and walking parent scopes.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Set binds a name in this scope only.
func (e *Env) Set(name string, val Value) {
	e.bindings[name] = val
}

// Names returns the names bound directly in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
