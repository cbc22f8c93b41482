package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// cel-go environment construction and compilation share global state that
// is not safe for concurrent use, so both run under one package mutex.
var celMu sync.Mutex

// Environment wraps a [*cel.Env] with the extension libraries loaded and
// compilation serialized.
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates an [Environment]. The opts declare the variables
// and types available to expressions.
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	celMu.Lock()
	defer celMu.Unlock()

	env, err := cel.NewEnv(append(opts, cel.Lib(&lib{}))...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &Environment{env: env}, nil
}

// Compile compiles expression into a runnable program.
//
//nolint:ireturn // cel.Program is an interface.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMu.Lock()
	defer celMu.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// EvalBool runs a compiled program against vars and reports whether it
// evaluated to true. Evaluation errors and non-boolean results come back
// as false.
func EvalBool(program cel.Program, vars map[string]any) bool {
	out, _, err := program.Eval(vars)
	if err != nil {
		return false
	}

	b, ok := out.Value().(bool)

	return ok && b
}
