package fleet

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/stefanprodan/kswitch-sub001/pkg/expr"
)

// Rule uses a CEL expression to decide whether fleet behavior applies to a
// cluster, e.g. which contexts a sweep includes or which transitions may
// notify.
//
// CEL expressions have access to variables:
//   - `name` (string): the context name
//   - `reachable` (bool): the cluster answered its last check
//   - `degraded` (bool): something on the cluster needs attention
//   - `failing` (int): failing reconciler count from the last check
//   - `favorite` (bool): the context is pinned
//   - `hidden` (bool): the context is hidden from displays
//
// CEL expressions must return a boolean value:
//   - name.startsWith("prod-") - true for production contexts
//   - favorite || failing > 0 - favorites, plus anything failing
//   - !name.contains("sandbox") - everything except sandboxes
//
// CEL also provides standard functions like `endsWith`, `contains`,
// `startsWith`, `matches`, along with logical operators like `&&`, `||`,
// and `!`.
type Rule struct {
	program cel.Program

	// Expression is a CEL expression evaluated against one cluster.
	Expression string `json:"expression" jsonschema:"title=Expression"`
}

// NewRule creates a compiled rule.
func NewRule(expression string) (*Rule, error) {
	r := &Rule{Expression: expression}

	err := r.Compile()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", expression, err)
	}

	return r, nil
}

// MustNewRule creates a new rule and panics if there's an error.
func MustNewRule(expression string) *Rule {
	r, err := NewRule(expression)
	if err != nil {
		panic(err)
	}

	return r
}

// Compile compiles the rule's expression into a CEL program. Rules decoded
// from configuration call this once after loading.
func (r *Rule) Compile() error {
	if r.program != nil {
		return nil
	}

	env, err := expr.NewEnvironment(
		cel.Variable("name", cel.StringType),
		cel.Variable("reachable", cel.BoolType),
		cel.Variable("degraded", cel.BoolType),
		cel.Variable("failing", cel.IntType),
		cel.Variable("favorite", cel.BoolType),
		cel.Variable("hidden", cel.BoolType),
	)
	if err != nil {
		return fmt.Errorf("create CEL environment: %w", err)
	}

	program, err := env.Compile(r.Expression)
	if err != nil {
		return fmt.Errorf("compile expression: %w", err)
	}

	r.program = program

	return nil
}

// Match evaluates the rule against a cluster. A status of nil stands for a
// never-checked cluster. Evaluation errors and non-boolean results count as
// a non-match.
func (r *Rule) Match(cc ClusterContext, st *ClusterStatus) bool {
	if r.program == nil {
		panic(errors.New("rule was not compiled"))
	}

	vars := map[string]any{
		"name":      cc.Name,
		"reachable": false,
		"degraded":  false,
		"failing":   0,
		"favorite":  cc.Favorite,
		"hidden":    cc.Hidden,
	}
	if st != nil {
		vars["reachable"] = st.Reachability == ReachabilityReachable
		vars["degraded"] = st.IsDegraded()
		vars["failing"] = st.FailingReconcilers()
	}

	return expr.EvalBool(r.program, vars)
}
