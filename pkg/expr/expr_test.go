package expr_test

import (
	"testing"

	"github.com/google/cel-go/cel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/pkg/expr"
)

func TestEnvironmentCompile(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment(
		cel.Variable("name", cel.StringType),
	)
	require.NoError(t, err)

	tests := map[string]struct {
		expression string
		name       string
		expected   bool
	}{
		"prefix match": {
			expression: `name.startsWith("prod-")`,
			name:       "prod-eu-1",
			expected:   true,
		},
		"prefix mismatch": {
			expression: `name.startsWith("prod-")`,
			name:       "staging-eu-1",
			expected:   false,
		},
		"membership": {
			expression: `name in ["minikube", "kind-kind"]`,
			name:       "kind-kind",
			expected:   true,
		},
		"strings extension": {
			expression: `name.lowerAscii().contains("dev")`,
			name:       "Team-DEV-2",
			expected:   true,
		},
		"regex match": {
			expression: `name.matches("^[a-z]+-[0-9]+$")`,
			name:       "prod-7",
			expected:   true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			program, err := env.Compile(tc.expression)
			require.NoError(t, err)

			result, _, err := program.Eval(map[string]any{"name": tc.name})
			require.NoError(t, err)

			boolVal, ok := result.Value().(bool)
			require.True(t, ok, "expression must return a boolean")
			assert.Equal(t, tc.expected, boolVal)
		})
	}
}

func TestEnvironmentCompileMapVariables(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment(
		cel.Variable("cluster", cel.MapType(cel.StringType, cel.DynType)),
	)
	require.NoError(t, err)

	program, err := env.Compile(`cluster.failing > 0 && !string(cluster.name).endsWith("-dev")`)
	require.NoError(t, err)

	result, _, err := program.Eval(map[string]any{
		"cluster": map[string]any{
			"name":    "prod-eu-1",
			"failing": 3,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, true, result.Value())
}

func TestEnvironmentCompileError(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment()
	require.NoError(t, err)

	_, err = env.Compile(`name.startsWith(`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile expression")
}

func TestEnvironmentUndeclaredVariable(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment()
	require.NoError(t, err)

	_, err = env.Compile(`undeclared == "x"`)
	require.Error(t, err)
}

func TestEvalBool(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment(
		cel.Variable("failing", cel.IntType),
	)
	require.NoError(t, err)

	tcs := map[string]struct {
		vars       map[string]any
		expression string
		want       bool
	}{
		"true": {
			expression: `failing > 0`,
			vars:       map[string]any{"failing": 2},
			want:       true,
		},
		"false": {
			expression: `failing > 0`,
			vars:       map[string]any{"failing": 0},
			want:       false,
		},
		"missing variable counts as false": {
			expression: `failing > 0`,
			vars:       map[string]any{},
			want:       false,
		},
		"non-boolean result counts as false": {
			expression: `failing + 1`,
			vars:       map[string]any{"failing": 1},
			want:       false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			program, err := env.Compile(tc.expression)
			require.NoError(t, err)

			assert.Equal(t, tc.want, expr.EvalBool(program, tc.vars))
		})
	}
}
