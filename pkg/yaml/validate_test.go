package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goccyyaml "github.com/goccy/go-yaml"

	"github.com/stefanprodan/kswitch-sub001/pkg/yaml"
)

func mustBuildPath(t *testing.T, parts ...string) *goccyyaml.Path {
	t.Helper()

	current := yaml.NewPathBuilder().Root()
	for _, part := range parts {
		current = current.Child(part)
	}

	return current.Build()
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want string
		err  yaml.Error
	}{
		"with path": {
			err: yaml.Error{
				Err:  errors.New("value is required"),
				Path: mustBuildPath(t, "fleet", "refreshInterval"),
			},
			want: "error at $.fleet.refreshInterval: value is required",
		},
		"without path": {
			err: yaml.Error{
				Err: errors.New("validation error: value is required"),
			},
			want: "validation error: value is required",
		},
		"empty detail": {
			err: yaml.Error{
				Err:  errors.New(""),
				Path: mustBuildPath(t, "tasks"),
			},
			want: "error at $.tasks: ",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := tc.err.Error()
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewValidator(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		errMsg     string
		schemaData []byte
		wantErr    bool
	}{
		"valid schema": {
			schemaData: []byte(`{
				"type": "object",
				"properties": {
					"context": {"type": "string"},
					"priority": {"type": "number"}
				},
				"required": ["context"]
			}`),
			wantErr: false,
		},
		"invalid json": {
			schemaData: []byte(`{"invalid": json}`),
			wantErr:    true,
			errMsg:     "unmarshal schema",
		},
		"invalid schema": {
			schemaData: []byte(`{"type": "invalid_type"}`),
			wantErr:    true,
			errMsg:     "compile schema",
		},
		"empty schema": {
			schemaData: []byte(`{}`),
			wantErr:    false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			validator, err := yaml.NewValidator("test", tc.schemaData)

			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				assert.Nil(t, validator)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, validator)
			}
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	schemaData := []byte(`{
		"type": "object",
		"properties": {
			"context": {"type": "string"},
			"refreshSeconds": {"type": "number"},
			"labels": {
				"type": "array",
				"items": {"type": "string"}
			},
			"notifications": {
				"type": "object",
				"properties": {
					"rule": {"type": "string"}
				},
				"required": ["rule"]
			},
			"clusters": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"priority": {"type": "number"},
						"server": {"type": "string"},
						"tuning": {
							"type": "object",
							"properties": {
								"kubectlPath": {"type": "string"},
								"kubeconfig": {"type": "string"},
								"watchPaths": {
									"type": "array",
									"items": {"type": "string"}
								}
							},
							"required": ["kubectlPath", "kubeconfig"]
						}
					},
					"required": ["priority", "server", "tuning"]
				}
			},
			"windows": {
				"type": "array",
				"items": {
					"type": "array",
					"items": {"type": "number"}
				}
			}
		},
		"required": ["context"]
	}`)

	validator, err := yaml.NewValidator("test", schemaData)
	require.NoError(t, err)

	tcs := map[string]struct {
		data         any
		expectedPath string
		wantErr      bool
	}{
		"valid data": {
			data: map[string]any{
				"context":        "prod",
				"refreshSeconds": 30,
			},
			wantErr: false,
		},
		"missing required field": {
			data: map[string]any{
				"refreshSeconds": 30,
			},
			wantErr:      true,
			expectedPath: "$",
		},
		"wrong type for context": {
			data: map[string]any{
				"context":        123,
				"refreshSeconds": 30,
			},
			wantErr:      true,
			expectedPath: "$.context",
		},
		"wrong type for refreshSeconds": {
			data: map[string]any{
				"context":        "prod",
				"refreshSeconds": "thirty",
			},
			wantErr:      true,
			expectedPath: "$.refreshSeconds",
		},
		"invalid array item": {
			data: map[string]any{
				"context": "prod",
				"labels":  []any{"env:prod", 123, "region:eu"},
			},
			wantErr:      true,
			expectedPath: "$.labels[1]",
		},
		"nested object validation error": {
			data: map[string]any{
				"context": "prod",
				"notifications": map[string]any{
					"channel": "desktop",
				},
			},
			wantErr:      true,
			expectedPath: "$.notifications",
		},
		"valid array of objects": {
			data: map[string]any{
				"context": "prod",
				"clusters": []any{
					map[string]any{
						"priority": 1,
						"server":   "https://prod.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/prod",
						},
					},
					map[string]any{
						"priority": 2,
						"server":   "https://stage.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/stage",
							"watchPaths":  []any{"/home/dev/.kube/prod", "/home/dev/.kube/stage"},
						},
					},
				},
			},
			wantErr: false,
		},
		"invalid object in array": {
			data: map[string]any{
				"context": "prod",
				"clusters": []any{
					map[string]any{
						"priority": 1,
						"server":   "https://prod.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/prod",
						},
					},
					map[string]any{
						"priority": "high", // should be number
						"server":   "https://stage.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/stage",
						},
					},
				},
			},
			wantErr:      true,
			expectedPath: "$.clusters[1].priority",
		},
		"missing required field in nested object within array": {
			data: map[string]any{
				"context": "prod",
				"clusters": []any{
					map[string]any{
						"priority": 1,
						"server":   "https://prod.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							// missing kubeconfig
						},
					},
				},
			},
			wantErr:      true,
			expectedPath: "$.clusters[0].tuning",
		},
		"invalid path in deeply nested array": {
			data: map[string]any{
				"context": "prod",
				"clusters": []any{
					map[string]any{
						"priority": 1,
						"server":   "https://prod.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/prod",
							"watchPaths": []any{
								"/home/dev/.kube/prod",
								123, // should be string
								"/home/dev/.kube/stage",
							},
						},
					},
				},
			},
			wantErr:      true,
			expectedPath: "$.clusters[0].tuning.watchPaths[1]",
		},
		"valid windows (2D array)": {
			data: map[string]any{
				"context": "prod",
				"windows": []any{
					[]any{1, 2, 3},
					[]any{4, 5, 6},
					[]any{7, 8, 9},
				},
			},
			wantErr: false,
		},
		"invalid element in 2D array": {
			data: map[string]any{
				"context": "prod",
				"windows": []any{
					[]any{1, 2, 3},
					[]any{4, "noon", 6}, // should be number
					[]any{7, 8, 9},
				},
			},
			wantErr:      true,
			expectedPath: "$.windows[1][1]",
		},
		"missing server in second cluster": {
			data: map[string]any{
				"context": "prod",
				"clusters": []any{
					map[string]any{
						"priority": 1,
						"server":   "https://prod.example.com:6443",
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/prod",
						},
					},
					map[string]any{
						"priority": 2,
						// missing server
						"tuning": map[string]any{
							"kubectlPath": "/usr/local/bin/kubectl",
							"kubeconfig":  "/home/dev/.kube/stage",
						},
					},
				},
			},
			wantErr:      true,
			expectedPath: "$.clusters[1]",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate(tc.data)

			if tc.wantErr {
				require.Error(t, err)

				var validationErr *yaml.Error
				require.ErrorAs(t, err, &validationErr)
				assert.NotNil(t, validationErr.Path)
				assert.Equal(t, tc.expectedPath, validationErr.Path.String())
			} else {
				require.NoError(t, err)
			}
		})
	}
}
