package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs"
	"github.com/stefanprodan/kswitch-sub001/pkg/config"
)

func TestNewLoaderFromFile(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		setupFile func(t *testing.T) string
		wantErr   bool
	}{
		"valid file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				content := `apiVersion: kswitch.dev/v1beta1
kind: Configuration
`

				return createTempFile(t, content)
			},
			wantErr: false,
		},
		"non-existent file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return "/non/existent/file.yaml"
			},
			wantErr: true,
		},
		"directory instead of file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return t.TempDir()
			},
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := tc.setupFile(t)

			got, err := config.NewLoaderFromFile(path, configs.New, configs.DefaultValidator)

			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, got)
			}
		})
	}
}

func TestNewLoaderFromBytes(t *testing.T) {
	t.Parallel()

	input := `apiVersion: kswitch.dev/v1beta1
kind: Configuration
fleet:
  refreshInterval: 10s
  include:
    expression: '!hidden'
  notifications:
    enabled: true
    rules:
      - expression: favorite
tasks:
  suffix: .task.sh
`

	cl := config.NewLoaderFromBytes([]byte(input), configs.New, configs.DefaultValidator)
	require.NotNil(t, cl)

	err := cl.Validate()
	require.NoError(t, err)

	cfg, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, "kswitch.dev/v1beta1", cfg.GetAPIVersion())
	assert.Equal(t, "Configuration", cfg.GetKind())
	assert.Equal(t, "!hidden", cfg.Fleet.Include.Expression)
}

func TestLoader_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		errMsg  string
		wantErr bool
	}{
		"valid config": {
			input: `apiVersion: kswitch.dev/v1beta1
kind: Configuration
fleet:
  notifications:
    rules:
      - expression: favorite || failing > 0
`,
			wantErr: false,
		},
		"invalid yaml": {
			input: `apiVersion: kswitch.dev/v1beta1
kind: Configuration
invalid: [unclosed
`,
			wantErr: true,
			errMsg:  "sequence end token ']' not found",
		},
		"missing required fields": {
			input: `fleet:
  refreshInterval: 10s
`,
			wantErr: true,
			errMsg:  "missing properties 'apiVersion', 'kind'",
		},
		"wrong type for expression": {
			input: `apiVersion: kswitch.dev/v1beta1
kind: Configuration
fleet:
  include:
    expression: 123
`,
			wantErr: true,
			errMsg:  "want string",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewLoaderFromBytes([]byte(tc.input), configs.New, configs.DefaultValidator)

			err := cl.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		errMsg  string
		wantErr bool
	}{
		"valid config": {
			input: `apiVersion: kswitch.dev/v1beta1
kind: Configuration
fleet:
  refreshInterval: 1m
`,
			wantErr: false,
		},
		"invalid yaml": {
			input: `apiVersion: kswitch.dev/v1beta1
kind: Configuration
invalid: [unclosed
`,
			wantErr: true,
			errMsg:  "sequence end token ']' not found",
		},
		"missing required fields still loads": {
			// Load() only parses YAML, it doesn't validate schema.
			// Use Validate() to check schema requirements.
			input: `fleet:
  refreshInterval: 10s
`,
			wantErr: false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewLoaderFromBytes([]byte(tc.input), configs.New, configs.DefaultValidator)

			cfg, err := cl.Load()
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, cfg)
			}
		})
	}
}

func TestLoader_NilValidator(t *testing.T) {
	t.Parallel()

	input := `apiVersion: kswitch.dev/v1beta1
kind: Configuration
`

	// A nil validator skips schema validation entirely.
	cl := config.NewLoaderFromBytes([]byte(input), configs.New, nil)
	require.NotNil(t, cl)

	err := cl.Validate()
	require.NoError(t, err)
}

// createTempFile creates a temporary file with the given content.
func createTempFile(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)

	err = tmpFile.Close()
	require.NoError(t, err)

	return tmpFile.Name()
}

func TestLoader_LoadCallsEnsureDefaults(t *testing.T) {
	t.Parallel()

	// Config with only apiVersion and kind; every section should be filled in.
	input := `apiVersion: kswitch.dev/v1beta1
kind: Configuration
`

	cl := config.NewLoaderFromBytes([]byte(input), configs.New, configs.DefaultValidator)

	cfg, err := cl.Load()
	require.NoError(t, err)

	assert.NotNil(t, cfg.Fleet, "EnsureDefaults should initialize Fleet")
	assert.NotNil(t, cfg.Tasks, "EnsureDefaults should initialize Tasks")
	assert.NotNil(t, cfg.Kube, "EnsureDefaults should initialize Kube")
}

func TestLoader_RoundTrip(t *testing.T) {
	t.Parallel()

	// Write the embedded default config.
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	err := configs.WriteDefault(configPath, false)
	require.NoError(t, err)

	// Load the config.
	cl, err := config.NewLoaderFromFile(configPath, configs.New, configs.DefaultValidator)
	require.NoError(t, err)

	cfg, err := cl.Load()
	require.NoError(t, err)

	// Test that the config can be marshaled back to YAML.
	yamlConfig, err := cfg.MarshalYAML()
	require.NoError(t, err)
	assert.NotEmpty(t, yamlConfig)

	// Verify the marshaled config can be loaded again (round-trip test).
	cl2 := config.NewLoaderFromBytes(yamlConfig, configs.New, configs.DefaultValidator)
	cfg2, err := cl2.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.GetAPIVersion(), cfg2.GetAPIVersion())
	assert.Equal(t, cfg.GetKind(), cfg2.GetKind())
	assert.Equal(t, cfg.Fleet.RefreshInterval, cfg2.Fleet.RefreshInterval)
	assert.Equal(t, cfg.Tasks.Suffix, cfg2.Tasks.Suffix)
}
