package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs"
	"github.com/stefanprodan/kswitch-sub001/internal/cli"
)

// executeCommand runs the root command with the given arguments and returns
// stdout and stderr separately.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := cli.NewRootCmd()

	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(t.Context())

	return outBuf.String(), errBuf.String(), err
}

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCmd()

	assert.Equal(t, "kswitch", cmd.Use)
	assert.NotNil(t, cmd.RunE, "bare invocation should open the dashboard")

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"watch", "status", "contexts", "tasks", "mcp", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing persistent flag %q", flag)
	}

	// The dashboard flags are bound on the root as well, so `kswitch
	// --serve-mcp` works without naming the watch subcommand.
	assert.NotNil(t, cmd.Flags().Lookup("serve-mcp"))
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)

	assert.Contains(t, stdout, "version:")
	assert.Contains(t, stdout, "revision:")
	assert.Contains(t, stdout, "go version: "+runtime.Version())
	assert.Contains(t, stdout, "platform:   "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestConfigPathCmd(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "custom.yaml")

	stdout, _, err := executeCommand(t, "config", "path", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath+"\n", stdout)
}

func TestConfigPathCmd_Default(t *testing.T) {
	t.Parallel()

	stdout, _, err := executeCommand(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, configs.GetPath()+"\n", stdout)
}

func TestConfigInitCmd(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, err := executeCommand(t, "config", "init", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath+"\n", stdout)

	b, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, string(configs.DefaultYAML()), string(b))
}

func TestConfigShowCmd(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, err := executeCommand(t, "config", "show", "--config", configPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "apiVersion: kswitch.dev/v1beta1")
	assert.Contains(t, stdout, "kind: Configuration")
	assert.Contains(t, stdout, "suffix: .task.sh")
}

func TestConfigDiffCmd(t *testing.T) {
	t.Parallel()

	t.Run("pristine file matches defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, configs.WriteDefault(configPath, false))

		stdout, _, err := executeCommand(t, "config", "diff", "--config", configPath)
		require.NoError(t, err)
		assert.Equal(t, "configuration matches the defaults\n", stdout)
	})

	t.Run("missing file matches defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "config.yaml")

		stdout, _, err := executeCommand(t, "config", "diff", "--config", configPath)
		require.NoError(t, err)
		assert.Equal(t, "configuration matches the defaults\n", stdout)
	})

	t.Run("modified file produces a unified diff", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, configs.WriteDefault(configPath, false))

		f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0o600)
		require.NoError(t, err)
		_, err = f.WriteString("\n# local override\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		stdout, _, err := executeCommand(t, "config", "diff", "--config", configPath)
		require.NoError(t, err)

		assert.Contains(t, stdout, "--- default")
		assert.Contains(t, stdout, "+++ "+configPath)
		assert.Contains(t, stdout, "+# local override")
	})
}
