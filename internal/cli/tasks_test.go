package cli_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/pkg/task"
)

const greetScript = `#!/bin/sh
# TASK: greet -- Prints a greeting
# INPUT: name "Who to greet"
# INPUT_OPT: mood "Optional mood"
echo "hello $NAME"
`

// writeTaskFixtures creates a tasks directory with the given scripts and a
// configuration file pointing at it, returning the config path.
func writeTaskFixtures(t *testing.T, scripts map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	tasksDir := filepath.Join(dir, "tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0o755))

	for name, content := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(tasksDir, name), []byte(content), 0o755))
	}

	configPath := filepath.Join(dir, "config.yaml")
	configYAML := fmt.Sprintf("apiVersion: kswitch.dev/v1beta1\nkind: Configuration\ntasks:\n  dir: %q\n", tasksDir)
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o600))

	return configPath
}

func TestTasksListCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists discovered tasks", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		stdout, _, err := executeCommand(t, "tasks", "list", "--config", configPath)
		require.NoError(t, err)

		assert.Contains(t, stdout, "NAME")
		assert.Contains(t, stdout, "greet")
		assert.Contains(t, stdout, "name*, mood")
		assert.Contains(t, stdout, "Prints a greeting")
	})

	t.Run("reports an empty directory", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, nil)

		stdout, _, err := executeCommand(t, "tasks", "list", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, stdout, "no tasks in ")
	})
}

func TestTasksShowCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints header, inputs and source", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		stdout, _, err := executeCommand(t, "tasks", "show", "greet", "--config", configPath)
		require.NoError(t, err)

		assert.Contains(t, stdout, "task: greet")
		assert.Contains(t, stdout, "Prints a greeting")
		assert.Contains(t, stdout, "path: ")
		assert.Contains(t, stdout, "$"+task.EnvName("name"))
		assert.Contains(t, stdout, "required")
		assert.Contains(t, stdout, "optional")
		assert.Contains(t, stdout, `echo "hello $NAME"`)
	})

	t.Run("unknown task is an error", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		_, _, err := executeCommand(t, "tasks", "show", "nope", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown task "nope"`)
	})
}

func TestTasksRunCmd(t *testing.T) {
	t.Parallel()

	t.Run("streams output and succeeds", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		stdout, _, err := executeCommand(t,
			"tasks", "run", "greet", "--input", "name=world", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, stdout, "hello world")
	})

	t.Run("non-zero exit becomes an error", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{
			"fail.task.sh": "#!/bin/sh\n# TASK: fail -- Always fails\nexit 3\n",
		})

		_, _, err := executeCommand(t, "tasks", "run", "fail", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `task "fail" failed with exit code 3`)
	})

	t.Run("missing required input without a terminal is an error", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		_, _, err := executeCommand(t, "tasks", "run", "greet", "--config", configPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, task.ErrMissingInput)
	})

	t.Run("undeclared input is rejected", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		_, _, err := executeCommand(t,
			"tasks", "run", "greet", "--input", "name=world", "--input", "bogus=1", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `does not declare input "bogus"`)
	})

	t.Run("malformed input flag is rejected", func(t *testing.T) {
		t.Parallel()

		configPath := writeTaskFixtures(t, map[string]string{"greet.task.sh": greetScript})

		_, _, err := executeCommand(t,
			"tasks", "run", "greet", "--input", "novalue", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected name=value")
	})
}
