package task

import (
	"fmt"
	"time"

	"github.com/stefanprodan/kswitch-sub001/pkg/execs"
)

const (
	// DefaultSuffix is the filename convention marking a script as a task.
	DefaultSuffix = ".task.sh"

	// DefaultPollInterval is how often the tasks directory is re-scanned.
	DefaultPollInterval = 5 * time.Second

	// DefaultTimeout bounds a single task run.
	DefaultTimeout = 5 * time.Minute
)

// Config holds task discovery and execution settings.
type Config struct {
	// PollInterval sets how often the tasks directory is re-scanned for
	// added, removed or modified scripts.
	PollInterval *time.Duration `json:"pollInterval,omitempty" jsonschema:"title=Poll Interval"`
	// Timeout bounds a single task run.
	Timeout *time.Duration `json:"timeout,omitempty" jsonschema:"title=Timeout"`
	// Dir is the directory scanned for task scripts.
	Dir string `json:"dir,omitempty" jsonschema:"title=Directory"`
	// Suffix is the filename suffix marking a script as a task.
	Suffix string `json:"suffix,omitempty" jsonschema:"title=Suffix"`
	// Env contains environment variable definitions passed to every task.
	Env []execs.EnvVar `json:"env,omitempty" jsonschema:"title=Environment Variables"`
	// EnvFrom contains sources for inheriting environment variables.
	EnvFrom []execs.EnvFromSource `json:"envFrom,omitempty" jsonschema:"title=Environment Variables From"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// BaseCommand builds the process template every task run starts from,
// carrying the configured environment on top of the given base environment.
// Caller reference patterns are compiled as a side effect, so calling this
// once at load time validates them for the lifetime of the config.
func (c *Config) BaseCommand(baseEnv []string) (execs.Command, error) {
	cmd := execs.NewCommand(baseEnv)
	cmd.Env = append(cmd.Env, c.Env...)
	cmd.AddEnvFrom(c.EnvFrom)

	err := cmd.CompilePatterns()
	if err != nil {
		return cmd, fmt.Errorf("compile env patterns: %w", err)
	}

	return cmd, nil
}

// EnsureDefaults sets default values for unset fields. The tasks directory
// itself has no default here; the configuration layer fills it in.
func (c *Config) EnsureDefaults() {
	if c.Suffix == "" {
		c.Suffix = DefaultSuffix
	}
	if c.PollInterval == nil {
		d := DefaultPollInterval
		c.PollInterval = &d
	}
	if c.Timeout == nil {
		d := DefaultTimeout
		c.Timeout = &d
	}
}
