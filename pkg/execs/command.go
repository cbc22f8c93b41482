package execs

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrStart is returned when a process cannot be started at all, e.g. the
	// binary is missing or not executable.
	ErrStart = errors.New("start process")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// Result represents the outcome of one process execution. A non-zero exit
// code is a normal Result, not an error; only a failure to start the process
// is reported as an error by the executor.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Output returns the text a caller should surface for this result. On
// failure, stderr is preferred when present, since tools write diagnostics
// there; otherwise stdout is used. Downstream error messages depend on this
// asymmetry.
func (r *Result) Output() string {
	if r.ExitCode != 0 && r.Stderr != "" {
		return r.Stderr
	}

	return r.Stdout
}

// Succeeded reports whether the process exited zero without hitting the
// deadline.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// EnvFromSource represents a source for inheriting environment variables.
type EnvFromSource struct {
	// CallerRef specifies how to inherit environment variables from the caller process.
	CallerRef *CallerRef `json:"callerRef,omitempty" jsonschema:"title=Caller Reference"`
}

// CallerRef represents a reference to environment variables from the caller process.
type CallerRef struct {
	compiledPattern *regexp.Regexp // Compiled regex pattern for matching environment variables.

	// Pattern is a regex pattern for matching environment variable names.
	Pattern string `json:"pattern,omitempty" jsonschema:"title=Pattern,format=regex"`
	// Name is the specific environment variable name to inherit.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
}

// Compile compiles the caller reference pattern into a regex if a pattern is provided.
func (c *CallerRef) Compile() error {
	if c.compiledPattern == nil && c.Pattern != "" {
		pattern, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Errorf("compile pattern %q: %w", c.Pattern, err)
		}

		c.compiledPattern = pattern
	}

	return nil
}

// EnvVar represents an environment variable definition.
type EnvVar struct {
	// ValueFrom specifies a source for the environment variable value.
	ValueFrom *EnvVarSource `json:"valueFrom,omitempty" jsonschema:"title=Value From"`
	// Name is the environment variable name.
	Name string `json:"name" jsonschema:"title=Name"`
	// Value is the environment variable value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

// EnvVarSource represents a source for an environment variable value.
type EnvVarSource struct {
	// CallerRef specifies how to get the value from the caller process environment.
	CallerRef *CallerRef `json:"callerRef,omitempty" jsonschema:"title=Caller Reference"`
}

// Command describes what to execute and which environment the child process
// receives. The caller's environment is never inherited wholesale; only
// essential variables and explicitly declared ones are passed through, so
// unrelated variables never leak into automation scripts.
type Command struct {
	baseEnv map[string]string
	// Command is the command to execute.
	Command string `json:"command" jsonschema:"title=Command,pattern=^\\S+$"`
	// Args contains the command line arguments.
	Args []string `json:"args,omitempty" jsonschema:"title=Arguments" yaml:"args,flow,omitempty"`
	// Env contains environment variable definitions.
	Env []EnvVar `json:"env,omitempty" jsonschema:"title=Environment Variables"`
	// EnvFrom contains sources for inheriting environment variables.
	EnvFrom []EnvFromSource `json:"envFrom,omitempty" jsonschema:"title=Environment Variables From"`
}

// NewCommand creates a new [Command].
// It accepts a base environment, which usually will be from [os.Environ].
func NewCommand(baseEnv []string) Command {
	c := Command{
		Env:     []EnvVar{},
		EnvFrom: []EnvFromSource{},
	}
	c.SetBaseEnv(baseEnv)

	return c
}

func (c *Command) SetBaseEnv(baseEnv []string) {
	c.baseEnv = make(map[string]string)

	for _, envVar := range baseEnv {
		if key, value, ok := strings.Cut(envVar, "="); ok {
			c.baseEnv[key] = value
		}
	}
}

// AddEnvVar adds a single environment variable.
func (c *Command) AddEnvVar(envVar EnvVar) {
	c.Env = append(c.Env, envVar)
}

// AddEnvFrom adds environment variable sources.
func (c *Command) AddEnvFrom(envFrom []EnvFromSource) {
	c.EnvFrom = append(c.EnvFrom, envFrom...)
}

// essentialVars always cross into child processes; everything else must be
// declared through Env or EnvFrom.
var essentialVars = []string{"PATH", "HOME", "USER", "TERM", "COLORTERM"}

// GetEnv constructs the environment for the child process. Declarations are
// applied in order, envFrom sources first, so explicit env entries win.
func (c *Command) GetEnv() []string {
	envMap := make(map[string]string)

	for key, value := range c.baseEnv {
		if slices.Contains(essentialVars, key) {
			envMap[key] = value
		}
	}

	c.applyEnvFrom(envMap)
	c.applyEnv(envMap)

	env := make([]string, 0, len(envMap))
	for key, value := range envMap {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}

// CompilePatterns compiles all regex patterns.
func (c *Command) CompilePatterns() error {
	for i, envVar := range c.Env {
		if envVar.ValueFrom != nil && envVar.ValueFrom.CallerRef != nil {
			err := envVar.ValueFrom.CallerRef.Compile()
			if err != nil {
				return fmt.Errorf("env[%d]: %w", i, err)
			}
		}
	}

	for i, envFromSource := range c.EnvFrom {
		if envFromSource.CallerRef != nil {
			err := envFromSource.CallerRef.Compile()
			if err != nil {
				return fmt.Errorf("envFrom[%d]: %w", i, err)
			}
		}
	}

	return nil
}

func (c *Command) String() string {
	return fmt.Sprintf("%s %s", c.Command, strings.Join(c.Args, " "))
}

// applyEnvFrom copies base environment entries selected by envFrom sources
// into envMap.
func (c *Command) applyEnvFrom(envMap map[string]string) {
	for _, src := range c.EnvFrom {
		if src.CallerRef != nil {
			src.CallerRef.resolve(c.baseEnv, envMap)
		}
	}
}

// resolve copies entries matching the reference from baseEnv into envMap,
// by pattern and by name.
func (c *CallerRef) resolve(baseEnv, envMap map[string]string) {
	if c.compiledPattern != nil {
		for key, value := range baseEnv {
			if c.compiledPattern.MatchString(key) {
				envMap[key] = value
			}
		}
	}

	if c.Name != "" {
		if value, ok := baseEnv[c.Name]; ok {
			envMap[c.Name] = value
		}
	}
}

// applyEnv applies declared env entries on top of envMap. A valueFrom
// reference reads envMap itself, so it can rename variables brought in by
// envFrom.
func (c *Command) applyEnv(envMap map[string]string) {
	for _, envVar := range c.Env {
		switch {
		case envVar.Name == "":

		case envVar.Value != "":
			envMap[envVar.Name] = envVar.Value

		case envVar.ValueFrom != nil && envVar.ValueFrom.CallerRef != nil && envVar.ValueFrom.CallerRef.Name != "":
			if value, ok := envMap[envVar.ValueFrom.CallerRef.Name]; ok {
				envMap[envVar.Name] = value
			}
		}
	}
}
