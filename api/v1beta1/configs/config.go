// Package configs provides the global Config configuration type for kswitch.
package configs

import (
	"fmt"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/stefanprodan/kswitch-sub001/api"
	"github.com/stefanprodan/kswitch-sub001/api/v1beta1"
	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
	"github.com/stefanprodan/kswitch-sub001/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen/main.go -o configs.v1beta1.json

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed configs.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains the valid kind values for global configurations.
	ValidKinds = []string{"Configuration"}

	// DefaultValidator validates global configuration against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/configs.v1beta1.json", schemaJSON)

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config represents the global kswitch configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Fleet configures cluster monitoring and notifications.
	Fleet *fleet.Config `json:"fleet,omitempty" jsonschema:"title=Fleet"`
	// Tasks configures automation script discovery and execution.
	Tasks *task.Config `json:"tasks,omitempty" jsonschema:"title=Tasks"`
	// Kube configures kubectl invocation and kubeconfig sources.
	Kube             *kube.Config `json:"kube,omitempty" jsonschema:"title=Kube"`
	v1beta1.TypeMeta `json:",inline"`
}

// New creates a new global [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "Configuration",
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Fleet == nil {
		c.Fleet = fleet.NewConfig()
	} else {
		c.Fleet.EnsureDefaults()
	}

	if c.Tasks == nil {
		c.Tasks = task.NewConfig()
	} else {
		c.Tasks.EnsureDefaults()
	}

	if c.Kube == nil {
		c.Kube = kube.NewConfig()
	} else {
		c.Kube.EnsureDefaults()
	}

	// The tasks directory defaults beside the configuration file, so task
	// scripts travel with the rest of the kswitch state.
	if c.Tasks.Dir == "" {
		c.Tasks.Dir = api.GetConfigPath("tasks")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Fleet != nil {
		err := c.Fleet.Compile()
		if err != nil {
			return fmt.Errorf("validate fleet config: %w", err)
		}
	}

	if c.Tasks != nil {
		_, err := c.Tasks.BaseCommand(nil)
		if err != nil {
			return fmt.Errorf("validate tasks config: %w", err)
		}
	}

	return nil
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// Write writes the config to the specified path if it doesn't already exist.
func (c Config) Write(path string) error {
	b, err := c.MarshalYAML()
	if err != nil {
		return err
	}

	err = api.WriteIfNotExists(path, b)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// DefaultYAML returns the embedded default configuration document.
func DefaultYAML() []byte {
	return defaultConfigYAML
}

// WriteDefault writes the embedded default config.yaml to the specified path.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}

// GetPath returns the path to the global configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}
