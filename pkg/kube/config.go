package kube

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCallTimeout bounds one kubectl invocation.
const DefaultCallTimeout = 15 * time.Second

// Config holds kubectl connection settings.
type Config struct {
	// CallTimeout bounds a single kubectl invocation.
	CallTimeout *time.Duration `json:"callTimeout,omitempty" jsonschema:"title=Call Timeout"`
	// KubectlPath pins the kubectl binary, bypassing discovery.
	KubectlPath string `json:"kubectlPath,omitempty" jsonschema:"title=Kubectl Path"`
	// Kubeconfigs lists the kubeconfig files consulted for contexts. When
	// empty, the $KUBECONFIG list or ~/.kube/config is used.
	Kubeconfigs []string `json:"kubeconfigs,omitempty" jsonschema:"title=Kubeconfig Files"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for unset fields. Kubeconfigs is
// resolved to concrete paths so the fleet can watch them for changes.
func (c *Config) EnsureDefaults() {
	if c.CallTimeout == nil {
		d := DefaultCallTimeout
		c.CallTimeout = &d
	}
	if len(c.Kubeconfigs) == 0 {
		c.Kubeconfigs = DefaultKubeconfigPaths()
	}
}

// DefaultKubeconfigPaths returns the kubeconfig files kubectl itself would
// consult: the $KUBECONFIG list when set, otherwise ~/.kube/config.
func DefaultKubeconfigPaths() []string {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		var paths []string

		for _, p := range strings.Split(env, string(os.PathListSeparator)) {
			if p != "" {
				paths = append(paths, p)
			}
		}

		if len(paths) > 0 {
			return paths
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	return []string{filepath.Join(home, ".kube", "config")}
}
