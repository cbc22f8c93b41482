package fleet

import (
	"fmt"
	"time"
)

// DefaultRefreshInterval is how often every context is re-checked.
const DefaultRefreshInterval = 30 * time.Second

// Config holds fleet monitoring settings.
type Config struct {
	// RefreshInterval sets how often every context is re-checked.
	RefreshInterval *time.Duration `json:"refreshInterval,omitempty" jsonschema:"title=Refresh Interval"`
	// Include restricts sweeps to contexts matching a CEL expression.
	// Unset means every context is swept.
	Include *Rule `json:"include,omitempty" jsonschema:"title=Include Rule"`
	// Notifications configures alert delivery.
	Notifications *NotificationConfig `json:"notifications,omitempty" jsonschema:"title=Notifications"`
}

// NotificationConfig gates alert delivery.
type NotificationConfig struct {
	// Enabled turns alert delivery on or off.
	Enabled *bool `json:"enabled,omitempty" jsonschema:"title=Enabled"`
	// Rules restricts alerts to clusters matching at least one CEL
	// expression. Empty means every cluster may alert.
	Rules []*Rule `json:"rules,omitempty" jsonschema:"title=Rules"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for unset fields.
func (c *Config) EnsureDefaults() {
	if c.RefreshInterval == nil {
		d := DefaultRefreshInterval
		c.RefreshInterval = &d
	}

	if c.Notifications == nil {
		c.Notifications = &NotificationConfig{}
	}
	if c.Notifications.Enabled == nil {
		enabled := true
		c.Notifications.Enabled = &enabled
	}
}

// Compile compiles every CEL rule in the config. Call it once after
// decoding.
func (c *Config) Compile() error {
	if c.Include != nil {
		err := c.Include.Compile()
		if err != nil {
			return fmt.Errorf("include: %w", err)
		}
	}

	if c.Notifications != nil {
		for i, r := range c.Notifications.Rules {
			err := r.Compile()
			if err != nil {
				return fmt.Errorf("notifications.rules[%d]: %w", i, err)
			}
		}
	}

	return nil
}
