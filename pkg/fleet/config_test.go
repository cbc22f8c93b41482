package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
)

func TestConfig_EnsureDefaults(t *testing.T) {
	t.Parallel()

	t.Run("empty config", func(t *testing.T) {
		t.Parallel()

		c := &fleet.Config{}
		c.EnsureDefaults()

		require.NotNil(t, c.RefreshInterval)
		assert.Equal(t, fleet.DefaultRefreshInterval, *c.RefreshInterval)
		require.NotNil(t, c.Notifications)
		require.NotNil(t, c.Notifications.Enabled)
		assert.True(t, *c.Notifications.Enabled)
	})

	t.Run("set values survive", func(t *testing.T) {
		t.Parallel()

		interval := 5 * time.Second
		disabled := false
		c := &fleet.Config{
			RefreshInterval: &interval,
			Notifications:   &fleet.NotificationConfig{Enabled: &disabled},
		}
		c.EnsureDefaults()

		assert.Equal(t, 5*time.Second, *c.RefreshInterval)
		assert.False(t, *c.Notifications.Enabled)
	})
}

func TestConfig_Compile(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		config  *fleet.Config
		wantErr string
	}{
		"no rules": {
			config: &fleet.Config{},
		},
		"valid rules": {
			config: &fleet.Config{
				Include: &fleet.Rule{Expression: `!name.contains("sandbox")`},
				Notifications: &fleet.NotificationConfig{
					Rules: []*fleet.Rule{
						{Expression: "favorite"},
						{Expression: "failing > 0"},
					},
				},
			},
		},
		"invalid include": {
			config: &fleet.Config{
				Include: &fleet.Rule{Expression: "name.nope()"},
			},
			wantErr: "include",
		},
		"invalid notification rule": {
			config: &fleet.Config{
				Notifications: &fleet.NotificationConfig{
					Rules: []*fleet.Rule{
						{Expression: "favorite"},
						{Expression: "hidden &&"},
					},
				},
			},
			wantErr: "notifications.rules[1]",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.config.Compile()

			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
