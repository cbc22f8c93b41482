package yaml_test

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/pkg/yaml"
)

type scheduleConfig struct {
	Interval *time.Duration `json:"interval,omitempty" jsonschema:"title=Interval"`
	Name     string         `json:"name"`
}

func TestSchemaGenerator_Generate(t *testing.T) {
	t.Parallel()

	gen := yaml.NewSchemaGenerator(&scheduleConfig{})

	data, err := gen.Generate()
	require.NoError(t, err)

	var js map[string]any

	require.NoError(t, json.Unmarshal(data, &js))

	assert.Equal(t, "https://json-schema.org/draft/2020-12/schema", js["$schema"])
	assert.Equal(t, "#/$defs/scheduleConfig", js["$ref"])

	defs, ok := js["$defs"].(map[string]any)
	require.True(t, ok)

	def, ok := defs["scheduleConfig"].(map[string]any)
	require.True(t, ok)

	props, ok := def["properties"].(map[string]any)
	require.True(t, ok)

	interval, ok := props["interval"].(map[string]any)
	require.True(t, ok)

	// Durations are validated as Go duration strings, not integers.
	assert.Equal(t, "string", interval["type"])
	assert.Equal(t, yaml.DurationPattern, interval["pattern"])

	assert.Equal(t, []any{"name"}, def["required"])
}

func TestDurationPattern(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(yaml.DurationPattern)

	tcs := map[string]bool{
		"30s":   true,
		"200ms": true,
		"500µs": true,
		"1.5h":  true,
		"1h30m": true,
		"":      false,
		"30":    false,
		"s":     false,
		"10 s":  false,
		"fast":  false,
	}

	for in, want := range tcs {
		assert.Equal(t, want, re.MatchString(in), "input %q", in)
	}
}
