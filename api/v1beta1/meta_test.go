package v1beta1_test

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1"
)

func TestTypeMeta_Getters(t *testing.T) {
	t.Parallel()

	tm := v1beta1.TypeMeta{
		APIVersion: "kswitch.dev/v1beta1",
		Kind:       "Configuration",
	}

	assert.Equal(t, "kswitch.dev/v1beta1", tm.GetAPIVersion())
	assert.Equal(t, "Configuration", tm.GetKind())
}

func TestExtendSchemaWithEnums(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		apiVersions []string
		kinds       []string
	}{
		"single version and kind": {
			apiVersions: []string{"kswitch.dev/v1beta1"},
			kinds:       []string{"Configuration"},
		},
		"multiple versions": {
			apiVersions: []string{"kswitch.dev/v1", "kswitch.dev/v1beta1", "kswitch.dev/v1alpha1"},
			kinds:       []string{"Configuration"},
		},
		"multiple kinds": {
			apiVersions: []string{"kswitch.dev/v1"},
			kinds:       []string{"Configuration", "Profile", "Theme"},
		},
		"multiple versions and kinds": {
			apiVersions: []string{"kswitch.dev/v1", "kswitch.dev/v1beta1"},
			kinds:       []string{"Configuration", "Profile"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			jss := &jsonschema.Schema{
				Properties: jsonschema.NewProperties(),
			}
			jss.Properties.Set("apiVersion", &jsonschema.Schema{Type: "string"})
			jss.Properties.Set("kind", &jsonschema.Schema{Type: "string"})

			v1beta1.ExtendSchemaWithEnums(jss, tc.apiVersions, tc.kinds)

			apiVersion, ok := jss.Properties.Get("apiVersion")
			assert.True(t, ok)
			assert.Len(t, apiVersion.OneOf, len(tc.apiVersions))

			for i, v := range tc.apiVersions {
				assert.Equal(t, v, apiVersion.OneOf[i].Const)
			}

			kind, ok := jss.Properties.Get("kind")
			assert.True(t, ok)
			assert.Len(t, kind.OneOf, len(tc.kinds))

			for i, k := range tc.kinds {
				assert.Equal(t, k, kind.OneOf[i].Const)
			}
		})
	}
}

func TestExtendSchemaWithEnums_MissingProperty(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"without apiVersion": "kind",
		"without kind":       "apiVersion",
	}

	for name, present := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			jss := &jsonschema.Schema{
				Properties: jsonschema.NewProperties(),
			}
			jss.Properties.Set(present, &jsonschema.Schema{Type: "string"})

			assert.Panics(t, func() {
				v1beta1.ExtendSchemaWithEnums(jss, []string{"kswitch.dev/v1"}, []string{"Configuration"})
			})
		})
	}
}
