// Package v1beta1 contains the v1beta1 API types for kswitch configuration.
package v1beta1

import "github.com/invopop/jsonschema"

// APIVersion is the current API version for all kswitch configuration kinds.
const APIVersion = "kswitch.dev/v1beta1"

// ValidAPIVersions contains all valid API versions.
var ValidAPIVersions = []string{APIVersion}

// TypeMeta is the apiVersion/kind pair every configuration document carries.
type TypeMeta struct {
	// APIVersion declares the schema version of this document.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind names the configuration type.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// GetAPIVersion returns the API version.
func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

// GetKind returns the kind.
func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Object is implemented by every versioned configuration kind.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums constrains a schema's apiVersion and kind properties
// to the accepted values.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	constrainProperty(jss, "apiVersion", "API Version", apiVersions)
	constrainProperty(jss, "kind", "Kind", kinds)
}

func constrainProperty(jss *jsonschema.Schema, property, title string, values []string) {
	prop, ok := jss.Properties.Get(property)
	if !ok {
		panic(property + " property not found in schema")
	}

	for _, value := range values {
		prop.OneOf = append(prop.OneOf, &jsonschema.Schema{
			Type:  "string",
			Const: value,
			Title: title,
		})
	}

	_, _ = jss.Properties.Set(property, prop)
}
