package yaml

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"golang.org/x/tools/go/packages"
)

// DurationPattern matches Go duration strings like "30s" or "1.5h".
const DurationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

var durationType = reflect.TypeOf(time.Duration(0))

// SchemaGenerator produces a JSON schema for a configuration type, with
// descriptions drawn from Go doc comments.
type SchemaGenerator struct {
	v        any
	pkgPaths []string
}

// NewSchemaGenerator creates a [SchemaGenerator] for v. The pkgPaths list
// names every package whose doc comments should appear in the schema.
func NewSchemaGenerator(v any, pkgPaths ...string) *SchemaGenerator {
	return &SchemaGenerator{v: v, pkgPaths: pkgPaths}
}

// Generate reflects a JSON schema for the configured type and returns it as
// indented JSON, with a trailing newline so it can be committed verbatim.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	rootType := reflect.TypeOf(g.v)
	for rootType.Kind() == reflect.Pointer {
		rootType = rootType.Elem()
	}

	r := &jsonschema.Reflector{
		Namer:  namerFor(rootType),
		Mapper: mapType,
	}

	err := addComments(r, g.pkgPaths)
	if err != nil {
		return nil, err
	}

	js := r.Reflect(g.v)

	data, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(data, '\n'), nil
}

// namerFor qualifies type names with their package, so same-named types from
// different packages get distinct definitions. Types declared in the root
// type's own package keep their bare name.
func namerFor(root reflect.Type) func(reflect.Type) string {
	return func(t reflect.Type) string {
		if t.Name() == "" || t.PkgPath() == "" || t.PkgPath() == root.PkgPath() {
			return t.Name()
		}

		pkg := path.Base(t.PkgPath())

		return strings.ToUpper(pkg[:1]) + pkg[1:] + t.Name()
	}
}

// mapType overrides reflection for types whose YAML form differs from their
// Go representation.
func mapType(t reflect.Type) *jsonschema.Schema {
	if t == durationType {
		// Durations are written in Go's string form, e.g. "30s".
		return &jsonschema.Schema{
			Type:    "string",
			Pattern: DurationPattern,
		}
	}

	return nil
}

// addComments extracts doc comments from the given packages so they appear
// as descriptions in the generated schema.
func addComments(r *jsonschema.Reflector, pkgPaths []string) error {
	if len(pkgPaths) == 0 {
		return nil
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedFiles}

	pkgs, err := packages.Load(cfg, pkgPaths...)
	if err != nil {
		return fmt.Errorf("load packages: %w", err)
	}

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return fmt.Errorf("load package %s: %w", pkg.PkgPath, pkg.Errors[0])
		}
		if len(pkg.GoFiles) == 0 {
			continue
		}

		err := r.AddGoComments(pkg.PkgPath, filepath.Dir(pkg.GoFiles[0]))
		if err != nil {
			return fmt.Errorf("extract comments for %s: %w", pkg.PkgPath, err)
		}
	}

	return nil
}
