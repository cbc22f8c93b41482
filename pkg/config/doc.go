// Package config loads kswitch configuration documents.
//
// The generic [Loader] parses a YAML document into a versioned kind,
// optionally validating it against a JSON Schema first so failures point
// at the offending YAML path.
package config
