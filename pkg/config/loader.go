package config

import (
	"bytes"

	"github.com/stefanprodan/kswitch-sub001/api"
	"github.com/stefanprodan/kswitch-sub001/api/v1beta1"
	"github.com/stefanprodan/kswitch-sub001/pkg/yaml"
)

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// Loader decodes and validates one configuration document of type T,
// wrapping failures with annotated source context.
type Loader[T v1beta1.Object] struct {
	validator Validator
	newFunc   func() T
	yamlError *yaml.ErrorWrapper
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] over data. The newFunc parameter is
// the constructor for T (e.g. configs.New). A nil validator skips schema
// validation.
func NewLoaderFromBytes[T v1beta1.Object](data []byte, newFunc func() T, validator Validator) *Loader[T] {
	return &Loader[T]{
		data:      data,
		newFunc:   newFunc,
		validator: validator,
		yamlError: yaml.NewErrorWrapper(
			yaml.WithSource(data),
			yaml.WithSourceLines(4),
		),
	}
}

// NewLoaderFromFile creates a [Loader] reading path.
func NewLoaderFromFile[T v1beta1.Object](path string, newFunc func() T, validator Validator) (*Loader[T], error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Error names the file already.
	}

	return NewLoaderFromBytes(data, newFunc, validator), nil
}

// Validate checks the document against the schema without building a T.
func (l *Loader[T]) Validate() error {
	var doc any

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&doc)
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	if l.validator == nil {
		return nil
	}

	err = l.validator.Validate(doc)
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	return nil
}

// Load parses the document into a fresh T and applies defaults.
//
//nolint:ireturn // Generic type parameter return is intentional.
func (l *Loader[T]) Load() (T, error) {
	cfg := l.newFunc()

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(cfg)
	if err != nil {
		var zero T

		return zero, l.yamlError.Wrap(err)
	}

	cfg.EnsureDefaults()

	return cfg, nil
}
