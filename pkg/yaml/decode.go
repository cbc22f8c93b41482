package yaml

import (
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// Decoder wraps [yaml.Decoder] so decode failures surface as [*Error],
// carrying the offending token for source annotation.
type Decoder struct {
	d *yaml.Decoder
}

// NewDecoder returns a [Decoder] reading from r. Duplicate map keys are
// tolerated, with the last value winning.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		d: yaml.NewDecoder(r, yaml.AllowDuplicateMapKey()),
	}
}

// Decode reads the next document into v.
func (d *Decoder) Decode(v any) error {
	err := d.d.Decode(v)
	if err == nil {
		return nil
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return &Error{
			Err:   errors.New(yamlErr.GetMessage()),
			Token: yamlErr.GetToken(),
		}
	}

	//nolint:wrapcheck // Not a yaml error, return it as is.
	return err
}
