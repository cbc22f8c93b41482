package expr

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// lib is the [cel.Library] loaded into every environment. It enables the
// math, strings, lists, and sets extensions on top of the CEL standard
// functions.
type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),
		ext.Sets(),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return nil
}
