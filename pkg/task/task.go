package task

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

const (
	// headerScanLines is the number of leading lines inspected for
	// header directives. Anything past that is script body.
	headerScanLines = 20

	taskDirective     = "TASK:"
	inputDirective    = "INPUT:"
	optionalDirective = "INPUT_OPT:"
)

// Input is a parameter a task declares in its header. Required inputs must be
// provided before the task can run; optional ones may be omitted.
type Input struct {
	Name        string
	Description string
	Required    bool
}

// Task is a single executable script discovered by the [Catalog]. Path is the
// task's identity; it is absolute and unique within a catalog.
type Task struct {
	Path        string
	Name        string
	Description string
	Inputs      []Input
}

// Input returns the declared input with the given name.
func (t Task) Input(name string) (Input, bool) {
	for _, in := range t.Inputs {
		if in.Name == name {
			return in, true
		}
	}

	return Input{}, false
}

// RequiredInputs returns the names of all required inputs, in declaration
// order.
func (t Task) RequiredInputs() []string {
	var names []string
	for _, in := range t.Inputs {
		if in.Required {
			names = append(names, in.Name)
		}
	}

	return names
}

// parseHeader reads the leading lines of a script and fills in the task's
// name, description and inputs from `# TASK:` and `# INPUT:` directives.
// Scripts without a TASK directive fall back to a name derived from the
// filename, so a bare executable is still a valid task.
func parseHeader(t *Task, r io.Reader) error {
	scanner := bufio.NewScanner(r)

	for i := 0; i < headerScanLines && scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimLeft(line, "#"))

		switch {
		case strings.HasPrefix(line, taskDirective):
			name, desc := splitTaskDirective(strings.TrimPrefix(line, taskDirective))
			if name != "" {
				t.Name = name
			}
			if desc != "" {
				t.Description = desc
			}

		case strings.HasPrefix(line, optionalDirective):
			in, err := parseInputDirective(strings.TrimPrefix(line, optionalDirective), false)
			if err != nil {
				return err
			}

			t.Inputs = append(t.Inputs, in)

		case strings.HasPrefix(line, inputDirective):
			in, err := parseInputDirective(strings.TrimPrefix(line, inputDirective), true)
			if err != nil {
				return err
			}

			t.Inputs = append(t.Inputs, in)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning header: %w", err)
	}

	if t.Name == "" {
		t.Name = nameFromFilename(t.Path)
	}
	if t.Description == "" {
		t.Description = t.Path
	}

	return nil
}

// splitTaskDirective splits `name -- description` on the first ` -- `
// separator. A directive without the separator is all name.
func splitTaskDirective(s string) (name, desc string) {
	name, desc, found := strings.Cut(s, " -- ")
	if !found {
		return strings.TrimSpace(s), ""
	}

	return strings.TrimSpace(name), strings.TrimSpace(desc)
}

// parseInputDirective parses `name "description"` using shell quoting rules,
// so descriptions may contain spaces.
func parseInputDirective(s string, required bool) (Input, error) {
	fields, err := shellwords.Parse(s)
	if err != nil {
		return Input{}, fmt.Errorf("parsing input directive %q: %w", s, err)
	}
	if len(fields) == 0 {
		return Input{}, fmt.Errorf("input directive %q: missing name", s)
	}

	in := Input{
		Name:     fields[0],
		Required: required,
	}
	if len(fields) > 1 {
		in.Description = strings.Join(fields[1:], " ")
	}

	return in, nil
}

// nameFromFilename derives a display name from the script filename by
// stripping the suffix and turning separators into spaces.
func nameFromFilename(path string) string {
	name := filepath.Base(path)
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	return strings.TrimSpace(name)
}
