package execs

import (
	"path/filepath"
	"strings"
)

// ShellFlavor identifies the syntax family of a login shell. The landscape of
// shells is open-ended; everything unrecognized is treated as POSIX.
type ShellFlavor string

const (
	FlavorPOSIX   ShellFlavor = "posix"
	FlavorFish    ShellFlavor = "fish"
	FlavorNushell ShellFlavor = "nushell"
)

// FallbackPath is used whenever the login shell cannot be queried.
const FallbackPath = "/usr/bin:/bin:/usr/sbin:/sbin"

// shellQuery holds the argument vector that makes a shell print its PATH in
// login mode, and the rule for parsing what it prints.
type shellQuery struct {
	parse func(string) []string
	args  []string
}

var shellQueries = map[ShellFlavor]shellQuery{
	FlavorPOSIX: {
		args:  []string{"-l", "-c", `echo "$PATH"`},
		parse: parsePathList,
	},
	FlavorFish: {
		args:  []string{"-l", "-c", `string join : $PATH`},
		parse: parsePathList,
	},
	FlavorNushell: {
		args:  []string{"-l", "-c", `$env.PATH | str join ":"`},
		parse: parsePathList,
	},
}

// FlavorOf maps a $SHELL value to its [ShellFlavor].
func FlavorOf(shellPath string) ShellFlavor {
	switch filepath.Base(shellPath) {
	case "fish":
		return FlavorFish
	case "nu", "nushell":
		return FlavorNushell
	default:
		return FlavorPOSIX
	}
}

// parsePathList extracts PATH entries from shell output. Login shells may
// print profile noise before the PATH line, so only the last non-empty line
// is considered.
func parsePathList(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")

	var last string

	for i := len(lines) - 1; i >= 0; i-- {
		last = strings.TrimSpace(lines[i])
		if last != "" {
			break
		}
	}

	if last == "" {
		return nil
	}

	var dirs []string

	for _, dir := range strings.Split(last, ":") {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}

	return dirs
}
