// Package execs executes external processes with explicit environments,
// bounded run times, and streamed or buffered output capture.
//
// It also locates executables the way an interactive user would: by asking
// the login shell for its PATH and by probing well-known package manager
// directories, while refusing to touch OS-protected folders.
package execs
