// Package ansis reconstructs displayable text from raw terminal output.
//
// Task scripts and kubectl emit ANSI escape sequences, carriage-return
// rewrites, and backspaces for progress bars and colored diagnostics.
// Parse resolves that stream into ordered styled segments with all control
// artifacts removed, so callers never run terminal logic of their own.
package ansis
