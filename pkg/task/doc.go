// Package task discovers and executes operator-defined automation scripts.
//
// The [Catalog] scans a directory for executable scripts following a filename
// suffix convention, parses their header comments for names, descriptions and
// declared inputs, and detects changes by polling modification times. Polling
// is deliberate: filesystem notification APIs are unreliable for newly
// created files.
//
// The [Executor] runs cataloged tasks as child processes with declared inputs
// passed as environment variables, streams their output to subscribers, and
// records the most recent [Run] per task.
package task
