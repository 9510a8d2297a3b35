// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions used to run git and
// the Python interpreters that drive the movie indexer in a testable manner.
package execshell
