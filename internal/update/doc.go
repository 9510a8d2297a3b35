// Package update orchestrates the index update pipeline: it verifies the
// backup repository, optionally rebases onto upstream, regenerates the index
// artifacts, and commits and pushes them when their content changed.
package update
