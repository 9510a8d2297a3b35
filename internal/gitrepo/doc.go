// Package gitrepo exposes the repository-level git operations used by the
// update pipeline: repository detection, rebase pulls, artifact change
// detection against HEAD, staging, committing, and pushing.
package gitrepo
