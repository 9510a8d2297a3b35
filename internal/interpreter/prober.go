// Package interpreter locates a Python-capable command for running the
// external indexer script.
package interpreter

import (
	"errors"
	"os/exec"

	"github.com/joshlebed/media-metadata-backup-machine/internal/execshell"
)

const (
	noInterpreterMessageConstant = "no interpreter found"
	uvRunSubcommandConstant      = "run"
)

// ErrNoInterpreterAvailable indicates none of the candidate interpreters are installed.
var ErrNoInterpreterAvailable = errors.New(noInterpreterMessageConstant)

// LookupFunction resolves an executable name to a filesystem path.
type LookupFunction func(executableName string) (string, error)

// Invocation describes how to launch the external indexer.
type Invocation struct {
	CommandName      execshell.CommandName
	LeadingArguments []string
}

// Probe order is fixed: the package-aware runner first, then the primary
// interpreter binary, then the fallback alias.
var interpreterCandidates = []Invocation{
	{CommandName: execshell.CommandUV, LeadingArguments: []string{uvRunSubcommandConstant}},
	{CommandName: execshell.CommandPython3},
	{CommandName: execshell.CommandPython},
}

// Prober detects which runtime interpreter is available on the host.
type Prober struct {
	lookup LookupFunction
}

// NewProber constructs a Prober backed by exec.LookPath.
func NewProber() *Prober {
	return NewProberWithLookup(exec.LookPath)
}

// NewProberWithLookup constructs a Prober with a custom lookup function.
func NewProberWithLookup(lookup LookupFunction) *Prober {
	if lookup == nil {
		lookup = exec.LookPath
	}
	return &Prober{lookup: lookup}
}

// Probe returns the first available interpreter invocation.
func (prober *Prober) Probe() (Invocation, error) {
	for _, candidate := range interpreterCandidates {
		if _, lookupError := prober.lookup(string(candidate.CommandName)); lookupError == nil {
			return candidate, nil
		}
	}
	return Invocation{}, ErrNoInterpreterAvailable
}
