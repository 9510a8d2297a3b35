package main

import (
	"fmt"
	"os"

	"github.com/joshlebed/media-metadata-backup-machine/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the movies-index command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
