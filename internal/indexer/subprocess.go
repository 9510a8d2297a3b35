package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshlebed/media-metadata-backup-machine/internal/execshell"
	"github.com/joshlebed/media-metadata-backup-machine/internal/interpreter"
)

const (
	subprocessExecutorMissingMessage     = "indexer program executor must be provided"
	subprocessScriptMissingMessage       = "indexer script path must be provided"
	subprocessFailureTemplateConstant    = "indexer script failed with exit code %d"
	configurationFileEnvironmentVariable = "CONFIG_FILE"
	indexerNoChangesExitCodeConstant     = 1
)

// ErrIndexerExecutorMissing indicates the subprocess adapter was constructed without an executor.
var ErrIndexerExecutorMissing = errors.New(subprocessExecutorMissingMessage)

// ErrIndexerScriptMissing indicates the subprocess adapter was constructed without a script path.
var ErrIndexerScriptMissing = errors.New(subprocessScriptMissingMessage)

// IndexerFailedError reports an external indexer run that ended with an
// exit code other than the updated and no-changes codes.
type IndexerFailedError struct {
	ExitCode int
}

// Error describes the indexer failure.
func (failure IndexerFailedError) Error() string {
	return fmt.Sprintf(subprocessFailureTemplateConstant, failure.ExitCode)
}

// ProgramExecutor runs a named executable and reports its result.
type ProgramExecutor interface {
	ExecuteProgram(executionContext context.Context, commandName execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SubprocessOptions configures the external indexer adapter.
type SubprocessOptions struct {
	Invocation            interpreter.Invocation
	ScriptPath            string
	WorkingDirectory      string
	ConfigurationFilePath string
}

// SubprocessIndexer runs an external indexer script through a probed
// interpreter. The script signals an updated library with exit code 0 and
// an unchanged library with exit code 1; anything else is a failure.
type SubprocessIndexer struct {
	executor ProgramExecutor
	options  SubprocessOptions
}

// NewSubprocessIndexer constructs the external indexer adapter.
func NewSubprocessIndexer(executor ProgramExecutor, subprocessOptions SubprocessOptions) (*SubprocessIndexer, error) {
	if executor == nil {
		return nil, ErrIndexerExecutorMissing
	}
	if len(subprocessOptions.ScriptPath) == 0 {
		return nil, ErrIndexerScriptMissing
	}
	return &SubprocessIndexer{executor: executor, options: subprocessOptions}, nil
}

// Run invokes the external indexer script and translates its exit code.
func (subprocessIndexer *SubprocessIndexer) Run(executionContext context.Context) (Outcome, error) {
	scriptArguments := append(
		append([]string{}, subprocessIndexer.options.Invocation.LeadingArguments...),
		subprocessIndexer.options.ScriptPath,
	)
	commandDetails := execshell.CommandDetails{
		Arguments:        scriptArguments,
		WorkingDirectory: subprocessIndexer.options.WorkingDirectory,
	}
	if len(subprocessIndexer.options.ConfigurationFilePath) > 0 {
		commandDetails.EnvironmentVariables = map[string]string{
			configurationFileEnvironmentVariable: subprocessIndexer.options.ConfigurationFilePath,
		}
	}

	_, executionError := subprocessIndexer.executor.ExecuteProgram(
		executionContext,
		subprocessIndexer.options.Invocation.CommandName,
		commandDetails,
	)
	if executionError == nil {
		return OutcomeUpdated, nil
	}
	if exitCode, hasExitCode := execshell.ExitCodeFromError(executionError); hasExitCode {
		if exitCode == indexerNoChangesExitCodeConstant {
			return OutcomeNoChanges, nil
		}
		return OutcomeNoChanges, IndexerFailedError{ExitCode: exitCode}
	}
	return OutcomeNoChanges, executionError
}
