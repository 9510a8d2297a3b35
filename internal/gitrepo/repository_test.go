package gitrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshlebed/media-metadata-backup-machine/internal/execshell"
	"github.com/joshlebed/media-metadata-backup-machine/internal/gitrepo"
)

const (
	testRepositoryPathConstant   = "/srv/movies-backup"
	testCSVArtifactNameConstant  = "movies.csv"
	testMarkdownArtifactConstant = "MOVIES.md"
	testCommitSubjectConstant    = "Update movie index"
	testCommitTrailerConstant    = "Automated update via cron job"
)

type scriptedGitExecutor struct {
	results          []execshell.ExecutionResult
	errors           []error
	recordedCommands []execshell.CommandDetails
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	invocationIndex := len(executor.recordedCommands) - 1

	var executionResult execshell.ExecutionResult
	if invocationIndex < len(executor.results) {
		executionResult = executor.results[invocationIndex]
	}

	var executionError error
	if invocationIndex < len(executor.errors) {
		executionError = executor.errors[invocationIndex]
	}

	return executionResult, executionError
}

func commandFailure(exitCode int) error {
	return execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: exitCode}}
}

func TestNewRepositoryManagerRequiresExecutor(testInstance *testing.T) {
	manager, creationError := gitrepo.NewRepositoryManager(nil)
	require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
	require.Nil(testInstance, manager)
}

func TestIsRepository(testInstance *testing.T) {
	testCases := []struct {
		name           string
		executionError error
		expectedResult bool
		expectError    bool
	}{
		{
			name:           "repository_detected",
			executionError: nil,
			expectedResult: true,
		},
		{
			name:           "not_a_repository",
			executionError: commandFailure(128),
			expectedResult: false,
		},
		{
			name:           "execution_failure",
			executionError: execshell.CommandExecutionError{Cause: errors.New("git missing")},
			expectError:    true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedGitExecutor{errors: []error{testCase.executionError}}
			manager, creationError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, creationError)

			isRepository, detectionError := manager.IsRepository(context.Background(), testRepositoryPathConstant)
			if testCase.expectError {
				require.Error(testInstance, detectionError)
				return
			}
			require.NoError(testInstance, detectionError)
			require.Equal(testInstance, testCase.expectedResult, isRepository)
			require.Equal(testInstance, []string{"rev-parse", "--git-dir"}, executor.recordedCommands[0].Arguments)
			require.Equal(testInstance, testRepositoryPathConstant, executor.recordedCommands[0].WorkingDirectory)
		})
	}
}

func TestHasArtifactChanges(testInstance *testing.T) {
	testCases := []struct {
		name           string
		executionError error
		expectedResult bool
		expectError    bool
	}{
		{
			name:           "artifacts_unchanged",
			executionError: nil,
			expectedResult: false,
		},
		{
			name:           "artifacts_changed",
			executionError: commandFailure(1),
			expectedResult: true,
		},
		{
			name:           "diff_hard_failure",
			executionError: commandFailure(129),
			expectError:    true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedGitExecutor{errors: []error{testCase.executionError}}
			manager, creationError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, creationError)

			artifactPaths := []string{testCSVArtifactNameConstant, testMarkdownArtifactConstant}
			hasChanges, diffError := manager.HasArtifactChanges(context.Background(), testRepositoryPathConstant, artifactPaths)
			if testCase.expectError {
				require.Error(testInstance, diffError)
				return
			}
			require.NoError(testInstance, diffError)
			require.Equal(testInstance, testCase.expectedResult, hasChanges)
			require.Equal(
				testInstance,
				[]string{"diff", "--quiet", "HEAD", "--", testCSVArtifactNameConstant, testMarkdownArtifactConstant},
				executor.recordedCommands[0].Arguments,
			)
		})
	}
}

func TestStagePathsStagesExactlyTheSuppliedArtifacts(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	stageError := manager.StagePaths(context.Background(), testRepositoryPathConstant, []string{testCSVArtifactNameConstant, testMarkdownArtifactConstant})
	require.NoError(testInstance, stageError)
	require.Equal(
		testInstance,
		[]string{"add", "--", testCSVArtifactNameConstant, testMarkdownArtifactConstant},
		executor.recordedCommands[0].Arguments,
	)
}

func TestCommitComposesMultiParagraphMessage(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	commitError := manager.Commit(
		context.Background(),
		testRepositoryPathConstant,
		testCommitSubjectConstant,
		[]string{"Updated: 2024-06-01 03:00:00", testCommitTrailerConstant},
	)
	require.NoError(testInstance, commitError)
	require.Equal(
		testInstance,
		[]string{"commit", "-m", testCommitSubjectConstant, "-m", "Updated: 2024-06-01 03:00:00", "-m", testCommitTrailerConstant},
		executor.recordedCommands[0].Arguments,
	)
}

func TestCommitRequiresSubject(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	commitError := manager.Commit(context.Background(), testRepositoryPathConstant, "  ", nil)
	require.ErrorIs(testInstance, commitError, gitrepo.ErrCommitSubjectRequired)
	require.Empty(testInstance, executor.recordedCommands)
}

func TestPushReportsFailures(testInstance *testing.T) {
	executor := &scriptedGitExecutor{errors: []error{commandFailure(1)}}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	pushError := manager.Push(context.Background(), testRepositoryPathConstant, "", "")
	require.Error(testInstance, pushError)
	require.Equal(testInstance, []string{"push"}, executor.recordedCommands[0].Arguments)
}

func TestPullAndPushForwardConfiguredRemoteAndBranch(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, manager.PullRebase(context.Background(), testRepositoryPathConstant, "origin", "main"))
	require.NoError(testInstance, manager.Push(context.Background(), testRepositoryPathConstant, "origin", "main"))
	require.Equal(testInstance, []string{"pull", "--rebase", "origin", "main"}, executor.recordedCommands[0].Arguments)
	require.Equal(testInstance, []string{"push", "origin", "main"}, executor.recordedCommands[1].Arguments)
}

func TestBranchWithoutRemoteIsIgnored(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, manager.Push(context.Background(), testRepositoryPathConstant, "", "main"))
	require.Equal(testInstance, []string{"push"}, executor.recordedCommands[0].Arguments)
}

func TestGitCommandsDisableTerminalPrompts(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, manager.PullRebase(context.Background(), testRepositoryPathConstant, "", ""))
	require.Equal(testInstance, "0", executor.recordedCommands[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}
