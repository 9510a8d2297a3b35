package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joshlebed/media-metadata-backup-machine/internal/execshell"
)

const (
	gitExecutorMissingMessageConstant           = "git executor not configured"
	repositoryPathRequiredMessageConstant       = "repository path must be provided"
	commitSubjectRequiredMessageConstant        = "commit subject must be provided"
	artifactPathsRequiredMessageConstant        = "artifact paths must be provided"
	repositoryDetectionErrorTemplateConstant    = "failed to analyze repository: %w"
	pullFailureTemplateConstant                 = "failed to pull latest changes: %w"
	diffFailureTemplateConstant                 = "failed to compare artifacts against HEAD: %w"
	stageFailureTemplateConstant                = "failed to stage artifacts: %w"
	commitFailureTemplateConstant               = "failed to create commit: %w"
	pushFailureTemplateConstant                 = "failed to push current branch: %w"
	gitRevParseSubcommandConstant               = "rev-parse"
	gitGitDirFlagConstant                       = "--git-dir"
	gitPullSubcommandConstant                   = "pull"
	gitRebaseFlagConstant                       = "--rebase"
	gitDiffSubcommandConstant                   = "diff"
	gitQuietFlagConstant                        = "--quiet"
	gitHeadReferenceConstant                    = "HEAD"
	gitPathSeparatorArgumentConstant            = "--"
	gitAddSubcommandConstant                    = "add"
	gitCommitSubcommandConstant                 = "commit"
	gitMessageFlagConstant                      = "-m"
	gitPushSubcommandConstant                   = "push"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	diffChangedExitCodeConstant                 = 1
)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRepositoryPathRequired indicates an operation received an empty repository path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrCommitSubjectRequired indicates a commit was requested without a subject line.
var ErrCommitSubjectRequired = errors.New(commitSubjectRequiredMessageConstant)

// ErrArtifactPathsRequired indicates a diff or stage was requested without artifact paths.
var ErrArtifactPathsRequired = errors.New(artifactPathsRequiredMessageConstant)

// GitExecutor exposes the subset of shell execution used by repository operations.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager performs git operations against a single working tree.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager from the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// IsRepository reports whether the supplied directory answers git rev-parse --git-dir.
func (manager *RepositoryManager) IsRepository(executionContext context.Context, repositoryPath string) (bool, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return false, ErrRepositoryPathRequired
	}

	_, executionError := manager.executeGit(executionContext, trimmedRepositoryPath, []string{gitRevParseSubcommandConstant, gitGitDirFlagConstant})
	if executionError == nil {
		return true, nil
	}

	if _, exitCodeAvailable := execshell.ExitCodeFromError(executionError); exitCodeAvailable {
		return false, nil
	}

	return false, fmt.Errorf(repositoryDetectionErrorTemplateConstant, executionError)
}

// PullRebase fast-forwards the repository using a rebase pull. Remote and
// branch are optional; empty values defer to the configured upstream.
func (manager *RepositoryManager) PullRebase(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return ErrRepositoryPathRequired
	}

	pullArguments := appendRemoteAndBranch([]string{gitPullSubcommandConstant, gitRebaseFlagConstant}, remoteName, branchName)
	_, executionError := manager.executeGit(executionContext, trimmedRepositoryPath, pullArguments)
	if executionError != nil {
		return fmt.Errorf(pullFailureTemplateConstant, executionError)
	}
	return nil
}

// HasArtifactChanges reports whether any of the supplied paths differ from their committed state at HEAD.
func (manager *RepositoryManager) HasArtifactChanges(executionContext context.Context, repositoryPath string, artifactPaths []string) (bool, error) {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return false, ErrRepositoryPathRequired
	}
	if len(artifactPaths) == 0 {
		return false, ErrArtifactPathsRequired
	}

	diffArguments := []string{gitDiffSubcommandConstant, gitQuietFlagConstant, gitHeadReferenceConstant, gitPathSeparatorArgumentConstant}
	diffArguments = append(diffArguments, artifactPaths...)

	_, executionError := manager.executeGit(executionContext, trimmedRepositoryPath, diffArguments)
	if executionError == nil {
		return false, nil
	}

	if exitCode, exitCodeAvailable := execshell.ExitCodeFromError(executionError); exitCodeAvailable && exitCode == diffChangedExitCodeConstant {
		return true, nil
	}

	return false, fmt.Errorf(diffFailureTemplateConstant, executionError)
}

// StagePaths stages exactly the supplied paths, never the full working tree.
func (manager *RepositoryManager) StagePaths(executionContext context.Context, repositoryPath string, artifactPaths []string) error {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return ErrRepositoryPathRequired
	}
	if len(artifactPaths) == 0 {
		return ErrArtifactPathsRequired
	}

	stageArguments := []string{gitAddSubcommandConstant, gitPathSeparatorArgumentConstant}
	stageArguments = append(stageArguments, artifactPaths...)

	_, executionError := manager.executeGit(executionContext, trimmedRepositoryPath, stageArguments)
	if executionError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, executionError)
	}
	return nil
}

// Commit creates a commit whose message is the subject followed by one paragraph per trailer.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, commitSubject string, commitTrailers []string) error {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return ErrRepositoryPathRequired
	}
	if len(strings.TrimSpace(commitSubject)) == 0 {
		return ErrCommitSubjectRequired
	}

	commitArguments := []string{gitCommitSubcommandConstant, gitMessageFlagConstant, commitSubject}
	for _, commitTrailer := range commitTrailers {
		commitArguments = append(commitArguments, gitMessageFlagConstant, commitTrailer)
	}

	_, executionError := manager.executeGit(executionContext, trimmedRepositoryPath, commitArguments)
	if executionError != nil {
		return fmt.Errorf(commitFailureTemplateConstant, executionError)
	}
	return nil
}

// Push publishes the current branch. Remote and branch are optional; empty
// values defer to the configured upstream.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return ErrRepositoryPathRequired
	}

	pushArguments := appendRemoteAndBranch([]string{gitPushSubcommandConstant}, remoteName, branchName)
	_, executionError := manager.executeGit(executionContext, trimmedRepositoryPath, pushArguments)
	if executionError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, executionError)
	}
	return nil
}

// appendRemoteAndBranch adds the remote and branch arguments when supplied.
// A branch without a remote is ignored because git requires the pair.
func appendRemoteAndBranch(arguments []string, remoteName string, branchName string) []string {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return arguments
	}
	arguments = append(arguments, trimmedRemoteName)
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) > 0 {
		arguments = append(arguments, trimmedBranchName)
	}
	return arguments
}

func (manager *RepositoryManager) executeGit(executionContext context.Context, repositoryPath string, arguments []string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
}
