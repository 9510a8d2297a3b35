// Package pathutils normalizes filesystem paths supplied through configuration.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// PathResolver expands home shortcuts and anchors relative paths to a base directory.
type PathResolver struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewPathResolver constructs a PathResolver using the operating system home lookup.
func NewPathResolver() *PathResolver {
	return NewPathResolverWithProvider(os.UserHomeDir)
}

// NewPathResolverWithProvider constructs a PathResolver with a custom home directory provider.
func NewPathResolverWithProvider(provider HomeDirectoryProvider) *PathResolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &PathResolver{homeDirectoryProvider: provider}
}

// Resolve trims the candidate path, expands a leading tilde, and anchors
// relative results against the supplied base directory.
func (resolver *PathResolver) Resolve(baseDirectory string, candidatePath string) string {
	expandedPath := resolver.ExpandHome(strings.TrimSpace(candidatePath))
	if len(expandedPath) == 0 {
		return expandedPath
	}
	if filepath.IsAbs(expandedPath) {
		return filepath.Clean(expandedPath)
	}
	if len(strings.TrimSpace(baseDirectory)) == 0 {
		return filepath.Clean(expandedPath)
	}
	return filepath.Clean(filepath.Join(baseDirectory, expandedPath))
}

// ExpandHome resolves leading tilde prefixes to the user's home directory.
func (resolver *PathResolver) ExpandHome(candidatePath string) string {
	if resolver == nil || len(candidatePath) == 0 {
		return candidatePath
	}
	if !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	resolvedHomeDirectory := resolver.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}

	if candidatePath == tildeSymbolConstant {
		return resolvedHomeDirectory
	}

	if strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant) {
		relativePath := strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant)
		return filepath.Join(resolvedHomeDirectory, relativePath)
	}

	return candidatePath
}

func (resolver *PathResolver) resolveHomeDirectory() string {
	resolver.initializationGuard.Do(func() {
		resolver.homeDirectory, resolver.homeDirectoryError = resolver.homeDirectoryProvider()
	})
	if resolver.homeDirectoryError != nil {
		return ""
	}
	return resolver.homeDirectory
}
