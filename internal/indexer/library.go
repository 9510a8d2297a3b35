package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	hiddenEntryPrefixConstant          = "."
	libraryScanFailureTemplateConstant = "unable to scan movies directory %s: %w"
)

// MovieDirectory identifies one movie in the library.
type MovieDirectory struct {
	Path  string
	Title string
}

// LibraryScanOptions tunes which directory entries count as movies.
type LibraryScanOptions struct {
	SkipHidden         bool
	IgnoredDirectories map[string]struct{}
}

// ScanMovieLibrary lists the immediate subdirectories of moviesDirectory in
// case-insensitive alphabetical order, together with the most recent
// modification time across them.
func ScanMovieLibrary(moviesDirectory string, scanOptions LibraryScanOptions) ([]MovieDirectory, time.Time, error) {
	directoryEntries, readError := os.ReadDir(moviesDirectory)
	if readError != nil {
		return nil, time.Time{}, fmt.Errorf(libraryScanFailureTemplateConstant, moviesDirectory, readError)
	}

	var movieDirectories []MovieDirectory
	var mostRecentModification time.Time
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDir() {
			continue
		}
		entryName := directoryEntry.Name()
		if scanOptions.SkipHidden && strings.HasPrefix(entryName, hiddenEntryPrefixConstant) {
			continue
		}
		if _, ignored := scanOptions.IgnoredDirectories[entryName]; ignored {
			continue
		}

		movieDirectories = append(movieDirectories, MovieDirectory{
			Path:  filepath.Join(moviesDirectory, entryName),
			Title: entryName,
		})

		if entryInformation, statError := directoryEntry.Info(); statError == nil {
			if entryInformation.ModTime().After(mostRecentModification) {
				mostRecentModification = entryInformation.ModTime()
			}
		}
	}

	sort.SliceStable(movieDirectories, func(firstIndex int, secondIndex int) bool {
		return strings.ToLower(movieDirectories[firstIndex].Title) < strings.ToLower(movieDirectories[secondIndex].Title)
	})

	return movieDirectories, mostRecentModification, nil
}
