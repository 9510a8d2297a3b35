package indexer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	csvTitleColumnNameConstant      = "title"
	csvDirectoryColumnNameConstant  = "directory"
	csvMagnetColumnNameConstant     = "magnet"
	markdownHeadingConstant         = "# Movie Library Index"
	markdownMovieCountTemplate      = "**Movies:** %d"
	markdownLastUpdatedTemplate     = "**Last Updated:** %s"
	markdownFooterNoteConstant      = "_Auto-generated movie list. See movies.csv for full details._"
	markdownBulletTemplateConstant  = "- %s"
	indexTimestampLayoutConstant    = "2006-01-02 15:04:05"
	artifactWriteFailureTemplate    = "unable to write %s: %w"
	artifactReadFailureTemplate     = "unable to read %s: %w"
	artifactFileModeConstant        = 0o644
)

// IndexRow is one movie entry destined for the CSV and Markdown artifacts.
type IndexRow struct {
	Title         string
	DirectoryPath string
	MagnetLink    string
}

// sortIndexRows orders rows case-insensitively by title.
func sortIndexRows(indexRows []IndexRow) []IndexRow {
	sortedRows := make([]IndexRow, len(indexRows))
	copy(sortedRows, indexRows)
	sort.SliceStable(sortedRows, func(firstIndex int, secondIndex int) bool {
		return strings.ToLower(sortedRows[firstIndex].Title) < strings.ToLower(sortedRows[secondIndex].Title)
	})
	return sortedRows
}

// RenderCSV produces the CSV artifact content with a title, directory, and
// magnet column per movie.
func RenderCSV(indexRows []IndexRow) (string, error) {
	contentBuffer := &bytes.Buffer{}
	csvWriter := csv.NewWriter(contentBuffer)

	csvRecords := [][]string{{csvTitleColumnNameConstant, csvDirectoryColumnNameConstant, csvMagnetColumnNameConstant}}
	for _, indexRow := range sortIndexRows(indexRows) {
		csvRecords = append(csvRecords, []string{indexRow.Title, indexRow.DirectoryPath, indexRow.MagnetLink})
	}
	if writeError := csvWriter.WriteAll(csvRecords); writeError != nil {
		return "", writeError
	}
	return contentBuffer.String(), nil
}

// RenderMarkdown produces the Markdown artifact: a heading with the movie
// count and last-updated timestamp followed by one bullet per title.
func RenderMarkdown(indexRows []IndexRow, lastUpdated time.Time) string {
	markdownBuilder := &strings.Builder{}
	markdownBuilder.WriteString(markdownHeadingConstant + "\n\n")
	markdownBuilder.WriteString(fmt.Sprintf(markdownMovieCountTemplate, len(indexRows)) + "\n")
	markdownBuilder.WriteString(fmt.Sprintf(markdownLastUpdatedTemplate, lastUpdated.Format(indexTimestampLayoutConstant)) + "\n\n")
	markdownBuilder.WriteString(markdownFooterNoteConstant + "\n\n\n")
	for _, indexRow := range sortIndexRows(indexRows) {
		markdownBuilder.WriteString(fmt.Sprintf(markdownBulletTemplateConstant, indexRow.Title) + "\n")
	}
	return markdownBuilder.String()
}

// WriteFileIfChanged rewrites targetPath only when its current content
// differs. It reports whether a write happened.
func WriteFileIfChanged(targetPath string, newContent string) (bool, error) {
	existingContent, readError := os.ReadFile(targetPath)
	if readError != nil && !errors.Is(readError, os.ErrNotExist) {
		return false, fmt.Errorf(artifactReadFailureTemplate, targetPath, readError)
	}
	if readError == nil && string(existingContent) == newContent {
		return false, nil
	}
	if writeError := os.WriteFile(targetPath, []byte(newContent), artifactFileModeConstant); writeError != nil {
		return false, fmt.Errorf(artifactWriteFailureTemplate, targetPath, writeError)
	}
	return true, nil
}
