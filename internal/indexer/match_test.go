package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshlebed/media-metadata-backup-machine/internal/indexer"
)

func TestMatchMovieToTorrent(testInstance *testing.T) {
	torrentRecords := []indexer.TorrentRecord{
		{DisplayName: "Solaris 1972 Criterion", MagnetLink: "magnet:?xt=urn:btih:solaris"},
		{DisplayName: "Stalker (1979)", MagnetLink: "magnet:?xt=urn:btih:stalker"},
		{DisplayName: "Unrelated Release", FileNames: map[string]struct{}{"mirror.1975.x264.mkv": {}}},
	}

	testCases := []struct {
		name               string
		movieTitle         string
		expectedMagnetLink string
		expectMatch        bool
	}{
		{
			name:               "exact_display_name_match",
			movieTitle:         "Stalker (1979)",
			expectedMagnetLink: "magnet:?xt=urn:btih:stalker",
			expectMatch:        true,
		},
		{
			name:               "directory_contains_torrent_name",
			movieTitle:         "Solaris 1972 Criterion Remux",
			expectedMagnetLink: "magnet:?xt=urn:btih:solaris",
			expectMatch:        true,
		},
		{
			name:               "torrent_name_contains_directory",
			movieTitle:         "Solaris 1972",
			expectedMagnetLink: "magnet:?xt=urn:btih:solaris",
			expectMatch:        true,
		},
		{
			name:        "payload_file_name_contains_directory",
			movieTitle:  "Mirror.1975",
			expectMatch: true,
		},
		{
			name:        "no_match",
			movieTitle:  "Andrei Rublev",
			expectMatch: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			matchedTorrent := indexer.MatchMovieToTorrent(indexer.MovieDirectory{Title: testCase.movieTitle}, torrentRecords)
			if !testCase.expectMatch {
				require.Nil(testInstance, matchedTorrent)
				return
			}
			require.NotNil(testInstance, matchedTorrent)
			require.Equal(testInstance, testCase.expectedMagnetLink, matchedTorrent.MagnetLink)
		})
	}
}

func TestMatchMovieToTorrentPrefersExactMatchOverContainment(testInstance *testing.T) {
	torrentRecords := []indexer.TorrentRecord{
		{DisplayName: "Heat 1995 Extended", MagnetLink: "magnet:?xt=urn:btih:extended"},
		{DisplayName: "Heat 1995", MagnetLink: "magnet:?xt=urn:btih:exact"},
	}

	matchedTorrent := indexer.MatchMovieToTorrent(indexer.MovieDirectory{Title: "heat 1995"}, torrentRecords)
	require.NotNil(testInstance, matchedTorrent)
	require.Equal(testInstance, "magnet:?xt=urn:btih:exact", matchedTorrent.MagnetLink)
}
