package indexer

import "strings"

// MatchMovieToTorrent finds the torrent backing a movie directory. Matching
// runs in three tiers of decreasing confidence: exact display-name match,
// containment of one name in the other, and finally containment of the
// directory name inside any torrent payload file name. It returns nil when
// no tier matches.
func MatchMovieToTorrent(movieDirectory MovieDirectory, torrentRecords []TorrentRecord) *TorrentRecord {
	directoryName := strings.ToLower(movieDirectory.Title)

	for torrentIndex := range torrentRecords {
		torrentName := strings.ToLower(torrentRecords[torrentIndex].DisplayName)
		if len(torrentName) > 0 && torrentName == directoryName {
			return &torrentRecords[torrentIndex]
		}
	}

	for torrentIndex := range torrentRecords {
		torrentName := strings.ToLower(torrentRecords[torrentIndex].DisplayName)
		if len(torrentName) > 0 && (strings.Contains(directoryName, torrentName) || strings.Contains(torrentName, directoryName)) {
			return &torrentRecords[torrentIndex]
		}
	}

	for torrentIndex := range torrentRecords {
		for payloadFileName := range torrentRecords[torrentIndex].FileNames {
			if strings.Contains(payloadFileName, directoryName) {
				return &torrentRecords[torrentIndex]
			}
		}
	}

	return nil
}
