package indexer

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	torrentFileExtensionConstant        = ".torrent"
	torrentNameKeyConstant              = "name"
	torrentLengthKeyConstant            = "length"
	torrentFilesKeyConstant             = "files"
	torrentPathKeyConstant              = "path"
	torrentFileTreeKeyConstant          = "file tree"
	torrentMetaVersionKeyConstant       = "meta version"
	torrentAnnounceKeyConstant          = "announce"
	torrentAnnounceListKeyConstant      = "announce-list"
	torrentV2MetaVersionConstant        = 2
	infohashV1PrefixConstant            = "btih:"
	infohashV2PrefixConstant            = "btmh:1220"
	magnetURIPrefixConstant             = "magnet:?"
	magnetExactTopicV1TemplateConstant  = "urn:btih:%s"
	magnetExactTopicV2TemplateConstant  = "urn:btmh:%s"
	torrentParseWarningMessageConstant  = "Skipping unparsable torrent file"
	torrentPathLogFieldNameConstant     = "torrent_path"
	torrentWalkFailureTemplateConstant  = "unable to scan torrents directory %s: %w"
	torrentDecodeFailureTemplate        = "unable to decode torrent %s: %w"
)

// TorrentRecord captures the indexed metadata of a single torrent file.
type TorrentRecord struct {
	FilePath    string
	DisplayName string
	Infohash    string
	MagnetLink  string
	// FileNames holds lowercased basenames of the torrent payload files.
	FileNames map[string]struct{}
}

// ParseTorrentFile decodes a torrent file into a TorrentRecord.
func ParseTorrentFile(torrentPath string) (TorrentRecord, error) {
	rawTorrent, readError := os.ReadFile(torrentPath)
	if readError != nil {
		return TorrentRecord{}, fmt.Errorf(torrentDecodeFailureTemplate, torrentPath, readError)
	}

	decodedValue, infoSlice, decodeError := decodeBencodeDocument(rawTorrent)
	if decodeError != nil {
		return TorrentRecord{}, fmt.Errorf(torrentDecodeFailureTemplate, torrentPath, decodeError)
	}
	torrentDictionary, isDictionary := decodedValue.(map[string]bencodeValue)
	if !isDictionary {
		return TorrentRecord{}, fmt.Errorf(torrentDecodeFailureTemplate, torrentPath, ErrBencodeNotDictionary)
	}

	displayName := resolveDisplayName(torrentDictionary, torrentPath)
	record := TorrentRecord{
		FilePath:    torrentPath,
		DisplayName: displayName,
		FileNames:   collectTorrentFileNames(torrentDictionary),
	}
	if infoSlice == nil {
		return record, nil
	}

	record.Infohash = computeInfohash(torrentDictionary, infoSlice)
	record.MagnetLink = buildMagnetLink(torrentDictionary, record.Infohash, displayName)
	return record, nil
}

func resolveDisplayName(torrentDictionary map[string]bencodeValue, torrentPath string) string {
	if infoDictionary, hasInfo := torrentDictionary[bencodeInfoDictionaryKeyConstant].(map[string]bencodeValue); hasInfo {
		if nameBytes, hasName := infoDictionary[torrentNameKeyConstant].([]byte); hasName {
			return string(nameBytes)
		}
	}
	return strings.TrimSuffix(filepath.Base(torrentPath), torrentFileExtensionConstant)
}

// computeInfohash digests the raw info slice: SHA-1 for v1 torrents and
// SHA-256 with the sha2-256 multihash prefix for v2 torrents.
func computeInfohash(torrentDictionary map[string]bencodeValue, infoSlice []byte) string {
	infoDictionary, _ := torrentDictionary[bencodeInfoDictionaryKeyConstant].(map[string]bencodeValue)
	if metaVersion, hasMetaVersion := infoDictionary[torrentMetaVersionKeyConstant].(int64); hasMetaVersion && metaVersion == torrentV2MetaVersionConstant {
		digest := sha256.Sum256(infoSlice)
		return infohashV2PrefixConstant + hex.EncodeToString(digest[:])
	}
	digest := sha1.Sum(infoSlice)
	return infohashV1PrefixConstant + hex.EncodeToString(digest[:])
}

// buildMagnetLink composes a magnet URI with the exact topic, display name,
// and deduplicated tracker parameters.
func buildMagnetLink(torrentDictionary map[string]bencodeValue, infohash string, displayName string) string {
	var exactTopic string
	switch {
	case strings.HasPrefix(infohash, infohashV1PrefixConstant):
		exactTopic = fmt.Sprintf(magnetExactTopicV1TemplateConstant, strings.TrimPrefix(infohash, infohashV1PrefixConstant))
	case strings.HasPrefix(infohash, "btmh:"):
		exactTopic = fmt.Sprintf(magnetExactTopicV2TemplateConstant, strings.TrimPrefix(infohash, "btmh:"))
	default:
		return ""
	}

	parameters := []string{"xt=" + escapeMagnetParameter(exactTopic, true)}
	if len(displayName) > 0 {
		parameters = append(parameters, "dn="+escapeMagnetParameter(displayName, false))
	}
	for _, trackerAddress := range collectTrackerAddresses(torrentDictionary) {
		parameters = append(parameters, "tr="+escapeMagnetParameter(trackerAddress, false))
	}
	return magnetURIPrefixConstant + strings.Join(parameters, "&")
}

// escapeMagnetParameter percent-encodes a parameter value. The exact topic
// keeps its urn colons readable.
func escapeMagnetParameter(parameterValue string, preserveColons bool) string {
	escapedValue := url.QueryEscape(parameterValue)
	escapedValue = strings.ReplaceAll(escapedValue, "+", "%20")
	if preserveColons {
		escapedValue = strings.ReplaceAll(escapedValue, "%3A", ":")
	}
	return escapedValue
}

// collectTrackerAddresses gathers trackers from announce and announce-list,
// preserving order and dropping duplicates.
func collectTrackerAddresses(torrentDictionary map[string]bencodeValue) []string {
	var trackerAddresses []string
	seenAddresses := map[string]struct{}{}

	appendTracker := func(trackerAddress string) {
		if len(trackerAddress) == 0 {
			return
		}
		if _, alreadySeen := seenAddresses[trackerAddress]; alreadySeen {
			return
		}
		seenAddresses[trackerAddress] = struct{}{}
		trackerAddresses = append(trackerAddresses, trackerAddress)
	}

	if announceBytes, hasAnnounce := torrentDictionary[torrentAnnounceKeyConstant].([]byte); hasAnnounce {
		appendTracker(string(announceBytes))
	}
	if announceList, hasAnnounceList := torrentDictionary[torrentAnnounceListKeyConstant].([]bencodeValue); hasAnnounceList {
		for _, announceEntry := range announceList {
			switch typedEntry := announceEntry.(type) {
			case []bencodeValue:
				for _, nestedEntry := range typedEntry {
					if trackerBytes, isBytes := nestedEntry.([]byte); isBytes {
						appendTracker(string(trackerBytes))
					}
				}
			case []byte:
				appendTracker(string(typedEntry))
			}
		}
	}
	return trackerAddresses
}

// collectTorrentFileNames returns lowercased payload file basenames across
// single-file, multi-file, and v2 file-tree layouts.
func collectTorrentFileNames(torrentDictionary map[string]bencodeValue) map[string]struct{} {
	fileNames := map[string]struct{}{}
	infoDictionary, hasInfo := torrentDictionary[bencodeInfoDictionaryKeyConstant].(map[string]bencodeValue)
	if !hasInfo {
		return fileNames
	}

	addFileName := func(fileName string) {
		if len(fileName) > 0 {
			fileNames[strings.ToLower(fileName)] = struct{}{}
		}
	}

	if _, isSingleFile := infoDictionary[torrentLengthKeyConstant]; isSingleFile {
		if nameBytes, hasName := infoDictionary[torrentNameKeyConstant].([]byte); hasName {
			addFileName(path.Base(string(nameBytes)))
		}
	}

	if fileEntries, hasFiles := infoDictionary[torrentFilesKeyConstant].([]bencodeValue); hasFiles {
		for _, fileEntry := range fileEntries {
			fileDictionary, isDictionary := fileEntry.(map[string]bencodeValue)
			if !isDictionary {
				continue
			}
			switch pathValue := fileDictionary[torrentPathKeyConstant].(type) {
			case []bencodeValue:
				if len(pathValue) > 0 {
					if segmentBytes, isBytes := pathValue[len(pathValue)-1].([]byte); isBytes {
						addFileName(path.Base(string(segmentBytes)))
					}
				}
			case []byte:
				addFileName(path.Base(string(pathValue)))
			}
		}
	}

	if fileTree, hasFileTree := infoDictionary[torrentFileTreeKeyConstant].(map[string]bencodeValue); hasFileTree {
		collectFileTreeLeaves(fileTree, addFileName)
	}
	return fileNames
}

// collectFileTreeLeaves walks a v2 file tree. A node containing the empty
// key is a file leaf named by its parent key.
func collectFileTreeLeaves(fileTree map[string]bencodeValue, addFileName func(string)) {
	for nodeName, nodeValue := range fileTree {
		nodeDictionary, isDictionary := nodeValue.(map[string]bencodeValue)
		if !isDictionary {
			continue
		}
		if _, isLeaf := nodeDictionary[""]; isLeaf {
			addFileName(nodeName)
			continue
		}
		collectFileTreeLeaves(nodeDictionary, addFileName)
	}
}

// LoadTorrents recursively scans torrentsDirectory for .torrent files and
// parses each one. Malformed torrents are logged and skipped.
func LoadTorrents(executionContext context.Context, logger *zap.Logger, torrentsDirectory string) ([]TorrentRecord, error) {
	var torrentRecords []TorrentRecord
	walkError := filepath.WalkDir(torrentsDirectory, func(candidatePath string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		if directoryEntry.IsDir() || !strings.EqualFold(filepath.Ext(candidatePath), torrentFileExtensionConstant) {
			return nil
		}
		torrentRecord, parseError := ParseTorrentFile(candidatePath)
		if parseError != nil {
			logger.Warn(torrentParseWarningMessageConstant,
				zap.String(torrentPathLogFieldNameConstant, candidatePath),
				zap.Error(parseError),
			)
			return nil
		}
		torrentRecords = append(torrentRecords, torrentRecord)
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(torrentWalkFailureTemplateConstant, torrentsDirectory, walkError)
	}
	return torrentRecords, nil
}
