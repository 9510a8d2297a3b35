package indexer_test

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joshlebed/media-metadata-backup-machine/internal/indexer"
)

const (
	singleFileInfoBencodeConstant = "d6:lengthi1024e4:name11:Inferno.mkve"
	singleFileTorrentBencode      = "d8:announce20:http://tracker.one/a13:announce-listll20:http://tracker.one/ael20:http://tracker.two/aee4:info" + singleFileInfoBencodeConstant + "e"
	multiFileInfoBencodeConstant  = "d5:filesld4:pathl9:movie.mkveed4:pathl9:extra.srteee4:name6:Foldere"
	multiFileTorrentBencode       = "d4:info" + multiFileInfoBencodeConstant + "e"
	v2InfoBencodeConstant         = "d9:file treed10:Movie2.mkvd0:d6:lengthi100eeee12:meta versioni2ee"
	v2TorrentBencodeConstant      = "d4:info" + v2InfoBencodeConstant + "e"
)

func writeTorrentFile(testInstance *testing.T, fileName string, encodedTorrent string) string {
	testInstance.Helper()
	torrentPath := filepath.Join(testInstance.TempDir(), fileName)
	require.NoError(testInstance, os.WriteFile(torrentPath, []byte(encodedTorrent), 0o644))
	return torrentPath
}

func TestParseTorrentFileV1(testInstance *testing.T) {
	torrentPath := writeTorrentFile(testInstance, "inferno.torrent", singleFileTorrentBencode)

	torrentRecord, parseError := indexer.ParseTorrentFile(torrentPath)
	require.NoError(testInstance, parseError)

	infoDigest := sha1.Sum([]byte(singleFileInfoBencodeConstant))
	expectedInfohash := "btih:" + hex.EncodeToString(infoDigest[:])
	require.Equal(testInstance, expectedInfohash, torrentRecord.Infohash)
	require.Equal(testInstance, "Inferno.mkv", torrentRecord.DisplayName)

	expectedMagnet := "magnet:?xt=urn:btih:" + hex.EncodeToString(infoDigest[:]) +
		"&dn=Inferno.mkv" +
		"&tr=http%3A%2F%2Ftracker.one%2Fa" +
		"&tr=http%3A%2F%2Ftracker.two%2Fa"
	require.Equal(testInstance, expectedMagnet, torrentRecord.MagnetLink)

	require.Contains(testInstance, torrentRecord.FileNames, "inferno.mkv")
}

func TestParseTorrentFileMultiFile(testInstance *testing.T) {
	torrentPath := writeTorrentFile(testInstance, "folder.torrent", multiFileTorrentBencode)

	torrentRecord, parseError := indexer.ParseTorrentFile(torrentPath)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, "Folder", torrentRecord.DisplayName)
	require.Contains(testInstance, torrentRecord.FileNames, "movie.mkv")
	require.Contains(testInstance, torrentRecord.FileNames, "extra.srt")
}

func TestParseTorrentFileV2UsesMultihashInfohash(testInstance *testing.T) {
	torrentPath := writeTorrentFile(testInstance, "v2.torrent", v2TorrentBencodeConstant)

	torrentRecord, parseError := indexer.ParseTorrentFile(torrentPath)
	require.NoError(testInstance, parseError)

	infoDigest := sha256.Sum256([]byte(v2InfoBencodeConstant))
	require.Equal(testInstance, "btmh:1220"+hex.EncodeToString(infoDigest[:]), torrentRecord.Infohash)
	require.Contains(testInstance, torrentRecord.FileNames, "movie2.mkv")
}

func TestParseTorrentFileWithoutInfoFallsBackToFileName(testInstance *testing.T) {
	torrentPath := writeTorrentFile(testInstance, "orphan.torrent", "d8:announce10:http://t/ae")

	torrentRecord, parseError := indexer.ParseTorrentFile(torrentPath)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, "orphan", torrentRecord.DisplayName)
	require.Empty(testInstance, torrentRecord.Infohash)
	require.Empty(testInstance, torrentRecord.MagnetLink)
}

func TestLoadTorrentsSkipsMalformedFiles(testInstance *testing.T) {
	torrentsDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(torrentsDirectory, "good.torrent"), []byte(singleFileTorrentBencode), 0o644))
	require.NoError(testInstance, os.WriteFile(filepath.Join(torrentsDirectory, "broken.torrent"), []byte("not bencode"), 0o644))
	require.NoError(testInstance, os.WriteFile(filepath.Join(torrentsDirectory, "notes.txt"), []byte("ignored"), 0o644))

	nestedDirectory := filepath.Join(torrentsDirectory, "nested")
	require.NoError(testInstance, os.MkdirAll(nestedDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(nestedDirectory, "nested.torrent"), []byte(multiFileTorrentBencode), 0o644))

	torrentRecords, loadError := indexer.LoadTorrents(context.Background(), zaptest.NewLogger(testInstance), torrentsDirectory)
	require.NoError(testInstance, loadError)
	require.Len(testInstance, torrentRecords, 2)

	displayNames := make([]string, 0, len(torrentRecords))
	for _, torrentRecord := range torrentRecords {
		displayNames = append(displayNames, torrentRecord.DisplayName)
	}
	require.ElementsMatch(testInstance, []string{"Inferno.mkv", "Folder"}, displayNames)
}
