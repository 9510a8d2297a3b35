// Package indexer regenerates the movie library artifacts. It scans the
// movie directory tree, parses torrent metadata into magnet links, matches
// movies to torrents, and rewrites the CSV and Markdown outputs only when
// their content actually changed. The package offers two interchangeable
// engines: a built-in in-process indexer and an adapter that shells out to
// an external indexer script.
package indexer
