package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
)

// projectDigest fingerprints a file list by path, size and mtime so a
// warm start can detect additions, removals and modifications without
// re-parsing every file. It deliberately does not hash file content: that
// would defeat the point of skipping the scan it's meant to avoid.
func projectDigest(root string, files []string) string {
	type entry struct {
		path string
		size int64
		mod  int64
	}
	entries := make([]entry, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f))
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: f, size: info.Size(), mod: info.ModTime().UnixNano()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.path))
		h.Write([]byte{0})
		writeInt64(h, e.size)
		writeInt64(h, e.mod)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeInt64(h interface{ Write([]byte) (int, error) }, v int64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}

// trackedFiles returns the paths the indexer currently has a digest for,
// used to recompute a manifest's ContentDigest from the same mtime/size
// fingerprint tryWarmStart uses, so the two are always comparable.
func trackedFiles(digests map[string][]byte) []string {
	paths := make([]string, 0, len(digests))
	for p := range digests {
		paths = append(paths, p)
	}
	return paths
}
