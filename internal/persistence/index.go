package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/symindex/engine/internal/symtab"
)

// SaveIndex serializes every document in idx as one Badger entry per file
// and writes dir/manifest.json last, so a reader can never observe a
// manifest whose digest promises documents that are not yet durable. dir
// is the artifact directory s.Open was given (the parent of s's own
// Badger subdirectory), since the manifest is spec §6's standalone sibling
// file, not a Badger entry.
func SaveIndex(ctx context.Context, s *Store, dir string, idx *symtab.Index, m Manifest) error {
	for _, rec := range idx.Snapshot() {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("persistence: encode %s: %w", rec.RelativePath, err)
		}
		if err := s.set(ctx, docKey(rec.RelativePath), data); err != nil {
			return fmt.Errorf("persistence: write %s: %w", rec.RelativePath, err)
		}
	}
	return WriteManifestFile(dir, m)
}

// LoadIndex rebuilds a symtab.Index from every document record stored in s.
// The returned index is fully queryable; it has not been validated against
// the current filesystem state, that is IncrementalIndexer's job.
func LoadIndex(ctx context.Context, s *Store, projectRoot, sourceRoot string) (*symtab.Index, error) {
	idx := symtab.New(projectRoot, sourceRoot)

	var decodeErr error
	err := s.scanPrefix([]byte(prefixDocument), func(key, value []byte) error {
		var rec symtab.DocumentRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			decodeErr = fmt.Errorf("persistence: decode %s: %w", strings.TrimPrefix(string(key), prefixDocument), err)
			return decodeErr
		}
		return idx.UpdateDocument(rec.RelativePath, rec)
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return idx, nil
}

// DeleteDocument removes a single document's stored record, used when the
// indexer persists an incremental removal without a full Save.
func DeleteDocument(ctx context.Context, s *Store, relativePath string) error {
	return s.delete(ctx, docKey(relativePath))
}
