// Package persistence implements IndexPersistence: saving and loading a
// symtab.Index artifact to disk so a cold open can skip a full reindex.
// Per spec §6, an artifact directory holds two siblings: `manifest.json`
// (a plain file, see manifest.go) and an opaque index store. The index
// store itself is a BadgerDB directory rather than the single `index.scip`
// file a SCIP-flavored reading of the spec might suggest — see DESIGN.md
// for why Badger (fully grounded in the teacher) was chosen over an
// unverified protobuf dependency; the directory is still opaque to every
// caller outside this package, which is the property spec §6 actually
// cares about.
package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// indexSubdir is where the opaque Badger store lives within an artifact
// directory, keeping it a sibling of manifest.json rather than the same
// directory (Badger owns everything under its directory, including file
// names persistence.go does not control).
const indexSubdir = "index"

// prefixDocument mirrors the teacher's internal/index/storage.go key
// namespace, generalized from per-symbol keys to per-document keys since an
// Index's unit of replacement is the document, not the individual symbol.
const prefixDocument = "doc:" // doc:{relative_path} -> encoded DocumentRecord

// Options configures the on-disk store. Fields and defaults are carried
// over from the teacher's BadgerOptions/DefaultBadgerOptions, since the
// artifact's access pattern (many small document writes, point reads on
// query, periodic GC) is the same shape as the teacher's symbol store.
type Options struct {
	Dir              string
	InMemory         bool
	ReadOnly         bool
	ValueLogFileSize int64
	SyncWrites       bool
	BlockCacheSize   int64
}

// DefaultOptions returns tuning suited to an index artifact: sync writes
// off (the indexer's own debounce already batches persistence calls),
// ZSTD compression, and a small block cache since lookups are point reads.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:              dir,
		ValueLogFileSize: 1 << 28, // 256MB, artifacts are far smaller than a search corpus
		SyncWrites:       false,
		BlockCacheSize:   64,
	}
}

type gcStats struct {
	writeCount int64
	readCount  int64
}

// Store is the Badger-backed artifact. One Store per symtab.Index.
type Store struct {
	db    *badger.DB
	stats *gcStats
	done  chan struct{}
}

// Open creates or opens the artifact directory at opts.Dir, placing the
// Badger store under opts.Dir/index so manifest.json can live as a true
// sibling file (spec §6).
func Open(opts Options) (*Store, error) {
	dbDir := filepath.Join(opts.Dir, indexSubdir)
	if opts.InMemory {
		dbDir = opts.Dir
	}

	badgerOpts := badger.DefaultOptions(dbDir).
		WithValueLogFileSize(opts.ValueLogFileSize).
		WithSyncWrites(opts.SyncWrites).
		WithDetectConflicts(false).
		WithCompression(options.ZSTD).
		WithLogger(nil)

	if opts.BlockCacheSize > 0 {
		badgerOpts = badgerOpts.WithBlockCacheSize(opts.BlockCacheSize << 20)
	}
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.ReadOnly {
		badgerOpts = badgerOpts.WithReadOnly(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", dbDir, err)
	}

	s := &Store{db: db, stats: &gcStats{}, done: make(chan struct{})}
	if !opts.InMemory && !opts.ReadOnly {
		go s.runGC()
	}
	return s, nil
}

func (s *Store) runGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// Close stops background GC and closes the underlying database.
func (s *Store) Close() error {
	close(s.done)
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key []byte) ([]byte, error) {
	atomic.AddInt64(&s.stats.readCount, 1)
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, errNotFound
	}
	return out, err
}

func (s *Store) set(ctx context.Context, key, value []byte) error {
	atomic.AddInt64(&s.stats.writeCount, 1)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *Store) delete(ctx context.Context, key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// scanPrefix visits every key/value pair under prefix.
func (s *Store) scanPrefix(prefix []byte, visit func(key, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := append([]byte{}, item.Key()...)
			var value []byte
			if err := item.Value(func(val []byte) error {
				value = append([]byte{}, val...)
				return nil
			}); err != nil {
				return err
			}
			if err := visit(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func docKey(relativePath string) []byte {
	return []byte(prefixDocument + relativePath)
}
