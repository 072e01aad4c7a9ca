// Package analyzer implements AnalyzerAdapter: the boundary between a
// per-package symtab.Index and whatever source-of-truth understands a
// particular language. The index treats an adapter as an opaque
// collaborator; it never inspects a language's grammar itself.
package analyzer

import (
	"context"
	"time"

	"github.com/symindex/engine/internal/symtab"
)

// FileChangeKind describes how one file's status changed relative to the
// last time the adapter analyzed it.
type FileChangeKind string

const (
	FileAdded    FileChangeKind = "added"
	FileModified FileChangeKind = "modified"
	FileRemoved  FileChangeKind = "removed"
)

// FileChange pairs a path with how it changed, returned by FileChanges so
// an indexer can decide which files need a fresh ResolveUnit call.
type FileChange struct {
	Path string
	Kind FileChangeKind
}

// Adapter is the contract an IncrementalIndexer drives. Implementations
// wrap a concrete language toolchain (tree-sitter, an LSP server, a
// compiler's own AST) and must be safe for concurrent ResolveUnit calls
// across distinct files.
type Adapter interface {
	// ListSourceFiles returns every file under root the adapter can
	// analyze, relative to root.
	ListSourceFiles(ctx context.Context, root string) ([]string, error)

	// ResolveUnit analyzes one file and returns the DocumentRecord the
	// index should store for it. A parse error is returned, not panicked;
	// the indexer decides whether a partial record is still usable.
	ResolveUnit(ctx context.Context, root, relativePath string) (symtab.DocumentRecord, error)

	// FileChanges reports files that changed since the previous call,
	// using mtime/hash bookkeeping internal to the adapter.
	FileChanges(ctx context.Context, root string) ([]FileChange, error)

	// Dispose releases any resources (parser handles, caches) the adapter
	// holds. Once called the adapter must not be reused.
	Dispose() error
}

// Digest computes a short content fingerprint for a single file's bytes,
// used by the indexer's cache-validity check and by FileChanges
// implementations that track content hashes instead of mtimes.
func Digest(content []byte) []byte {
	return contentHash(content)
}

// now exists so analyzer code never calls time.Now() directly in more
// than one place, keeping LastIndexedAt stamping consistent.
func now() time.Time { return time.Now() }
