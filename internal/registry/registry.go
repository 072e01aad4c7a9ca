// Package registry implements IndexRegistry: the federation layer that
// answers a query against several symtab.Index values at once, in a fixed
// tier precedence, with merge semantics that vary by operation shape.
package registry

import (
	"sort"
	"sync"

	"github.com/symindex/engine/internal/symtab"
)

// Tier names the provenance of a source index. Precedence runs in the
// order Tiers lists them: project code shadows everything else, a git
// dependency is consulted last.
type Tier string

const (
	TierProject   Tier = "project"
	TierLocal     Tier = "local"
	TierSDK       Tier = "sdk"
	TierFramework Tier = "framework"
	TierHosted    Tier = "hosted"
	TierGit       Tier = "git"
)

// Tiers is the federation's fixed precedence order, highest first.
var Tiers = []Tier{TierProject, TierLocal, TierSDK, TierFramework, TierHosted, TierGit}

// Source pairs one loaded index with the tier it was loaded into. CacheKey
// identifies the index within its tier (an import path, an sdk version, a
// repo@commit string) so loader.go can find and Remove it again on unload
// without the registry having to know anything about cache layout.
type Source struct {
	Tier     Tier
	Index    *symtab.Index
	CacheKey string
}

// externalTiers are the tiers Grep only scans when includeExternal is set;
// project and local code is always scanned since that is the code the
// caller is actually working in (spec §4.5).
var externalTiers = map[Tier]bool{
	TierSDK:       true,
	TierFramework: true,
	TierHosted:    true,
	TierGit:       true,
}

// IndexRegistry holds every source index the current workspace member
// depends on, grouped by tier, and answers queries against the union in
// precedence order. It never mutates a member index; that remains the
// job of the IncrementalIndexer that owns it.
type IndexRegistry struct {
	mu      sync.RWMutex
	sources map[Tier][]Source
}

// New creates an empty registry.
func New() *IndexRegistry {
	return &IndexRegistry{sources: make(map[Tier][]Source)}
}

// Add registers idx under tier. Multiple indices may share a tier (e.g.
// several sdk packages); within a tier they are consulted in the order
// they were added.
func (r *IndexRegistry) Add(tier Tier, idx *symtab.Index) {
	r.AddWithKey(tier, "", idx)
}

// AddWithKey registers idx under tier with a cache key loader.go can later
// pass to Remove to unload exactly this index.
func (r *IndexRegistry) AddWithKey(tier Tier, cacheKey string, idx *symtab.Index) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[tier] = append(r.sources[tier], Source{Tier: tier, Index: idx, CacheKey: cacheKey})
}

// Remove drops the index registered under tier with the given cache key, if
// any. It is a no-op if nothing matches, so an unload of an index that was
// never loaded is harmless.
func (r *IndexRegistry) Remove(tier Tier, cacheKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	srcs := r.sources[tier]
	for i, src := range srcs {
		if src.CacheKey == cacheKey {
			r.sources[tier] = append(srcs[:i], srcs[i+1:]...)
			return
		}
	}
}

// Has reports whether an index is registered under tier with the given
// cache key.
func (r *IndexRegistry) Has(tier Tier, cacheKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.sources[tier] {
		if src.CacheKey == cacheKey {
			return true
		}
	}
	return false
}

// orderedLocked returns every registered index across all tiers, in
// federation precedence order. Caller must hold r.mu.
func (r *IndexRegistry) orderedLocked() []Source {
	var out []Source
	for _, tier := range Tiers {
		out = append(out, r.sources[tier]...)
	}
	return out
}

// GetSymbol resolves a symbol by exact id: first tier to have it wins,
// consistent with how a single-project Index.GetSymbol behaves when
// there is no ambiguity to resolve.
func (r *IndexRegistry) GetSymbol(id symtab.SymbolID) (symtab.SymbolInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.orderedLocked() {
		if sym, ok := src.Index.GetSymbol(id); ok {
			return sym, true
		}
	}
	return symtab.SymbolInfo{}, false
}

// FindDefinition resolves a definition by exact id, first hit wins.
func (r *IndexRegistry) FindDefinition(id symtab.SymbolID) (symtab.OccurrenceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.orderedLocked() {
		if occ, ok := src.Index.FindDefinition(id); ok {
			return occ, true
		}
	}
	return symtab.OccurrenceInfo{}, false
}

// FindSymbols runs a glob name search across every tier and deduplicates
// by SymbolID, keeping the first (highest-precedence) occurrence of a
// given id when more than one tier happens to define the same id.
func (r *IndexRegistry) FindSymbols(pattern string) []symtab.SymbolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[symtab.SymbolID]struct{})
	var out []symtab.SymbolInfo
	for _, src := range r.orderedLocked() {
		for _, sym := range src.Index.FindSymbols(pattern) {
			if _, dup := seen[sym.Symbol]; dup {
				continue
			}
			seen[sym.Symbol] = struct{}{}
			out = append(out, sym)
		}
	}
	return out
}

// MembersOf returns the first tier's non-empty member list: a type
// defined in the project shadows a same-named type in a dependency
// entirely, it does not merge their members.
func (r *IndexRegistry) MembersOf(id symtab.SymbolID) []symtab.SymbolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.orderedLocked() {
		if members := src.Index.MembersOf(id); len(members) > 0 {
			return members
		}
	}
	return nil
}

// FindAllReferencesByName aggregates references to every symbol matching
// name across all tiers without deduplication: the same logical
// reference cannot appear twice since each tier owns disjoint files, so
// merging is a plain concatenation, ordered by tier then file then
// position.
func (r *IndexRegistry) FindAllReferencesByName(name string) []symtab.OccurrenceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []symtab.OccurrenceInfo
	for _, src := range r.orderedLocked() {
		for _, sym := range src.Index.FindSymbols(name) {
			out = append(out, src.Index.FindReferences(sym.Symbol)...)
		}
	}
	return out
}

// Grep runs a text search across every tier's source tree, deduplicating
// by source root so a workspace member that appears in more than one
// tier (a path dependency also reachable as a git dependency, say) is
// only scanned once. Project and local code is always scanned; sdk,
// framework, hosted, and git tiers are only scanned when includeExternal
// is true (spec §4.5) since a grep over every dependency's source is
// usually not what "search my code" means.
func (r *IndexRegistry) Grep(opts symtab.GrepOptions, includeExternal bool) ([]symtab.GrepMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seenRoots := make(map[string]struct{})
	var out []symtab.GrepMatch
	for _, src := range r.orderedLocked() {
		if externalTiers[src.Tier] && !includeExternal {
			continue
		}

		root := src.Index.SourceRoot()
		if _, dup := seenRoots[root]; dup {
			continue
		}
		seenRoots[root] = struct{}{}

		matches, err := src.Index.Grep(opts)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].LineNumber < out[j].LineNumber
	})
	return out, nil
}

// SupertypesOf returns the first tier's non-empty supertype list, the same
// shadowing rule MembersOf applies.
func (r *IndexRegistry) SupertypesOf(id symtab.SymbolID) []symtab.SymbolInfo {
	return r.firstNonEmpty(func(idx *symtab.Index) []symtab.SymbolInfo { return idx.SupertypesOf(id) })
}

// SubtypesOf returns the first tier's non-empty subtype list.
func (r *IndexRegistry) SubtypesOf(id symtab.SymbolID) []symtab.SymbolInfo {
	return r.firstNonEmpty(func(idx *symtab.Index) []symtab.SymbolInfo { return idx.SubtypesOf(id) })
}

// GetCalls returns the first tier's non-empty outgoing call list.
func (r *IndexRegistry) GetCalls(id symtab.SymbolID) []symtab.SymbolInfo {
	return r.firstNonEmpty(func(idx *symtab.Index) []symtab.SymbolInfo { return idx.GetCalls(id) })
}

// GetCallers returns the first tier's non-empty caller list.
func (r *IndexRegistry) GetCallers(id symtab.SymbolID) []symtab.SymbolInfo {
	return r.firstNonEmpty(func(idx *symtab.Index) []symtab.SymbolInfo { return idx.GetCallers(id) })
}

func (r *IndexRegistry) firstNonEmpty(fn func(*symtab.Index) []symtab.SymbolInfo) []symtab.SymbolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.orderedLocked() {
		if out := fn(src.Index); len(out) > 0 {
			return out
		}
	}
	return nil
}

// Sources returns every registered (tier, index) pair in precedence order,
// used by callers that need to merge several independently built
// registries into one (e.g. one per workspace member) into a single
// federation.
func (r *IndexRegistry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orderedLocked()
}

// Files lists every source file across all tiers, deduplicated by
// absolute path (sourceRoot joined with the tier-relative path), since two
// tiers never legitimately share a file.
func (r *IndexRegistry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, src := range r.orderedLocked() {
		for _, f := range src.Index.Files() {
			key := src.Index.SourceRoot() + "/" + f
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// SourceRootFor returns the source root of the first tier holding a
// document at the given tier-relative file path, used to resolve a symbol
// occurrence's file back to a readable absolute path.
func (r *IndexRegistry) SourceRootFor(file string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.orderedLocked() {
		if _, ok := src.Index.Document(file); ok {
			return src.Index.SourceRoot(), true
		}
	}
	return "", false
}

// Stats aggregates Stats across every registered index, summed per field;
// LastIndexedAt is the most recent of all sources.
func (r *IndexRegistry) Stats() symtab.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total symtab.Stats
	for _, src := range r.orderedLocked() {
		s := src.Index.Stats()
		total.Files += s.Files
		total.Symbols += s.Symbols
		total.References += s.References
		total.Definitions += s.Definitions
		if s.LastIndexedAt != nil && (total.LastIndexedAt == nil || s.LastIndexedAt.After(*total.LastIndexedAt)) {
			total.LastIndexedAt = s.LastIndexedAt
		}
	}
	return total
}
