package symtab

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Index is the aggregate root: one package's symbols, occurrences and
// relationships, plus every map derived from them. It is owned exclusively
// by whichever IncrementalIndexer (or registry loader) created it.
//
// Field shapes follow the teacher's internal/index/storage.go conventions
// (flat structs, explicit maps keyed by a hash/id) generalized from a
// Badger-backed store into the in-memory aggregate the specification
// describes; persistence is handled separately by internal/persistence.
type Index struct {
	mu sync.RWMutex

	projectRoot string
	sourceRoot  string

	documents map[string]DocumentRecord

	bySymbol      map[SymbolID]SymbolInfo
	definitionsOf map[SymbolID]OccurrenceInfo
	referencesOf  map[SymbolID][]OccurrenceInfo
	byName        map[string][]SymbolID
	byKind        map[SymbolKind]map[SymbolID]struct{}
	relationships []Relationship
	childrenOf    map[SymbolID][]SymbolID

	lastIndexedAt *time.Time
}

// New creates an empty Index. sourceRoot may differ from projectRoot when
// the index describes a cached dependency rather than the active project.
func New(projectRoot, sourceRoot string) *Index {
	if sourceRoot == "" {
		sourceRoot = projectRoot
	}
	return &Index{
		projectRoot:   projectRoot,
		sourceRoot:    sourceRoot,
		documents:     make(map[string]DocumentRecord),
		bySymbol:      make(map[SymbolID]SymbolInfo),
		definitionsOf: make(map[SymbolID]OccurrenceInfo),
		referencesOf:  make(map[SymbolID][]OccurrenceInfo),
		byName:        make(map[string][]SymbolID),
		byKind:        make(map[SymbolKind]map[SymbolID]struct{}),
		childrenOf:    make(map[SymbolID][]SymbolID),
	}
}

// ProjectRoot returns the project root this index was opened for.
func (idx *Index) ProjectRoot() string { return idx.projectRoot }

// SourceRoot returns the directory grep and file resolution read from.
func (idx *Index) SourceRoot() string { return idx.sourceRoot }

// UpdateDocument atomically replaces any prior record for path. Entries
// keyed by the old symbols of path are pruned first; the new symbols,
// occurrences and relationships are then inserted. The only failure mode
// is a record whose RelativePath disagrees with the path key.
func (idx *Index) UpdateDocument(path string, rec DocumentRecord) error {
	if rec.RelativePath != "" && rec.RelativePath != path {
		return invalidDocument("updateDocument", path,
			fmt.Errorf("record path %q does not match key %q", rec.RelativePath, path))
	}
	rec.RelativePath = path

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.documents[path]; ok {
		idx.pruneDocumentLocked(path)
	}

	idx.documents[path] = rec
	for _, sym := range rec.Symbols {
		idx.insertSymbolLocked(sym)
	}
	for _, occ := range rec.Occurrences {
		idx.insertOccurrenceLocked(occ)
	}
	idx.relationships = append(idx.relationships, rec.Relationships...)
	idx.rebuildChildrenLocked()

	now := rec.LastIndexedAt
	if now.IsZero() {
		now = time.Now()
	}
	idx.lastIndexedAt = &now

	return nil
}

// RemoveDocument removes path's record and prunes every derived entry that
// pointed to it. Removal is strict: no SymbolInfo, OccurrenceInfo or
// Relationship with File == path may survive (spec invariant 3).
func (idx *Index) RemoveDocument(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.documents[path]; !ok {
		return
	}
	idx.pruneDocumentLocked(path)
	delete(idx.documents, path)
	idx.rebuildChildrenLocked()
}

// pruneDocumentLocked removes every derived entry for path's current
// record. Caller must hold idx.mu.
func (idx *Index) pruneDocumentLocked(path string) {
	rec := idx.documents[path]

	symIDs := make(map[SymbolID]struct{}, len(rec.Symbols))
	for _, sym := range rec.Symbols {
		symIDs[sym.Symbol] = struct{}{}

		delete(idx.bySymbol, sym.Symbol)
		delete(idx.definitionsOf, sym.Symbol)
		delete(idx.referencesOf, sym.Symbol)

		names := idx.byName[sym.DisplayName]
		idx.byName[sym.DisplayName] = removeID(names, sym.Symbol)
		if len(idx.byName[sym.DisplayName]) == 0 {
			delete(idx.byName, sym.DisplayName)
		}

		if set, ok := idx.byKind[sym.Kind]; ok {
			delete(set, sym.Symbol)
			if len(set) == 0 {
				delete(idx.byKind, sym.Kind)
			}
		}
	}

	// Prune occurrences belonging to other (still-live) symbols but stored
	// under this file, and definitions/references pointing at this file.
	for sid, occ := range idx.definitionsOf {
		if occ.File == path {
			delete(idx.definitionsOf, sid)
		}
	}
	for sid, occs := range idx.referencesOf {
		filtered := occs[:0:0]
		for _, occ := range occs {
			if occ.File != path {
				filtered = append(filtered, occ)
			}
		}
		if len(filtered) == 0 {
			delete(idx.referencesOf, sid)
		} else {
			idx.referencesOf[sid] = filtered
		}
	}

	filteredRel := idx.relationships[:0:0]
	for _, rel := range idx.relationships {
		if _, fromRemoved := symIDs[rel.From]; fromRemoved {
			continue
		}
		if _, toRemoved := symIDs[rel.To]; toRemoved {
			continue
		}
		filteredRel = append(filteredRel, rel)
	}
	idx.relationships = filteredRel
}

func removeID(ids []SymbolID, target SymbolID) []SymbolID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func (idx *Index) insertSymbolLocked(sym SymbolInfo) {
	idx.bySymbol[sym.Symbol] = sym

	idx.byName[sym.DisplayName] = append(idx.byName[sym.DisplayName], sym.Symbol)

	if idx.byKind[sym.Kind] == nil {
		idx.byKind[sym.Kind] = make(map[SymbolID]struct{})
	}
	idx.byKind[sym.Kind][sym.Symbol] = struct{}{}
}

func (idx *Index) insertOccurrenceLocked(occ OccurrenceInfo) {
	if occ.Roles.Has(RoleDefinition) {
		idx.definitionsOf[occ.Symbol] = occ
	}
	idx.referencesOf[occ.Symbol] = append(idx.referencesOf[occ.Symbol], occ)
}

// rebuildChildrenLocked recomputes childrenOf from bySymbol's
// EnclosingSymbol field, preserving insertion (source) order per document.
func (idx *Index) rebuildChildrenLocked() {
	idx.childrenOf = make(map[SymbolID][]SymbolID)
	for _, path := range sortedDocPaths(idx.documents) {
		for _, sym := range idx.documents[path].Symbols {
			if sym.EnclosingSymbol == "" {
				continue
			}
			idx.childrenOf[sym.EnclosingSymbol] = append(idx.childrenOf[sym.EnclosingSymbol], sym.Symbol)
		}
	}
}

func sortedDocPaths(documents map[string]DocumentRecord) []string {
	paths := make([]string, 0, len(documents))
	for p := range documents {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GetSymbol looks up a symbol's metadata by its exact id.
func (idx *Index) GetSymbol(id SymbolID) (SymbolInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	sym, ok := idx.bySymbol[id]
	return sym, ok
}

// FindDefinition returns the single definition occurrence for id, if any.
func (idx *Index) FindDefinition(id SymbolID) (OccurrenceInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	occ, ok := idx.definitionsOf[id]
	return occ, ok
}

// FindReferences returns every occurrence of id (definition included),
// ordered first by file path then by start position.
func (idx *Index) FindReferences(id SymbolID) []OccurrenceInfo {
	idx.mu.RLock()
	occs := append([]OccurrenceInfo(nil), idx.referencesOf[id]...)
	idx.mu.RUnlock()

	sort.Slice(occs, func(i, j int) bool {
		if occs[i].File != occs[j].File {
			return occs[i].File < occs[j].File
		}
		if occs[i].Range.StartLine != occs[j].Range.StartLine {
			return occs[i].Range.StartLine < occs[j].Range.StartLine
		}
		return occs[i].Range.StartCol < occs[j].Range.StartCol
	})
	return occs
}

// FindSymbols returns every SymbolInfo whose display name matches pattern,
// a glob over `*` and `?`. An all-lowercase pattern matches case-insensitively.
func (idx *Index) FindSymbols(pattern string) []SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !isGlobPattern(pattern) && pattern != strings.ToLower(pattern) {
		ids := idx.byName[pattern]
		out := make([]SymbolInfo, 0, len(ids))
		for _, id := range ids {
			if sym, ok := idx.bySymbol[id]; ok {
				out = append(out, sym)
			}
		}
		return out
	}

	matcher := compileGlob(pattern)
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		if matcher(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []SymbolInfo
	for _, name := range names {
		for _, id := range idx.byName[name] {
			if sym, ok := idx.bySymbol[id]; ok {
				out = append(out, sym)
			}
		}
	}
	return out
}

// FindQualified returns members of container whose display name is member.
func (idx *Index) FindQualified(container SymbolID, member string) []SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []SymbolInfo
	for _, childID := range idx.childrenOf[container] {
		sym, ok := idx.bySymbol[childID]
		if ok && sym.DisplayName == member {
			out = append(out, sym)
		}
	}
	return out
}

// MembersOf returns the direct children of a symbol, in source order.
func (idx *Index) MembersOf(id SymbolID) []SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	children := idx.childrenOf[id]
	out := make([]SymbolInfo, 0, len(children))
	for _, childID := range children {
		if sym, ok := idx.bySymbol[childID]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// SupertypesOf returns the direct supertypes (extends/implements) of id.
func (idx *Index) SupertypesOf(id SymbolID) []SymbolInfo {
	return idx.walkRelationships(id, true)
}

// SubtypesOf returns the direct subtypes (extends/implements) of id.
func (idx *Index) SubtypesOf(id SymbolID) []SymbolInfo {
	return idx.walkRelationships(id, false)
}

func (idx *Index) walkRelationships(id SymbolID, up bool) []SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []SymbolInfo
	seen := make(map[SymbolID]struct{})
	for _, rel := range idx.relationships {
		if rel.Kind != RelExtends && rel.Kind != RelImplements {
			continue
		}
		var other SymbolID
		switch {
		case up && rel.From == id:
			other = rel.To
		case !up && rel.To == id:
			other = rel.From
		default:
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		if sym, ok := idx.bySymbol[other]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// GetCalls returns the unique symbols that id's definition body calls.
func (idx *Index) GetCalls(id SymbolID) []SymbolInfo {
	return idx.callGraph(id, true)
}

// GetCallers returns the unique symbols whose definition body calls id.
func (idx *Index) GetCallers(id SymbolID) []SymbolInfo {
	return idx.callGraph(id, false)
}

// callGraph derives call edges from occurrences with the call role whose
// enclosing range localizes them inside another symbol's definition range.
func (idx *Index) callGraph(id SymbolID, calls bool) []SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if calls {
		def, ok := idx.definitionsOf[id]
		if !ok {
			return nil
		}
		seen := make(map[SymbolID]struct{})
		var out []SymbolInfo
		for callee, occs := range idx.referencesOf {
			for _, occ := range occs {
				if !occ.Roles.Has(RoleCall) || occ.EnclosingRange == nil {
					continue
				}
				if occ.File != def.File || !rangeContains(def.Range, *occ.EnclosingRange) {
					continue
				}
				if _, dup := seen[callee]; dup {
					continue
				}
				seen[callee] = struct{}{}
				if sym, ok := idx.bySymbol[callee]; ok {
					out = append(out, sym)
				}
			}
		}
		return out
	}

	seen := make(map[SymbolID]struct{})
	var out []SymbolInfo
	for _, occ := range idx.referencesOf[id] {
		if !occ.Roles.Has(RoleCall) || occ.EnclosingRange == nil {
			continue
		}
		caller := idx.enclosingDefinitionLocked(occ.File, *occ.EnclosingRange)
		if caller == "" {
			continue
		}
		if _, dup := seen[caller]; dup {
			continue
		}
		seen[caller] = struct{}{}
		if sym, ok := idx.bySymbol[caller]; ok {
			out = append(out, sym)
		}
	}
	return out
}

func (idx *Index) enclosingDefinitionLocked(file string, r Range) SymbolID {
	var best SymbolID
	bestSpan := -1
	for sid, def := range idx.definitionsOf {
		if def.File != file || !rangeContains(def.Range, r) {
			continue
		}
		span := def.Range.EndLine - def.Range.StartLine
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			best = sid
		}
	}
	return best
}

func rangeContains(outer, inner Range) bool {
	if inner.StartLine < outer.StartLine || inner.EndLine > outer.EndLine {
		return false
	}
	if inner.StartLine == outer.StartLine && inner.StartCol < outer.StartCol {
		return false
	}
	if inner.EndLine == outer.EndLine && inner.EndCol > outer.EndCol {
		return false
	}
	return true
}

// Stats summarizes the index's current contents.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	refs := 0
	for _, occs := range idx.referencesOf {
		refs += len(occs)
	}

	var last *time.Time
	if idx.lastIndexedAt != nil {
		t := *idx.lastIndexedAt
		last = &t
	}

	return Stats{
		Files:         len(idx.documents),
		Symbols:       len(idx.bySymbol),
		References:    refs,
		Definitions:   len(idx.definitionsOf),
		LastIndexedAt: last,
	}
}

// Files returns the relative paths of every indexed document, sorted.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return sortedDocPaths(idx.documents)
}

// Document returns the stored record for path, if any.
func (idx *Index) Document(path string) (DocumentRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rec, ok := idx.documents[path]
	return rec, ok
}

// Snapshot returns every document record, used by persistence to serialize
// the whole index and by the registry to rebuild a symbol index in memory.
func (idx *Index) Snapshot() []DocumentRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]DocumentRecord, 0, len(idx.documents))
	for _, path := range sortedDocPaths(idx.documents) {
		out = append(out, idx.documents[path])
	}
	return out
}
