// Package symtab implements the per-package symbol index: the in-memory
// aggregate of symbols, occurrences and relationships for one source tree,
// and the navigation queries answered against it (definition, references,
// members, type hierarchy, call graph, name search, grep).
package symtab

import "time"

// SymbolID is an opaque, stable string naming a definition across the
// ecosystem. The index never parses it; that is the analyzer's job.
type SymbolID string

// SymbolKind classifies a SymbolInfo.
type SymbolKind string

const (
	KindClass         SymbolKind = "class"
	KindMixin         SymbolKind = "mixin"
	KindInterface     SymbolKind = "interface"
	KindEnum          SymbolKind = "enum"
	KindMethod        SymbolKind = "method"
	KindFunction      SymbolKind = "function"
	KindField         SymbolKind = "field"
	KindParameter     SymbolKind = "parameter"
	KindTypeParameter SymbolKind = "typeParameter"
	KindConstructor   SymbolKind = "constructor"
	KindExtension     SymbolKind = "extension"
	KindGetter        SymbolKind = "getter"
	KindSetter        SymbolKind = "setter"
	KindConstant      SymbolKind = "constant"
	KindVariable      SymbolKind = "variable"
	KindOther         SymbolKind = "other"
)

// Role is a bitset of the ways an occurrence mentions its symbol.
type Role uint8

const (
	RoleDefinition Role = 1 << iota
	RoleReadAccess
	RoleWriteAccess
	RoleImport
	RoleCall
)

// Has reports whether the bitset contains every bit in want.
func (r Role) Has(want Role) bool { return r&want == want }

// RelationshipKind classifies an edge between two symbols.
type RelationshipKind string

const (
	RelImplements     RelationshipKind = "implements"
	RelExtends        RelationshipKind = "extends"
	RelTypeDefinition RelationshipKind = "typeDefinition"
	RelReference      RelationshipKind = "reference"
)

// Range is a zero-based, half-open source range.
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// SymbolInfo is a definition's metadata, independent of where it occurs.
type SymbolInfo struct {
	Symbol          SymbolID
	DisplayName     string
	Kind            SymbolKind
	Documentation   []string
	SignatureHint   string
	EnclosingSymbol SymbolID
}

// OccurrenceInfo is a single positioned mention of a symbol in a file.
type OccurrenceInfo struct {
	Symbol         SymbolID
	File           string
	Range          Range
	Roles          Role
	EnclosingRange *Range
}

// Relationship is a directed edge used to build type hierarchies.
type Relationship struct {
	From SymbolID
	To   SymbolID
	Kind RelationshipKind
}

// DocumentRecord holds every fact the analyzer produced for one file.
// Symbols and Occurrences are the authoritative source; every index on
// Index is a derivation recomputed when a DocumentRecord is replaced.
type DocumentRecord struct {
	RelativePath  string
	Language      string
	Symbols       []SymbolInfo
	Occurrences   []OccurrenceInfo
	Relationships []Relationship
	ContentHash   []byte
	LastIndexedAt time.Time
}

// Stats summarizes the current contents of an Index.
type Stats struct {
	Files         int
	Symbols       int
	References    int
	Definitions   int
	LastIndexedAt *time.Time
}
