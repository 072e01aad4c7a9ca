package query

import "github.com/symindex/engine/internal/symtab"

// ResultKind discriminates which field of Result is populated. A Result is
// a closed tagged union rather than an interface hierarchy so renderers can
// switch over Kind exhaustively instead of type-asserting.
type ResultKind string

const (
	KindSymbols     ResultKind = "symbols"
	KindOccurrences ResultKind = "occurrences"
	KindRelated     ResultKind = "related" // supertypes/subtypes/impls/hierarchy
	KindSource      ResultKind = "source"
	KindGrep        ResultKind = "grep"
	KindFiles       ResultKind = "files"
	KindStats       ResultKind = "stats"
	KindEmpty       ResultKind = "empty"
	KindNotFound    ResultKind = "not_found"
)

// SourceSnippet is the source-text view the "source" and "sig" verbs
// produce for a single resolved symbol.
type SourceSnippet struct {
	Symbol    symtab.SymbolInfo
	Text      string
	StartLine int
	EndLine   int
}

// Result is the outcome of running a Query: exactly one of the Kind-tagged
// fields below is meaningful for a given Kind value.
type Result struct {
	Kind ResultKind

	// Label names the relation a KindRelated result carries (e.g.
	// "supertypes", "subtypes", "implementations"), since SupertypesOf and
	// SubtypesOf both resolve to a plain symbol list.
	Label string

	Symbols     []symtab.SymbolInfo
	Occurrences []symtab.OccurrenceInfo
	Related     []symtab.SymbolInfo
	Source      *SourceSnippet
	Grep        []symtab.GrepMatch
	Files       []string
	Stats       symtab.Stats

	// NotFound carries the query term that failed to resolve plus
	// Levenshtein-nearest candidate names, for a "did you mean" prompt.
	NotFound    string
	Suggestions []string
}

// Empty builds a KindEmpty result, used when a stage legitimately produces
// nothing (e.g. a piped stage whose previous stage yielded no symbols).
func Empty() *Result { return &Result{Kind: KindEmpty} }

// primarySymbols extracts the symbols a downstream pipeline stage should
// treat as its implicit argument set when the stage supplies no arg of its
// own.
func (r *Result) primarySymbols() []symtab.SymbolInfo {
	switch r.Kind {
	case KindSymbols:
		return r.Symbols
	case KindRelated:
		return r.Related
	case KindSource:
		if r.Source != nil {
			return []symtab.SymbolInfo{r.Source.Symbol}
		}
	}
	return nil
}
