package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/symindex/engine/internal/parser"
	"github.com/symindex/engine/internal/symtab"
	"github.com/symindex/engine/internal/walker"
)

// TreeSitterAdapter adapts the tree-sitter symbol extractor to the Adapter
// interface, following the conversion shape of the teacher's
// TreeSitterSymbolParser (internal/index/treesitter_adapter.go) but
// producing a symtab.DocumentRecord in one pass instead of the teacher's
// separate ParseFile/ParseReferences split, since a document's symbols and
// its occurrences are always needed together by UpdateDocument.
type TreeSitterAdapter struct {
	extractor *parser.SymbolExtractor
	registry  *parser.LanguageRegistry
}

// NewTreeSitterAdapter creates an Adapter backed by the tree-sitter
// language registry. The registry loads eight grammars (go, python,
// javascript, typescript, rust, c, cpp, java), but ListSourceFiles keeps
// only files GetLanguageForFile maps to go, python, javascript,
// typescript or rust, so C, C++ and Java sources are not indexed.
func NewTreeSitterAdapter() (*TreeSitterAdapter, error) {
	registry, err := parser.NewLanguageRegistry()
	if err != nil {
		return nil, fmt.Errorf("analyzer: create language registry: %w", err)
	}

	extractor := parser.NewSymbolExtractor(registry)
	if extractor == nil {
		registry.Close()
		return nil, fmt.Errorf("analyzer: create symbol extractor")
	}

	return &TreeSitterAdapter{
		extractor: extractor,
		registry:  registry,
	}, nil
}

// ListSourceFiles walks root with the teacher's concurrent walker,
// keeping only files the registry can analyze.
func (a *TreeSitterAdapter) ListSourceFiles(ctx context.Context, root string) ([]string, error) {
	cfg := walker.DefaultConfig()
	cfg.Context = ctx

	w, err := walker.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("analyzer: create walker: %w", err)
	}

	results, err := w.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("analyzer: walk %s: %w", root, err)
	}

	var out []string
	for res := range results {
		if res.Error != nil || res.Info == nil || res.Info.IsDir() {
			continue
		}
		if a.registry.GetLanguageForFile(res.RelPath) == "" {
			continue
		}
		out = append(out, res.RelPath)
	}
	return out, nil
}

// ResolveUnit parses a single file and converts the extractor's output
// into a DocumentRecord: every parser.Symbol becomes a symtab.SymbolInfo
// plus a definition occurrence, and every textual mention the extractor's
// reference finder turns up becomes a non-definition occurrence.
func (a *TreeSitterAdapter) ResolveUnit(ctx context.Context, root, relativePath string) (symtab.DocumentRecord, error) {
	absPath := filepath.Join(root, relativePath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return symtab.DocumentRecord{}, fmt.Errorf("analyzer: read %s: %w", relativePath, err)
	}

	result, err := a.extractor.ExtractSymbols(absPath, content)
	if err != nil {
		return symtab.DocumentRecord{}, fmt.Errorf("analyzer: parse %s: %w", relativePath, err)
	}

	rec := symtab.DocumentRecord{
		RelativePath:  relativePath,
		Language:      result.Language,
		ContentHash:   contentHash(content),
		LastIndexedAt: now(),
	}

	idByParserSymbol := make(map[*parser.Symbol]symtab.SymbolID, len(result.Symbols))
	enclosing := enclosingSymbolFor(result.Symbols)

	for _, sym := range result.Symbols {
		id := symtab.SymbolID(relativePath + "#" + sym.ID)
		idByParserSymbol[sym] = id

		rec.Symbols = append(rec.Symbols, symtab.SymbolInfo{
			Symbol:          id,
			DisplayName:     sym.Name,
			Kind:            convertKind(sym.Kind),
			Documentation:   splitDoc(sym.DocString),
			SignatureHint:   sym.Signature,
			EnclosingSymbol: enclosingID(enclosing[sym], relativePath),
		})

		rec.Occurrences = append(rec.Occurrences, symtab.OccurrenceInfo{
			Symbol: id,
			File:   relativePath,
			Range: symtab.Range{
				StartLine: sym.Line - 1,
				StartCol:  sym.Column - 1,
				EndLine:   maxZero(sym.EndLine-1, sym.Line-1),
				EndCol:    sym.EndColumn,
			},
			Roles: symtab.RoleDefinition,
		})

		if rel := supertypeRelationship(sym, id); rel != nil {
			rec.Relationships = append(rec.Relationships, *rel)
		}
	}

	for _, sym := range result.Symbols {
		locs, err := a.registry.GetParser().FindReferences(sym, []string{absPath}, 0)
		if err != nil {
			continue
		}
		id := idByParserSymbol[sym]
		def := enclosing[sym]
		role := symtab.RoleReadAccess
		if looksLikeCallable(sym.Kind) {
			role = symtab.RoleCall
		}
		for _, loc := range locs {
			if loc.Line == sym.Line && loc.Column >= sym.Column {
				continue // skip the definition site itself
			}
			occ := symtab.OccurrenceInfo{
				Symbol: id,
				File:   relativePath,
				Range: symtab.Range{
					StartLine: loc.Line - 1,
					StartCol:  loc.Column - 1,
					EndLine:   loc.Line - 1,
					EndCol:    loc.Column - 1 + len(sym.Name),
				},
				Roles: role,
			}
			if enclosingSym := enclosingAtLine(result.Symbols, loc.Line-1); enclosingSym != nil {
				r := symtab.Range{StartLine: enclosingSym.Line - 1, EndLine: maxZero(enclosingSym.EndLine-1, enclosingSym.Line-1)}
				occ.EnclosingRange = &r
			}
			rec.Occurrences = append(rec.Occurrences, occ)
		}
		_ = def
	}

	return rec, nil
}

// FileChanges lists every file ListSourceFiles finds and reports each one
// as FileModified. The adapter keeps no record of earlier calls (the
// indexer owns cache validity), so it never reports FileAdded or
// FileRemoved and leaves prune decisions to the caller's prior document set.
func (a *TreeSitterAdapter) FileChanges(ctx context.Context, root string) ([]FileChange, error) {
	files, err := a.ListSourceFiles(ctx, root)
	if err != nil {
		return nil, err
	}
	changes := make([]FileChange, 0, len(files))
	for _, f := range files {
		changes = append(changes, FileChange{Path: f, Kind: FileModified})
	}
	return changes, nil
}

// Dispose releases the tree-sitter language registry.
func (a *TreeSitterAdapter) Dispose() error {
	if a.registry != nil {
		return a.registry.Close()
	}
	return nil
}

func convertKind(k parser.SymbolKind) symtab.SymbolKind {
	switch k {
	case parser.SymbolKindClass, parser.SymbolKindStruct:
		return symtab.KindClass
	case parser.SymbolKindInterface:
		return symtab.KindInterface
	case parser.SymbolKindEnum:
		return symtab.KindEnum
	case parser.SymbolKindMethod:
		return symtab.KindMethod
	case parser.SymbolKindFunction:
		return symtab.KindFunction
	case parser.SymbolKindField, parser.SymbolKindProperty:
		return symtab.KindField
	case parser.SymbolKindParameter:
		return symtab.KindParameter
	case parser.SymbolKindConstant:
		return symtab.KindConstant
	case parser.SymbolKindVariable:
		return symtab.KindVariable
	default:
		return symtab.KindOther
	}
}

func looksLikeCallable(k parser.SymbolKind) bool {
	return k == parser.SymbolKindFunction || k == parser.SymbolKindMethod
}

func splitDoc(doc string) []string {
	if doc == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(doc, "\n"), "\n")
}

func maxZero(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// enclosingSymbolFor maps each symbol to the nearest symbol whose line
// range contains it, approximating scope nesting without a full scope
// tree. The tree-sitter extractor's own ScopeTree (internal/parser) is
// keyed by file, not by symbol, so this is simpler glue purpose-built for
// EnclosingSymbol.
func enclosingSymbolFor(symbols []*parser.Symbol) map[*parser.Symbol]*parser.Symbol {
	enclosing := make(map[*parser.Symbol]*parser.Symbol, len(symbols))
	for _, sym := range symbols {
		var best *parser.Symbol
		bestSpan := -1
		for _, candidate := range symbols {
			if candidate == sym {
				continue
			}
			if !isContainerKind(candidate.Kind) {
				continue
			}
			if candidate.Line > sym.Line || candidate.EndLine < sym.EndLine {
				continue
			}
			if candidate.Line == sym.Line && candidate.EndLine == sym.EndLine {
				continue
			}
			span := candidate.EndLine - candidate.Line
			if bestSpan == -1 || span < bestSpan {
				bestSpan = span
				best = candidate
			}
		}
		enclosing[sym] = best
	}
	return enclosing
}

func isContainerKind(k parser.SymbolKind) bool {
	switch k {
	case parser.SymbolKindClass, parser.SymbolKindStruct, parser.SymbolKindInterface, parser.SymbolKindEnum:
		return true
	default:
		return false
	}
}

func enclosingID(sym *parser.Symbol, relativePath string) symtab.SymbolID {
	if sym == nil {
		return ""
	}
	return symtab.SymbolID(relativePath + "#" + sym.ID)
}

func enclosingAtLine(symbols []*parser.Symbol, line int) *parser.Symbol {
	var best *parser.Symbol
	bestSpan := -1
	for _, sym := range symbols {
		if !looksLikeCallable(sym.Kind) {
			continue
		}
		if sym.Line-1 > line || sym.EndLine-1 < line {
			continue
		}
		span := sym.EndLine - sym.Line
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			best = sym
		}
	}
	return best
}

var supertypePattern = regexp.MustCompile(`(?:extends|implements)\s+([A-Za-z_][A-Za-z0-9_.]*)`)

// supertypeRelationship derives an extends/implements edge from a class or
// interface symbol's signature text, e.g. "class Circle extends Shape".
// This is intentionally simple string matching in the style of the
// teacher's own isValidReference heuristic rather than a grammar-aware
// query, since the spec treats relationship extraction as analyzer glue.
func supertypeRelationship(sym *parser.Symbol, id symtab.SymbolID) *symtab.Relationship {
	if !isContainerKind(sym.Kind) {
		return nil
	}
	m := supertypePattern.FindStringSubmatch(sym.Signature)
	if m == nil {
		return nil
	}
	kind := symtab.RelExtends
	if strings.Contains(sym.Signature, "implements") {
		kind = symtab.RelImplements
	}
	return &symtab.Relationship{From: id, To: symtab.SymbolID(m[1]), Kind: kind}
}
