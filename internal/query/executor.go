package query

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/symindex/engine/internal/registry"
	"github.com/symindex/engine/internal/symtab"
)

// Executor runs a parsed Query against a federation of indices.
type Executor struct {
	Registry *registry.IndexRegistry
}

// NewExecutor creates an Executor bound to reg.
func NewExecutor(reg *registry.IndexRegistry) *Executor {
	return &Executor{Registry: reg}
}

// Run executes every stage of q in order, piping each stage's primary
// result into the next stage's implicit argument when that stage supplies
// none of its own.
func (e *Executor) Run(q *Query) (*Result, error) {
	var prev *Result
	for i, stage := range q.Stages {
		res, err := e.runStage(stage, prev)
		if err != nil {
			return nil, fmt.Errorf("query: stage %d (%s): %w", i+1, stage.Verb, err)
		}
		prev = res
	}
	if prev == nil {
		return Empty(), nil
	}
	return prev, nil
}

func (e *Executor) runStage(stage Stage, prev *Result) (*Result, error) {
	switch stage.Verb {
	case VerbFind:
		return e.runFind(stage), nil
	case VerbGrep:
		return e.runGrep(stage)
	case VerbFiles:
		return &Result{Kind: KindFiles, Files: e.Registry.Files()}, nil
	case VerbStats:
		return &Result{Kind: KindStats, Stats: e.Registry.Stats()}, nil
	}

	symbols, notFound := e.resolveArg(stage, prev)
	if notFound != "" {
		return &Result{Kind: KindNotFound, NotFound: notFound, Suggestions: suggestNames(e.Registry, notFound)}, nil
	}
	if len(symbols) == 0 {
		return Empty(), nil
	}

	switch stage.Verb {
	case VerbDef:
		return e.runDef(symbols), nil
	case VerbRefs:
		return e.runRefs(symbols), nil
	case VerbMembers:
		return e.runRelated(symbols, "members", e.Registry.MembersOf), nil
	case VerbSupertypes:
		return e.runRelated(symbols, "supertypes", supertypesVia(e)), nil
	case VerbSubtypes, VerbImpls:
		label := "subtypes"
		if stage.Verb == VerbImpls {
			label = "implementations"
		}
		return e.runRelated(symbols, label, subtypesVia(e)), nil
	case VerbHierarchy:
		return e.runHierarchy(symbols), nil
	case VerbSource:
		return e.runSource(symbols[0])
	case VerbSig:
		return e.runSig(symbols[0]), nil
	case VerbCallers:
		return e.runRelated(symbols, "callers", callersVia(e)), nil
	case VerbCalls:
		return e.runRelated(symbols, "calls", callsVia(e)), nil
	}
	return nil, fmt.Errorf("unhandled verb %q", stage.Verb)
}

// resolveArg resolves a stage's subject symbols either from its own
// positional argument or, if it supplied none, from the previous stage's
// primary result. Returns a non-empty notFound string when an explicit
// name argument failed to match anything.
func (e *Executor) resolveArg(stage Stage, prev *Result) ([]symtab.SymbolInfo, string) {
	if stage.Arg == "" {
		if prev != nil {
			return e.applyFilters(stage, prev.primarySymbols()), ""
		}
		return nil, ""
	}

	matches := e.Registry.FindSymbols(stage.Arg)
	matches = e.applyFilters(stage, matches)
	if len(matches) == 0 {
		return nil, stage.Arg
	}
	return matches, ""
}

// applyFilters narrows a symbol set by the stage's kind:/in: filters. in:
// matches against the symbol's definition file as a substring. (grep passes
// in: on as IncludeGlob instead, a glob over each file's base name.)
func (e *Executor) applyFilters(stage Stage, symbols []symtab.SymbolInfo) []symtab.SymbolInfo {
	if stage.Kind() == "" && stage.In() == "" {
		return symbols
	}
	out := make([]symtab.SymbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		if stage.Kind() != "" && string(sym.Kind) != stage.Kind() {
			continue
		}
		if stage.In() != "" {
			occ, ok := e.Registry.FindDefinition(sym.Symbol)
			if !ok || !strings.Contains(occ.File, stage.In()) {
				continue
			}
		}
		out = append(out, sym)
	}
	return out
}

func (e *Executor) runFind(stage Stage) *Result {
	matches := e.Registry.FindSymbols(stage.Arg)
	matches = e.applyFilters(stage, matches)
	return &Result{Kind: KindSymbols, Symbols: matches}
}

func (e *Executor) runGrep(stage Stage) (*Result, error) {
	opts := symtab.GrepOptions{
		Pattern:       stage.Arg,
		IncludeGlob:   stage.In(),
		PathFilter:    stage.Filters["path"],
		ContextBefore: filterInt(stage.Filters["before"], 0),
		ContextAfter:  filterInt(stage.Filters["after"], 0),
		InvertMatch:   filterBool(stage.Filters["invert"]),
		Multiline:     filterBool(stage.Filters["multiline"]),
		OnlyMatching:  filterBool(stage.Filters["only"]),
		MaxPerFile:    filterInt(stage.Filters["max"], 0),
	}
	matches, err := e.Registry.Grep(opts, filterBool(stage.Filters["external"]))
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindGrep, Grep: matches}, nil
}

// filterInt parses a numeric filter value, falling back to def on an empty
// or unparsable value rather than erroring the whole query over a typo.
func filterInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// filterBool treats any non-empty value other than "false"/"0" as true
// (`invert:yes`, `multiline=1`); an absent or empty filter is false.
func filterBool(raw string) bool {
	return raw != "" && raw != "false" && raw != "0"
}

func (e *Executor) runDef(symbols []symtab.SymbolInfo) *Result {
	var occs []symtab.OccurrenceInfo
	for _, sym := range symbols {
		if occ, ok := e.Registry.FindDefinition(sym.Symbol); ok {
			occs = append(occs, occ)
		}
	}
	return &Result{Kind: KindOccurrences, Occurrences: occs}
}

func (e *Executor) runRefs(symbols []symtab.SymbolInfo) *Result {
	var occs []symtab.OccurrenceInfo
	for _, sym := range symbols {
		occs = append(occs, e.Registry.FindAllReferencesByName(sym.DisplayName)...)
	}
	return &Result{Kind: KindOccurrences, Occurrences: occs}
}

func (e *Executor) runRelated(symbols []symtab.SymbolInfo, label string, fn func(symtab.SymbolID) []symtab.SymbolInfo) *Result {
	seen := make(map[symtab.SymbolID]struct{})
	var out []symtab.SymbolInfo
	for _, sym := range symbols {
		for _, rel := range fn(sym.Symbol) {
			if _, dup := seen[rel.Symbol]; dup {
				continue
			}
			seen[rel.Symbol] = struct{}{}
			out = append(out, rel)
		}
	}
	return &Result{Kind: KindRelated, Label: label, Related: out}
}

func (e *Executor) runHierarchy(symbols []symtab.SymbolInfo) *Result {
	seen := make(map[symtab.SymbolID]struct{})
	var out []symtab.SymbolInfo
	collect := func(fn func(symtab.SymbolID) []symtab.SymbolInfo, id symtab.SymbolID) {
		for _, rel := range fn(id) {
			if _, dup := seen[rel.Symbol]; dup {
				continue
			}
			seen[rel.Symbol] = struct{}{}
			out = append(out, rel)
		}
	}
	for _, sym := range symbols {
		collect(supertypesVia(e), sym.Symbol)
		collect(subtypesVia(e), sym.Symbol)
	}
	return &Result{Kind: KindRelated, Label: "hierarchy", Related: out}
}

func (e *Executor) runSig(sym symtab.SymbolInfo) *Result {
	return &Result{Kind: KindSource, Source: &SourceSnippet{Symbol: sym, Text: sym.SignatureHint}}
}

func (e *Executor) runSource(sym symtab.SymbolInfo) (*Result, error) {
	occ, ok := e.Registry.FindDefinition(sym.Symbol)
	if !ok {
		return &Result{Kind: KindNotFound, NotFound: sym.DisplayName}, nil
	}
	root, ok := e.Registry.SourceRootFor(occ.File)
	if !ok {
		return &Result{Kind: KindSource, Source: &SourceSnippet{Symbol: sym, Text: sym.SignatureHint}}, nil
	}

	r := occ.Range
	if occ.EnclosingRange != nil {
		r = *occ.EnclosingRange
	}
	text, err := readLines(filepath.Join(root, filepath.FromSlash(occ.File)), r.StartLine, r.EndLine)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindSource, Source: &SourceSnippet{
		Symbol:    sym,
		Text:      text,
		StartLine: r.StartLine,
		EndLine:   r.EndLine,
	}}, nil
}

func readLines(path string, start, end int) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("query: read %s: %w", path, err)
	}
	lines := strings.Split(string(content), "\n")
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if start > end || start >= len(lines) {
		return "", nil
	}
	return strings.Join(lines[start:end+1], "\n"), nil
}

func supertypesVia(e *Executor) func(symtab.SymbolID) []symtab.SymbolInfo {
	return e.Registry.SupertypesOf
}

func subtypesVia(e *Executor) func(symtab.SymbolID) []symtab.SymbolInfo {
	return e.Registry.SubtypesOf
}

func callersVia(e *Executor) func(symtab.SymbolID) []symtab.SymbolInfo {
	return e.Registry.GetCallers
}

func callsVia(e *Executor) func(symtab.SymbolID) []symtab.SymbolInfo {
	return e.Registry.GetCalls
}
