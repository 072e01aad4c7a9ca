// Package query implements the pipeline query language used to interrogate
// a symtab.Index / registry.IndexRegistry: a small set of verbs (def, refs,
// members, impls, supertypes, subtypes, hierarchy, source, sig, callers,
// calls, find, grep, files, stats), each optionally filtered by kind:/in:
// and chainable with `|` so one stage's result feeds the next stage's
// implicit argument.
package query

import (
	"fmt"
	"strings"
)

// Verb names one query stage's operation.
type Verb string

const (
	VerbDef         Verb = "def"
	VerbRefs        Verb = "refs"
	VerbMembers     Verb = "members"
	VerbImpls       Verb = "impls"
	VerbSupertypes  Verb = "supertypes"
	VerbSubtypes    Verb = "subtypes"
	VerbHierarchy   Verb = "hierarchy"
	VerbSource      Verb = "source"
	VerbSig         Verb = "sig"
	VerbCallers     Verb = "callers"
	VerbCalls       Verb = "calls"
	VerbFind        Verb = "find"
	VerbGrep        Verb = "grep"
	VerbFiles       Verb = "files"
	VerbStats       Verb = "stats"
)

var knownVerbs = map[Verb]bool{
	VerbDef: true, VerbRefs: true, VerbMembers: true, VerbImpls: true,
	VerbSupertypes: true, VerbSubtypes: true, VerbHierarchy: true,
	VerbSource: true, VerbSig: true, VerbCallers: true, VerbCalls: true,
	VerbFind: true, VerbGrep: true, VerbFiles: true, VerbStats: true,
}

// verbsTakingNoArg lists the verbs that need no positional argument
// (stats). parseStage does not reject one if it is given.
var verbsTakingNoArg = map[Verb]bool{
	VerbStats: true,
}

// Stage is one `|`-separated segment of a query: a verb, its positional
// argument (possibly empty if it is meant to be filled in by the previous
// stage's result), and its kind:/in: filters.
type Stage struct {
	Verb    Verb
	Arg     string
	Filters map[string]string
}

// Query is a full pipeline: one or more stages run left to right, each
// stage's implicit argument coming from the prior stage's primary result
// when the stage itself supplies none.
type Query struct {
	Stages []Stage
	Raw    string
}

// Kind returns the stage's kind: filter, or "" if absent.
func (s Stage) Kind() string { return s.Filters["kind"] }

// In returns the stage's in: filter (a path or glob), or "" if absent.
func (s Stage) In() string { return s.Filters["in"] }

// Parse tokenizes and validates raw into a Query. Syntax per stage is:
//
//	verb [arg] [kind:K] [in:PATTERN]
//
// and stages are separated by `|`.
func Parse(raw string) (*Query, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("query: empty query")
	}

	segments := splitPipeline(trimmed)
	stages := make([]Stage, 0, len(segments))
	for i, seg := range segments {
		stage, err := parseStage(seg)
		if err != nil {
			return nil, fmt.Errorf("query: stage %d: %w", i+1, err)
		}
		stages = append(stages, stage)
	}
	return &Query{Stages: stages, Raw: raw}, nil
}

// splitPipeline splits on unquoted `|` characters.
func splitPipeline(raw string) []string {
	var segments []string
	var cur strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == '|':
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	segments = append(segments, cur.String())
	return segments
}

func parseStage(seg string) (Stage, error) {
	fields := tokenize(strings.TrimSpace(seg))
	if len(fields) == 0 {
		return Stage{}, fmt.Errorf("empty stage")
	}

	verb := Verb(strings.ToLower(fields[0]))
	if !knownVerbs[verb] {
		return Stage{}, fmt.Errorf("unknown verb %q", fields[0])
	}

	stage := Stage{Verb: verb, Filters: map[string]string{}}
	for _, tok := range fields[1:] {
		if key, val, ok := splitFilter(tok); ok {
			stage.Filters[key] = val
			continue
		}
		if stage.Arg != "" {
			stage.Arg += " " + unquote(tok)
			continue
		}
		stage.Arg = unquote(tok)
	}

	if stage.Arg == "" && verbsTakingNoArg[verb] {
		// fine, these verbs never need one
	}
	return stage, nil
}

// filterAliases maps every recognized spoken filter name to its canonical
// Stage.Filters key. Several spec §4.1 grep modifiers have a long and a
// short spelling (linesBefore/before); both resolve to the same key so
// callers (executor.go's runGrep) only ever check one name.
var filterAliases = map[string]string{
	"kind":         "kind",
	"in":           "in",
	"path":         "path",
	"before":       "before",
	"linesbefore":  "before",
	"after":        "after",
	"linesafter":   "after",
	"invert":       "invert",
	"invertmatch":  "invert",
	"multiline":    "multiline",
	"only":         "only",
	"onlymatching": "only",
	"max":          "max",
	"maxperfile":   "max",
	"external":     "external",
}

// splitFilter recognizes `key:value` or `key=value` tokens, matching spec
// §8 scenario S4's literal `linesBefore=0 linesAfter=1` spelling as well as
// this grammar's own `kind:`/`in:` convention.
func splitFilter(tok string) (key, val string, ok bool) {
	sep := strings.IndexAny(tok, ":=")
	if sep <= 0 {
		return "", "", false
	}
	name := strings.ToLower(tok[:sep])
	canonical, known := filterAliases[name]
	if !known {
		return "", "", false
	}
	return canonical, unquote(tok[sep+1:]), true
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// tokenize splits on whitespace while keeping quoted substrings intact.
func tokenize(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := byte(0)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}
