package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/symindex/engine/internal/output"
	"github.com/symindex/engine/internal/symtab"
)

// RenderFormat selects a Renderer implementation, mirroring the teacher's
// OutputFormat enum (internal/output.FormatterFactory) generalized from
// per-match streaming to whole-Result rendering.
type RenderFormat string

const (
	RenderText RenderFormat = "text"
	RenderJSON RenderFormat = "json"
)

// Renderer writes a Result to a writer in some presentation.
type Renderer interface {
	Render(w io.Writer, res *Result) error
}

// NewRenderer returns the Renderer for format, defaulting to text for any
// unrecognized value, the same default the teacher's FormatterFactory
// falls back to.
func NewRenderer(format RenderFormat) Renderer {
	switch format {
	case RenderJSON:
		return jsonRenderer{}
	default:
		return textRenderer{}
	}
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, res *Result) error {
	if res.Kind == KindGrep {
		return renderGrepViaOutput(w, res.Grep, output.FormatJSON)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

type textRenderer struct{}

func (textRenderer) Render(w io.Writer, res *Result) error {
	switch res.Kind {
	case KindEmpty:
		_, err := fmt.Fprintln(w, "no results")
		return err
	case KindNotFound:
		return renderNotFound(w, res)
	case KindSymbols:
		return renderSymbols(w, res.Symbols)
	case KindRelated:
		if len(res.Related) == 0 {
			_, err := fmt.Fprintf(w, "no %s\n", res.Label)
			return err
		}
		if _, err := fmt.Fprintf(w, "%s:\n", res.Label); err != nil {
			return err
		}
		return renderSymbols(w, res.Related)
	case KindOccurrences:
		return renderOccurrences(w, res.Occurrences)
	case KindSource:
		return renderSource(w, res.Source)
	case KindGrep:
		return renderGrepViaOutput(w, res.Grep, output.FormatText)
	case KindFiles:
		for _, f := range res.Files {
			if _, err := fmt.Fprintln(w, f); err != nil {
				return err
			}
		}
		return nil
	case KindStats:
		return renderStats(w, res.Stats)
	default:
		_, err := fmt.Fprintf(w, "unrenderable result kind %q\n", res.Kind)
		return err
	}
}

func renderNotFound(w io.Writer, res *Result) error {
	if _, err := fmt.Fprintf(w, "not found: %s\n", res.NotFound); err != nil {
		return err
	}
	if len(res.Suggestions) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "did you mean: %s\n", strings.Join(res.Suggestions, ", "))
	return err
}

func renderSymbols(w io.Writer, symbols []symtab.SymbolInfo) error {
	for _, sym := range symbols {
		if _, err := fmt.Fprintf(w, "%s %s (%s)\n", sym.Kind, sym.DisplayName, sym.Symbol); err != nil {
			return err
		}
	}
	return nil
}

func renderOccurrences(w io.Writer, occs []symtab.OccurrenceInfo) error {
	for _, occ := range occs {
		if _, err := fmt.Fprintf(w, "%s:%d:%d %s\n", occ.File, occ.Range.StartLine+1, occ.Range.StartCol+1, roleString(occ.Roles)); err != nil {
			return err
		}
	}
	return nil
}

func renderSource(w io.Writer, s *SourceSnippet) error {
	if s == nil {
		_, err := fmt.Fprintln(w, "no source")
		return err
	}
	if _, err := fmt.Fprintf(w, "%s (%s)\n", s.Symbol.DisplayName, s.Symbol.Symbol); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, s.Text)
	return err
}

// renderGrepViaOutput drives the teacher's own Formatter implementations
// (internal/output) for grep results, since GrepMatch is already shaped
// like the ripgrep-compatible Match those formatters were built for; every
// other Result kind has no ripgrep analogue and is rendered directly.
func renderGrepViaOutput(w io.Writer, matches []symtab.GrepMatch, format output.OutputFormat) error {
	cfg := output.FormatterConfig{
		Format:          format,
		Mode:            output.ModeDefault,
		ShowLineNumbers: true,
		ShowFilenames:   true,
	}
	f := output.NewFormatterFactory(w, cfg).CreateFormatter()

	for _, m := range matches {
		before := make([]output.ContextLine, 0, len(m.ContextBefore))
		startLine := m.LineNumber - len(m.ContextBefore)
		for i, line := range m.ContextBefore {
			before = append(before, output.ContextLine{LineNumber: startLine + i, Text: line})
		}
		after := make([]output.ContextLine, 0, len(m.ContextAfter))
		for i, line := range m.ContextAfter {
			after = append(after, output.ContextLine{LineNumber: m.LineNumber + 1 + i, Text: line})
		}

		match := output.Match{
			Path:       m.File,
			LineNumber: m.LineNumber,
			Line:       m.Line,
			Submatches: []output.Submatch{
				{Text: substr(m.Line, m.ColumnStart-1, m.ColumnEnd-1), Start: m.ColumnStart - 1, End: m.ColumnEnd - 1},
			},
			BeforeContext: before,
			AfterContext:  after,
		}
		if err := f.FormatMatch(match); err != nil {
			return err
		}
	}
	if err := f.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func substr(s string, start, end int) string {
	if start < 0 || end > len(s) || start > end {
		return ""
	}
	return s[start:end]
}

func renderStats(w io.Writer, s symtab.Stats) error {
	_, err := fmt.Fprintf(w, "files=%d symbols=%d definitions=%d references=%d\n",
		s.Files, s.Symbols, s.Definitions, s.References)
	return err
}

func roleString(r symtab.Role) string {
	var parts []string
	if r.Has(symtab.RoleDefinition) {
		parts = append(parts, "def")
	}
	if r.Has(symtab.RoleCall) {
		parts = append(parts, "call")
	}
	if r.Has(symtab.RoleWriteAccess) {
		parts = append(parts, "write")
	}
	if r.Has(symtab.RoleReadAccess) {
		parts = append(parts, "read")
	}
	if r.Has(symtab.RoleImport) {
		parts = append(parts, "import")
	}
	if len(parts) == 0 {
		return "ref"
	}
	return strings.Join(parts, "+")
}
