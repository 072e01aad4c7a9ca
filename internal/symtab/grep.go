package symtab

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GrepOptions configures Index.Grep. Unlike every other Index query, Grep
// reads straight from SourceRoot rather than the indexed symbol tables.
// It answers "what does the text say", not "what does the analyzer know".
// Field shapes follow spec §4.1's grep signature directly: regex, pathFilter,
// includeGlob, excludeGlob, linesBefore/After, invertMatch, maxPerFile,
// multiline, onlyMatching.
type GrepOptions struct {
	Pattern       string
	CaseSensitive bool

	// PathFilter is a substring match against a file's path relative to
	// SourceRoot, applied before IncludeGlob/ExcludeGlob. It is the coarse
	// "only under this subtree" filter; IncludeGlob/ExcludeGlob are
	// basename globs, following ripgrep's own split between a path prefix
	// and a filename pattern.
	PathFilter string

	IncludeGlob string
	ExcludeGlob string

	ContextBefore int
	ContextAfter  int

	// InvertMatch reports lines that do NOT match Pattern, mirroring the
	// teacher's searchFileWithContext invert branch (internal/search/regex.go):
	// the whole line becomes the "match" span since there is no sub-match
	// to highlight.
	InvertMatch bool

	// MaxPerFile caps the number of matches returned per file; the file is
	// still fully scanned (spec §4.1 exposes no early-exit flag).
	MaxPerFile int

	// Multiline scans each file's full content instead of line-by-line, so
	// Pattern can span newlines, following the teacher's searchFileMultiline.
	Multiline bool

	// OnlyMatching emits one GrepMatch per match within a line instead of
	// one per matching line, mirroring the teacher's OnlyMatching option.
	OnlyMatching bool
}

// GrepMatch is one matched line plus its surrounding context, following
// the shape of the teacher's internal/search.SearchResult.
type GrepMatch struct {
	File          string
	LineNumber    int
	ColumnStart   int
	ColumnEnd     int
	Line          string
	ContextBefore []string
	ContextAfter  []string
}

// Grep scans every file under SourceRoot not excluded by ExcludeGlob (which
// takes precedence over IncludeGlob) for Pattern, keeping at most
// MaxPerFile matches per file when MaxPerFile > 0. Results are ordered by path then
// line number, matching FindReferences' ordering convention.
func (idx *Index) Grep(opts GrepOptions) ([]GrepMatch, error) {
	flags := ""
	if !opts.CaseSensitive {
		flags = "(?i)"
	}
	if opts.Multiline {
		// "m" anchors ^/$ at line boundaries, "s" lets "." cross them, the
		// same pairing the teacher's compilePattern uses for Multiline.
		flags += "(?ms)"
	}
	re, err := regexp.Compile(flags + opts.Pattern)
	if err != nil {
		return nil, invalidDocument("grep", "", err)
	}

	var includeMatcher, excludeMatcher func(string) bool
	if opts.IncludeGlob != "" {
		includeMatcher = compileGlob(opts.IncludeGlob)
	}
	if opts.ExcludeGlob != "" {
		excludeMatcher = compileGlob(opts.ExcludeGlob)
	}

	root := idx.SourceRoot()
	var matches []GrepMatch

	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if opts.PathFilter != "" && !strings.Contains(rel, opts.PathFilter) {
			return nil
		}
		base := filepath.Base(rel)
		if excludeMatcher != nil && excludeMatcher(base) {
			return nil
		}
		if includeMatcher != nil && !includeMatcher(base) {
			return nil
		}

		var fileMatches []GrepMatch
		var grepErr error
		if opts.Multiline {
			fileMatches, grepErr = grepFileMultiline(path, rel, re, opts)
		} else {
			fileMatches, grepErr = grepFile(path, rel, re, opts)
		}
		if grepErr != nil {
			return nil
		}
		matches = append(matches, fileMatches...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].File != matches[j].File {
			return matches[i].File < matches[j].File
		}
		if matches[i].LineNumber != matches[j].LineNumber {
			return matches[i].LineNumber < matches[j].LineNumber
		}
		return matches[i].ColumnStart < matches[j].ColumnStart
	})
	return matches, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// grepFile scans a single file's lines, mirroring the teacher's
// searchFileWithContext (internal/search/regex.go) but returning a typed
// slice instead of streaming onto a channel, since grep results feed
// straight into a query.Result rather than a long-lived search session.
func grepFile(path, rel string, re *regexp.Regexp, opts GrepOptions) ([]GrepMatch, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var out []GrepMatch
	for lineNum, line := range lines {
		var locs [][]int
		switch {
		case opts.InvertMatch:
			if re.MatchString(line) {
				continue
			}
			locs = [][]int{{0, len(line)}}
		case opts.OnlyMatching:
			locs = re.FindAllStringIndex(line, -1)
		default:
			if loc := re.FindStringIndex(line); loc != nil {
				locs = [][]int{loc}
			}
		}
		if len(locs) == 0 {
			continue
		}

		before, after := contextWindow(lines, lineNum, opts.ContextBefore, opts.ContextAfter)
		for _, loc := range locs {
			if opts.MaxPerFile > 0 && len(out) >= opts.MaxPerFile {
				break
			}
			out = append(out, GrepMatch{
				File:          rel,
				LineNumber:    lineNum + 1,
				ColumnStart:   loc[0] + 1,
				ColumnEnd:     loc[1] + 1,
				Line:          line,
				ContextBefore: before,
				ContextAfter:  after,
			})
		}
	}
	return out, nil
}

// grepFileMultiline scans a file's entire content in one pass so Pattern
// can span multiple lines, mirroring the teacher's searchFileMultiline:
// read the whole file, run FindAllStringIndex over the raw content, then
// map each match's byte offsets back to line/column. InvertMatch has no
// well-defined span over a whole-file scan (there is no single "line" to
// invert), so it produces no matches here, the same no-op the teacher's
// multiline path falls into.
func grepFileMultiline(path, rel string, re *regexp.Regexp, opts GrepOptions) ([]GrepMatch, error) {
	if opts.InvertMatch {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	locs := re.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	lineStart := make([]int, len(lines))
	offset := 0
	for i, l := range lines {
		lineStart[i] = offset
		offset += len(l) + 1
	}
	lineForOffset := func(pos int) int {
		i := sort.Search(len(lineStart), func(i int) bool { return lineStart[i] > pos }) - 1
		if i < 0 {
			i = 0
		}
		return i
	}

	var out []GrepMatch
	for _, loc := range locs {
		if opts.MaxPerFile > 0 && len(out) >= opts.MaxPerFile {
			break
		}
		startLine := lineForOffset(loc[0])
		endLine := lineForOffset(loc[1] - 1)
		if endLine >= len(lines) {
			endLine = len(lines) - 1
		}

		colStart := loc[0] - lineStart[startLine]
		colEnd := colStart + (loc[1] - loc[0])
		if startLine != endLine {
			// Clamp the reported span to the starting line so column
			// numbers stay meaningful for a text renderer that only ever
			// prints one line per match.
			colEnd = len(lines[startLine])
		}

		before, after := contextWindow(lines, startLine, opts.ContextBefore, opts.ContextAfter)
		out = append(out, GrepMatch{
			File:          rel,
			LineNumber:    startLine + 1,
			ColumnStart:   colStart + 1,
			ColumnEnd:     colEnd + 1,
			Line:          lines[startLine],
			ContextBefore: before,
			ContextAfter:  after,
		})
	}
	return out, nil
}

func contextWindow(lines []string, lineNum, before, after int) ([]string, []string) {
	start := maxInt(0, lineNum-before)
	end := minInt(len(lines)-1, lineNum+after)

	var beforeLines, afterLines []string
	for i := start; i < lineNum; i++ {
		beforeLines = append(beforeLines, lines[i])
	}
	for i := lineNum + 1; i <= end; i++ {
		afterLines = append(afterLines, lines[i])
	}
	return beforeLines, afterLines
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
