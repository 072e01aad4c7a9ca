package symtab

import (
	"regexp"
	"strings"
)

// isGlobPattern reports whether pattern contains any glob metacharacter.
// Literal patterns take the byName fast path instead of compiling a regexp.
func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// compileGlob turns a shell-style pattern (`*`, `?`, `[...]`) into a
// matcher function. Unlike the teacher's internal/walker/filters.go, which
// matches paths with stdlib filepath.Match, this glob matches plain symbol
// display names and is case-insensitive whenever pattern is all-lowercase.
// `find Foo*` stays case-sensitive while `find foo*` is forgiving for
// interactive use.
func compileGlob(pattern string) func(string) bool {
	caseInsensitive := pattern == strings.ToLower(pattern)

	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end == -1 {
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			b.WriteString(pattern[i : i+end+1])
			i += end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")

	reFlags := ""
	if caseInsensitive {
		reFlags = "(?i)"
	}
	re, err := regexp.Compile(reFlags + b.String())
	if err != nil {
		// Malformed bracket expression: fall back to literal equality.
		return func(s string) bool { return s == pattern }
	}
	return re.MatchString
}
