// Package workspace implements WorkspaceDetector, WorkspaceRegistry and the
// unified root watcher: the layer above a single symtab.Index that knows a
// project can be one package, a declarative multi-package workspace, or a
// tool-driven workspace discovered by matching glob patterns.
package workspace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Layout is the result of detection: every member package's directory,
// relative to Root.
type Layout struct {
	Root    string
	Members []string
}

// DetectorConfig controls how detection falls back between the three
// supported shapes.
type DetectorConfig struct {
	// ToolGlobs are doublestar patterns (relative to root) identifying
	// member directories for ecosystems with no native workspace file,
	// e.g. ["packages/*", "apps/*"] for a JS-style monorepo layout.
	ToolGlobs []string
}

// WorkspaceDetector classifies a root directory into a Layout.
type WorkspaceDetector struct {
	cfg DetectorConfig
}

// NewDetector creates a WorkspaceDetector with the given tool-driven glob
// fallback configuration.
func NewDetector(cfg DetectorConfig) *WorkspaceDetector {
	return &WorkspaceDetector{cfg: cfg}
}

// Detect classifies root, trying each workspace shape in order: a
// declarative go.work-style manifest first, then tool-driven glob
// expansion, then falling back to treating root itself as the sole
// member (the common case for a single-package project).
func (d *WorkspaceDetector) Detect(root string) (Layout, error) {
	if members, ok, err := d.detectDeclarative(root); err != nil {
		return Layout{}, err
	} else if ok {
		return Layout{Root: root, Members: members}, nil
	}

	if members, ok, err := d.detectToolDriven(root); err != nil {
		return Layout{}, err
	} else if ok {
		return Layout{Root: root, Members: members}, nil
	}

	return Layout{Root: root, Members: []string{"."}}, nil
}

var useLinePattern = regexp.MustCompile(`^\s*use\s+(\S+)\s*$`)

// detectDeclarative reads a go.work-style manifest at root/go.work,
// following the line-oriented scanning style of the pack's own go.mod/
// go.sum readers (sourcegraph-lsif-go/gomod/modfile.go) rather than the
// x/mod/modfile work-file parser, whose exact field shape this repo has
// no other verified call site for.
func (d *WorkspaceDetector) detectDeclarative(root string) ([]string, bool, error) {
	path := filepath.Join(root, "go.work")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("workspace: open %s: %w", path, err)
	}
	defer f.Close()

	var members []string
	scanner := bufio.NewScanner(f)
	inUseBlock := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "use (":
			inUseBlock = true
		case inUseBlock && trimmed == ")":
			inUseBlock = false
		case inUseBlock && trimmed != "":
			members = append(members, strings.TrimSpace(trimmed))
		case useLinePattern.MatchString(line):
			members = append(members, useLinePattern.FindStringSubmatch(line)[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("workspace: read %s: %w", path, err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}
	return members, true, nil
}

// detectToolDriven expands d.cfg.ToolGlobs (supporting `**`) against root,
// returning every matched directory as a member.
func (d *WorkspaceDetector) detectToolDriven(root string) ([]string, bool, error) {
	if len(d.cfg.ToolGlobs) == 0 {
		return nil, false, nil
	}

	var members []string
	for _, pattern := range d.cfg.ToolGlobs {
		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, false, fmt.Errorf("workspace: glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(filepath.Join(root, m))
			if err == nil && info.IsDir() {
				members = append(members, m)
			}
		}
	}
	if len(members) == 0 {
		return nil, false, nil
	}
	return members, true, nil
}
