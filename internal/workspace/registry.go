package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/symindex/engine/internal/analyzer"
	"github.com/symindex/engine/internal/indexer"
	"github.com/symindex/engine/internal/persistence"
)

// workspaceManifestFileName is the top-level file spec §4.7/§6 requires at
// the root of a workspace's cache directory, distinct from each member's
// own manifest.json under local/<pkg>.
const workspaceManifestFileName = "workspace.json"

// localMirrorDir is where every member's mirrored artifact is copied,
// under the workspace's cache directory.
const localMirrorDir = "local"

// privateArtifactDir is where each member's indexer actually persists,
// kept separate from localMirrorDir so "mirroring" is a real copy step
// (spec §4.7) rather than the indexer writing straight into the shared
// location another process might be reading workspace.json/manifest.json
// from mid-write.
const privateArtifactDir = ".private"

// workspaceManifest is the top-level workspace.json contents: what
// packages this workspace currently knows about, so a reader never has to
// re-walk the filesystem just to enumerate members.
type workspaceManifest struct {
	Type      string    `json:"type"`
	RootPath  string    `json:"rootPath"`
	Packages  []string  `json:"packages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member is one workspace package's live indexer plus the directory it
// was opened against, relative to the workspace root.
type Member struct {
	RelDir  string
	Indexer *indexer.IncrementalIndexer
}

// WorkspaceRegistry owns one IncrementalIndexer per workspace member and
// mirrors each member's artifact into a central cache directory so a cold
// open of the whole workspace can warm-start every member at once.
type WorkspaceRegistry struct {
	mu       sync.RWMutex
	root     string
	cacheDir string
	members  map[string]*Member

	newAdapter func() (analyzer.Adapter, error)
}

// NewWorkspaceRegistry creates a registry rooted at root, persisting each
// member's artifact under cacheDir/.private/<member> and mirroring it to
// cacheDir/local/<member>.
func NewWorkspaceRegistry(root, cacheDir string) *WorkspaceRegistry {
	return &WorkspaceRegistry{
		root:       root,
		cacheDir:   cacheDir,
		members:    make(map[string]*Member),
		newAdapter: func() (analyzer.Adapter, error) { return analyzer.NewTreeSitterAdapter() },
	}
}

// Open opens every member in layout, in parallel-friendly independent
// calls (the caller may call OpenMember concurrently; Open itself is
// sequential since artifact directory creation is cheap relative to the
// scan each OpenMember performs).
func (wr *WorkspaceRegistry) Open(ctx context.Context, layout Layout) error {
	for _, member := range layout.Members {
		if err := wr.OpenMember(ctx, member); err != nil {
			return fmt.Errorf("workspace: open member %s: %w", member, err)
		}
	}
	return nil
}

// OpenMember opens a single member's indexer, replacing any previous one
// registered under the same relative directory. The indexer persists to a
// private artifact directory; mirror then copies that artifact into the
// workspace's public local/<pkg> cache location (spec §4.7).
func (wr *WorkspaceRegistry) OpenMember(ctx context.Context, relDir string) error {
	adapter, err := wr.newAdapter()
	if err != nil {
		return err
	}

	memberRoot := filepath.Join(wr.root, relDir)
	ix := indexer.New(indexer.Config{
		ProjectRoot:  memberRoot,
		SourceRoot:   memberRoot,
		ArtifactDir:  wr.privateDir(relDir),
		ManifestType: persistence.ManifestPackage,
		Name:         relDir,
	}, adapter)

	if err := ix.Open(ctx); err != nil {
		return err
	}

	wr.mu.Lock()
	if existing, ok := wr.members[relDir]; ok {
		existing.Indexer.Dispose()
	}
	wr.members[relDir] = &Member{RelDir: relDir, Indexer: ix}
	wr.mu.Unlock()

	if err := wr.mirror(relDir); err != nil {
		return fmt.Errorf("workspace: mirror %s: %w", relDir, err)
	}
	return wr.writeWorkspaceManifest()
}

func (wr *WorkspaceRegistry) privateDir(relDir string) string {
	return filepath.Join(wr.cacheDir, privateArtifactDir, sanitizeRelDir(relDir))
}

func (wr *WorkspaceRegistry) mirrorDir(relDir string) string {
	return filepath.Join(wr.cacheDir, localMirrorDir, sanitizeRelDir(relDir))
}

// mirror copies a member's private artifact directory (index/ plus
// manifest.json) into its public mirror location, overwriting any
// previous copy. It is called after every open and after every refresh so
// the mirror never lags more than one debounce cycle behind the private
// artifact.
func (wr *WorkspaceRegistry) mirror(relDir string) error {
	src := wr.privateDir(relDir)
	if _, err := os.Stat(src); err != nil {
		// persistence disabled (empty cacheDir) or not yet persisted once.
		return nil
	}
	dst := wr.mirrorDir(relDir)
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return copyTree(src, dst)
}

// writeWorkspaceManifest (re)writes the workspace-level workspace.json
// listing every currently registered member, atomically.
func (wr *WorkspaceRegistry) writeWorkspaceManifest() error {
	if wr.cacheDir == "" {
		return nil
	}
	wr.mu.RLock()
	packages := make([]string, 0, len(wr.members))
	for dir := range wr.members {
		packages = append(packages, dir)
	}
	wr.mu.RUnlock()

	m := workspaceManifest{
		Type:      "workspace",
		RootPath:  wr.root,
		Packages:  packages,
		UpdatedAt: time.Now(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(wr.cacheDir, 0o755); err != nil {
		return err
	}

	final := filepath.Join(wr.cacheDir, workspaceManifestFileName)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// copyTree recursively copies src onto dst, used to mirror a private
// artifact directory into its public workspace cache location.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// MemberFor returns the member owning absolute or root-relative path,
// chosen as the longest registered member directory that prefixes it,
// following the same longest-prefix-wins rule Go's own module resolution
// uses to disambiguate nested packages.
func (wr *WorkspaceRegistry) MemberFor(relPath string) (*Member, bool) {
	if filepath.IsAbs(relPath) {
		if rel, err := filepath.Rel(wr.root, relPath); err == nil {
			relPath = filepath.ToSlash(rel)
		}
	}

	wr.mu.RLock()
	defer wr.mu.RUnlock()

	var best *Member
	bestLen := -1
	for dir, m := range wr.members {
		if dir == "." {
			if bestLen < 0 {
				best, bestLen = m, 0
			}
			continue
		}
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			if len(dir) > bestLen {
				best, bestLen = m, len(dir)
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// Members returns every registered member, in no particular order.
func (wr *WorkspaceRegistry) Members() []*Member {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	out := make([]*Member, 0, len(wr.members))
	for _, m := range wr.members {
		out = append(out, m)
	}
	return out
}

// UpdateFile routes a changed file to its owning member and refreshes it,
// using the path relative to that member's root, not the workspace root.
// The member's mirror is re-copied afterward so the public cache never
// drifts far behind the private artifact (spec §4.7).
func (wr *WorkspaceRegistry) UpdateFile(ctx context.Context, relPath string) error {
	m, ok := wr.MemberFor(relPath)
	if !ok {
		return fmt.Errorf("workspace: no member owns %s", relPath)
	}
	withinMember := relPathWithin(m.RelDir, relPath)
	if err := m.Indexer.RefreshFile(ctx, withinMember); err != nil {
		return err
	}
	return wr.mirror(m.RelDir)
}

// RemoveFile routes a removed file to its owning member and prunes it,
// then re-mirrors that member's artifact.
func (wr *WorkspaceRegistry) RemoveFile(relPath string) error {
	m, ok := wr.MemberFor(relPath)
	if !ok {
		return fmt.Errorf("workspace: no member owns %s", relPath)
	}
	withinMember := relPathWithin(m.RelDir, relPath)
	if err := m.Indexer.RemoveFile(withinMember); err != nil {
		return err
	}
	return wr.mirror(m.RelDir)
}

// Close disposes every member's indexer.
func (wr *WorkspaceRegistry) Close() error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	var firstErr error
	for _, m := range wr.members {
		if err := m.Indexer.Dispose(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func relPathWithin(memberDir, relPath string) string {
	if memberDir == "." {
		return relPath
	}
	trimmed := strings.TrimPrefix(relPath, memberDir+"/")
	return trimmed
}

func sanitizeRelDir(relDir string) string {
	out := make([]byte, len(relDir))
	for i := 0; i < len(relDir); i++ {
		c := relDir[i]
		if c == '/' || c == '.' {
			out[i] = '_'
		} else {
			out[i] = c
		}
	}
	if len(out) == 0 {
		return "root"
	}
	return string(out)
}
