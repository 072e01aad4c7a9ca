package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/tools/go/packages"

	"github.com/symindex/engine/internal/analyzer"
	"github.com/symindex/engine/internal/indexer"
	"github.com/symindex/engine/internal/persistence"
	"github.com/symindex/engine/internal/symtab"
)

// CacheConfig resolves where a Loader caches dependency artifacts. Dir
// holds one subdirectory per tier (sdk/framework/hosted/git), per spec §6.
// It is a plain value passed into NewLoader rather than a package-level
// singleton (spec §9), so tests and an explicit --global-cache-dir flag
// can both override it without touching process environment.
type CacheConfig struct {
	Dir string
}

// DefaultCacheConfig resolves Dir from PACKAGE_CACHE_DIR, falling back to
// $HOME/.cache/symindex/packages.
func DefaultCacheConfig() CacheConfig {
	if dir := os.Getenv("PACKAGE_CACHE_DIR"); dir != "" {
		return CacheConfig{Dir: dir}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return CacheConfig{Dir: filepath.Join(home, ".cache", "symindex", "packages")}
}

func (c CacheConfig) artifactDir(tier Tier, cacheKey string) string {
	return filepath.Join(c.Dir, string(tier), sanitizeImportPath(cacheKey))
}

// Dependency names one package a project's manifest requires, classified
// into the federation tier it belongs in.
type Dependency struct {
	Tier       Tier
	ImportPath string
	Version    string
	Dir        string // on-disk source location, resolved by classifyDependencies
}

// DependencyLoadResult reports what LoadFromPackageConfig actually managed
// to load, per spec §4.5, so a caller can report a partial federation
// (some dependency unreachable, say) instead of silently querying less
// than the project declares.
type DependencyLoadResult struct {
	SDKLoaded  bool
	SDKVersion string

	FrameworkLoaded  []string
	FrameworkMissing []string

	HostedLoaded  []string
	HostedMissing []string

	GitLoaded  []string
	GitMissing []string

	LocalLoaded  []string
	LocalMissing []string
}

// Loader opens dependency artifacts into a Registry under the right tier,
// building (and caching) an index from source the first time and
// warm-starting from the cached artifact afterward. It is the spec §4.5
// federation loader: one entry point per provenance rather than a single
// generic "load a path", because each tier resolves its source location
// and cache key differently.
type Loader struct {
	Registry *IndexRegistry
	Cache    CacheConfig
}

// NewLoader creates a Loader that populates reg, caching built artifacts
// under cache.
func NewLoader(reg *IndexRegistry, cache CacheConfig) *Loader {
	return &Loader{Registry: reg, Cache: cache}
}

// HasSDKIndex reports whether version is already loaded under TierSDK.
func (l *Loader) HasSDKIndex(version string) bool { return l.Registry.Has(TierSDK, version) }

// LoadSDK indexes the Go standard library of the toolchain symindex itself
// runs under, cached by version. Go has no per-project-selectable stdlib
// build the way some ecosystems do; the "version" in the manifest records
// what go.mod asked for, while the actual source indexed is always the
// running toolchain's GOROOT/src, which is this host's best approximation
// of "the sdk for that version".
func (l *Loader) LoadSDK(ctx context.Context, version string) error {
	if l.HasSDKIndex(version) {
		return nil
	}
	goroot := runtime.GOROOT()
	if goroot == "" {
		return fmt.Errorf("registry: GOROOT not resolvable, cannot load sdk")
	}
	idx, err := l.loadOrBuild(ctx, TierSDK, version, persistence.ManifestSDK, "go", version, filepath.Join(goroot, "src"))
	if err != nil {
		return err
	}
	l.Registry.AddWithKey(TierSDK, version, idx)
	return nil
}

// UnloadSDK drops the sdk index for version.
func (l *Loader) UnloadSDK(version string) { l.Registry.Remove(TierSDK, version) }

// HasFrameworkIndex reports whether importPath is loaded under TierFramework.
func (l *Loader) HasFrameworkIndex(importPath string) bool {
	return l.Registry.Has(TierFramework, importPath)
}

// LoadFrameworkPackage indexes a golang.org/x/* module: Go's closest
// analogue to a blessed-but-separately-versioned framework layered on the
// standard library.
func (l *Loader) LoadFrameworkPackage(ctx context.Context, importPath, version string) error {
	if l.HasFrameworkIndex(importPath) {
		return nil
	}
	dir, err := resolveModuleDir(ctx, importPath)
	if err != nil {
		return err
	}
	idx, err := l.loadOrBuild(ctx, TierFramework, importPath, persistence.ManifestFramework, importPath, version, dir)
	if err != nil {
		return err
	}
	l.Registry.AddWithKey(TierFramework, importPath, idx)
	return nil
}

// UnloadFrameworkPackage drops importPath's index from TierFramework.
func (l *Loader) UnloadFrameworkPackage(importPath string) { l.Registry.Remove(TierFramework, importPath) }

// HasPackageIndex reports whether importPath is loaded under TierHosted.
func (l *Loader) HasPackageIndex(importPath string) bool {
	return l.Registry.Has(TierHosted, importPath)
}

// LoadPackage indexes a normal module-proxy-resolved dependency (a tagged
// semver release, not a VCS pseudo-version pin).
func (l *Loader) LoadPackage(ctx context.Context, importPath, version string) error {
	if l.HasPackageIndex(importPath) {
		return nil
	}
	dir, err := resolveModuleDir(ctx, importPath)
	if err != nil {
		return err
	}
	idx, err := l.loadOrBuild(ctx, TierHosted, importPath, persistence.ManifestHosted, importPath, version, dir)
	if err != nil {
		return err
	}
	l.Registry.AddWithKey(TierHosted, importPath, idx)
	return nil
}

// UnloadPackage drops importPath's index from TierHosted.
func (l *Loader) UnloadPackage(importPath string) { l.Registry.Remove(TierHosted, importPath) }

// HasGitIndex reports whether repoCommitKey is loaded under TierGit.
func (l *Loader) HasGitIndex(repoCommitKey string) bool { return l.Registry.Has(TierGit, repoCommitKey) }

// LoadGitPackage indexes a dependency pinned to a VCS pseudo-version
// (golang.org/x/mod/module.IsPseudoVersion), cached under a repo@commit
// key distinct from the plain import path so two commits of the same
// import path can coexist.
func (l *Loader) LoadGitPackage(ctx context.Context, importPath, version string) error {
	repoCommitKey := importPath + "@" + version
	if l.HasGitIndex(repoCommitKey) {
		return nil
	}
	dir, err := resolveModuleDir(ctx, importPath)
	if err != nil {
		return err
	}
	idx, err := l.loadOrBuild(ctx, TierGit, repoCommitKey, persistence.ManifestGit, importPath, version, dir)
	if err != nil {
		return err
	}
	l.Registry.AddWithKey(TierGit, repoCommitKey, idx)
	return nil
}

// UnloadGitPackage drops repoCommitKey's index from TierGit.
func (l *Loader) UnloadGitPackage(repoCommitKey string) { l.Registry.Remove(TierGit, repoCommitKey) }

// HasLocalIndex reports whether importPath is loaded under TierLocal.
func (l *Loader) HasLocalIndex(importPath string) bool { return l.Registry.Has(TierLocal, importPath) }

// LoadLocalPackage indexes a dependency resolved by a go.mod replace
// directive onto a filesystem path, the closest Go analogue to a
// monorepo-local package reference.
func (l *Loader) LoadLocalPackage(ctx context.Context, importPath, dir string) error {
	if l.HasLocalIndex(importPath) {
		return nil
	}
	idx, err := l.loadOrBuild(ctx, TierLocal, importPath, persistence.ManifestLocal, importPath, "", dir)
	if err != nil {
		return err
	}
	l.Registry.AddWithKey(TierLocal, importPath, idx)
	return nil
}

// UnloadLocalPackage drops importPath's index from TierLocal.
func (l *Loader) UnloadLocalPackage(importPath string) { l.Registry.Remove(TierLocal, importPath) }

// LoadFromPackageConfig parses projectPath/go.mod, classifies every direct
// requirement into a tier, and loads each one, reporting what loaded and
// what did not per spec §4.5's DependencyLoadResult shape. Independent
// per-dependency failures never abort the whole load: a project with one
// unreachable dependency is still queryable for the rest.
func (l *Loader) LoadFromPackageConfig(ctx context.Context, projectPath string) (DependencyLoadResult, error) {
	var result DependencyLoadResult

	goModPath := filepath.Join(projectPath, "go.mod")
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return result, fmt.Errorf("registry: read %s: %w", goModPath, err)
	}
	mf, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return result, fmt.Errorf("registry: parse %s: %w", goModPath, err)
	}

	if mf.Go != nil && mf.Go.Version != "" {
		if err := l.LoadSDK(ctx, mf.Go.Version); err == nil {
			result.SDKLoaded = true
			result.SDKVersion = mf.Go.Version
		}
	}

	replaced := make(map[string]string, len(mf.Replace))
	for _, r := range mf.Replace {
		if r.New.Version == "" {
			replaced[r.Old.Path] = r.New.Path
		}
	}

	for _, req := range mf.Require {
		if req.Indirect {
			continue
		}
		path, version := req.Mod.Path, req.Mod.Version

		switch {
		case replaced[path] != "":
			dir := replaced[path]
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(projectPath, dir)
			}
			if err := l.LoadLocalPackage(ctx, path, dir); err != nil {
				result.LocalMissing = append(result.LocalMissing, path)
				continue
			}
			result.LocalLoaded = append(result.LocalLoaded, path)

		case isFrameworkPath(path):
			if err := l.LoadFrameworkPackage(ctx, path, version); err != nil {
				result.FrameworkMissing = append(result.FrameworkMissing, path)
				continue
			}
			result.FrameworkLoaded = append(result.FrameworkLoaded, path)

		case module.IsPseudoVersion(version):
			if err := l.LoadGitPackage(ctx, path, version); err != nil {
				result.GitMissing = append(result.GitMissing, path)
				continue
			}
			result.GitLoaded = append(result.GitLoaded, path+"@"+version)

		default:
			if err := l.LoadPackage(ctx, path, version); err != nil {
				result.HostedMissing = append(result.HostedMissing, path)
				continue
			}
			result.HostedLoaded = append(result.HostedLoaded, path)
		}
	}

	return result, nil
}

// isFrameworkPath reports whether path is one of Go's extended-but-blessed
// standard library modules, the closest thing Go has to a "framework" tier
// distinct from both the core sdk and an arbitrary hosted package.
func isFrameworkPath(path string) bool {
	return strings.HasPrefix(path, "golang.org/x/")
}

// resolveModuleDir finds importPath's on-disk module cache location via
// golang.org/x/tools/go/packages, the same mechanism go/build itself uses
// to resolve an import to a directory.
func resolveModuleDir(ctx context.Context, importPath string) (string, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
	}
	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return "", fmt.Errorf("registry: load %s: %w", importPath, err)
	}
	if len(pkgs) == 0 || len(pkgs[0].GoFiles) == 0 {
		return "", fmt.Errorf("registry: %s: no resolvable package directory", importPath)
	}
	return filepath.Dir(pkgs[0].GoFiles[0]), nil
}

// loadOrBuild warm-starts an index from l.Cache's artifact directory for
// (tier, cacheKey) when its manifest is still valid, otherwise runs a full
// scan of dir and persists a fresh artifact.
func (l *Loader) loadOrBuild(ctx context.Context, tier Tier, cacheKey string, mtype persistence.ManifestType, name, version, dir string) (*symtab.Index, error) {
	artifactDir := l.Cache.artifactDir(tier, cacheKey)

	// A dependency's source doesn't change underneath an already-resolved
	// module cache path, so unlike the project indexer's warm start (which
	// recomputes a path/size/mtime digest on every open) a manifest whose
	// SourcePath still matches is trusted outright.
	if m, ok, err := persistence.ReadManifestFile(artifactDir); err == nil && ok && m.SourcePath == dir {
		store, err := persistence.Open(persistence.DefaultOptions(artifactDir))
		if err == nil {
			idx, err := persistence.LoadIndex(ctx, store, dir, dir)
			store.Close()
			if err == nil {
				return idx, nil
			}
		}
	}

	adapter, err := analyzer.NewTreeSitterAdapter()
	if err != nil {
		return nil, err
	}
	defer adapter.Dispose()

	ix := indexer.New(indexer.Config{
		ProjectRoot:  dir,
		SourceRoot:   dir,
		ArtifactDir:  artifactDir,
		ManifestType: mtype,
		Name:         name,
		Version:      version,
	}, adapter)

	if err := ix.Open(ctx); err != nil {
		return nil, err
	}
	defer ix.Dispose()

	return ix.Index(), nil
}

func sanitizeImportPath(importPath string) string {
	out := make([]byte, len(importPath))
	for i := 0; i < len(importPath); i++ {
		c := importPath[i]
		if c == '/' || c == ':' || c == '@' {
			out[i] = '_'
		} else {
			out[i] = c
		}
	}
	return string(out)
}
