package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/symindex/engine/internal/registry"
	"github.com/symindex/engine/internal/workspace"
)

// openWorkspace detects cfg.Root's layout and opens one IncrementalIndexer
// per member, mirroring what `symindex open`, `symindex query` and
// `symindex watch` all need before they can do anything else.
func openWorkspace(ctx context.Context, cfg Config) (*workspace.WorkspaceRegistry, workspace.Layout, error) {
	detector := workspace.NewDetector(workspace.DetectorConfig{ToolGlobs: cfg.Globs})
	layout, err := detector.Detect(cfg.Root)
	if err != nil {
		return nil, workspace.Layout{}, fmt.Errorf("detect workspace: %w", err)
	}

	wr := workspace.NewWorkspaceRegistry(cfg.Root, cfg.CacheDir)
	if err := wr.Open(ctx, layout); err != nil {
		return nil, workspace.Layout{}, fmt.Errorf("open workspace: %w", err)
	}
	return wr, layout, nil
}

// buildFederation merges every workspace member's index into a single
// IndexRegistry, pulling in each member's go.mod dependencies as
// additional federation tiers when a go.mod is present. Per-member
// dependency load failures are reported but do not abort the merge: a
// workspace member with an unreachable dependency is still queryable for
// its own symbols.
func buildFederation(ctx context.Context, wr *workspace.WorkspaceRegistry, globalCacheDir string) (*registry.IndexRegistry, []error) {
	reg, loader, warnings := buildFederationWithLoader(ctx, wr, globalCacheDir)
	_ = loader
	return reg, warnings
}

// buildFederationWithLoader is buildFederation plus the *registry.Loader it
// built, for callers (the watcher) that need to keep loading newly added
// dependencies after the initial merge.
func buildFederationWithLoader(ctx context.Context, wr *workspace.WorkspaceRegistry, globalCacheDir string) (*registry.IndexRegistry, *registry.Loader, []error) {
	master := registry.New()
	loader := registry.NewLoader(master, registry.CacheConfig{Dir: globalCacheDir})
	var merged *multierror.Error

	for _, m := range wr.Members() {
		idx := m.Indexer.Index()
		memberRoot := idx.ProjectRoot()
		goModPath := filepath.Join(memberRoot, "go.mod")

		master.Add(registry.TierProject, idx)

		if _, err := os.Stat(goModPath); err != nil {
			continue
		}

		if _, err := loader.LoadFromPackageConfig(ctx, memberRoot); err != nil {
			merged = multierror.Append(merged, fmt.Errorf("%s: %w", m.RelDir, err))
		}
	}

	if merged == nil {
		return master, loader, nil
	}
	return master, loader, merged.Errors
}
