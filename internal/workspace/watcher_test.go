package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/symindex/engine/internal/registry"
)

func TestRootWatcher(t *testing.T) {
	t.Run("Loads New Dependency On GoMod Change", func(t *testing.T) {
		testWatcherLoadsNewDependencyOnGoModChange(t)
	})
	t.Run("Emits Structural Change On GoWork", func(t *testing.T) {
		testWatcherEmitsStructuralChange(t)
	})
}

func testWatcherLoadsNewDependencyOnGoModChange(t *testing.T) {
	root := t.TempDir()

	appDir := filepath.Join(root, "app")
	depDir := filepath.Join(root, "dep")
	mustMkdir(t, appDir)
	mustMkdir(t, depDir)

	mustWrite(t, filepath.Join(appDir, "main.go"), "package main\n\nfunc main() {}\n")
	mustWrite(t, filepath.Join(depDir, "dep.go"), "package dep\n\nfunc Hello() {}\n")

	goModNoDep := "module example.com/app\n\ngo 1.21\n"
	mustWrite(t, filepath.Join(appDir, "go.mod"), goModNoDep)

	wr := NewWorkspaceRegistry(root, t.TempDir())
	ctx := context.Background()
	if err := wr.Open(ctx, Layout{Root: root, Members: []string{"app"}}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wr.Close()

	reg := registry.New()
	loader := registry.NewLoader(reg, registry.CacheConfig{Dir: t.TempDir()})

	cfg := DefaultWatcherConfig()
	cfg.DebounceDuration = 50 * time.Millisecond
	cfg.DependencyLoader = loader

	rw, err := NewRootWatcher(root, wr, cfg)
	if err != nil {
		t.Fatalf("NewRootWatcher: %v", err)
	}
	defer rw.Stop()

	if err := rw.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if loader.HasLocalIndex("example.com/dep") {
		t.Fatalf("dependency should not be loaded before go.mod requires it")
	}

	goModWithDep := "module example.com/app\n\ngo 1.21\n\nrequire example.com/dep v0.0.0\n\nreplace example.com/dep => ../dep\n"
	mustWrite(t, filepath.Join(appDir, "go.mod"), goModWithDep)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if loader.HasLocalIndex("example.com/dep") {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected example.com/dep to be loaded into TierLocal after go.mod changed")
}

func testWatcherEmitsStructuralChange(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	mustMkdir(t, appDir)
	mustWrite(t, filepath.Join(appDir, "main.go"), "package main\n\nfunc main() {}\n")

	wr := NewWorkspaceRegistry(root, t.TempDir())
	ctx := context.Background()
	if err := wr.Open(ctx, Layout{Root: root, Members: []string{"app"}}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wr.Close()

	cfg := DefaultWatcherConfig()
	cfg.DebounceDuration = 50 * time.Millisecond

	rw, err := NewRootWatcher(root, wr, cfg)
	if err != nil {
		t.Fatalf("NewRootWatcher: %v", err)
	}
	defer rw.Stop()

	if err := rw.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mustWrite(t, filepath.Join(root, "go.work"), "go 1.21\n\nuse ./app\n")

	select {
	case ev := <-rw.StructuralChanges():
		if ev.RelPath != "go.work" || ev.Op != OpStructuralChange {
			t.Fatalf("unexpected structural event: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for structural change event")
	}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func mustWrite(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
