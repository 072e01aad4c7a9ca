package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceDetector(t *testing.T) {
	t.Run("Single Package Fallback", func(t *testing.T) {
		testSinglePackageFallback(t)
	})
	t.Run("Declarative Go Work", func(t *testing.T) {
		testDeclarativeGoWork(t)
	})
	t.Run("Tool Driven Globs", func(t *testing.T) {
		testToolDrivenGlobs(t)
	})
}

func testSinglePackageFallback(t *testing.T) {
	dir := t.TempDir()
	d := NewDetector(DetectorConfig{})

	layout, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(layout.Members) != 1 || layout.Members[0] != "." {
		t.Fatalf("expected single-package fallback, got %+v", layout)
	}
}

func testDeclarativeGoWork(t *testing.T) {
	dir := t.TempDir()
	content := "go 1.24\n\nuse (\n\t./api\n\t./worker\n)\n"
	if err := os.WriteFile(filepath.Join(dir, "go.work"), []byte(content), 0o644); err != nil {
		t.Fatalf("write go.work: %v", err)
	}

	d := NewDetector(DetectorConfig{})
	layout, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(layout.Members) != 2 {
		t.Fatalf("expected 2 declared members, got %+v", layout.Members)
	}
}

func testToolDrivenGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, pkg := range []string{"packages/a", "packages/b"} {
		if err := os.MkdirAll(filepath.Join(dir, pkg), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", pkg, err)
		}
	}

	d := NewDetector(DetectorConfig{ToolGlobs: []string{"packages/*"}})
	layout, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(layout.Members) != 2 {
		t.Fatalf("expected 2 glob-matched members, got %+v", layout.Members)
	}
}
