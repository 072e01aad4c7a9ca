package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestTreeSitterAdapter(t *testing.T) {
	t.Run("Resolve Unit Extracts Symbols", func(t *testing.T) {
		testResolveUnitExtractsSymbols(t)
	})
}

func testResolveUnitExtractsSymbols(t *testing.T) {
	dir := t.TempDir()
	src := "package sample\n\nfunc Greet() string {\n\treturn \"hi\"\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "sample.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write sample file: %v", err)
	}

	adapter, err := NewTreeSitterAdapter()
	if err != nil {
		t.Fatalf("NewTreeSitterAdapter: %v", err)
	}
	defer adapter.Dispose()

	ctx := context.Background()
	files, err := adapter.ListSourceFiles(ctx, dir)
	if err != nil {
		t.Fatalf("ListSourceFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one source file, got %d: %v", len(files), files)
	}

	rec, err := adapter.ResolveUnit(ctx, dir, files[0])
	if err != nil {
		t.Fatalf("ResolveUnit: %v", err)
	}
	if len(rec.Symbols) == 0 {
		t.Fatalf("expected at least one extracted symbol")
	}
	if len(rec.ContentHash) == 0 {
		t.Fatalf("expected a non-empty content hash")
	}
}
