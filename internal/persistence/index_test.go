package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/symindex/engine/internal/symtab"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	opts := DefaultOptions("")
	opts.InMemory = true

	s, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPersistence(t *testing.T) {
	t.Run("Save And Load Round Trip", func(t *testing.T) {
		testSaveAndLoad(t)
	})
	t.Run("Manifest Validity", func(t *testing.T) {
		testManifestValidity(t)
	})
}

func testSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dir := t.TempDir()

	idx := symtab.New("/proj", "/proj")
	rec := symtab.DocumentRecord{
		RelativePath: "a.go",
		Symbols: []symtab.SymbolInfo{
			{Symbol: "a.go#Foo", DisplayName: "Foo", Kind: symtab.KindFunction},
		},
		Occurrences: []symtab.OccurrenceInfo{
			{Symbol: "a.go#Foo", File: "a.go", Roles: symtab.RoleDefinition},
		},
	}
	if err := idx.UpdateDocument("a.go", rec); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	m := Manifest{Type: ManifestPackage, Name: "proj", SourcePath: "/proj", ContentDigest: "deadbeef", IndexedAt: time.Unix(0, 0)}
	if err := SaveIndex(ctx, store, dir, idx, m); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}

	loaded, err := LoadIndex(ctx, store, "/proj", "/proj")
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}

	sym, ok := loaded.GetSymbol("a.go#Foo")
	if !ok || sym.DisplayName != "Foo" {
		t.Fatalf("GetSymbol after reload: got %+v, ok=%v", sym, ok)
	}

	if !HasManifest(dir) {
		t.Fatalf("expected manifest.json to exist in %s", dir)
	}
	gotManifest, ok, err := ReadManifestFile(dir)
	if err != nil || !ok {
		t.Fatalf("ReadManifestFile: ok=%v err=%v", ok, err)
	}
	if gotManifest.ContentDigest != "deadbeef" {
		t.Fatalf("ReadManifestFile: got digest %q", gotManifest.ContentDigest)
	}
	if gotManifest.Type != ManifestPackage || gotManifest.SourcePath != "/proj" {
		t.Fatalf("ReadManifestFile: got %+v", gotManifest)
	}
}

func testManifestValidity(t *testing.T) {
	m := Manifest{SourcePath: "/proj", ContentDigest: "abc123"}

	if !m.IsValid("/proj", "abc123") {
		t.Fatalf("expected matching path+digest to be valid")
	}
	if m.IsValid("/proj", "different") {
		t.Fatalf("expected digest mismatch to invalidate the manifest")
	}
	if m.IsValid("/other", "abc123") {
		t.Fatalf("expected path mismatch to invalidate the manifest")
	}
}
