package registry

import (
	"path/filepath"
	"testing"
)

func TestCacheConfig(t *testing.T) {
	t.Run("Default From Env", func(t *testing.T) { testDefaultCacheConfigFromEnv(t) })
	t.Run("Default Falls Back To Home", func(t *testing.T) { testDefaultCacheConfigFallback(t) })
	t.Run("Artifact Dir Layout", func(t *testing.T) { testCacheConfigArtifactDir(t) })
}

func testDefaultCacheConfigFromEnv(t *testing.T) {
	t.Setenv("PACKAGE_CACHE_DIR", "/tmp/custom-pkg-cache")
	cfg := DefaultCacheConfig()
	if cfg.Dir != "/tmp/custom-pkg-cache" {
		t.Fatalf("expected PACKAGE_CACHE_DIR to win, got %q", cfg.Dir)
	}
}

func testDefaultCacheConfigFallback(t *testing.T) {
	t.Setenv("PACKAGE_CACHE_DIR", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := DefaultCacheConfig()
	want := filepath.Join(home, ".cache", "symindex", "packages")
	if cfg.Dir != want {
		t.Fatalf("got %q, want %q", cfg.Dir, want)
	}
}

func testCacheConfigArtifactDir(t *testing.T) {
	cfg := CacheConfig{Dir: "/cache"}
	got := cfg.artifactDir(TierGit, "example.com/foo@v0.0.0-20240101000000-abcdef123456")
	want := filepath.Join("/cache", "git", sanitizeImportPath("example.com/foo@v0.0.0-20240101000000-abcdef123456"))
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTierClassification(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"golang.org/x/mod", true},
		{"golang.org/x/tools/go/packages", true},
		{"github.com/dgraph-io/badger/v4", false},
		{"golang.org/xyz", false},
	}
	for _, c := range cases {
		if got := isFrameworkPath(c.path); got != c.want {
			t.Fatalf("isFrameworkPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestSanitizeImportPath(t *testing.T) {
	got := sanitizeImportPath("github.com/foo/bar@v1.2.3")
	want := "github.com_foo_bar_v1.2.3"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRegistryUnloadRoundTrip(t *testing.T) {
	reg := New()
	idx := indexWithSymbol("/dep", "a.go", "dep#Run", "Run")
	reg.AddWithKey(TierGit, "example.com/dep@v0.0.0-20240101000000-abcdef123456", idx)

	if !reg.Has(TierGit, "example.com/dep@v0.0.0-20240101000000-abcdef123456") {
		t.Fatalf("expected index to be registered")
	}
	reg.Remove(TierGit, "example.com/dep@v0.0.0-20240101000000-abcdef123456")
	if reg.Has(TierGit, "example.com/dep@v0.0.0-20240101000000-abcdef123456") {
		t.Fatalf("expected index to be removed")
	}
}
