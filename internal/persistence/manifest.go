package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestType names what a manifest describes, matching the federation
// tiers an artifact can be loaded into (spec §4.5/§6): a project's own
// index has no manifest at all (it is always rebuilt in place), so every
// other value corresponds to a cached dependency artifact.
type ManifestType string

const (
	ManifestSDK       ManifestType = "sdk"
	ManifestFramework ManifestType = "framework"
	ManifestHosted    ManifestType = "hosted"
	ManifestGit       ManifestType = "git"
	ManifestLocal     ManifestType = "local"
	ManifestPackage   ManifestType = "package" // workspace member, mirrored under <workspaceRoot>/<cache>/local
)

// manifestFileName is the standalone file spec §6 requires beside the
// opaque index artifact: {type, name, version?, sourcePath, indexedAt}.
const manifestFileName = "manifest.json"

// Manifest is an artifact's header, read without touching the Badger
// directory at all. ContentDigest/AnalyzerVendor/AnalyzerVer are this
// engine's own cache-validity fields, carried alongside the spec's
// required ones rather than in place of them.
type Manifest struct {
	Type       ManifestType `json:"type"`
	Name       string       `json:"name"`
	Version    string       `json:"version,omitempty"`
	SourcePath string       `json:"sourcePath"`
	IndexedAt  time.Time    `json:"indexedAt"`

	AnalyzerVendor string `json:"analyzerVendor"`
	AnalyzerVer    string `json:"analyzerVersion"`
	ContentDigest  string `json:"contentDigest"`
}

// IsValid reports whether a manifest's digest still matches the project's
// current content digest, per the cache-validity policy: the artifact is
// usable as a warm start only when both the source path and digest agree.
func (m Manifest) IsValid(sourcePath, contentDigest string) bool {
	return m.SourcePath == sourcePath && m.ContentDigest == contentDigest
}

// WriteManifestFile writes m as dir/manifest.json, atomically (write to a
// temp file in the same directory, then rename) so a reader never observes
// a half-written manifest.
func WriteManifestFile(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	final := filepath.Join(dir, manifestFileName)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("persistence: rename %s: %w", tmp, err)
	}
	return nil
}

// ReadManifestFile reads dir/manifest.json, returning ok=false if it does
// not exist (a fresh artifact directory with no prior save).
func ReadManifestFile(dir string) (Manifest, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if os.IsNotExist(err) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}

// HasManifest reports whether dir already holds a manifest.json, without
// decoding it.
func HasManifest(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestFileName))
	return err == nil
}
