package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/mod/modfile"

	"github.com/symindex/engine/internal/registry"
)

// WatchOp mirrors the fs operation that produced a change, the same
// categories the teacher's Watcher (internal/index/watcher.go) recognizes.
type WatchOp string

const (
	OpCreate WatchOp = "create"
	OpWrite  WatchOp = "write"
	OpRemove WatchOp = "remove"
	OpRename WatchOp = "rename"

	// OpStructuralChange marks a change to a top-level package manifest
	// (go.work today) that can alter workspace membership itself, as
	// opposed to a member's own go.mod which only changes that member's
	// dependencies. It carries no routing action of its own (no file is
	// reindexed because of it) — it exists purely so a caller observing
	// RootWatcher.StructuralChanges can react (re-run workspace detection,
	// say) without RootWatcher having an opinion on what that reaction is.
	OpStructuralChange WatchOp = "structural_change"
)

// structuralManifestNames lists file basenames whose change at the
// workspace root is treated as a structural change signal.
var structuralManifestNames = map[string]bool{"go.work": true}

// WatchEvent is one filesystem change, path relative to the workspace root.
type WatchEvent struct {
	RelPath string
	Op      WatchOp
	Time    time.Time
}

// WatcherConfig configures RootWatcher. Defaults mirror the teacher's
// DefaultWatcherConfig.
type WatcherConfig struct {
	DebounceDuration time.Duration
	ExcludeDirs      []string
	ErrorCallback    func(error)

	// DependencyLoader, when set, makes RootWatcher diff a member's go.mod
	// against a cached snapshot on every change and load any newly added
	// dependency into the loader's registry (spec §4.7). Nil disables the
	// diff entirely, which is fine for a watcher with no query registry to
	// keep current (e.g. a plain reindex-only watch).
	DependencyLoader *registry.Loader
}

// DefaultWatcherConfig returns the teacher's tuning, generalized from a
// single search corpus to any workspace root.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceDuration: 500 * time.Millisecond,
		ExcludeDirs:      []string{"vendor", "node_modules", ".git"},
	}
}

// RootWatcher recursively watches a workspace root and routes debounced
// file events to the WorkspaceRegistry member that owns each path,
// generalizing the teacher's single-tree Watcher (internal/index/watcher.go)
// into a multi-package router.
type RootWatcher struct {
	root     string
	registry *WorkspaceRegistry
	config   WatcherConfig

	fsWatcher  *fsnotify.Watcher
	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	structural chan WatchEvent

	goModMu       sync.Mutex
	goModRequires map[string]map[string]bool // member RelDir -> set of required import paths
}

// NewRootWatcher creates a watcher that will route events into registry.
func NewRootWatcher(root string, workspaceRegistry *WorkspaceRegistry, config WatcherConfig) (*RootWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("workspace: create fsnotify watcher: %w", err)
	}
	return &RootWatcher{
		root:          root,
		registry:      workspaceRegistry,
		config:        config,
		fsWatcher:     fsw,
		structural:    make(chan WatchEvent, 16),
		goModRequires: make(map[string]map[string]bool),
	}, nil
}

// StructuralChanges returns the channel OpStructuralChange events are
// published on. It is a best-effort signal like IncrementalIndexer's
// Events channel: a slow consumer drops the oldest pending notification
// rather than blocking the watcher.
func (w *RootWatcher) StructuralChanges() <-chan WatchEvent { return w.structural }

// Start begins watching, adding every directory under root recursively,
// following the teacher's addDirectory walk.
func (w *RootWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("workspace: watcher already running")
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		cancel()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	w.snapshotGoMods()

	events := make(chan WatchEvent, 256)
	go w.readFsEvents(watchCtx, events)
	go w.debounceAndRoute(watchCtx, events)
	return nil
}

// Stop halts the watcher and closes the underlying fsnotify handle.
func (w *RootWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.running = false
	return w.fsWatcher.Close()
}

func (w *RootWatcher) addRecursive(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("workspace: watch %s: %w", dir, err)
	}
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || path == dir {
			return nil
		}
		if w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil && w.config.ErrorCallback != nil {
			w.config.ErrorCallback(fmt.Errorf("workspace: watch %s: %w", path, err))
		}
		return nil
	})
}

func (w *RootWatcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, ex := range w.config.ExcludeDirs {
		if base == ex {
			return true
		}
	}
	return false
}

func (w *RootWatcher) readFsEvents(ctx context.Context, out chan<- WatchEvent) {
	defer close(out)
	for {
		select {
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			we := w.convert(ev)
			if we == nil {
				continue
			}
			select {
			case out <- *we:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.config.ErrorCallback != nil {
				w.config.ErrorCallback(err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *RootWatcher) convert(ev fsnotify.Event) *WatchEvent {
	var op WatchOp
	switch {
	case ev.Op&fsnotify.Create == fsnotify.Create:
		op = OpCreate
	case ev.Op&fsnotify.Write == fsnotify.Write:
		op = OpWrite
	case ev.Op&fsnotify.Remove == fsnotify.Remove:
		op = OpRemove
	case ev.Op&fsnotify.Rename == fsnotify.Rename:
		op = OpRename
	default:
		return nil
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return nil
	}
	return &WatchEvent{RelPath: filepath.ToSlash(rel), Op: op, Time: time.Now()}
}

// debounceAndRoute batches events per path following the teacher's
// debounce timer pattern, then applies the last operation observed for
// each path once the batch settles. A rename/remove followed by a create
// for the same path collapses to the create and is routed as a refresh
// alone, which is enough since RefreshFile always performs a full document
// replace regardless of prior state.
func (w *RootWatcher) debounceAndRoute(ctx context.Context, events <-chan WatchEvent) {
	pending := make(map[string]WatchOp)
	var timer *time.Timer
	var timerCh <-chan time.Time

	flush := func() {
		for path, op := range pending {
			w.route(ctx, path, op)
		}
		pending = make(map[string]WatchOp)
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				flush()
				return
			}
			if w.shouldIgnorePath(ev.RelPath) {
				continue
			}
			pending[ev.RelPath] = ev.Op

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.config.DebounceDuration)
			timerCh = timer.C

		case <-timerCh:
			flush()
			timerCh = nil

		case <-ctx.Done():
			return
		}
	}
}

func (w *RootWatcher) shouldIgnorePath(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		for _, ex := range w.config.ExcludeDirs {
			if part == ex {
				return true
			}
		}
	}
	return false
}

func (w *RootWatcher) route(ctx context.Context, relPath string, op WatchOp) {
	base := filepath.Base(relPath)
	if structuralManifestNames[base] && filepath.Dir(relPath) == "." {
		w.emitStructural(relPath)
	}
	if base == "go.mod" && op != OpRemove {
		w.handleGoModChange(ctx, relPath)
	}

	var err error
	switch op {
	case OpRemove, OpRename:
		err = w.registry.RemoveFile(relPath)
	default:
		if _, statErr := os.Stat(filepath.Join(w.root, relPath)); statErr != nil {
			err = w.registry.RemoveFile(relPath)
		} else {
			err = w.registry.UpdateFile(ctx, relPath)
		}
	}
	if err != nil && w.config.ErrorCallback != nil {
		w.config.ErrorCallback(fmt.Errorf("workspace: route %s: %w", relPath, err))
	}
}

func (w *RootWatcher) emitStructural(relPath string) {
	ev := WatchEvent{RelPath: relPath, Op: OpStructuralChange, Time: time.Now()}
	for {
		select {
		case w.structural <- ev:
			return
		default:
		}
		// Full: discard the oldest pending notification and retry.
		select {
		case <-w.structural:
		default:
		}
	}
}

// snapshotGoMods records each currently registered member's direct
// requirements, the baseline handleGoModChange diffs future go.mod writes
// against.
func (w *RootWatcher) snapshotGoMods() {
	if w.config.DependencyLoader == nil {
		return
	}
	for _, m := range w.registry.Members() {
		memberRoot := filepath.Join(w.root, m.RelDir)
		if reqs, err := goModRequires(memberRoot); err == nil {
			w.goModMu.Lock()
			w.goModRequires[m.RelDir] = reqs
			w.goModMu.Unlock()
		}
	}
}

// handleGoModChange diffs relPath's owning member's go.mod against the
// cached snapshot and loads any newly added direct requirement through
// DependencyLoader, following the same tier classification
// Loader.LoadFromPackageConfig uses for a cold open.
func (w *RootWatcher) handleGoModChange(ctx context.Context, relPath string) {
	if w.config.DependencyLoader == nil {
		return
	}
	m, ok := w.registry.MemberFor(relPath)
	if !ok {
		return
	}
	wantGoMod := "go.mod"
	if m.RelDir != "." {
		wantGoMod = m.RelDir + "/go.mod"
	}
	if relPath != wantGoMod {
		return
	}

	memberRoot := filepath.Join(w.root, m.RelDir)
	cur, err := goModRequires(memberRoot)
	if err != nil {
		return
	}

	w.goModMu.Lock()
	prev := w.goModRequires[m.RelDir]
	w.goModRequires[m.RelDir] = cur
	w.goModMu.Unlock()

	added := false
	for path := range cur {
		if !prev[path] {
			added = true
			break
		}
	}
	if !added {
		return
	}

	if _, err := w.config.DependencyLoader.LoadFromPackageConfig(ctx, memberRoot); err != nil && w.config.ErrorCallback != nil {
		w.config.ErrorCallback(fmt.Errorf("workspace: load new dependencies for %s: %w", m.RelDir, err))
	}
}

// goModRequires returns the set of direct (non-indirect) import paths
// dir/go.mod requires.
func goModRequires(dir string) (map[string]bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return nil, err
	}
	mf, err := modfile.Parse(filepath.Join(dir, "go.mod"), data, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(mf.Require))
	for _, req := range mf.Require {
		if !req.Indirect {
			out[req.Mod.Path] = true
		}
	}
	return out, nil
}
