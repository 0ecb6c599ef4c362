// Package reload implements the hot-reload mechanism: a filesystem
// watcher on the config path that rebuilds the Registry on a settled
// change and atomically swaps it underneath live MCP sessions.
package reload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/config"
	"github.com/nextlevelbuilder/porter/internal/registry"
)

const debounce = 100 * time.Millisecond

// Handle is the shared-pointer-to-shared-pointer handle client
// sessions clone: the outer handle is cloned once per session, the
// inner pointer is atomically replaced on every successful reload. A
// session that captured the inner pointer before a swap keeps serving
// requests against its own generation; new reads observe the new one
// immediately.
type Handle struct {
	inner atomic.Pointer[registry.Registry]
}

// Current returns the live Registry generation.
func (h *Handle) Current() *registry.Registry {
	return h.inner.Load()
}

func (h *Handle) set(r *registry.Registry) {
	h.inner.Store(r)
}

// OnSwap is invoked after every successful hot-swap with the new
// Registry, so callers (the MCP server bridge) can send
// tools/list_changed only after the swap has committed.
type OnSwap func(*registry.Registry)

// Watcher owns the fsnotify watch for the process lifetime. Dropping
// it detaches the OS-level watch, so callers must retain it (e.g. by
// storing it for the lifetime of cmd/serve.go or cmd/stdio.go) and
// call Close only at shutdown.
type Watcher struct {
	path     string
	profiles map[string]*access.Profile
	handle   *Handle
	onSwap   OnSwap

	fsWatcher *fsnotify.Watcher
	mu        sync.Mutex
	timer     *time.Timer
}

// New builds the initial Registry from path, wraps it in a Handle, and
// starts the filesystem watch. The returned Watcher must be retained
// for the process lifetime and Close()d at shutdown.
func New(ctx context.Context, path string, profiles map[string]*access.Profile, onSwap OnSwap) (*Watcher, *Handle, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.FromConfig(ctx, cfg, profiles)
	if err != nil {
		return nil, nil, err
	}

	handle := &Handle{}
	handle.set(reg)

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := fsWatcher.Add(path); err != nil {
		_ = fsWatcher.Close()
		return nil, nil, err
	}

	w := &Watcher{path: path, profiles: profiles, handle: handle, onSwap: onSwap, fsWatcher: fsWatcher}
	go w.run(ctx)

	return w, handle, nil
}

// Close stops the filesystem watch. It does not shut down the current
// Registry generation; callers own that via the Handle.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload(ctx)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("reload.watcher.error", "error", err)
		}
	}
}

// scheduleReload resets a debounce timer on every event so a burst of
// writes (editors that write-then-rename) triggers exactly one reload
// after things settle.
func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, func() {
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := config.Load(w.path)
	if err != nil {
		slog.Error("reload.config.invalid", "path", w.path, "error", err)
		return
	}

	newReg, err := registry.FromConfig(ctx, cfg, w.profiles)
	if err != nil {
		slog.Error("reload.registry.build_failed", "path", w.path, "error", err)
		return
	}

	oldReg := w.handle.Current()
	w.handle.set(newReg)
	slog.Info("reload.registry.swapped", "path", w.path)

	if w.onSwap != nil {
		w.onSwap(newReg)
	}

	if oldReg != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := oldReg.Shutdown(shutdownCtx); err != nil {
			slog.Warn("reload.registry.shutdown_error", "error", err)
		}
	}
}
