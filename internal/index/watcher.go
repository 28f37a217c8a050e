package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/humkit/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

type libraryWatcher struct {
	db     ScoreIndex
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

func (lw *libraryWatcher) emit(kind, path string) {
	if lw.cb != nil {
		lw.cb(kind, path)
	}
}

// Watch starts an fsnotify watcher on the library root and keeps the index
// in step with score files until ctx is cancelled. It calls cb (if non-nil)
// after each successful index mutation.
//
// Directories created at runtime are added to the watch list and their
// scores indexed. Renames trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db ScoreIndex, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	lw := &libraryWatcher{db: db, store: store, root: root, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", root))

	reconcile := time.NewTimer(reconcileDelay)
	if !reconcile.Stop() {
		<-reconcile.C
	}
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-reconcile.C:
			lw.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					lw.indexDir(ev.Name)
					continue
				}
			}
			if lw.handle(ev) {
				reconcile.Reset(reconcileDelay)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle applies one file event to the index. It reports whether a
// reconciliation pass should follow.
func (lw *libraryWatcher) handle(ev fsnotify.Event) bool {
	if !lw.store.IsScore(ev.Name) {
		return false
	}
	rel, err := filepath.Rel(lw.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		lw.index(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		lw.remove(rel)

	case ev.Op&fsnotify.Rename != 0:
		// Rename arrives for the old path only; the new path shows up as
		// a Create if it stays inside a watched directory.
		lw.remove(rel)
		return true
	}
	return false
}

func (lw *libraryWatcher) index(rel, kind string) bool {
	data, err := lw.store.Read(rel)
	if err != nil {
		lw.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	if err := indexFile(lw.db, rel, data, lw.logger); err != nil {
		lw.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	lw.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	lw.emit(kind, rel)
	return true
}

func (lw *libraryWatcher) remove(rel string) {
	if err := lw.db.DeleteScore(rel); err != nil {
		lw.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	lw.logger.Debug("watcher: deleted", slog.String("path", rel))
	lw.emit("deleted", rel)
}

// reconcile drops index entries whose files are gone and indexes files
// whose checksum differs from the index.
func (lw *libraryWatcher) reconcile() {
	checksums, err := lw.db.AllChecksums()
	if err != nil {
		lw.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := lw.store.List("")
	if err != nil {
		lw.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(files))
	for _, f := range files {
		disk[f.Path] = f.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			lw.remove(p)
		}
	}
	for p, cs := range disk {
		old, known := checksums[p]
		switch {
		case !known:
			lw.index(p, "created")
		case old != cs:
			lw.index(p, "updated")
		}
	}
}

// indexDir indexes the scores found under a newly created directory.
func (lw *libraryWatcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !lw.store.IsScore(p) {
			return nil
		}
		rel, relErr := filepath.Rel(lw.root, p)
		if relErr != nil {
			return nil
		}
		lw.index(filepath.ToSlash(rel), "created")
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
