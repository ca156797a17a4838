package noteservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starling/clipnote/internal/models"
)

// EventCallback is called after a watcher-driven index change.
// kind is currently always "deleted".
type EventCallback func(kind string, id string)

// Watch keeps the index honest about the notes directory: the files are
// plain Markdown and people edit or remove them by hand, so when a note
// file disappears outside the API its index record is pruned. Runs
// until ctx is cancelled.
func Watch(ctx context.Context, svc *Service, notesDir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(notesDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", notesDir))

	// Startup pass: files may have been removed while we were down.
	svc.PruneMissing(logger, cb)

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".md") {
				continue
			}
			svc.pruneFile(name, logger, cb)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// PruneMissing removes every index record whose note file no longer
// exists on disk, and logs note files that have no record (orphans are
// left in place; they may be hand-written).
func (s *Service) PruneMissing(logger *slog.Logger, cb EventCallback) {
	names, err := s.store.List()
	if err != nil {
		logger.Warn("prune: list notes failed", slog.String("error", err.Error()))
		return
	}
	onDisk := make(map[string]struct{}, len(names))
	for _, n := range names {
		onDisk[n] = struct{}{}
	}

	var pruned []string
	err = s.index.Mutate(func(records []models.IndexRecord) ([]models.IndexRecord, error) {
		kept := records[:0]
		for _, r := range records {
			if _, ok := onDisk[r.FileName]; ok {
				delete(onDisk, r.FileName)
				kept = append(kept, r)
				continue
			}
			pruned = append(pruned, r.ID)
		}
		return kept, nil
	})
	if err != nil {
		logger.Warn("prune: index mutation failed", slog.String("error", err.Error()))
		return
	}

	for _, id := range pruned {
		logger.Info("prune: removed record for missing file", slog.String("id", id))
		if cb != nil {
			cb("deleted", id)
		}
	}
	for name := range onDisk {
		logger.Debug("prune: file has no index record", slog.String("file", name))
	}
}

// pruneFile drops the index record referencing a removed file, if any.
func (s *Service) pruneFile(fileName string, logger *slog.Logger, cb EventCallback) {
	var prunedID string
	err := s.index.Mutate(func(records []models.IndexRecord) ([]models.IndexRecord, error) {
		for i, r := range records {
			if r.FileName == fileName {
				prunedID = r.ID
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return records, nil
	})
	if err != nil {
		logger.Warn("watcher: prune failed", slog.String("file", fileName), slog.String("error", err.Error()))
		return
	}
	if prunedID == "" {
		return
	}
	logger.Info("watcher: pruned record for removed file",
		slog.String("id", prunedID), slog.String("file", fileName))
	if cb != nil {
		cb("deleted", prunedID)
	}
}
