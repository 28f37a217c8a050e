package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/humkit/internal/checksum"
	"github.com/starford/humkit/internal/scoremeta"
	"github.com/starford/humkit/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed scores are parsed and upserted
//   - scores removed from disk are deleted from the index
//
// Scores that fail to parse are still indexed, flagged invalid, so that
// they can be listed and repaired.
func Sync(db ScoreIndex, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}

		if checksums[f.Path] == f.Checksum {
			continue
		}

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, f.Path, data, logger); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", f.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteScore(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	return nil
}

// IndexScore parses data and upserts it under path. It is used by writers
// that want the index updated without waiting for the watcher.
func IndexScore(db ScoreIndex, path string, data []byte, logger *slog.Logger) error {
	return indexFile(db, path, data, logger)
}

// indexFile parses data and upserts it into the DB. A parse failure is
// recorded in the row's metadata rather than returned.
func indexFile(db ScoreIndex, p string, data []byte, logger *slog.Logger) error {
	row := ScoreRow{
		Path:     p,
		Checksum: checksum.Sum(data),
	}
	var body string

	res, err := scoremeta.Parse(p, data)
	if err != nil {
		logger.Info("index: invalid score", slog.String("path", p), slog.String("error", err.Error()))
		row.Metadata = scoremeta.Invalid(err)
		row.Metadata.Title = strings.TrimSuffix(path.Base(p), path.Ext(p))
	} else {
		row.Metadata = res.Metadata
		body = res.Text
	}
	row.Title = row.Metadata.Title
	row.Composer = row.Metadata.Composer
	return db.UpsertScore(row, body)
}
