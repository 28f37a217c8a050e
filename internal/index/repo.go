package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/internal/models"
)

// ScoreRow represents a row in the scores table.
type ScoreRow struct {
	Path      string
	Title     string
	Composer  string
	Checksum  string
	Metadata  models.ScoreMetadata
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ReferenceHit is one reference record matched by FindReferences.
type ReferenceHit struct {
	Path  string `json:"path"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ListQuery filters and pages ListScores.
type ListQuery struct {
	Limit    int
	Offset   int
	DataType string // only scores with a spine of this type, e.g. "**kern"
	Composer string // substring match
	Invalid  bool   // only scores that failed to parse
	Sort     string // "path" (default), "title", "composer", "updated"
}

var sortColumns = map[string]string{
	"":         "path ASC",
	"path":     "path ASC",
	"title":    "title ASC, path ASC",
	"composer": "composer ASC, path ASC",
	"updated":  "updated_at DESC, path ASC",
}

// UpsertScore inserts or replaces a score, its FTS entry, reference records
// and spines within a transaction.
func (db *DB) UpsertScore(s ScoreRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("index: encode metadata: %w", err)
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO scores (path, title, composer, checksum, valid, tracks, measures, duration, metadata, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			composer   = excluded.composer,
			checksum   = excluded.checksum,
			valid      = excluded.valid,
			tracks     = excluded.tracks,
			measures   = excluded.measures,
			duration   = excluded.duration,
			metadata   = excluded.metadata,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, s.Path, s.Title, s.Composer, s.Checksum, s.Metadata.Valid, s.Metadata.Tracks,
		s.Metadata.Measures, s.Metadata.Duration, string(meta), body, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert score: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, s.Path, s.Title, s.Composer, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM score_references WHERE path = ?`, s.Path); err != nil {
		return fmt.Errorf("index: clear references: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM spines WHERE path = ?`, s.Path); err != nil {
		return fmt.Errorf("index: clear spines: %w", err)
	}
	if len(s.Metadata.References) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO score_references (path, key, value) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare reference insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range s.Metadata.References {
			if _, err := stmt.Exec(s.Path, r.Key, r.Value); err != nil {
				return fmt.Errorf("index: insert reference: %w", err)
			}
		}
	}
	if len(s.Metadata.Spines) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO spines (path, track, data_type, notes) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare spine insert: %w", err)
		}
		defer stmt.Close()
		for _, sp := range s.Metadata.Spines {
			if _, err := stmt.Exec(s.Path, sp.Track, sp.DataType, sp.Notes); err != nil {
				return fmt.Errorf("index: insert spine: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteScore removes a score with its FTS entry, references and spines.
func (db *DB) DeleteScore(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM score_references WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM spines WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM scores WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a score, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM scores WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetScore returns one indexed score.
func (db *DB) GetScore(path string) (*ScoreRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, composer, checksum, metadata, updated_at
		FROM scores WHERE path = ?`, path)
	s, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: score %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get score: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(r rowScanner) (*ScoreRow, error) {
	var (
		s    ScoreRow
		meta string
	)
	if err := r.Scan(&s.Path, &s.Title, &s.Composer, &s.Checksum, &meta, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &s.Metadata); err != nil {
		return nil, fmt.Errorf("index: decode metadata for %s: %w", s.Path, err)
	}
	return &s, nil
}

// ListScores returns one page of scores and the total number matching q.
func (db *DB) ListScores(q ListQuery) ([]ScoreRow, int, error) {
	order, ok := sortColumns[q.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q", q.Sort)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var (
		where []string
		args  []any
	)
	if q.DataType != "" {
		dt := q.DataType
		if !strings.HasPrefix(dt, "**") {
			dt = "**" + dt
		}
		where = append(where, `EXISTS (SELECT 1 FROM spines sp WHERE sp.path = scores.path AND sp.data_type = ?)`)
		args = append(args, dt)
	}
	if q.Composer != "" {
		where = append(where, `composer LIKE ?`)
		args = append(args, "%"+q.Composer+"%")
	}
	if q.Invalid {
		where = append(where, `valid = 0`)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM scores`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count scores: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, composer, checksum, metadata, updated_at
		FROM scores`+clause+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list scores: %w", err)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// FindReferences returns reference records with the given key across the
// library. A non-empty value restricts the result to values containing it.
func (db *DB) FindReferences(key, value string, limit int) ([]ReferenceHit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT path, key, value FROM score_references
		WHERE key = ? AND value LIKE ?
		ORDER BY path
		LIMIT ?`, key, "%"+value+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("index: find references: %w", err)
	}
	defer rows.Close()

	var out []ReferenceHit
	for rows.Next() {
		var h ReferenceHit
		if err := rows.Scan(&h.Path, &h.Key, &h.Value); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed score path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM scores`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum of every indexed score.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM scores`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
