// Package scoreservice coordinates the score library on disk with its index.
package scoreservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/internal/checksum"
	"github.com/starford/humkit/internal/index"
	"github.com/starford/humkit/internal/models"
	"github.com/starford/humkit/internal/scoremeta"
	"github.com/starford/humkit/internal/storage"
	"github.com/starford/humkit/pkg/humdrum"
)

// DefaultMaxScoreSize bounds the content accepted by Create and Update.
const DefaultMaxScoreSize = 10 << 20

// ScoreDetail is the full representation of a score.
type ScoreDetail struct {
	Path      string               `json:"path"`
	Title     string               `json:"title"`
	Content   string               `json:"content"`
	Checksum  string               `json:"checksum"`
	Metadata  models.ScoreMetadata `json:"metadata"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ScoreListItem is a lightweight item in a list response.
type ScoreListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Composer  string    `json:"composer,omitempty"`
	Checksum  string    `json:"checksum"`
	Valid     bool      `json:"valid"`
	Tracks    int       `json:"tracks"`
	Duration  string    `json:"duration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store   storage.Provider
	db      index.ScoreIndex
	logger  *slog.Logger
	maxSize int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for index warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxScoreSize limits the size of written scores. Zero keeps the default.
func WithMaxScoreSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// NewService creates a new score service.
func NewService(store storage.Provider, db index.ScoreIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default(), maxSize: DefaultMaxScoreSize}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get reads a score from storage and describes it. A score that no longer
// parses is still returned, with the error in its metadata.
func (s *Service) Get(_ context.Context, path string) (*ScoreDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.detail(path, data), nil
}

// Open reads and parses a score.
func (s *Service) Open(_ context.Context, path string) (*humdrum.File, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	res, err := scoremeta.Parse(path, data, humdrum.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	return res.File, nil
}

// Create validates and writes a new score, then indexes it.
func (s *Service) Create(_ context.Context, path string, content []byte) (*ScoreDetail, error) {
	if err := s.Validate(path, content); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := index.IndexScore(s.db, path, content, s.logger); err != nil {
		return nil, err
	}
	return s.detail(path, content), nil
}

// Update writes new content with optimistic concurrency: a non-empty
// ifMatch, a digest or entity tag, must match the stored content.
func (s *Service) Update(_ context.Context, path string, content []byte, ifMatch string) (*ScoreDetail, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && !checksum.Match(existing, ifMatch) {
		return nil, apperr.ErrConflict
	}
	if err := s.Validate(path, content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := index.IndexScore(s.db, path, content, s.logger); err != nil {
		return nil, err
	}
	return s.detail(path, content), nil
}

// Move renames a score and re-indexes it under the new path.
func (s *Service) Move(_ context.Context, from, to string) (*ScoreDetail, error) {
	if !s.store.IsScore(to) {
		return nil, fmt.Errorf("%w: unsupported extension: %s", apperr.ErrInvalidScore, to)
	}
	data, err := s.read(from)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Read(to); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.db.DeleteScore(from); err != nil {
		return nil, err
	}
	if err := index.IndexScore(s.db, to, data, s.logger); err != nil {
		return nil, err
	}
	return s.detail(to, data), nil
}

// Delete removes a score from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteScore(path)
}

// List returns one page of indexed scores.
func (s *Service) List(_ context.Context, q index.ListQuery) ([]ScoreListItem, int, error) {
	rows, total, err := s.db.ListScores(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ScoreListItem, len(rows))
	for i, r := range rows {
		items[i] = ScoreListItem{
			Path:      r.Path,
			Title:     r.Title,
			Composer:  r.Composer,
			Checksum:  r.Checksum,
			Valid:     r.Metadata.Valid,
			Tracks:    r.Metadata.Tracks,
			Duration:  r.Metadata.Duration,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Info returns the indexed metadata of a score without reading the file.
func (s *Service) Info(_ context.Context, path string) (*models.ScoreMetadata, error) {
	row, err := s.db.GetScore(path)
	if err != nil {
		return nil, err
	}
	return &row.Metadata, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// References finds reference records by key, e.g. every "COM" containing "Bach".
func (s *Service) References(_ context.Context, key, value string, limit int) ([]index.ReferenceHit, error) {
	return s.db.FindReferences(key, value, limit)
}

// Validate checks that content is an acceptable score for path.
func (s *Service) Validate(path string, content []byte) error {
	if !s.store.IsScore(path) {
		return fmt.Errorf("%w: unsupported extension: %s", apperr.ErrInvalidScore, path)
	}
	if len(content) > s.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", apperr.ErrInvalidScore, len(content), s.maxSize)
	}
	_, err := humdrum.ReadBytes(content, humdrum.WithoutRhythm(), humdrum.WithLogger(discard))
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidScore, err)
	}
	return nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// detail builds a ScoreDetail from raw data without re-reading the file.
func (s *Service) detail(path string, data []byte) *ScoreDetail {
	d := &ScoreDetail{
		Path:      path,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
	res, err := scoremeta.Parse(path, data, humdrum.WithLogger(s.logger))
	if err != nil {
		d.Metadata = scoremeta.Invalid(err)
	} else {
		d.Metadata = res.Metadata
	}
	d.Title = d.Metadata.Title
	if row, err := s.db.GetScore(path); err == nil {
		d.UpdatedAt = row.UpdatedAt
	}
	return d
}
