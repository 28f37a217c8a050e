package index

// ScoreIndex is the set of index operations the score service, the sync
// pass and the watcher rely on. *DB is the SQLite implementation.
type ScoreIndex interface {
	UpsertScore(s ScoreRow, body string) error
	DeleteScore(path string) error
	GetChecksum(path string) (string, error)
	GetScore(path string) (*ScoreRow, error)
	ListScores(q ListQuery) ([]ScoreRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	FindReferences(key, value string, limit int) ([]ReferenceHit, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ScoreIndex at compile time.
var _ ScoreIndex = (*DB)(nil)
