// Package storage defines the score library file-system abstraction.
package storage

import "github.com/starford/humkit/internal/models"

// DefaultExtensions are the file suffixes treated as Humdrum scores.
var DefaultExtensions = []string{".krn", ".hmd", ".hum"}

// Provider is the interface for library file operations. All paths are
// relative to the library root.
type Provider interface {
	// List returns metadata for every score file under dir.
	List(dir string) ([]models.ScoreFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// IsScore reports whether path has a score extension.
	IsScore(path string) bool
}
