// Package testutil provides shared test helpers for setting up score
// libraries and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/humkit/internal/index"
	"github.com/starford/humkit/internal/storage"
)

// Chorale is a small two-voice score with lyrics, ties and references.
const Chorale = "!!!COM: Bach, Johann Sebastian\n" +
	"!!!OTL: Aus meines Herzens Grunde\n" +
	"**kern\t**kern\t**text\n" +
	"*Ivox\t*Ipiano\t*\n" +
	"*MM120\t*MM120\t*\n" +
	"*M4/4\t*M4/4\t*\n" +
	"=1\t=1\t=1\n" +
	"4c\t4e\tAus\n" +
	"4d\t[4f\tmei-\n" +
	"=2\t=2\t=2\n" +
	"2e\t4f]\t-nes\n" +
	".\t4g\t.\n" +
	"*-\t*-\t*-\n"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "humkit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage provider.
func TestLibrary(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}
