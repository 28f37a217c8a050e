package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/internal/models"
	"github.com/starford/humkit/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "humkit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scoreRow(path, title, composer, checksum string, spines ...models.Spine) ScoreRow {
	return ScoreRow{
		Path:     path,
		Title:    title,
		Composer: composer,
		Checksum: checksum,
		Metadata: models.ScoreMetadata{
			Valid:    true,
			Title:    title,
			Composer: composer,
			Tracks:   len(spines),
			Spines:   spines,
			Duration: "4",
			References: []models.Reference{
				{Key: "COM", Value: composer},
				{Key: "OTL", Value: title},
			},
		},
		UpdatedAt: time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"scores", "score_references", "spines"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetScore(t *testing.T) {
	db := testDB(t)
	row := scoreRow("bach/001.krn", "Chorale", "Bach, Johann Sebastian", "abc123",
		models.Spine{Track: 1, DataType: "**kern", Notes: 12},
		models.Spine{Track: 2, DataType: "**text"})
	if err := db.UpsertScore(row, "Chorale Bach"); err != nil {
		t.Fatalf("UpsertScore: %v", err)
	}

	cs, err := db.GetChecksum("bach/001.krn")
	if err != nil || cs != "abc123" {
		t.Errorf("checksum = %q, %v", cs, err)
	}
	got, err := db.GetScore("bach/001.krn")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if got.Title != "Chorale" || got.Metadata.Tracks != 2 || got.Metadata.Spines[0].Notes != 12 {
		t.Errorf("GetScore = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stored")
	}
}

func TestGetScore_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetScore("missing.krn"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	cs, err := db.GetChecksum("missing.krn")
	if err != nil || cs != "" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestUpsertReplacesReferences(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertScore(scoreRow("a.krn", "Old", "Byrd", "1"), "")
	_ = db.UpsertScore(scoreRow("a.krn", "New", "Tallis", "2"), "")

	hits, err := db.FindReferences("COM", "", 0)
	if err != nil {
		t.Fatalf("FindReferences: %v", err)
	}
	if len(hits) != 1 || hits[0].Value != "Tallis" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestFindReferences(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertScore(scoreRow("a.krn", "A", "Bach, Johann Sebastian", "1"), "")
	_ = db.UpsertScore(scoreRow("b.krn", "B", "Bach, Carl Philipp Emanuel", "2"), "")
	_ = db.UpsertScore(scoreRow("c.krn", "C", "Mozart", "3"), "")

	hits, err := db.FindReferences("COM", "Bach", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Path != "a.krn" || hits[1].Path != "b.krn" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestDeleteScore(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertScore(scoreRow("del.krn", "Gone", "Anon", "x", models.Spine{Track: 1, DataType: "**kern"}), "body")

	if err := db.DeleteScore("del.krn"); err != nil {
		t.Fatalf("DeleteScore: %v", err)
	}
	if cs, _ := db.GetChecksum("del.krn"); cs != "" {
		t.Errorf("deleted score still has checksum %q", cs)
	}
	if hits, _ := db.FindReferences("COM", "", 0); len(hits) != 0 {
		t.Errorf("references survived delete: %+v", hits)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM spines`).Scan(&n)
	if n != 0 {
		t.Errorf("%d spines survived delete", n)
	}
}

func TestListScores(t *testing.T) {
	db := testDB(t)
	kern := models.Spine{Track: 1, DataType: "**kern"}
	mens := models.Spine{Track: 1, DataType: "**mens"}
	_ = db.UpsertScore(scoreRow("c.krn", "Gamma", "Byrd", "1", kern), "")
	_ = db.UpsertScore(scoreRow("a.krn", "Beta", "Josquin", "2", mens), "")
	_ = db.UpsertScore(scoreRow("b.krn", "Alpha", "Byrd", "3", kern), "")
	bad := ScoreRow{Path: "z.krn", Title: "z", Checksum: "4", Metadata: models.ScoreMetadata{Error: "broken"}}
	_ = db.UpsertScore(bad, "")

	tests := []struct {
		name  string
		q     ListQuery
		paths []string
		total int
	}{
		{"default order", ListQuery{}, []string{"a.krn", "b.krn", "c.krn", "z.krn"}, 4},
		{"by title", ListQuery{Sort: "title"}, []string{"b.krn", "a.krn", "c.krn", "z.krn"}, 4},
		{"paged", ListQuery{Limit: 2, Offset: 1}, []string{"b.krn", "c.krn"}, 4},
		{"data type", ListQuery{DataType: "kern"}, []string{"b.krn", "c.krn"}, 2},
		{"composer", ListQuery{Composer: "byr"}, []string{"b.krn", "c.krn"}, 2},
		{"invalid", ListQuery{Invalid: true}, []string{"z.krn"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := db.ListScores(tt.q)
			if err != nil {
				t.Fatalf("ListScores: %v", err)
			}
			if total != tt.total {
				t.Errorf("total = %d, want %d", total, tt.total)
			}
			if len(rows) != len(tt.paths) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.paths))
			}
			for i, p := range tt.paths {
				if rows[i].Path != p {
					t.Errorf("row %d = %q, want %q", i, rows[i].Path, p)
				}
			}
		})
	}

	if _, _, err := db.ListScores(ListQuery{Sort: "nope"}); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertScore(scoreRow("s.krn", "Search Me", "Anon", "1"), "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.krn" {
		t.Errorf("search results = %+v, want 1 hit for s.krn", results)
	}
}

func TestSync(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)

	_ = store.Write("good.krn", []byte("!!!OTL: Good\n**kern\n4c\n*-\n"))
	_ = store.Write("bad.krn", []byte("4c\n"))
	_ = store.Write("notes.txt", []byte("ignored"))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	good, err := db.GetScore("good.krn")
	if err != nil || !good.Metadata.Valid || good.Title != "Good" {
		t.Fatalf("good.krn = %+v, %v", good, err)
	}
	bad, err := db.GetScore("bad.krn")
	if err != nil {
		t.Fatalf("bad.krn not indexed: %v", err)
	}
	if bad.Metadata.Valid || bad.Metadata.Error == "" || bad.Title != "bad" {
		t.Errorf("bad.krn = %+v", bad)
	}
	paths, _ := db.AllPaths()
	if len(paths) != 2 {
		t.Errorf("indexed paths = %v", paths)
	}

	if err := os.Remove(filepath.Join(root, "bad.krn")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("bad.krn"); cs != "" {
		t.Error("stale entry not removed")
	}
}
