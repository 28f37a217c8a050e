package storage

import (
	"os"
	"path/filepath"
	"testing"
)

const tinyScore = "**kern\n4c\n*-\n"

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("bach.krn", []byte(tinyScore)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("bach.krn")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != tinyScore {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("chorales/bwv/001.krn", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("chorales/bwv/001.krn")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.krn", []byte("bye"))
	if err := s.Delete("del.krn"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.krn"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("old.krn", []byte("data"))
	if err := s.Move("old.krn", "sub/new.krn"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.krn")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.krn"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.krn", []byte("a"))
	_ = s.Write("sub/b.hmd", []byte("b"))
	_ = s.Write("sub/C.HUM", []byte("c"))
	_ = s.Write("readme.txt", []byte("not a score"))
	_ = s.Write(".git/x.krn", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len = %d, want 3: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" || it.Size == 0 {
			t.Errorf("incomplete metadata: %+v", it)
		}
	}
}

func TestCustomExtensions(t *testing.T) {
	s, err := NewFS(t.TempDir(), "txt")
	if err != nil {
		t.Fatal(err)
	}
	if !s.IsScore("a.txt") || s.IsScore("a.krn") {
		t.Error("extension filter not applied")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.krn",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.krn", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.krn", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.krn")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".humkit-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "humkit-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
