package checker

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.krn", "**kern\t**kern\n(4c\t4e\n4d)\t[4f\n*-\t*-\n")
	bad := writeFile(t, dir, "bad.krn", "**kern\n*v\n*-\n")
	missing := filepath.Join(dir, "missing.krn")

	results, err := Check(context.Background(), []string{good, bad, missing}, 2, quiet())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}

	g := results[0]
	if !g.Valid || g.Tracks != 2 || g.Duration != "2" || g.HangingSlurs != 0 || g.HangingTies != 1 {
		t.Errorf("good = %+v", g)
	}
	if results[1].Valid || results[1].Path != bad || results[1].Error == "" {
		t.Errorf("bad = %+v", results[1])
	}
	if results[2].Valid || !strings.Contains(results[2].Error, "no such file") {
		t.Errorf("missing = %+v", results[2])
	}

	valid, invalid := Summary(results)
	if valid != 1 || invalid != 2 {
		t.Errorf("Summary = %d, %d", valid, invalid)
	}
}

func TestCheck_Segments(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "set.hmd",
		"!!!!SEGMENT: one.krn\n**kern\n4c\n*-\n"+
			"!!!!SEGMENT: two.krn\n4c\n"+
			"!!!!SEGMENT: three.krn\n**kern\n2d\n*-\n")

	results, err := Check(context.Background(), []string{p}, 0, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Segment != "one.krn" || !results[0].Valid || results[1].Segment != "three.krn" {
		t.Errorf("valid segments = %+v", results[:2])
	}
	if results[2].Segment != "two.krn" || results[2].Valid {
		t.Errorf("bad segment = %+v", results[2])
	}
}

func TestCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Check(ctx, []string{"a", "b"}, 1, quiet()); err == nil {
		t.Error("expected context error")
	}
}

func TestResult_String(t *testing.T) {
	r := Result{Path: "a.krn", Segment: "x", Error: "boom"}
	if got := r.String(); got != "FAIL a.krn#x: boom" {
		t.Errorf("String = %q", got)
	}
}
