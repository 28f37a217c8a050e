package scoreservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/internal/checksum"
	"github.com/starford/humkit/internal/index"
	"github.com/starford/humkit/internal/testutil"
)

func newService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	return NewService(store, testutil.TestDB(t))
}

func TestCreateAndGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, "bach/chorale.krn", []byte(testutil.Chorale))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Title != "Aus meines Herzens Grunde" || !d.Metadata.Valid || d.Checksum == "" {
		t.Errorf("Create = %+v", d)
	}

	got, err := svc.Get(ctx, "bach/chorale.krn")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != testutil.Chorale || got.Metadata.Tracks != 3 {
		t.Errorf("Get = %+v", got)
	}

	if _, err := svc.Create(ctx, "bach/chorale.krn", []byte(testutil.Chorale)); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v", err)
	}
}

func TestCreate_Rejects(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	tests := []struct {
		name, path, content string
	}{
		{"bad structure", "bad.krn", "4c\n"},
		{"wrong extension", "notes.md", testutil.Chorale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.path, []byte(tt.content)); !errors.Is(err, apperr.ErrInvalidScore) {
				t.Errorf("err = %v, want ErrInvalidScore", err)
			}
		})
	}

	small := NewService(svc.store, svc.db, WithMaxScoreSize(8))
	if _, err := small.Create(ctx, "big.krn", []byte(testutil.Chorale)); !errors.Is(err, apperr.ErrInvalidScore) {
		t.Errorf("oversized err = %v", err)
	}
}

func TestUpdate_Concurrency(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "a.krn", []byte("**kern\n4c\n*-\n")); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, "a.krn", []byte("**kern\n4d\n*-\n"), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale ifMatch err = %v", err)
	}
	cs := checksum.Sum([]byte("**kern\n4c\n*-\n"))
	d, err := svc.Update(ctx, "a.krn", []byte("**kern\n4d\n*-\n"), cs)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if d.Content != "**kern\n4d\n*-\n" {
		t.Errorf("content = %q", d.Content)
	}
	if _, err := svc.Update(ctx, "missing.krn", []byte("x"), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestMoveAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "old.krn", []byte(testutil.Chorale))

	if _, err := svc.Move(ctx, "old.krn", "new/moved.krn"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := svc.Info(ctx, "old.krn"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path still indexed: %v", err)
	}
	if m, err := svc.Info(ctx, "new/moved.krn"); err != nil || m.Composer != "Bach, Johann Sebastian" {
		t.Errorf("Info = %+v, %v", m, err)
	}

	if err := svc.Delete(ctx, "new/moved.krn"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "new/moved.krn"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListSearchReferences(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "a.krn", []byte(testutil.Chorale))
	_, _ = svc.Create(ctx, "b.krn", []byte("!!!COM: Mozart\n**kern\n4c\n*-\n"))

	items, total, err := svc.List(ctx, index.ListQuery{Composer: "Bach"})
	if err != nil || total != 1 || items[0].Path != "a.krn" || items[0].Duration != "4" {
		t.Errorf("List = %+v, %d, %v", items, total, err)
	}

	hits, err := svc.Search(ctx, "Herzens", 10)
	if err != nil || len(hits) != 1 || hits[0].Path != "a.krn" {
		t.Errorf("Search = %+v, %v", hits, err)
	}

	refs, err := svc.References(ctx, "COM", "", 10)
	if err != nil || len(refs) != 2 {
		t.Errorf("References = %+v, %v", refs, err)
	}
}

func TestSpinesAndTimeline(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "c.krn", []byte(testutil.Chorale))

	spines, err := svc.Spines(ctx, "c.krn")
	if err != nil {
		t.Fatalf("Spines: %v", err)
	}
	if len(spines) != 3 || spines[2].DataType != "**text" || spines[0].Start != 3 {
		t.Errorf("Spines = %+v", spines)
	}
	if len(spines[0].Ends) != 1 || spines[0].Ends[0] != "1" {
		t.Errorf("ends = %v", spines[0].Ends)
	}

	tl, err := svc.Timeline(ctx, "c.krn")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	// =1, 4c, 4d, =2, 2e, .
	if len(tl) != 6 {
		t.Fatalf("timeline has %d entries: %+v", len(tl), tl)
	}
	last := tl[5]
	if last.Start != "3" || last.Duration != "1" || last.Measure != 2 || last.FromBarline != "1" {
		t.Errorf("last entry = %+v", last)
	}
	if !tl[3].Barline || tl[3].Start != "2" {
		t.Errorf("barline entry = %+v", tl[3])
	}
}

func TestAnalyze(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, "c.krn", []byte(testutil.Chorale))

	a, err := svc.Analyze(ctx, "c.krn")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.HangingTies != 0 || a.HangingSlurs != 0 || a.Hands || a.Strands != 3 {
		t.Errorf("Analyze = %+v", a)
	}
}

func TestImport(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	res, err := svc.Import(ctx, "folk", "one.krn", []byte("**kern\n4c\n*-\n"))
	if err != nil {
		t.Fatalf("Import single: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0] != "folk/one.krn" {
		t.Errorf("single = %+v", res)
	}

	stream := "!!!!SEGMENT: a.krn\n**kern\n4c\n*-\n" +
		"!!!!SEGMENT: ../evil.krn\n**kern\n4c\n*-\n" +
		"!!!!SEGMENT: one.krn\n**kern\n4e\n*-\n" +
		"!!!!SEGMENT: b.krn\n**kern\n4d\n*-\n"
	res, err = svc.Import(ctx, "folk", "ignored.krn", []byte(stream))
	if err != nil {
		t.Fatalf("Import stream: %v", err)
	}
	if len(res.Created) != 2 || res.Created[0] != "folk/a.krn" || res.Created[1] != "folk/b.krn" {
		t.Errorf("created = %v", res.Created)
	}
	if len(res.Failed) != 2 {
		t.Errorf("failed = %v", res.Failed)
	}

	if _, err := svc.Import(ctx, "", "bad.krn", []byte("4c\n")); !errors.Is(err, apperr.ErrInvalidScore) {
		t.Errorf("invalid single err = %v", err)
	}
}
