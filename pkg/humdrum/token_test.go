package humdrum

import (
	"errors"
	"testing"

	"github.com/starford/humkit/pkg/rational"
)

var melody = []string{
	"**kern",
	"*k[f#]",
	"4c#",
	"8.d-",
	"[4c",
	"4c_",
	"4c]",
	"4r",
	"4c 4e 4g",
	"q8a",
	".",
	"*-",
}

func TestToken_Pitch(t *testing.T) {
	f := mustRead(t, melody...)
	csharp := tok(t, f, 2, 0)
	if b40, err := csharp.Base40(0); err != nil || b40 != 163 {
		t.Errorf("Base40 = %d, %v; want 163", b40, err)
	}
	if s, _ := csharp.ScientificPitch(0); s != "C#4" {
		t.Errorf("ScientificPitch = %q", s)
	}
	if m, _ := csharp.MIDI(0); m != 61 {
		t.Errorf("MIDI = %d", m)
	}
	if b7, _ := csharp.Base7(0); b7 != 28 {
		t.Errorf("Base7 = %d", b7)
	}
	if s, _ := tok(t, f, 3, 0).ScientificPitch(0); s != "Db4" {
		t.Errorf("flat ScientificPitch = %q", s)
	}

	chord := tok(t, f, 8, 0)
	if !chord.IsChord() || chord.SubtokenCount() != 3 {
		t.Fatalf("chord: IsChord %v, %d members", chord.IsChord(), chord.SubtokenCount())
	}
	if b40, _ := chord.Base40(2); b40 != 185 {
		t.Errorf("g4 Base40 = %d", b40)
	}
	if _, err := chord.Base40(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Base40(3) err = %v", err)
	}
}

func TestToken_NotAPitch(t *testing.T) {
	f := mustRead(t, melody...)
	rest := tok(t, f, 7, 0)
	if !rest.IsRest() || rest.IsNote() {
		t.Errorf("rest: IsRest %v IsNote %v", rest.IsRest(), rest.IsNote())
	}
	if _, err := rest.Base40(0); !errors.Is(err, ErrNotAPitch) {
		t.Errorf("rest Base40 err = %v", err)
	}
	if _, err := tok(t, f, 1, 0).Pitch(0); !errors.Is(err, ErrNotAPitch) {
		t.Errorf("key signature Pitch err = %v", err)
	}
}

func TestToken_Duration(t *testing.T) {
	f := mustRead(t, melody...)
	tests := []struct {
		line int
		want rational.Rational
	}{
		{2, rational.One},
		{3, rational.MustNew(3, 4)},
		{7, rational.One},
		{8, rational.One},
		{9, rational.Zero},
	}
	for _, tt := range tests {
		d, err := tok(t, f, tt.line, 0).Duration()
		if err != nil || !d.Equal(tt.want) {
			t.Errorf("line %d: Duration = %v, %v; want %v", tt.line, d, err, tt.want)
		}
	}
	if d, _ := tok(t, f, 3, 0).DurationNoDots(); !d.Equal(rational.MustNew(1, 2)) {
		t.Errorf("DurationNoDots = %v", d)
	}
	if _, err := tok(t, f, 10, 0).Duration(); !errors.Is(err, ErrNotRhythmic) {
		t.Errorf("null Duration err = %v", err)
	}
	if _, err := tok(t, f, 1, 0).Duration(); !errors.Is(err, ErrNotRhythmic) {
		t.Errorf("interpretation Duration err = %v", err)
	}
	if !tok(t, f, 9, 0).IsGrace() {
		t.Error("q8a should be a grace note")
	}
	if got := f.ScoreDuration(); !got.Equal(rational.MustNew(27, 4)) {
		t.Errorf("ScoreDuration = %v", got)
	}
}

func TestToken_TieAggregation(t *testing.T) {
	f := mustRead(t, melody...)
	first, middle, last := tok(t, f, 4, 0), tok(t, f, 5, 0), tok(t, f, 6, 0)
	d, err := first.TiedDuration()
	if err != nil || !d.Equal(rational.FromInt(3)) {
		t.Errorf("TiedDuration = %v, %v; want 3", d, err)
	}
	if !first.IsNoteAttack() {
		t.Error("tie start should be an attack")
	}
	if middle.IsNoteAttack() || last.IsNoteAttack() {
		t.Error("tie continuations should not be attacks")
	}
	if !middle.IsSecondaryTiedNote() || !last.IsSecondaryTiedNote() {
		t.Error("continuations should be secondary tied notes")
	}
	if d, _ := middle.Duration(); !d.Equal(rational.One) {
		t.Errorf("middle Duration = %v, want its own value", d)
	}
	if d, _ := tok(t, f, 2, 0).TiedDuration(); !d.Equal(rational.One) {
		t.Errorf("untied TiedDuration = %v", d)
	}
}

func TestToken_ResolveNull(t *testing.T) {
	f := mustRead(t, melody...)
	null := tok(t, f, 10, 0)
	if !null.IsNull() || null.IsNoteAttack() {
		t.Fatal("fixture line 10 should be a null")
	}
	got, err := null.ResolveNull()
	if err != nil || got != tok(t, f, 9, 0) {
		t.Errorf("ResolveNull = %v, %v", got, err)
	}
	note := tok(t, f, 2, 0)
	if got, _ := note.ResolveNull(); got != note {
		t.Error("non-null token should resolve to itself")
	}

	g := mustRead(t, "**kern", ".", "4c", "*-")
	if _, err := tok(t, g, 1, 0).ResolveNull(); !errors.Is(err, ErrNoPriorToken) {
		t.Errorf("leading null err = %v", err)
	}
}

func TestToken_NullKinds(t *testing.T) {
	f := mustRead(t,
		"**kern\t**kern",
		"*\t*clefF4",
		"!\t!comment",
		"4c\t.",
		"*-\t*-",
	)
	for _, pos := range [][2]int{{1, 0}, {2, 0}, {3, 1}} {
		if !tok(t, f, pos[0], pos[1]).IsNull() {
			t.Errorf("token %v should be null", pos)
		}
	}
	for _, pos := range [][2]int{{1, 1}, {2, 1}, {3, 0}} {
		if tok(t, f, pos[0], pos[1]).IsNull() {
			t.Errorf("token %v should not be null", pos)
		}
	}
	if !tok(t, f, 1, 1).IsClef() {
		t.Error("*clefF4 is a clef")
	}
	if tok(t, f, 2, 0).IsData() || tok(t, f, 0, 0).IsData() {
		t.Error("comments and interpretations are not data")
	}
}

func TestToken_FieldNavigation(t *testing.T) {
	f := mustRead(t, twoSpines...)
	left := tok(t, f, 3, 0)
	right := left.NextFieldToken()
	if right == nil || right.Text() != "4e" {
		t.Fatalf("NextFieldToken = %v", right)
	}
	if right.NextFieldToken() != nil || left.PreviousFieldToken() != nil {
		t.Error("expected nil at the edges of the line")
	}
	if right.PreviousFieldToken() != left {
		t.Error("PreviousFieldToken mismatch")
	}
	if left.NextToken() != tok(t, f, 4, 0) || tok(t, f, 4, 0).PreviousToken() != left {
		t.Error("spine links mismatch")
	}
	if tok(t, f, 7, 0).NextToken() != nil {
		t.Error("terminator should have no next token")
	}
}

func TestToken_Values(t *testing.T) {
	f := mustRead(t, twoSpines...)
	tk := tok(t, f, 3, 0)
	tk.SetValue("app", "count", "7")
	tk.SetValue("app", "flag", "true")
	tk.SetValue("app", "len", "3/2")

	if tk.ValueInt("app", "count") != 7 {
		t.Error("ValueInt")
	}
	if !tk.ValueBool("app", "flag") || tk.ValueBool("app", "missing") {
		t.Error("ValueBool")
	}
	if r, ok := tk.ValueRational("app", "len"); !ok || !r.Equal(rational.MustNew(3, 2)) {
		t.Errorf("ValueRational = %v, %v", r, ok)
	}
	if tk.HasValue("other", "count") {
		t.Error("namespaces should be separate")
	}
	tk.DeleteValue("app", "count")
	if tk.HasValue("app", "count") {
		t.Error("DeleteValue did not remove the key")
	}
	if got := tk.Values("app"); len(got) != 2 {
		t.Errorf("Values = %v", got)
	}
}

func TestToken_EditAndMaterialize(t *testing.T) {
	f := mustRead(t, twoSpines...)
	tk := tok(t, f, 3, 1)
	tk.SetText("4e-")
	line, _ := f.Line(3)
	if line.Text() != "4c\t4e" {
		t.Errorf("line text changed before materialization: %q", line.Text())
	}
	f.CreateLinesFromTokens()
	once := f.String()
	f.CreateLinesFromTokens()
	if f.String() != once {
		t.Error("materialization is not idempotent")
	}
	if line.Text() != "4c\t4e-" {
		t.Errorf("line text = %q", line.Text())
	}
}

func TestLine_Reclassify(t *testing.T) {
	f := mustRead(t, twoSpines...)
	line, _ := f.Line(3)
	for _, tk := range line.Tokens() {
		tk.SetText("!")
	}
	if !line.IsData() {
		t.Fatal("kind should not change until Reclassify")
	}
	line.Reclassify()
	if !line.IsLocalComment() {
		t.Errorf("kind = %v after Reclassify", line.Kind())
	}
}
