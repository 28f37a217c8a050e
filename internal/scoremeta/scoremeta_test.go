package scoremeta

import (
	"errors"
	"testing"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/pkg/humdrum"
)

const chorale = `!!!COM: Bach, Johann Sebastian
!!!OTL: Aus meines Herzens Grunde
!! first phrase only
**kern	**kern	**text
*Ivox	*Ipiano	*
*M4/4	*M4/4	*
=1	=1	=1
4c	4e	Aus
4d	[4f	mei-
=2	=2	=2
2e	4f]	-nes
.	4g	.
*-	*-	*-
`

func TestParse_Metadata(t *testing.T) {
	r, err := Parse("bach/chorale.krn", []byte(chorale))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := r.Metadata
	if !m.Valid || m.Error != "" {
		t.Errorf("valid = %v, error = %q", m.Valid, m.Error)
	}
	if m.Title != "Aus meines Herzens Grunde" || m.Composer != "Bach, Johann Sebastian" {
		t.Errorf("title %q composer %q", m.Title, m.Composer)
	}
	if m.Tracks != 3 || len(m.Spines) != 3 {
		t.Fatalf("tracks = %d, spines = %+v", m.Tracks, m.Spines)
	}
	if m.Spines[2].DataType != "**text" {
		t.Errorf("third spine = %+v", m.Spines[2])
	}
	// The tie continuation on the second staff is not a new note.
	if m.Spines[0].Notes != 3 || m.Spines[1].Notes != 3 {
		t.Errorf("note counts = %d, %d", m.Spines[0].Notes, m.Spines[1].Notes)
	}
	if m.Duration != "4" || m.Measures != 2 || m.Barlines != 2 {
		t.Errorf("duration %q measures %d barlines %d", m.Duration, m.Measures, m.Barlines)
	}
	if len(m.References) != 2 || m.References[0].Key != "COM" {
		t.Errorf("references = %+v", m.References)
	}
	if len(m.Instruments) != 2 || m.Instruments[1].Class != "klav" {
		t.Errorf("instruments = %+v", m.Instruments)
	}
}

func TestParse_SearchText(t *testing.T) {
	r, err := Parse("chorale.krn", []byte(chorale))
	if err != nil {
		t.Fatal(err)
	}
	want := "Bach, Johann Sebastian Aus meines Herzens Grunde first phrase only Aus mei nes"
	if r.Text != want {
		t.Errorf("Text = %q\nwant  %q", r.Text, want)
	}
}

func TestParse_TitleFallback(t *testing.T) {
	r, err := Parse("folk/song.krn", []byte("**kern\n4c\n*-\n"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Metadata.Title != "song" {
		t.Errorf("title = %q", r.Metadata.Title)
	}
	if r.File.Name() != "song.krn" {
		t.Errorf("file name = %q", r.File.Name())
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("bad.krn", []byte("4c\n"))
	if !errors.Is(err, apperr.ErrInvalidScore) || !errors.Is(err, humdrum.ErrSpineStructure) {
		t.Fatalf("err = %v", err)
	}
	m := Invalid(err)
	if m.Valid || m.Error == "" {
		t.Errorf("Invalid = %+v", m)
	}
}
