// Package scoremeta extracts searchable metadata from Humdrum scores.
package scoremeta

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/internal/models"
	"github.com/starford/humkit/pkg/humdrum"
)

// Result holds the output of parsing a score.
type Result struct {
	File     *humdrum.File
	Metadata models.ScoreMetadata
	// Text is the searchable prose of the score: reference values, global
	// comments and the words of text spines.
	Text string
}

// Parse reads data as Humdrum and summarises it. Structural errors are
// wrapped with apperr.ErrInvalidScore.
func Parse(name string, data []byte, opts ...humdrum.Option) (*Result, error) {
	opts = append([]humdrum.Option{humdrum.WithName(path.Base(name))}, opts...)
	f, err := humdrum.ReadBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidScore, err)
	}
	return &Result{
		File:     f,
		Metadata: Describe(f, name),
		Text:     searchText(f),
	}, nil
}

// Invalid returns the metadata recorded for a score that could not be read.
func Invalid(err error) models.ScoreMetadata {
	return models.ScoreMetadata{Valid: false, Error: err.Error()}
}

// Describe summarises a parsed file. name is used as the title when the
// score has no "!!!OTL" record.
func Describe(f *humdrum.File, name string) models.ScoreMetadata {
	m := models.ScoreMetadata{
		Valid:    true,
		Title:    deriveTitle(f, name),
		Lines:    f.LineCount(),
		Tracks:   f.TrackCount(),
		Duration: f.ScoreDuration().String(),
		Barlines: f.BarlineCount(),
	}
	m.Composer, _ = f.ReferenceValue("COM")

	notes := make(map[int]int)
	for _, l := range f.Lines() {
		if !l.IsData() {
			continue
		}
		for _, t := range l.Tokens() {
			if t.IsNoteAttack() {
				notes[t.Track()]++
			}
		}
		if n := l.MeasureNumber(); n > m.Measures {
			m.Measures = n
		}
	}
	for _, start := range f.SpineStartList() {
		m.Spines = append(m.Spines, models.Spine{
			Track:    start.Track(),
			DataType: start.DataType(),
			Notes:    notes[start.Track()],
		})
	}
	for _, r := range f.ReferenceRecords() {
		m.References = append(m.References, models.Reference{Key: r.Key, Value: r.Value})
	}
	for _, inst := range f.Instruments() {
		m.Instruments = append(m.Instruments, models.Instrument{
			Track: inst.Track,
			Code:  inst.Code,
			Class: string(inst.Class),
			Name:  inst.Name,
		})
	}
	return m
}

// deriveTitle returns the "!!!OTL" record if present, then "!!!OPT", then
// the file name without its extension.
func deriveTitle(f *humdrum.File, name string) string {
	for _, key := range []string{"OTL", "OPT"} {
		if v, ok := f.ReferenceValue(key); ok && v != "" {
			return v
		}
	}
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

func searchText(f *humdrum.File) string {
	var parts []string
	for _, l := range f.Lines() {
		switch {
		case l.IsReference():
			if v, ok := l.ReferenceValue(); ok && v != "" {
				parts = append(parts, v)
			}
		case l.IsGlobalComment():
			if s := strings.TrimSpace(strings.TrimLeft(l.Text(), "!")); s != "" {
				parts = append(parts, s)
			}
		case l.IsData():
			for _, t := range l.Tokens() {
				if isLyric(t) && !t.IsNull() {
					parts = append(parts, strings.Trim(t.Text(), "-"))
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

func isLyric(t *humdrum.Token) bool {
	return t.IsDataType("**text") || t.IsDataType("**silbe")
}
