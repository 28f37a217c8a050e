package scoreservice

import (
	"context"

	"github.com/starford/humkit/pkg/humdrum"
)

// SpineView describes one spine from its start to its ends.
type SpineView struct {
	Track    int      `json:"track"`
	DataType string   `json:"data_type"`
	Start    int      `json:"start_line"` // 1-based
	Ends     []string `json:"ends"`       // spine info of each terminating subspine
}

// TimelineEntry is the timing of one data or barline line.
type TimelineEntry struct {
	Line        int    `json:"line"` // 1-based
	Measure     int    `json:"measure"`
	Start       string `json:"start"`
	Duration    string `json:"duration"`
	FromBarline string `json:"from_barline"`
	ToBarline   string `json:"to_barline"`
	Barline     bool   `json:"barline,omitempty"`
	Text        string `json:"text"`
}

// Analysis summarises the optional content analyses of a score.
type Analysis struct {
	HangingSlurs int              `json:"hanging_slurs"`
	HangingTies  int              `json:"hanging_ties"`
	Hands        bool             `json:"hands"`
	Strophes     []StropheView    `json:"strophes,omitempty"`
	Strands      int              `json:"strands"`
	Accidentals  []AccidentalView `json:"accidentals,omitempty"`
}

// StropheView is the line range of one strophe region.
type StropheView struct {
	Track int `json:"track"`
	First int `json:"first_line"`
	Last  int `json:"last_line"`
}

// AccidentalView is a note whose accidental must be printed.
type AccidentalView struct {
	Line  int    `json:"line"`
	Field int    `json:"field"`
	Token string `json:"token"`
}

// Spines lists the spines of a score.
func (s *Service) Spines(ctx context.Context, path string) ([]SpineView, error) {
	f, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]SpineView, 0, f.TrackCount())
	for _, start := range f.SpineStartList() {
		v := SpineView{
			Track:    start.Track(),
			DataType: start.DataType(),
			Start:    start.LineIndex() + 1,
			Ends:     []string{},
		}
		ends, err := f.TrackEnds(start.Track())
		if err != nil {
			return nil, err
		}
		for _, e := range ends {
			v.Ends = append(v.Ends, e.SpineInfo())
		}
		out = append(out, v)
	}
	return out, nil
}

// Timeline returns the timing of every data line and barline.
func (s *Service) Timeline(ctx context.Context, path string) ([]TimelineEntry, error) {
	f, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []TimelineEntry
	for _, l := range f.Lines() {
		if !l.IsData() && !l.IsBarline() {
			continue
		}
		out = append(out, TimelineEntry{
			Line:        l.Index() + 1,
			Measure:     l.MeasureNumber(),
			Start:       l.DurationFromStart().String(),
			Duration:    l.Duration().String(),
			FromBarline: l.DurationFromBarline().String(),
			ToBarline:   l.DurationToBarline().String(),
			Barline:     l.IsBarline(),
			Text:        l.Text(),
		})
	}
	return out, nil
}

// Analyze runs the slur, tie, hand, strophe and accidental analyses.
func (s *Service) Analyze(ctx context.Context, path string) (*Analysis, error) {
	f, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return Analyze(f), nil
}

// Analyze runs the content analyses on an already parsed file.
func Analyze(f *humdrum.File) *Analysis {
	a := &Analysis{
		HangingSlurs: f.AnalyzeSlurs(),
		HangingTies:  f.AnalyzeTies(),
		Hands:        f.AnalyzeHands(),
		Strands:      f.StrandCount(),
	}
	f.AnalyzeStrophes()
	for _, p := range f.Strophes() {
		a.Strophes = append(a.Strophes, StropheView{
			Track: p.First.Track(),
			First: p.First.LineIndex() + 1,
			Last:  p.Last.LineIndex() + 1,
		})
	}
	f.AnalyzeAccidentals()
	for _, l := range f.Lines() {
		if !l.IsData() {
			continue
		}
		for _, t := range l.Tokens() {
			if !t.IsKern() || !t.IsNote() {
				continue
			}
			for i := 0; i < t.SubtokenCount(); i++ {
				if vis, err := t.HasVisibleAccidental(i); err == nil && vis {
					a.Accidentals = append(a.Accidentals, AccidentalView{
						Line:  l.Index() + 1,
						Field: t.FieldIndex() + 1,
						Token: t.Text(),
					})
					break
				}
			}
		}
	}
	return a
}
