// Package humdrum reads Humdrum text into a navigable score.
//
// A File owns its Lines and a Line owns its Tokens. Tokens are linked into
// spines (NextToken/PreviousToken) and lines (NextFieldToken/
// PreviousFieldToken). Derived data such as timing, barline numbers, strands
// and the optional slur, tie, hand, strophe and accidental analyses are
// computed by explicit passes and are not refreshed when token text changes.
//
// Tools follow a three-phase protocol: read the graph, annotate or rewrite
// tokens, then call CreateLinesFromTokens before writing the file out.
package humdrum

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/humkit/pkg/convert"
	"github.com/starford/humkit/pkg/rational"
)

// File is a parsed Humdrum score.
type File struct {
	name   string
	lines  []*Line
	logger *slog.Logger

	trackStarts []*Token // index track-1
	trackEnds   [][]*Token
	strands     []Strand
	refs        map[string]*Line
	barlines    []*Line
	strophes    []TokenPair

	done struct {
		rhythm      bool
		slurs       bool
		ties        bool
		hands       bool
		strophes    bool
		accidentals bool
	}
}

// Strand is a manipulator-free run of a spine. Start and End are both part of
// the strand.
type Strand struct {
	Start *Token
	End   *Token
}

// TokenPair holds the two ends of a marked region.
type TokenPair struct {
	First *Token
	Last  *Token
}

// Reference is a "!!!key: value" record.
type Reference struct {
	Key   string
	Value string
	Line  int
}

// Name returns the name given at read time.
func (f *File) Name() string { return f.name }

// SetName changes the name.
func (f *File) SetName(name string) { f.name = name }

// LineCount returns the number of lines.
func (f *File) LineCount() int { return len(f.lines) }

// Line returns line i.
func (f *File) Line(i int) (*Line, error) {
	if i < 0 || i >= len(f.lines) {
		return nil, outOfRange("line", i, len(f.lines))
	}
	return f.lines[i], nil
}

// Lines returns every line in file order.
func (f *File) Lines() []*Line { return append([]*Line(nil), f.lines...) }

// Token returns field j of line i.
func (f *File) Token(i, j int) (*Token, error) {
	l, err := f.Line(i)
	if err != nil {
		return nil, err
	}
	return l.Token(j)
}

// TrackCount returns the number of spines that were ever started.
func (f *File) TrackCount() int { return len(f.trackStarts) }

// MaxTrack returns the highest track number, equal to TrackCount.
func (f *File) MaxTrack() int { return len(f.trackStarts) }

// SpineStartList returns the exclusive interpretation tokens ordered by
// track.
func (f *File) SpineStartList() []*Token {
	return append([]*Token(nil), f.trackStarts...)
}

// KernSpineStartList returns the **kern spine starts ordered by track.
func (f *File) KernSpineStartList() []*Token {
	return f.SpineStartListByType("**kern")
}

// SpineStartListByType returns spine starts with the given data type.
func (f *File) SpineStartListByType(dataType string) []*Token {
	var out []*Token
	for _, t := range f.trackStarts {
		if t.IsDataType(dataType) {
			out = append(out, t)
		}
	}
	return out
}

// SpineStart returns the exclusive interpretation of a track.
func (f *File) SpineStart(track int) (*Token, error) {
	if track < 1 || track > len(f.trackStarts) {
		return nil, outOfRange("track", track, len(f.trackStarts))
	}
	return f.trackStarts[track-1], nil
}

// TrackEnds returns the "*-" tokens ending a track's subspines.
func (f *File) TrackEnds(track int) ([]*Token, error) {
	if track < 1 || track > len(f.trackEnds) {
		return nil, outOfRange("track", track, len(f.trackEnds))
	}
	return append([]*Token(nil), f.trackEnds[track-1]...), nil
}

// StrandCount returns the number of strands.
func (f *File) StrandCount() int { return len(f.strands) }

// Strands returns all strands ordered by track, then by line.
func (f *File) Strands() []Strand { return append([]Strand(nil), f.strands...) }

// StrandStart returns the first token of strand i.
func (f *File) StrandStart(i int) (*Token, error) {
	if i < 0 || i >= len(f.strands) {
		return nil, outOfRange("strand", i, len(f.strands))
	}
	return f.strands[i].Start, nil
}

// StrandEnd returns the last token of strand i.
func (f *File) StrandEnd(i int) (*Token, error) {
	if i < 0 || i >= len(f.strands) {
		return nil, outOfRange("strand", i, len(f.strands))
	}
	return f.strands[i].End, nil
}

// ReferenceValue returns the value of the first "!!!key:" record.
func (f *File) ReferenceValue(key string) (string, bool) {
	l, ok := f.refs[key]
	if !ok {
		return "", false
	}
	return l.ReferenceValue()
}

// ReferenceRecords returns every reference record in file order.
func (f *File) ReferenceRecords() []Reference {
	var out []Reference
	for _, l := range f.lines {
		if k, v, ok := parseReference(l.text); ok {
			out = append(out, Reference{Key: k, Value: v, Line: l.index})
		}
	}
	return out
}

func (f *File) analyzeReferences() {
	f.refs = make(map[string]*Line)
	for _, l := range f.lines {
		if k, ok := l.ReferenceKey(); ok {
			if _, seen := f.refs[k]; !seen {
				f.refs[k] = l
			}
		}
	}
}

// ScoreDuration returns the end time of the last line.
func (f *File) ScoreDuration() rational.Rational {
	if len(f.lines) == 0 {
		return rational.Zero
	}
	last := f.lines[len(f.lines)-1]
	return last.dfs.Add(last.dur)
}

// Barlines returns the barline lines found by the last AnalyzeBarlines.
func (f *File) Barlines() []*Line { return append([]*Line(nil), f.barlines...) }

// BarlineCount returns len(Barlines()).
func (f *File) BarlineCount() int { return len(f.barlines) }

// Strophes returns the "*strophe" regions found by AnalyzeStrophes.
func (f *File) Strophes() []TokenPair { return append([]TokenPair(nil), f.strophes...) }

// Instrument describes the instrument interpretations of one spine.
type Instrument struct {
	Track int
	Code  string
	Class convert.InstrumentClass
	Name  string
	Abbr  string
}

// Instruments scans the interpretations of every spine for "*I" codes,
// "*I\"" names and "*I'" abbreviations. Spines without any are omitted.
func (f *File) Instruments() []Instrument {
	var out []Instrument
	for _, start := range f.trackStarts {
		inst := Instrument{Track: start.track}
		for cur := start; cur != nil; cur = cur.NextToken() {
			if cur.IsData() {
				break
			}
			switch {
			case strings.HasPrefix(cur.text, `*I"`):
				inst.Name = cur.text[3:]
			case strings.HasPrefix(cur.text, "*I'"):
				inst.Abbr = cur.text[3:]
			case cur.IsInstrumentCode():
				inst.Code = strings.TrimPrefix(cur.text, "*I")
				inst.Class, _ = convert.Instruments.Class(inst.Code)
			}
		}
		if inst.Code != "" || inst.Name != "" || inst.Abbr != "" {
			out = append(out, inst)
		}
	}
	return out
}

// CreateLinesFromTokens rebuilds every line's text from its tokens.
func (f *File) CreateLinesFromTokens() {
	for _, l := range f.lines {
		l.CreateLineFromTokens()
	}
}

// String returns the file text, one "\n"-terminated line per Line.
func (f *File) String() string {
	var b strings.Builder
	for _, l := range f.lines {
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTo writes the file text.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, l := range f.lines {
		m, err := bw.WriteString(l.text)
		n += int64(m)
		if err != nil {
			return n, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}
