package humdrum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/humkit/pkg/rational"
)

// AppendDataSpine adds a spine on the right of every spined line. values
// holds one entry per line of the file (entries for lines without spines
// are ignored). Empty values and values equal to null become ".". exinterp
// defaults to "**data". The spine graph and all cached analyses are rebuilt.
func (f *File) AppendDataSpine(values []string, null, exinterp string) error {
	return f.insertDataSpine(-1, values, null, exinterp)
}

// InsertDataSpineBefore adds a spine immediately left of the first field of
// track on every spined line. The track must be present on every spined line
// and the new spine must follow it through every manipulator; otherwise the
// file is left unchanged and the error wraps ErrSpineInsertion.
func (f *File) InsertDataSpineBefore(track int, values []string, null, exinterp string) error {
	if track < 1 || track > len(f.trackStarts) {
		return outOfRange("track", track, len(f.trackStarts))
	}
	return f.insertDataSpine(track, values, null, exinterp)
}

type lineState struct {
	tokens []*Token
	text   string
}

func (f *File) insertDataSpine(track int, values []string, null, exinterp string) error {
	if len(values) != len(f.lines) {
		return fmt.Errorf("%w: %d values for %d lines", ErrSpineLength, len(values), len(f.lines))
	}
	exinterp = normalizeExinterp(exinterp)

	// Resolve every insertion column before touching the file.
	positions := make([]int, len(f.lines))
	for i, line := range f.lines {
		positions[i] = len(line.tokens)
		if !line.HasSpines() || track < 1 {
			continue
		}
		positions[i] = -1
		for j, t := range line.tokens {
			if t.track == track {
				positions[i] = j
				break
			}
		}
		if positions[i] < 0 {
			return fmt.Errorf("%w: track %d is not present on line %d", ErrSpineInsertion, track, i+1)
		}
	}

	saved := make([]lineState, len(f.lines))
	oldTrack := make(map[*Token]int)
	oldType := make(map[*Token]string)
	for i, line := range f.lines {
		saved[i] = lineState{tokens: append([]*Token(nil), line.tokens...), text: line.text}
		for _, t := range line.tokens {
			oldTrack[t] = t.track
			oldType[t] = t.dataType
		}
	}

	var added []*Token
	for i, line := range f.lines {
		if !line.HasSpines() {
			continue
		}
		var text string
		switch {
		case line.IsExclusiveInterpretation():
			text = exinterp
		case line.IsTerminator():
			text = "*-"
		case line.IsInterpretation():
			text = NullInterpretation
		case line.IsLocalComment():
			text = NullLocalComment
		case line.IsBarline():
			text = line.tokens[0].text
		default:
			text = values[i]
			if text == "" || text == null {
				text = NullData
			}
		}

		pos := positions[i]
		tok := newToken(line, pos, text)
		line.tokens = append(line.tokens, nil)
		copy(line.tokens[pos+1:], line.tokens[pos:])
		line.tokens[pos] = tok
		for j := pos + 1; j < len(line.tokens); j++ {
			line.tokens[j].field = j
		}
		line.CreateLineFromTokens()
		added = append(added, tok)
	}

	err := f.reanalyze()
	if err == nil {
		err = checkInsertedSpine(added, oldTrack, oldType)
	}
	if err != nil {
		if rerr := f.restoreLines(saved); rerr != nil {
			return errors.Join(fmt.Errorf("%w: %w", ErrSpineInsertion, err), rerr)
		}
		return fmt.Errorf("%w: %w", ErrSpineInsertion, err)
	}
	return nil
}

// checkInsertedSpine verifies that every existing spine kept its lineage and
// data type and that the new fields form spines of their own.
func checkInsertedSpine(added []*Token, oldTrack map[*Token]int, oldType map[*Token]string) error {
	moved := make(map[int]int)
	used := make(map[int]bool)
	for t, old := range oldTrack {
		if t.dataType != oldType[t] {
			return fmt.Errorf("token %q on line %d changed data type from %s to %s",
				t.text, t.line.index+1, oldType[t], t.dataType)
		}
		if prev, ok := moved[old]; ok && prev != t.track {
			return fmt.Errorf("track %d was split across tracks %d and %d", old, prev, t.track)
		}
		moved[old] = t.track
		used[t.track] = true
	}
	for _, t := range added {
		if used[t.track] {
			return fmt.Errorf("new field on line %d joined existing track %d", t.line.index+1, t.track)
		}
	}
	return nil
}

// restoreLines puts back the tokens and text saved before a failed mutation
// and rebuilds the graph.
func (f *File) restoreLines(saved []lineState) error {
	for i, line := range f.lines {
		line.tokens = saved[i].tokens
		line.text = saved[i].text
		for j, t := range line.tokens {
			t.field = j
		}
	}
	return f.reanalyze()
}

func normalizeExinterp(s string) string {
	switch {
	case s == "":
		return "**data"
	case strings.HasPrefix(s, "**"):
		return s
	case strings.HasPrefix(s, "*"):
		return "*" + s
	}
	return "**" + s
}

// reanalyze rebuilds the graph and the analyses that had been run.
func (f *File) reanalyze() error {
	if err := f.analyzeStructure(); err != nil {
		return err
	}
	if f.done.rhythm {
		f.AnalyzeRhythm()
		f.AnalyzeBarlines()
	}
	if f.done.strophes {
		f.AnalyzeStrophes()
	}
	return nil
}

// InsertNullDataLine splices an all-null data line at timestamp, directly
// after the data line sounding at that time, and returns it. If a data line
// already starts at timestamp it is returned unchanged. The split line's
// duration is shortened and the new line is linked into every spine; no
// other cache is touched.
func (f *File) InsertNullDataLine(timestamp rational.Rational) (*Line, error) {
	var before *Line
	for _, l := range f.lines {
		if !l.IsData() {
			continue
		}
		switch c := l.dfs.Cmp(timestamp); {
		case c == 0:
			return l, nil
		case c < 0:
			before = l
		}
	}
	if before == nil || !timestamp.Less(before.dfs.Add(before.dur)) {
		return nil, fmt.Errorf("%w: no data line sounds at %s", ErrIndexOutOfRange, timestamp)
	}

	at := before.index + 1
	nl := &Line{
		file:    f,
		index:   at,
		kind:    KindData,
		dfs:     timestamp,
		dur:     before.dfs.Add(before.dur).Sub(timestamp),
		measure: before.measure,
	}
	offset := timestamp.Sub(before.dfs)
	nl.dfb = before.dfb.Add(offset)
	nl.dtb = before.dtb.Sub(offset)
	before.dur = offset

	nl.tokens = make([]*Token, len(before.tokens))
	for j, old := range before.tokens {
		t := newToken(nl, j, NullData)
		t.track = old.track
		t.subtrack = old.subtrack
		t.subtrackCount = old.subtrackCount
		t.spineInfo = old.spineInfo
		t.dataType = old.dataType
		t.exinterp = old.exinterp
		t.strand = old.strand
		t.end, t.endKnown = old.end, old.endKnown

		t.next = old.next
		for _, n := range t.next {
			for k, p := range n.prev {
				if p == old {
					n.prev[k] = t
				}
			}
		}
		old.next = []*Token{t}
		t.prev = []*Token{old}
		nl.tokens[j] = t
	}
	nl.CreateLineFromTokens()

	f.lines = append(f.lines, nil)
	copy(f.lines[at+1:], f.lines[at:])
	f.lines[at] = nl
	for i := at + 1; i < len(f.lines); i++ {
		f.lines[i].index = i
	}
	return nl, nil
}
