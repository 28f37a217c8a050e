package humdrum

import (
	"strings"

	"github.com/starford/humkit/pkg/convert"
)

// accidentalState tracks what a reader of one staff expects a note to sound
// like at a point in the score.
type accidentalState struct {
	key     [7]int      // by diatonic class
	measure map[int]int // by base-7 pitch, reset at barlines
}

func (s *accidentalState) expected(p convert.KernPitch) int {
	if acc, ok := s.measure[p.Base7()]; ok {
		return acc
	}
	return s.key[p.Diatonic]
}

// AnalyzeAccidentals decides for every kern note whether its accidental would
// be printed. An accidental is visible when it differs from the key
// signature or from an earlier note of the same pitch in the measure, or
// when it is forced with "n" or "X". Tie continuations and accidentals marked
// with "y" are never visible. Results are read with Token.HasVisibleAccidental.
func (f *File) AnalyzeAccidentals() {
	states := make(map[int]*accidentalState)
	state := func(track int) *accidentalState {
		s := states[track]
		if s == nil {
			s = &accidentalState{measure: make(map[int]int)}
			states[track] = s
		}
		return s
	}

	for _, l := range f.lines {
		switch {
		case l.IsBarline():
			for _, s := range states {
				clear(s.measure)
			}
		case l.IsInterpretation():
			for _, t := range l.tokens {
				if t.IsKern() && t.IsKeySignature() {
					s := state(t.track)
					s.key = parseKeySignature(t.text)
					clear(s.measure)
				}
			}
		case l.IsData():
			for _, t := range l.tokens {
				t.visibleAcc = nil
				if !t.IsKern() || !t.IsNote() {
					continue
				}
				s := state(t.track)
				subs := t.Subtokens()
				t.visibleAcc = make([]bool, len(subs))
				for i, sub := range subs {
					p, err := convert.ParseKernPitch(sub)
					if err != nil {
						continue
					}
					switch {
					case strings.ContainsAny(sub, "_]"):
					case strings.Contains(sub, "#y") || strings.Contains(sub, "-y") || strings.Contains(sub, "ny"):
					case strings.ContainsAny(sub, "nX"):
						t.visibleAcc[i] = true
					default:
						t.visibleAcc[i] = p.Accidental != s.expected(p)
					}
					s.measure[p.Base7()] = p.Accidental
				}
			}
		}
	}
	f.done.accidentals = true
}

// parseKeySignature reads "*k[f#c#]" into accidentals by diatonic class.
func parseKeySignature(text string) [7]int {
	var key [7]int
	body := strings.TrimSuffix(strings.TrimPrefix(text, "*k["), "]")
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c < 'a' || c > 'g' {
			continue
		}
		d := int((c - 'a' + 5) % 7)
		for j := i + 1; j < len(body); j++ {
			switch body[j] {
			case '#':
				key[d]++
				continue
			case '-':
				key[d]--
				continue
			}
			break
		}
	}
	return key
}
