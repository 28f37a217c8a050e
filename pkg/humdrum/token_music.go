package humdrum

import (
	"fmt"
	"strings"

	"github.com/starford/humkit/pkg/convert"
	"github.com/starford/humkit/pkg/rational"
)

// isNoteData reports a non-null data token in a pitched spine.
func (t *Token) isNoteData() bool {
	return (t.IsKern() || t.IsMens()) && t.IsData() && !t.IsNull()
}

// IsRest reports whether every chord member is a rest.
func (t *Token) IsRest() bool {
	if !t.isNoteData() {
		return false
	}
	for _, sub := range t.Subtokens() {
		if !strings.ContainsRune(sub, 'r') {
			return false
		}
	}
	return true
}

// IsNote reports whether the token contains at least one pitched note.
func (t *Token) IsNote() bool {
	if !t.isNoteData() {
		return false
	}
	for _, sub := range t.Subtokens() {
		if isPitchedSubtoken(sub) {
			return true
		}
	}
	return false
}

func isPitchedSubtoken(sub string) bool {
	return !strings.ContainsRune(sub, 'r') && strings.ContainsAny(sub, "abcdefgABCDEFG")
}

// IsSecondaryTiedNote reports whether every pitched member continues or
// ends a tie ("_" or "]").
func (t *Token) IsSecondaryTiedNote() bool {
	if !t.IsNote() {
		return false
	}
	for _, sub := range t.Subtokens() {
		if !isPitchedSubtoken(sub) {
			continue
		}
		if !strings.ContainsAny(sub, "_]") {
			return false
		}
	}
	return true
}

// IsNoteAttack reports a new sounding onset: a note that is not only tie
// continuations. Nulls and rests are never attacks.
func (t *Token) IsNoteAttack() bool {
	return t.IsNote() && !t.IsSecondaryTiedNote()
}

// IsGrace reports a grace note (no rhythmic duration).
func (t *Token) IsGrace() bool {
	return t.isNoteData() && strings.ContainsRune(t.text, 'q')
}

// IsChord reports a token with more than one member.
func (t *Token) IsChord() bool {
	return t.isNoteData() && strings.Contains(t.text, SubtokenSeparator)
}

// Pitch decodes chord member i.
func (t *Token) Pitch(i int) (convert.KernPitch, error) {
	if !t.isNoteData() {
		return convert.KernPitch{}, fmt.Errorf("%w: %q", ErrNotAPitch, t.text)
	}
	sub, err := t.Subtoken(i)
	if err != nil {
		return convert.KernPitch{}, err
	}
	return convert.ParseKernPitch(sub)
}

// Base40 returns the base-40 pitch of chord member i.
func (t *Token) Base40(i int) (int, error) {
	p, err := t.Pitch(i)
	if err != nil {
		return 0, err
	}
	return p.Base40(), nil
}

// Base12 returns the base-12 pitch of chord member i.
func (t *Token) Base12(i int) (int, error) {
	p, err := t.Pitch(i)
	if err != nil {
		return 0, err
	}
	return p.Base12(), nil
}

// Base7 returns the diatonic pitch of chord member i.
func (t *Token) Base7(i int) (int, error) {
	p, err := t.Pitch(i)
	if err != nil {
		return 0, err
	}
	return p.Base7(), nil
}

// MIDI returns the MIDI key number of chord member i.
func (t *Token) MIDI(i int) (int, error) {
	p, err := t.Pitch(i)
	if err != nil {
		return 0, err
	}
	return p.MIDI(), nil
}

// ScientificPitch returns chord member i as "C#4".
func (t *Token) ScientificPitch(i int) (string, error) {
	p, err := t.Pitch(i)
	if err != nil {
		return "", err
	}
	return p.Scientific(), nil
}

// Duration returns the token's own rhythmic value in quarter notes. Null
// tokens, non-data tokens and spines without rhythm return ErrNotRhythmic;
// resolve nulls first with ResolveNull.
func (t *Token) Duration() (rational.Rational, error) {
	if !t.HasRhythm() || !t.IsData() || t.IsNull() {
		return rational.NaN, fmt.Errorf("%w: %q", ErrNotRhythmic, t.text)
	}
	if t.IsMens() {
		return convert.MensToDuration(t.text)
	}
	return convert.RecipToDuration(t.text)
}

// DurationNoDots returns Duration ignoring augmentation dots.
func (t *Token) DurationNoDots() (rational.Rational, error) {
	if !t.HasRhythm() || !t.IsData() || t.IsNull() || t.IsMens() {
		return rational.NaN, fmt.Errorf("%w: %q", ErrNotRhythmic, t.text)
	}
	return convert.RecipToDurationNoDots(t.text)
}

// TiedDuration returns the duration of the note including every later note
// of its tie chain. For a token that does not open a tie it equals Duration.
// The chain is followed through the spine by pitch, skipping nulls, and ends
// at "]" or at the first following note that does not continue the tie.
func (t *Token) TiedDuration() (rational.Rational, error) {
	total, err := t.Duration()
	if err != nil {
		return total, err
	}
	if !t.IsNote() {
		return total, nil
	}
	open := -1
	for i, sub := range t.Subtokens() {
		if strings.ContainsRune(sub, '[') {
			open = i
			break
		}
	}
	if open < 0 {
		return total, nil
	}
	pitch, err := t.Base40(open)
	if err != nil {
		return total, nil
	}

	for cur := nextNoteInSpine(t); cur != nil; cur = nextNoteInSpine(cur) {
		marker := tieMarkerFor(cur, pitch)
		if marker == 0 {
			break
		}
		d, err := cur.Duration()
		if err != nil {
			break
		}
		total = total.Add(d)
		if marker == ']' {
			break
		}
	}
	return total, nil
}

// nextNoteInSpine follows the first spine link to the next non-null data
// token.
func nextNoteInSpine(t *Token) *Token {
	for cur := t.NextToken(); cur != nil; cur = cur.NextToken() {
		if cur.IsData() && !cur.IsNull() {
			return cur
		}
	}
	return nil
}

// tieMarkerFor returns '_' or ']' when a member of t with the given base-40
// pitch continues or closes a tie, and 0 otherwise.
func tieMarkerFor(t *Token, b40 int) byte {
	for i, sub := range t.Subtokens() {
		p, err := t.Base40(i)
		if err != nil || p != b40 {
			continue
		}
		switch {
		case strings.ContainsRune(sub, '_'):
			return '_'
		case strings.ContainsRune(sub, ']'):
			return ']'
		}
	}
	return 0
}

// HasVisibleAccidental reports whether chord member i would be printed with
// an accidental, given the key signature and earlier notes in the measure.
// The accidental analysis is run on first use.
func (t *Token) HasVisibleAccidental(i int) (bool, error) {
	if _, err := t.Pitch(i); err != nil {
		return false, err
	}
	if f := t.line.file; f != nil && !f.done.accidentals {
		f.AnalyzeAccidentals()
	}
	if i >= len(t.visibleAcc) {
		return false, nil
	}
	return t.visibleAcc[i], nil
}

// SlurStarts returns the tokens whose slurs end on t.
func (t *Token) SlurStarts() []*Token { return append([]*Token(nil), t.slurStarts...) }

// SlurEnds returns the tokens where slurs started on t end.
func (t *Token) SlurEnds() []*Token { return append([]*Token(nil), t.slurEnds...) }

// TieNext returns the next note in the tie chain of chord member i.
func (t *Token) TieNext(i int) (TieLink, bool) {
	l, ok := t.tieNext[i]
	return l, ok
}

// TiePrevious returns the previous note in the tie chain of chord member i.
func (t *Token) TiePrevious(i int) (TieLink, bool) {
	l, ok := t.tiePrev[i]
	return l, ok
}

// Strophe returns the "*S/" marker governing the token after
// File.AnalyzeStrophes.
func (t *Token) Strophe() (*Token, bool) {
	return t.strophe, t.strophe != nil
}
