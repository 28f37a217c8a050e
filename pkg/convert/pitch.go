// Package convert holds stateless conversions between Humdrum notations and
// numeric pitch and duration values.
package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAPitch is returned when a token has no pitch letter, e.g. a rest.
var ErrNotAPitch = errors.New("convert: not a pitch")

// Base-40 offsets of the naturals c d e f g a b, before the +2 that makes
// room for double flats below c.
var base40Diatonic = [7]int{0, 6, 12, 17, 23, 29, 35}

var base12Diatonic = [7]int{0, 2, 4, 5, 7, 9, 11}

// KernPitch is the decoded pitch of one kern subtoken.
type KernPitch struct {
	Diatonic   int // 0=c .. 6=b
	Accidental int // sharps positive, flats negative
	Octave     int // scientific octave, middle C is 4
}

// ParseKernPitch decodes the pitch letters and accidentals of a single kern
// subtoken. Rests and tokens with no pitch letter return ErrNotAPitch.
func ParseKernPitch(kern string) (KernPitch, error) {
	var p KernPitch
	if strings.ContainsRune(kern, 'r') {
		return p, fmt.Errorf("%w: %q is a rest", ErrNotAPitch, kern)
	}
	start := strings.IndexFunc(kern, isPitchLetter)
	if start < 0 {
		return p, fmt.Errorf("%w: %q", ErrNotAPitch, kern)
	}
	letter := kern[start]
	count := 0
	for i := start; i < len(kern) && kern[i] == letter; i++ {
		count++
	}
	lower := letter | 0x20
	p.Diatonic = diatonicIndex(lower)
	if letter == lower {
		p.Octave = 3 + count
	} else {
		p.Octave = 4 - count
	}
	for _, c := range kern {
		switch c {
		case '#':
			p.Accidental++
		case '-':
			p.Accidental--
		case ' ':
			return p, nil
		}
	}
	return p, nil
}

func isPitchLetter(r rune) bool {
	return (r >= 'a' && r <= 'g') || (r >= 'A' && r <= 'G')
}

func diatonicIndex(lower byte) int {
	// c d e f g a b
	return int((lower - 'a' + 5) % 7)
}

// Base40 returns the base-40 pitch number (c4 = 162).
func (p KernPitch) Base40() int {
	return base40Diatonic[p.Diatonic] + p.Accidental + 2 + 40*p.Octave
}

// Base12 returns the base-12 pitch number (c4 = 48).
func (p KernPitch) Base12() int {
	return base12Diatonic[p.Diatonic] + p.Accidental + 12*p.Octave
}

// MIDI returns the MIDI key number (c4 = 60).
func (p KernPitch) MIDI() int {
	return p.Base12() + 12
}

// Base7 returns the diatonic pitch number (c4 = 28).
func (p KernPitch) Base7() int {
	return p.Diatonic + 7*p.Octave
}

// Scientific renders the pitch as "C#4" / "Bb3".
func (p KernPitch) Scientific() string {
	var b strings.Builder
	b.WriteByte("CDEFGAB"[p.Diatonic])
	if p.Accidental > 0 {
		b.WriteString(strings.Repeat("#", p.Accidental))
	} else if p.Accidental < 0 {
		b.WriteString(strings.Repeat("b", -p.Accidental))
	}
	fmt.Fprintf(&b, "%d", p.Octave)
	return b.String()
}

// Kern renders the pitch in kern notation.
func (p KernPitch) Kern() string {
	var b strings.Builder
	letter := "cdefgab"[p.Diatonic]
	if p.Octave >= 4 {
		b.WriteString(strings.Repeat(string(letter), p.Octave-3))
	} else {
		b.WriteString(strings.Repeat(string(letter-0x20), 4-p.Octave))
	}
	if p.Accidental > 0 {
		b.WriteString(strings.Repeat("#", p.Accidental))
	} else if p.Accidental < 0 {
		b.WriteString(strings.Repeat("-", -p.Accidental))
	}
	return b.String()
}

// KernToBase40 converts a kern subtoken to base-40.
func KernToBase40(kern string) (int, error) {
	p, err := ParseKernPitch(kern)
	if err != nil {
		return 0, err
	}
	return p.Base40(), nil
}

// KernToBase12 converts a kern subtoken to base-12.
func KernToBase12(kern string) (int, error) {
	p, err := ParseKernPitch(kern)
	if err != nil {
		return 0, err
	}
	return p.Base12(), nil
}

// KernToBase7 converts a kern subtoken to base-7.
func KernToBase7(kern string) (int, error) {
	p, err := ParseKernPitch(kern)
	if err != nil {
		return 0, err
	}
	return p.Base7(), nil
}

// KernToMIDI converts a kern subtoken to a MIDI key number.
func KernToMIDI(kern string) (int, error) {
	p, err := ParseKernPitch(kern)
	if err != nil {
		return 0, err
	}
	return p.MIDI(), nil
}

// KernToScientificPitch converts a kern subtoken to scientific notation.
func KernToScientificPitch(kern string) (string, error) {
	p, err := ParseKernPitch(kern)
	if err != nil {
		return "", err
	}
	return p.Scientific(), nil
}

// Base40ToPitch decodes a base-40 number. The five unused chroma slots per octave
// return ErrNotAPitch.
func Base40ToPitch(b40 int) (KernPitch, error) {
	if b40 < 0 {
		return KernPitch{}, fmt.Errorf("%w: base-40 %d", ErrNotAPitch, b40)
	}
	chroma := b40 % 40
	for d := 6; d >= 0; d-- {
		acc := chroma - base40Diatonic[d] - 2
		if acc >= -2 && acc <= 2 {
			return KernPitch{Diatonic: d, Accidental: acc, Octave: b40 / 40}, nil
		}
	}
	return KernPitch{}, fmt.Errorf("%w: base-40 %d", ErrNotAPitch, b40)
}

// Base40ToKern renders a base-40 number as kern pitch text.
func Base40ToKern(b40 int) (string, error) {
	p, err := Base40ToPitch(b40)
	if err != nil {
		return "", err
	}
	return p.Kern(), nil
}
