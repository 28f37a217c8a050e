package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/humkit/pkg/rational"
)

// ErrMalformedRhythm is returned for recip or mensural text that carries no
// readable rhythm.
var ErrMalformedRhythm = errors.New("convert: malformed rhythm")

// Durations are expressed in quarter notes: "4" is 1, "8" is 1/2.
var quarterScale = rational.FromInt(4)

// RecipToDuration returns the duration of the first subtoken of a recip or
// kern token. Grace notes ("q") are zero. A "%" form gives the whole-note
// fraction inverted ("3%2" is two thirds of a whole note), leading zeros are
// breves, and each dot adds half of the previous value.
func RecipToDuration(recip string) (rational.Rational, error) {
	return recipToDuration(recip, true)
}

// RecipToDurationNoDots is RecipToDuration ignoring augmentation dots.
func RecipToDurationNoDots(recip string) (rational.Rational, error) {
	return recipToDuration(recip, false)
}

func recipToDuration(recip string, dots bool) (rational.Rational, error) {
	sub, _, _ := strings.Cut(recip, " ")
	if strings.ContainsRune(sub, 'q') {
		return rational.Zero, nil
	}

	numi := strings.IndexFunc(sub, isDigit)
	pct := strings.IndexByte(sub, '%')

	var whole rational.Rational
	switch {
	case numi < 0 || (pct >= 0 && numi > pct):
		return rational.NaN, fmt.Errorf("%w: %q", ErrMalformedRhythm, recip)
	case pct >= 0:
		den, err := digitRun(sub[numi:])
		if err != nil || den == 0 {
			return rational.NaN, fmt.Errorf("%w: %q", ErrMalformedRhythm, recip)
		}
		num := int64(1)
		if pct+1 < len(sub) && isDigit(rune(sub[pct+1])) {
			num, err = digitRun(sub[pct+1:])
			if err != nil {
				return rational.NaN, fmt.Errorf("%w: %q", ErrMalformedRhythm, recip)
			}
		}
		whole = rational.MustNew(num, den)
	case sub[numi] == '0':
		zeros := 0
		for i := numi; i < len(sub) && sub[i] == '0'; i++ {
			zeros++
		}
		if zeros > 8 {
			return rational.NaN, fmt.Errorf("%w: %q", ErrMalformedRhythm, recip)
		}
		whole = rational.FromInt(int64(1) << zeros)
	default:
		den, err := digitRun(sub[numi:])
		if err != nil {
			return rational.NaN, fmt.Errorf("%w: %q", ErrMalformedRhythm, recip)
		}
		whole = rational.MustNew(1, den)
	}

	if dots {
		whole = whole.Mul(dotFactor(strings.Count(sub, ".")))
	}
	return whole.Mul(quarterScale), nil
}

// dotFactor returns (2^(d+1)-1)/2^d.
func dotFactor(d int) rational.Rational {
	if d <= 0 {
		return rational.One
	}
	if d > 16 {
		d = 16
	}
	return rational.MustNew(int64(1)<<(d+1)-1, int64(1)<<d)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func digitRun(s string) (int64, error) {
	end := strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) })
	if end < 0 {
		end = len(s)
	}
	return strconv.ParseInt(s[:end], 10, 32)
}

// DurationToRecip renders a quarter-note duration as recip text, using up to
// three dots and falling back to the "%" form.
func DurationToRecip(quarters rational.Rational) string {
	whole := quarters.Quo(quarterScale)
	if whole.IsNaN() {
		return ""
	}
	if whole.IsZero() {
		return "q"
	}
	for dots := 0; dots <= 3; dots++ {
		undotted := whole.Quo(dotFactor(dots))
		if s, ok := simpleRecip(undotted); ok {
			return s + strings.Repeat(".", dots)
		}
	}
	return strconv.FormatInt(whole.Den(), 10) + "%" + strconv.FormatInt(whole.Num(), 10)
}

func simpleRecip(whole rational.Rational) (string, bool) {
	if !whole.IsPositive() {
		return "", false
	}
	if whole.Num() == 1 {
		return strconv.FormatInt(whole.Den(), 10), true
	}
	if whole.IsInteger() && whole.IsPowerOfTwo() {
		zeros := 0
		for n := whole.Num(); n > 1; n >>= 1 {
			zeros++
		}
		return strings.Repeat("0", zeros), true
	}
	return "", false
}

// MensToDuration returns the duration of a **mens token in quarter notes.
// "p" marks a perfect (dotted) value, "i" an imperfect one.
func MensToDuration(mens string) (rational.Rational, error) {
	sub, _, _ := strings.Cut(mens, " ")
	found := false
	perfect := false
	var whole rational.Rational
	for _, c := range sub {
		switch c {
		case 'p':
			perfect = true
		case 'i':
			perfect = false
		}
		if v, ok := mensValues[c]; ok {
			whole = v
			found = true
		}
	}
	if !found {
		return rational.NaN, fmt.Errorf("%w: %q", ErrMalformedRhythm, mens)
	}
	if perfect {
		whole = whole.Mul(rational.MustNew(3, 2))
	}
	return whole.Mul(quarterScale), nil
}

// Whole-note values of the mensural rhythm letters.
var mensValues = map[rune]rational.Rational{
	'X': rational.FromInt(8),     // maxima
	'L': rational.FromInt(4),     // longa
	'S': rational.FromInt(2),     // brevis
	's': rational.One,            // semibrevis
	'M': rational.MustNew(1, 2),  // minima
	'm': rational.MustNew(1, 4),  // semiminima
	'U': rational.MustNew(1, 8),  // fusa
	'u': rational.MustNew(1, 16), // semifusa
}
