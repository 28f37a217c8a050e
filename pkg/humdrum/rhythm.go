package humdrum

import (
	"errors"
	"log/slog"

	"github.com/starford/humkit/pkg/rational"
)

// AnalyzeRhythm recomputes line timestamps and durations from the current
// token text. A line lasts until the earliest moment a rhythmic spine
// sounding on it ends; nulls continue the event before them in their spine.
// Tokens with malformed rhythms are logged and ignored.
func (f *File) AnalyzeRhythm() {
	now := rational.Zero
	for _, line := range f.lines {
		line.dfs = now
		line.dur = rational.Zero
		if !line.HasSpines() {
			continue
		}

		next := rational.NaN
		for _, tok := range line.tokens {
			tok.end, tok.endKnown = carriedEnd(tok)
			if !line.IsData() || !tok.HasRhythm() {
				continue
			}
			if !tok.IsNull() {
				d, err := tok.Duration()
				if err != nil {
					if errors.Is(err, ErrMalformedRhythm) {
						f.logger.Warn("skipping malformed rhythm",
							slog.String("file", f.name),
							slog.Int("line", line.index+1),
							slog.Int("field", tok.field+1),
							slog.String("token", tok.text))
					}
					tok.endKnown = false
					continue
				}
				tok.end, tok.endKnown = now.Add(d), true
			}
			if tok.endKnown && now.Less(tok.end) && (next.IsNaN() || tok.end.Less(next)) {
				next = tok.end
			}
		}
		if line.IsData() && !next.IsNaN() {
			line.dur = next.Sub(now)
			now = next
		}
	}
	f.done.rhythm = true
}

// carriedEnd returns the latest end time known to the spine inputs of t.
func carriedEnd(t *Token) (rational.Rational, bool) {
	var (
		end   rational.Rational
		known bool
	)
	for _, p := range t.prev {
		if !p.endKnown {
			continue
		}
		if !known || end.Less(p.end) {
			end, known = p.end, true
		}
	}
	return end, known
}

// AnalyzeBarlines rescans barlines: it rebuilds the barline list, each
// line's distance from and to its surrounding barlines, and measure numbers.
// Lines before the first barline belong to measure n-1 when the first
// barline is numbered n (a pickup), otherwise to measure 0. Unnumbered
// barlines continue the count.
func (f *File) AnalyzeBarlines() {
	f.barlines = f.barlines[:0]
	for _, l := range f.lines {
		if l.IsBarline() {
			f.barlines = append(f.barlines, l)
		}
	}

	measure := 0
	if len(f.barlines) > 0 {
		if n, ok := f.barlines[0].BarNumber(); ok {
			measure = n - 1
		}
	}
	lastBar := rational.Zero
	for _, l := range f.lines {
		if l.IsBarline() {
			if n, ok := l.BarNumber(); ok {
				measure = n
			} else {
				measure++
			}
			lastBar = l.dfs
		}
		l.measure = measure
		l.dfb = l.dfs.Sub(lastBar)
	}

	nextBar := f.ScoreDuration()
	for i := len(f.lines) - 1; i >= 0; i-- {
		l := f.lines[i]
		l.dtb = nextBar.Sub(l.dfs)
		if l.IsBarline() {
			nextBar = l.dfs
		}
	}
}
