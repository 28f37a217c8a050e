package humdrum

import (
	"fmt"
	"strings"
)

// AutoNamespace holds the annotations written by the File.Analyze* passes.
const AutoNamespace = "auto"

type slurKey struct {
	track   int
	elision int
}

// AnalyzeSlurs pairs "(" and ")" in kern spines. Slurs are matched per
// track and elision level (the number of "&" before the parenthesis). Each
// start gets "slurEnd" ("line:field", 1-based) and "slurDuration"
// annotations, each end gets "slurStart"; unmatched markers are annotated
// "hangingSlur". It returns the number of unmatched markers.
func (f *File) AnalyzeSlurs() int {
	if !f.done.rhythm {
		f.AnalyzeRhythm()
	}
	for _, l := range f.lines {
		for _, t := range l.tokens {
			t.slurStarts, t.slurEnds = nil, nil
		}
	}

	hanging := 0
	open := make(map[slurKey][]*Token)
	for _, l := range f.lines {
		if !l.IsData() {
			continue
		}
		for _, t := range l.tokens {
			if !t.IsKern() || t.IsNull() {
				continue
			}
			elision := 0
			for _, c := range t.text {
				switch c {
				case '&':
					elision++
					continue
				case '(':
					k := slurKey{t.track, elision}
					open[k] = append(open[k], t)
				case ')':
					k := slurKey{t.track, elision}
					stack := open[k]
					if len(stack) == 0 {
						t.SetValue(AutoNamespace, "hangingSlur", "true")
						hanging++
						break
					}
					start := stack[len(stack)-1]
					open[k] = stack[:len(stack)-1]
					linkSlur(start, t)
				}
				elision = 0
			}
		}
	}
	for _, stack := range open {
		for _, t := range stack {
			t.SetValue(AutoNamespace, "hangingSlur", "true")
			hanging++
		}
	}
	f.done.slurs = true
	return hanging
}

func linkSlur(start, end *Token) {
	start.slurEnds = append(start.slurEnds, end)
	end.slurStarts = append(end.slurStarts, start)
	start.SetValue(AutoNamespace, "slurEnd", tokenPosition(end))
	start.SetValue(AutoNamespace, "slurDuration", end.line.dfs.Sub(start.line.dfs).String())
	end.SetValue(AutoNamespace, "slurStart", tokenPosition(start))
}

func tokenPosition(t *Token) string {
	return fmt.Sprintf("%d:%d", t.line.index+1, t.field+1)
}

type tieKey struct {
	track int
	b40   int
}

// AnalyzeTies links tied notes "[", "_" and "]" by track and pitch. The
// first note of a chain gets a "tieDuration" annotation holding the summed
// duration; notes continuing a tie that was never opened and ties left open
// are annotated "hangingTie". It returns the number of hanging ties.
func (f *File) AnalyzeTies() int {
	for _, l := range f.lines {
		for _, t := range l.tokens {
			t.tieNext, t.tiePrev = nil, nil
		}
	}

	hanging := 0
	open := make(map[tieKey]TieLink)
	for _, l := range f.lines {
		if !l.IsData() {
			continue
		}
		for _, t := range l.tokens {
			if !t.IsKern() || !t.IsNote() {
				continue
			}
			for i, sub := range t.Subtokens() {
				b40, err := t.Base40(i)
				if err != nil {
					continue
				}
				k := tieKey{t.track, b40}
				here := TieLink{Token: t, Subtoken: i}
				switch {
				case strings.ContainsRune(sub, '['):
					if prev, ok := open[k]; ok {
						prev.Token.SetValue(AutoNamespace, "hangingTie", "true")
						hanging++
					}
					open[k] = here
				case strings.ContainsAny(sub, "_]"):
					prev, ok := open[k]
					if !ok {
						t.SetValue(AutoNamespace, "hangingTie", "true")
						hanging++
						break
					}
					linkTie(prev, here)
					if strings.ContainsRune(sub, ']') {
						delete(open, k)
					} else {
						open[k] = here
					}
				}
			}
		}
	}
	for _, l := range open {
		if _, linked := l.Token.tiePrev[l.Subtoken]; !linked {
			l.Token.SetValue(AutoNamespace, "hangingTie", "true")
			hanging++
		}
	}

	for _, l := range f.lines {
		for _, t := range l.tokens {
			if t.tieNext == nil {
				continue
			}
			if d, err := t.TiedDuration(); err == nil && len(t.tiePrev) == 0 {
				t.SetValue(AutoNamespace, "tieDuration", d.String())
			}
		}
	}
	f.done.ties = true
	return hanging
}

func linkTie(from, to TieLink) {
	if from.Token.tieNext == nil {
		from.Token.tieNext = make(map[int]TieLink)
	}
	if to.Token.tiePrev == nil {
		to.Token.tiePrev = make(map[int]TieLink)
	}
	from.Token.tieNext[from.Subtoken] = to
	to.Token.tiePrev[to.Subtoken] = from
}
