package humdrum

import (
	"log/slog"
	"strings"
)

// AnalyzeStrophes finds "*strophe" ... "*Xstrophe" regions and attaches each
// token following a "*S/name" marker to that marker, until "*S-", another
// marker or the end of the region. Covered tokens get a "strophe"
// annotation holding the marker name. Unpaired region markers are logged.
func (f *File) AnalyzeStrophes() {
	f.strophes = f.strophes[:0]
	starts := make(map[int][]*Token)
	for _, l := range f.lines {
		if !l.IsInterpretation() {
			continue
		}
		for _, t := range l.tokens {
			switch t.text {
			case "*strophe":
				starts[t.track] = append(starts[t.track], t)
			case "*Xstrophe":
				s := starts[t.track]
				if len(s) == 0 {
					f.logger.Warn("strophe end without start",
						slog.String("file", f.name), slog.Int("line", l.index+1), slog.Int("field", t.field+1))
					continue
				}
				f.strophes = append(f.strophes, TokenPair{First: s[len(s)-1], Last: t})
				starts[t.track] = s[:len(s)-1]
			}
		}
	}
	for _, s := range starts {
		for _, t := range s {
			f.logger.Warn("strophe start without end",
				slog.String("file", f.name), slog.Int("line", t.line.index+1), slog.Int("field", t.field+1))
		}
	}

	for _, l := range f.lines {
		if !l.HasSpines() {
			continue
		}
		for _, t := range l.tokens {
			t.strophe = nil
			switch {
			case strings.HasPrefix(t.text, "*S/"):
				t.strophe = t
			case t.text == "*S-" || t.text == "*Xstrophe":
			default:
				if len(t.prev) == 1 {
					t.strophe = t.prev[0].strophe
				}
			}
			if t.strophe != nil {
				t.SetValue(AutoNamespace, "strophe", t.strophe.text[3:])
			} else {
				t.DeleteValue(AutoNamespace, "strophe")
			}
		}
	}
	f.done.strophes = true
}
