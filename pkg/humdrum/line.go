package humdrum

import (
	"strconv"
	"strings"

	"github.com/starford/humkit/pkg/rational"
)

// LineKind classifies a line by its first token.
type LineKind int

const (
	KindEmpty LineKind = iota
	KindData
	KindBarline
	KindInterpretation
	KindExclusiveInterpretation
	KindLocalComment
	KindGlobalComment
	KindReference
)

var kindNames = [...]string{
	KindEmpty:                   "empty",
	KindData:                    "data",
	KindBarline:                 "barline",
	KindInterpretation:          "interpretation",
	KindExclusiveInterpretation: "exclusive-interpretation",
	KindLocalComment:            "local-comment",
	KindGlobalComment:           "global-comment",
	KindReference:               "reference",
}

func (k LineKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "LineKind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Line is one line of a Humdrum file.
type Line struct {
	text   string
	file   *File
	index  int
	kind   LineKind
	tokens []*Token

	dfs     rational.Rational // duration from start
	dur     rational.Rational
	dfb     rational.Rational // duration from previous barline
	dtb     rational.Rational // duration to next barline
	measure int
}

func newLine(f *File, index int, text string) *Line {
	l := &Line{text: text, file: f, index: index}
	l.kind = classify(text)
	l.tokenize()
	return l
}

func classify(text string) LineKind {
	switch {
	case text == "":
		return KindEmpty
	case strings.HasPrefix(text, "!!"):
		if _, _, ok := parseReference(text); ok {
			return KindReference
		}
		return KindGlobalComment
	case strings.HasPrefix(text, "!"):
		return KindLocalComment
	case strings.HasPrefix(text, "**"):
		return KindExclusiveInterpretation
	case strings.HasPrefix(text, "*"):
		return KindInterpretation
	case strings.HasPrefix(text, "="):
		return KindBarline
	}
	return KindData
}

func (l *Line) tokenize() {
	switch l.kind {
	case KindEmpty:
		l.tokens = nil
	case KindGlobalComment, KindReference:
		l.tokens = []*Token{newToken(l, 0, l.text)}
	default:
		fields := strings.Split(l.text, "\t")
		l.tokens = make([]*Token, len(fields))
		for i, s := range fields {
			l.tokens[i] = newToken(l, i, s)
		}
	}
}

// parseReference splits "!!!key: value". The key may not contain spaces
// and "!!!!" lines are universal comments, not references.
func parseReference(text string) (key, value string, ok bool) {
	if !strings.HasPrefix(text, "!!!") || strings.HasPrefix(text, "!!!!") {
		return "", "", false
	}
	body := text[3:]
	colon := strings.IndexByte(body, ':')
	if colon <= 0 {
		return "", "", false
	}
	key = body[:colon]
	if strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(body[colon+1:]), true
}

// Text returns the raw line text. After token edits it is stale until
// CreateLineFromTokens is called.
func (l *Line) Text() string { return l.text }

func (l *Line) String() string { return l.text }

// File returns the owning file.
func (l *Line) File() *File { return l.file }

// Index returns the 0-based position of the line in its file.
func (l *Line) Index() int { return l.index }

// Kind returns the classification computed at read time or by the last
// Reclassify.
func (l *Line) Kind() LineKind { return l.kind }

// FieldCount returns the number of tokens.
func (l *Line) FieldCount() int { return len(l.tokens) }

// Token returns field i.
func (l *Line) Token(i int) (*Token, error) {
	if i < 0 || i >= len(l.tokens) {
		return nil, outOfRange("field", i, len(l.tokens))
	}
	return l.tokens[i], nil
}

// Tokens returns the fields in column order.
func (l *Line) Tokens() []*Token { return append([]*Token(nil), l.tokens...) }

func (l *Line) IsData() bool                    { return l.kind == KindData }
func (l *Line) IsBarline() bool                 { return l.kind == KindBarline }
func (l *Line) IsLocalComment() bool            { return l.kind == KindLocalComment }
func (l *Line) IsReference() bool               { return l.kind == KindReference }
func (l *Line) IsEmpty() bool                   { return l.kind == KindEmpty }
func (l *Line) IsExclusiveInterpretation() bool { return l.kind == KindExclusiveInterpretation }

// IsInterpretation is true for interpretation and exclusive interpretation
// lines.
func (l *Line) IsInterpretation() bool {
	return l.kind == KindInterpretation || l.kind == KindExclusiveInterpretation
}

// IsGlobalComment is true for global comments and reference records.
func (l *Line) IsGlobalComment() bool {
	return l.kind == KindGlobalComment || l.kind == KindReference
}

// HasSpines reports whether the line is split into spine fields.
func (l *Line) HasSpines() bool {
	switch l.kind {
	case KindEmpty, KindGlobalComment, KindReference:
		return false
	}
	return true
}

// IsManipulator reports whether any field is a spine manipulator.
func (l *Line) IsManipulator() bool {
	for _, t := range l.tokens {
		if t.IsManipulator() {
			return true
		}
	}
	return false
}

// IsTerminator reports whether every field is "*-".
func (l *Line) IsTerminator() bool {
	if len(l.tokens) == 0 {
		return false
	}
	for _, t := range l.tokens {
		if !t.IsTerminator() {
			return false
		}
	}
	return true
}

// IsAllNull reports whether every field is a null token.
func (l *Line) IsAllNull() bool {
	if !l.HasSpines() || len(l.tokens) == 0 {
		return false
	}
	for _, t := range l.tokens {
		if !t.IsNull() {
			return false
		}
	}
	return true
}

// Duration returns the time until the next line starts; it is zero for
// non-data lines and for lines holding only grace notes.
func (l *Line) Duration() rational.Rational { return l.dur }

// DurationFromStart returns the line's timestamp.
func (l *Line) DurationFromStart() rational.Rational { return l.dfs }

// DurationToEnd returns the time remaining to the end of the score.
func (l *Line) DurationToEnd() rational.Rational {
	if l.file == nil {
		return rational.Zero
	}
	return l.file.ScoreDuration().Sub(l.dfs)
}

// DurationFromBarline returns the time since the previous barline (or the
// start of the score).
func (l *Line) DurationFromBarline() rational.Rational { return l.dfb }

// DurationToBarline returns the time until the next barline (or the end of
// the score).
func (l *Line) DurationToBarline() rational.Rational { return l.dtb }

// BarNumber returns the number written after "=" on a barline line. ok is
// false for non-barlines and unnumbered barlines.
func (l *Line) BarNumber() (int, bool) {
	if l.kind != KindBarline || len(l.tokens) == 0 {
		return 0, false
	}
	return barNumber(l.tokens[0].text)
}

func barNumber(text string) (int, bool) {
	s := strings.TrimLeft(text, "=")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// MeasureNumber returns the measure the line belongs to, as numbered by the
// last File.AnalyzeBarlines.
func (l *Line) MeasureNumber() int { return l.measure }

// ReferenceKey returns the key of a "!!!key: value" line.
func (l *Line) ReferenceKey() (string, bool) {
	k, _, ok := parseReference(l.text)
	return k, ok
}

// ReferenceValue returns the value of a "!!!key: value" line.
func (l *Line) ReferenceValue() (string, bool) {
	_, v, ok := parseReference(l.text)
	return v, ok
}

// Reclassify recomputes the line kind from the current first token. Token
// text edits never change the kind on their own.
func (l *Line) Reclassify() {
	if len(l.tokens) == 0 {
		l.kind = classify(l.text)
		return
	}
	l.kind = classify(l.tokens[0].text)
}

// CreateLineFromTokens rebuilds the line text from the current token texts.
func (l *Line) CreateLineFromTokens() {
	if len(l.tokens) == 0 {
		l.text = ""
		return
	}
	parts := make([]string, len(l.tokens))
	for i, t := range l.tokens {
		parts[i] = t.text
	}
	l.text = strings.Join(parts, "\t")
}
