package humdrum

import (
	"strconv"
	"strings"

	"github.com/starford/humkit/pkg/convert"
	"github.com/starford/humkit/pkg/rational"
)

// Null token texts.
const (
	NullData           = "."
	NullInterpretation = "*"
	NullLocalComment   = "!"
	NullGlobalComment  = "!!"
)

// SubtokenSeparator joins the notes of a chord.
const SubtokenSeparator = " "

// Token is one tab-separated field of a Line.
//
// All pointer fields are non-owning references into the File that owns the
// token; they are valid for as long as the File is.
type Token struct {
	text  string
	line  *Line
	field int

	track         int
	subtrack      int
	subtrackCount int
	spineInfo     string
	dataType      string
	exinterp      *Token

	next []*Token
	prev []*Token

	strand int
	// end time of the last rhythmic event seen in this spine, carried
	// forward during rhythm analysis
	end      rational.Rational
	endKnown bool

	values map[string]map[string]string

	slurStarts []*Token
	slurEnds   []*Token
	tieNext    map[int]TieLink
	tiePrev    map[int]TieLink
	strophe    *Token
	visibleAcc []bool
}

// TieLink identifies one chord member of a token in a tie chain.
type TieLink struct {
	Token    *Token
	Subtoken int
}

func newToken(line *Line, field int, text string) *Token {
	return &Token{text: text, line: line, field: field, strand: -1}
}

// Text returns the current token text.
func (t *Token) Text() string { return t.text }

// String returns the token text.
func (t *Token) String() string { return t.text }

// SetText replaces the token text. The spine graph and every cached analysis
// are left untouched; call File.CreateLinesFromTokens before writing and
// re-run the analyses that depend on the changed content.
func (t *Token) SetText(text string) { t.text = text }

// Line returns the owning line.
func (t *Token) Line() *Line { return t.line }

// LineIndex returns the index of the owning line in its File.
func (t *Token) LineIndex() int { return t.line.index }

// FieldIndex returns the token's column on its line.
func (t *Token) FieldIndex() int { return t.field }

// Track returns the spine track number (1-based).
func (t *Token) Track() int { return t.track }

// Subtrack returns the 1-based position among tokens sharing the track on
// this line. Unsplit spines are subtrack 1.
func (t *Token) Subtrack() int { return t.subtrack }

// SubtrackCount returns how many tokens on this line share the track.
func (t *Token) SubtrackCount() int { return t.subtrackCount }

// TrackString returns "3" for an unsplit spine and "3.2" for the second
// subspine of track 3.
func (t *Token) TrackString() string {
	if t.subtrackCount > 1 {
		return strconv.Itoa(t.track) + "." + strconv.Itoa(t.subtrack)
	}
	return strconv.Itoa(t.track)
}

// SpineInfo returns the lineage string of the spine ("2", "(2)a",
// "((2)a)b").
func (t *Token) SpineInfo() string { return t.spineInfo }

// DataType returns the exclusive interpretation of the spine, e.g. "**kern".
func (t *Token) DataType() string { return t.dataType }

// IsDataType reports whether the spine has the given data type. The "**"
// prefix is optional.
func (t *Token) IsDataType(dt string) bool {
	if !strings.HasPrefix(dt, "**") {
		dt = "**" + dt
	}
	return t.dataType == dt
}

// IsKern reports whether the token belongs to a **kern spine.
func (t *Token) IsKern() bool { return t.dataType == "**kern" }

// IsMens reports whether the token belongs to a **mens spine.
func (t *Token) IsMens() bool { return t.dataType == "**mens" }

// HasRhythm reports whether the spine type carries durations.
func (t *Token) HasRhythm() bool {
	switch t.dataType {
	case "**kern", "**recip", "**mens":
		return true
	}
	return false
}

// ExclusiveInterpretation returns the "**" token that started the spine.
func (t *Token) ExclusiveInterpretation() *Token { return t.exinterp }

// Strand returns the index of the strand containing the token, or -1.
func (t *Token) Strand() int { return t.strand }

// Classification.

func (t *Token) IsExclusiveInterpretation() bool { return strings.HasPrefix(t.text, "**") }

// IsInterpretation is true for every token starting with "*", including
// exclusive interpretations.
func (t *Token) IsInterpretation() bool { return strings.HasPrefix(t.text, "*") }

func (t *Token) IsBarline() bool { return strings.HasPrefix(t.text, "=") }

func (t *Token) IsComment() bool { return strings.HasPrefix(t.text, "!") }

func (t *Token) IsLocalComment() bool {
	return t.IsComment() && !t.IsGlobalComment()
}

func (t *Token) IsGlobalComment() bool { return strings.HasPrefix(t.text, "!!") }

// IsReference reports whether the token is a "!!!key: value" record.
func (t *Token) IsReference() bool {
	_, _, ok := parseReference(t.text)
	return ok
}

// IsData reports whether the token is neither an interpretation, a comment
// nor a barline.
func (t *Token) IsData() bool {
	if t.line != nil && !t.line.HasSpines() {
		return false
	}
	if t.text == "" {
		return true
	}
	switch t.text[0] {
	case '*', '!', '=':
		return false
	}
	return true
}

// IsNull reports whether the token is a placeholder: ".", "*", "!" or "!!".
func (t *Token) IsNull() bool {
	switch t.text {
	case NullData, NullInterpretation, NullLocalComment, NullGlobalComment:
		return true
	}
	return false
}

// IsManipulator reports whether the token is one of *^ *v *x *+ *-.
func (t *Token) IsManipulator() bool {
	switch t.text {
	case "*^", "*v", "*x", "*+", "*-":
		return true
	}
	return false
}

func (t *Token) IsSplit() bool      { return t.text == "*^" }
func (t *Token) IsMerge() bool      { return t.text == "*v" }
func (t *Token) IsExchange() bool   { return t.text == "*x" }
func (t *Token) IsAdd() bool        { return t.text == "*+" }
func (t *Token) IsTerminator() bool { return t.text == "*-" }

// IsKeySignature reports "*k[...]" tokens.
func (t *Token) IsKeySignature() bool { return strings.HasPrefix(t.text, "*k[") }

// IsTimeSignature reports "*M3/4"-style tokens.
func (t *Token) IsTimeSignature() bool {
	return len(t.text) > 2 && strings.HasPrefix(t.text, "*M") && t.text[2] >= '0' && t.text[2] <= '9'
}

// IsClef reports "*clef" tokens.
func (t *Token) IsClef() bool { return strings.HasPrefix(t.text, "*clef") }

// IsInstrumentCode reports "*I" instrument codes such as "*Iflt".
func (t *Token) IsInstrumentCode() bool { return convert.IsInstrumentCode(t.text) }

// Navigation.

// NextToken returns the first following token in the spine, or nil.
func (t *Token) NextToken() *Token {
	if len(t.next) == 0 {
		return nil
	}
	return t.next[0]
}

// NextTokens returns every following token in the spine: two after a split,
// none after a terminator.
func (t *Token) NextTokens() []*Token { return append([]*Token(nil), t.next...) }

// NextTokenCount returns len(NextTokens()).
func (t *Token) NextTokenCount() int { return len(t.next) }

// PreviousToken returns the first preceding token in the spine, or nil.
// After a merge it is the lowest-subtrack input.
func (t *Token) PreviousToken() *Token {
	if len(t.prev) == 0 {
		return nil
	}
	return t.prev[0]
}

// PreviousTokens returns every preceding token in the spine.
func (t *Token) PreviousTokens() []*Token { return append([]*Token(nil), t.prev...) }

// PreviousTokenCount returns len(PreviousTokens()).
func (t *Token) PreviousTokenCount() int { return len(t.prev) }

// NextFieldToken returns the token in the next column, or nil.
func (t *Token) NextFieldToken() *Token {
	if t.line == nil || t.field+1 >= len(t.line.tokens) {
		return nil
	}
	return t.line.tokens[t.field+1]
}

// PreviousFieldToken returns the token in the previous column, or nil.
func (t *Token) PreviousFieldToken() *Token {
	if t.line == nil || t.field == 0 {
		return nil
	}
	return t.line.tokens[t.field-1]
}

// ResolveNull returns the nearest earlier non-null data token in the spine.
// Non-null tokens resolve to themselves. ErrNoPriorToken is returned when the
// start of the spine is reached first.
func (t *Token) ResolveNull() (*Token, error) {
	if !t.IsNull() && t.IsData() {
		return t, nil
	}
	for cur := t.PreviousToken(); cur != nil; cur = cur.PreviousToken() {
		if cur.IsData() && !cur.IsNull() {
			return cur, nil
		}
	}
	return nil, ErrNoPriorToken
}

// Subtokens.

// SubtokenCount returns the number of space-separated chord members.
func (t *Token) SubtokenCount() int {
	if !t.IsData() {
		return 1
	}
	return strings.Count(t.text, SubtokenSeparator) + 1
}

// Subtokens splits the token into chord members.
func (t *Token) Subtokens() []string {
	if !t.IsData() {
		return []string{t.text}
	}
	return strings.Split(t.text, SubtokenSeparator)
}

// Subtoken returns chord member i.
func (t *Token) Subtoken(i int) (string, error) {
	subs := t.Subtokens()
	if i < 0 || i >= len(subs) {
		return "", outOfRange("subtoken", i, len(subs))
	}
	return subs[i], nil
}

// Timing. These read caches filled by File.AnalyzeRhythm and
// File.AnalyzeBarlines.

// DurationFromStart returns the timestamp of the token's line.
func (t *Token) DurationFromStart() rational.Rational { return t.line.dfs }

// DurationToEnd returns the time from the token's line to the end of the
// score.
func (t *Token) DurationToEnd() rational.Rational { return t.line.DurationToEnd() }

// DurationFromBarline returns the time since the previous barline.
func (t *Token) DurationFromBarline() rational.Rational { return t.line.dfb }

// DurationToBarline returns the time until the next barline.
func (t *Token) DurationToBarline() rational.Rational { return t.line.dtb }

// Scratch annotations.

// SetValue stores an annotation under a namespace and key.
func (t *Token) SetValue(ns, key, value string) {
	if t.values == nil {
		t.values = make(map[string]map[string]string)
	}
	m := t.values[ns]
	if m == nil {
		m = make(map[string]string)
		t.values[ns] = m
	}
	m[key] = value
}

// Value returns an annotation.
func (t *Token) Value(ns, key string) (string, bool) {
	v, ok := t.values[ns][key]
	return v, ok
}

// HasValue reports whether an annotation exists.
func (t *Token) HasValue(ns, key string) bool {
	_, ok := t.values[ns][key]
	return ok
}

// ValueInt returns an annotation as an integer, 0 when missing or not a
// number.
func (t *Token) ValueInt(ns, key string) int {
	v, _ := strconv.Atoi(t.values[ns][key])
	return v
}

// ValueBool returns true for any annotation other than "", "0" and "false".
func (t *Token) ValueBool(ns, key string) bool {
	switch t.values[ns][key] {
	case "", "0", "false":
		return false
	}
	return true
}

// ValueRational parses an annotation as a Rational.
func (t *Token) ValueRational(ns, key string) (rational.Rational, bool) {
	v, ok := t.values[ns][key]
	if !ok {
		return rational.NaN, false
	}
	r, err := rational.Parse(v)
	if err != nil {
		return rational.NaN, false
	}
	return r, true
}

// DeleteValue removes an annotation.
func (t *Token) DeleteValue(ns, key string) {
	delete(t.values[ns], key)
}

// Values returns a copy of the annotations in a namespace.
func (t *Token) Values(ns string) map[string]string {
	out := make(map[string]string, len(t.values[ns]))
	for k, v := range t.values[ns] {
		out[k] = v
	}
	return out
}
