package humdrum

import (
	"errors"
	"fmt"

	"github.com/starford/humkit/pkg/convert"
)

// Sentinel errors. Query errors (rhythm, pitch, null resolution) concern a
// single token and leave the File usable; ErrSpineStructure means the input
// could not be read at all.
var (
	ErrSpineStructure  = errors.New("humdrum: spine structure error")
	ErrIndexOutOfRange = errors.New("humdrum: index out of range")
	ErrNoPriorToken    = errors.New("humdrum: no prior token found")
	ErrNotRhythmic     = errors.New("humdrum: token has no rhythm")
	ErrSpineLength     = errors.New("humdrum: value count does not match line count")
	ErrSpineInsertion  = errors.New("humdrum: cannot insert spine")
	ErrMalformedRhythm = convert.ErrMalformedRhythm
	ErrNotAPitch       = convert.ErrNotAPitch
)

// SpineStructureError reports a malformed manipulator sequence or a field
// count that does not match the active spines. Line and Field are 1-based;
// Field is 0 when the whole line is at fault.
type SpineStructureError struct {
	Name  string
	Line  int
	Field int
	Msg   string
}

func (e *SpineStructureError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Field > 0 {
		where += fmt.Sprintf(", field %d", e.Field)
	}
	if e.Name != "" {
		where = e.Name + ": " + where
	}
	return "humdrum: " + where + ": " + e.Msg
}

func (e *SpineStructureError) Unwrap() error { return ErrSpineStructure }

func spineError(line *Line, field int, format string, args ...any) error {
	e := &SpineStructureError{Line: line.index + 1, Field: field, Msg: fmt.Sprintf(format, args...)}
	if line.file != nil {
		e.Name = line.file.name
	}
	return e
}

func outOfRange(what string, i, n int) error {
	return fmt.Errorf("%w: %s %d (have %d)", ErrIndexOutOfRange, what, i, n)
}
