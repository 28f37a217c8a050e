package humdrum

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SegmentPrefix starts a new file inside a multi-file stream.
const SegmentPrefix = "!!!!SEGMENT:"

// FileSet is an ordered collection of Files.
type FileSet struct {
	files []*File
}

// SegmentError reports a segment of a stream that could not be read.
type SegmentError struct {
	Name  string
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// SegmentErrors extracts the segment failures from an error returned by
// ReadFileSet.
func SegmentErrors(err error) []*SegmentError {
	if err == nil {
		return nil
	}
	var out []*SegmentError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var se *SegmentError
			if errors.As(e, &se) {
				out = append(out, se)
			}
		}
		return out
	}
	var se *SegmentError
	if errors.As(err, &se) {
		out = append(out, se)
	}
	return out
}

// Count returns the number of files.
func (s *FileSet) Count() int { return len(s.files) }

// File returns file i.
func (s *FileSet) File(i int) (*File, error) {
	if i < 0 || i >= len(s.files) {
		return nil, outOfRange("file", i, len(s.files))
	}
	return s.files[i], nil
}

// Files returns the files in order.
func (s *FileSet) Files() []*File { return append([]*File(nil), s.files...) }

// Append adds files at the end.
func (s *FileSet) Append(files ...*File) { s.files = append(s.files, files...) }

// Swap exchanges files i and j.
func (s *FileSet) Swap(i, j int) error {
	if i < 0 || i >= len(s.files) {
		return outOfRange("file", i, len(s.files))
	}
	if j < 0 || j >= len(s.files) {
		return outOfRange("file", j, len(s.files))
	}
	s.files[i], s.files[j] = s.files[j], s.files[i]
	return nil
}

// ReadFileSet splits r on "!!!!SEGMENT: name" lines and reads every segment
// as its own File named after the marker. Text before the first marker is a
// segment of its own when it is not blank. Segments that fail to parse are
// reported as *SegmentError values joined into the returned error; the set
// still holds every segment that parsed.
func ReadFileSet(r io.Reader, opts ...Option) (*FileSet, error) {
	type segment struct {
		name string
		body strings.Builder
	}
	var (
		segs []*segment
		cur  = &segment{}
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.HasPrefix(line, SegmentPrefix) {
			if cur.name != "" || strings.TrimSpace(cur.body.String()) != "" {
				segs = append(segs, cur)
			}
			cur = &segment{name: strings.TrimSpace(line[len(SegmentPrefix):])}
			continue
		}
		cur.body.WriteString(line)
		cur.body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("humdrum: read: %w", err)
	}
	if cur.name != "" || strings.TrimSpace(cur.body.String()) != "" {
		segs = append(segs, cur)
	}

	set := &FileSet{}
	var errs []error
	for i, seg := range segs {
		f, err := ReadString(seg.body.String(), append(append([]Option(nil), opts...), WithName(seg.name))...)
		if err != nil {
			errs = append(errs, &SegmentError{Name: seg.name, Index: i, Err: err})
			continue
		}
		set.files = append(set.files, f)
	}
	return set, errors.Join(errs...)
}
