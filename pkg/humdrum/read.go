package humdrum

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Option configures Read.
type Option func(*options)

type options struct {
	name     string
	logger   *slog.Logger
	noRhythm bool
}

// WithName sets the name used in error messages and returned by File.Name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used for recoverable oddities in the input.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithoutRhythm skips timing analysis; durations from start are all zero
// until AnalyzeRhythm is called.
func WithoutRhythm() Option {
	return func(o *options) {
		o.noRhythm = true
	}
}

// Read parses Humdrum text. The whole input is read before parsing starts.
// A *SpineStructureError is returned for malformed spine topology, in which
// case no File is returned.
func Read(r io.Reader, opts ...Option) (*File, error) {
	o := options{logger: discardLogger}
	for _, opt := range opts {
		opt(&o)
	}

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("humdrum: read: %w", err)
	}

	f := &File{name: o.name, logger: o.logger}
	f.lines = make([]*Line, len(lines))
	for i, text := range lines {
		f.lines[i] = newLine(f, i, text)
	}
	if err := f.analyzeStructure(); err != nil {
		return nil, err
	}
	if !o.noRhythm {
		f.AnalyzeRhythm()
		f.AnalyzeBarlines()
	}
	return f, nil
}

// ReadString parses Humdrum text held in a string.
func ReadString(s string, opts ...Option) (*File, error) {
	return Read(strings.NewReader(s), opts...)
}

// ReadBytes parses Humdrum text held in a byte slice.
func ReadBytes(b []byte, opts ...Option) (*File, error) {
	return Read(bytes.NewReader(b), opts...)
}

// ReadFile parses the named file. The file name becomes the File name unless
// WithName is also given.
func ReadFile(path string, opts ...Option) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("humdrum: open: %w", err)
	}
	defer fh.Close()
	opts = append([]Option{WithName(filepath.Base(path))}, opts...)
	return Read(fh, opts...)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
