// Package checker validates many Humdrum files concurrently.
package checker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/starford/humkit/pkg/humdrum"
)

// DefaultConcurrency is used when Check is given a non-positive limit.
const DefaultConcurrency = 4

// Result is the outcome of checking one file or one segment of a
// segmented stream.
type Result struct {
	Path         string `json:"path"`
	Segment      string `json:"segment,omitempty"`
	Valid        bool   `json:"valid"`
	Error        string `json:"error,omitempty"`
	Lines        int    `json:"lines"`
	Tracks       int    `json:"tracks"`
	Duration     string `json:"duration"`
	HangingSlurs int    `json:"hanging_slurs"`
	HangingTies  int    `json:"hanging_ties"`
}

// Check reads every path with at most limit files in flight. Results keep
// the order of paths; a segmented file expands to one result per segment.
// Per-file failures are reported in the results; the returned error is
// non-nil only when ctx is cancelled.
func Check(ctx context.Context, paths []string, limit int, logger *slog.Logger) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	perFile := make([][]Result, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			perFile[i] = checkFile(p, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Result
	for _, rs := range perFile {
		out = append(out, rs...)
	}
	return out, nil
}

func checkFile(path string, logger *slog.Logger) []Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Result{{Path: path, Error: err.Error()}}
	}
	opts := []humdrum.Option{humdrum.WithName(path), humdrum.WithLogger(logger)}

	if !bytes.Contains(data, []byte(humdrum.SegmentPrefix)) {
		f, err := humdrum.ReadBytes(data, opts...)
		if err != nil {
			logger.Debug("check: invalid", slog.String("path", path), slog.String("error", err.Error()))
			return []Result{{Path: path, Error: err.Error()}}
		}
		return []Result{describe(path, "", f)}
	}

	set, err := humdrum.ReadFileSet(bytes.NewReader(data), opts...)
	var out []Result
	if set == nil {
		return []Result{{Path: path, Error: err.Error()}}
	}
	for _, f := range set.Files() {
		out = append(out, describe(path, f.Name(), f))
	}
	for _, se := range humdrum.SegmentErrors(err) {
		out = append(out, Result{Path: path, Segment: se.Name, Error: se.Err.Error()})
	}
	if err != nil && len(out) == 0 {
		out = append(out, Result{Path: path, Error: err.Error()})
	}
	return out
}

func describe(path, segment string, f *humdrum.File) Result {
	return Result{
		Path:         path,
		Segment:      segment,
		Valid:        true,
		Lines:        f.LineCount(),
		Tracks:       f.TrackCount(),
		Duration:     f.ScoreDuration().String(),
		HangingSlurs: f.AnalyzeSlurs(),
		HangingTies:  f.AnalyzeTies(),
	}
}

// Summary counts valid and invalid results.
func Summary(results []Result) (valid, invalid int) {
	for _, r := range results {
		if r.Valid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}

// String formats a result as one report line.
func (r Result) String() string {
	name := r.Path
	if r.Segment != "" {
		name += "#" + r.Segment
	}
	if !r.Valid {
		return fmt.Sprintf("FAIL %s: %s", name, r.Error)
	}
	return fmt.Sprintf("ok   %s: %d tracks, %d lines, duration %s", name, r.Tracks, r.Lines, r.Duration)
}
