package scoreservice

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/starford/humkit/internal/apperr"
	"github.com/starford/humkit/pkg/humdrum"
)

// ImportResult lists the scores created by Import and the segments that
// were rejected, keyed by segment name.
type ImportResult struct {
	Created []string          `json:"created"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Import stores data under dir. A plain file is created as dir/name. A
// stream containing !!!!SEGMENT: markers is split and every segment is
// created as dir/<segment name>; failures of single segments are collected
// in the result instead of aborting the import.
func (s *Service) Import(ctx context.Context, dir, name string, data []byte) (*ImportResult, error) {
	if !bytes.Contains(data, []byte(humdrum.SegmentPrefix)) {
		target := path.Join(dir, name)
		if _, err := s.Create(ctx, target, data); err != nil {
			return nil, err
		}
		return &ImportResult{Created: []string{target}}, nil
	}

	set, err := humdrum.ReadFileSet(bytes.NewReader(data), humdrum.WithLogger(s.logger))
	if set == nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidScore, err)
	}
	res := &ImportResult{Created: []string{}, Failed: map[string]string{}}
	for _, se := range humdrum.SegmentErrors(err) {
		res.Failed[se.Name] = se.Err.Error()
	}
	for _, f := range set.Files() {
		seg := f.Name()
		if seg == "" || strings.ContainsAny(seg, `/\`) || strings.HasPrefix(seg, ".") {
			res.Failed[seg] = "invalid segment name"
			continue
		}
		target := path.Join(dir, seg)
		if _, err := s.Create(ctx, target, []byte(f.String())); err != nil {
			res.Failed[seg] = err.Error()
			continue
		}
		res.Created = append(res.Created, target)
	}
	return res, nil
}
