package humdrum

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

type opKind int

const (
	opPass opKind = iota
	opSplit
	opMerge
	opExchange
	opTerminate
	opAdd
)

// spineOp describes how fields of one spined line feed the next one.
type spineOp struct {
	kind opKind
	in   []int
}

func (op spineOp) out() int {
	switch op.kind {
	case opSplit, opExchange, opAdd:
		return 2
	case opTerminate:
		return 0
	}
	return 1
}

// slot is one active spine between two spined lines.
type slot struct {
	info     string
	exinterp *Token
}

// analyzeStructure (re)builds the spine graph, references and strands from
// the current lines. Existing token objects and their annotations are kept.
func (f *File) analyzeStructure() error {
	for _, l := range f.lines {
		for _, t := range l.tokens {
			t.next, t.prev = nil, nil
			t.track, t.subtrack, t.subtrackCount = 0, 0, 0
			t.spineInfo, t.dataType, t.exinterp = "", "", nil
			t.strand = -1
		}
	}
	if err := f.analyzeSpines(); err != nil {
		return err
	}
	f.analyzeReferences()
	f.analyzeStrands()
	return nil
}

func (f *File) analyzeSpines() error {
	f.trackStarts = nil
	f.trackEnds = nil

	var (
		slots    []slot
		plan     []spineOp
		prev     *Line
		maxTrack int
	)
	for _, line := range f.lines {
		if !line.HasSpines() {
			continue
		}
		if prev == nil {
			if !line.IsExclusiveInterpretation() {
				if len(f.trackStarts) == 0 {
					return spineError(line, 0, "data found before exclusive interpretation")
				}
				return spineError(line, 0, "data found after all spines were terminated")
			}
			slots = make([]slot, len(line.tokens))
			for i := range slots {
				maxTrack++
				slots[i].info = strconv.Itoa(maxTrack)
			}
		} else {
			want := 0
			for _, op := range plan {
				want += op.out()
			}
			if len(line.tokens) != want {
				return spineError(line, 0, "expected %d fields but found %d", want, len(line.tokens))
			}
			slots = stitch(prev, line, plan, slots, &maxTrack)
		}

		for i, tok := range line.tokens {
			s := &slots[i]
			if s.exinterp == nil {
				if !tok.IsExclusiveInterpretation() {
					return spineError(line, i+1, "new spine must start with an exclusive interpretation, found %q", tok.text)
				}
				s.exinterp = tok
				f.trackStarts = append(f.trackStarts, tok)
				f.trackEnds = append(f.trackEnds, nil)
			} else if tok.IsExclusiveInterpretation() {
				return spineError(line, i+1, "exclusive interpretation %q inside an active spine", tok.text)
			}
			tok.spineInfo = s.info
			tok.exinterp = s.exinterp
			tok.dataType = s.exinterp.text
			tok.track = trackFromInfo(s.info)
			if tok.IsTerminator() && tok.track >= 1 && tok.track <= len(f.trackEnds) {
				f.trackEnds[tok.track-1] = append(f.trackEnds[tok.track-1], tok)
			}
		}
		assignSubtracks(line)

		var err error
		plan, err = planSpines(line)
		if err != nil {
			return err
		}
		prev = line
		live := 0
		for _, op := range plan {
			live += op.out()
		}
		if live == 0 {
			prev, slots = nil, nil
		}
	}
	if prev != nil {
		f.logger.Debug("spines not terminated", slog.String("file", f.name), slog.Int("spines", len(slots)))
	}
	return nil
}

// planSpines reads the manipulators of a line. Non-interpretation lines pass
// every spine straight through.
func planSpines(line *Line) ([]spineOp, error) {
	toks := line.tokens
	plan := make([]spineOp, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsSplit():
			plan = append(plan, spineOp{kind: opSplit, in: []int{i}})
		case t.IsMerge():
			j := i
			for j < len(toks) && toks[j].IsMerge() {
				j++
			}
			if j-i < 2 {
				return nil, spineError(line, i+1, "spine merge needs at least two adjacent *v")
			}
			plan = append(plan, mergeGroups(toks, i, j)...)
			i = j - 1
		case t.IsExchange():
			if i+1 >= len(toks) || !toks[i+1].IsExchange() {
				return nil, spineError(line, i+1, "spine exchange needs two adjacent *x")
			}
			plan = append(plan, spineOp{kind: opExchange, in: []int{i, i + 1}})
			i++
		case t.IsTerminator():
			plan = append(plan, spineOp{kind: opTerminate, in: []int{i}})
		case t.IsAdd():
			plan = append(plan, spineOp{kind: opAdd, in: []int{i}})
		default:
			plan = append(plan, spineOp{kind: opPass, in: []int{i}})
		}
	}
	return plan, nil
}

// mergeGroups splits a run of adjacent *v tokens [i, j) into merges. Each
// same-track group of two or more merges on its own; if any track in the run
// has a single *v, the whole run merges into one spine.
//
// This departs from humlib, which always joins an adjacent *v run into a
// single spine. "*v\t*v\t*v\t*v" over tracks 1,1,2,2 yields two spines here
// and one there.
func mergeGroups(toks []*Token, i, j int) []spineOp {
	var groups [][]int
	for k := i; k < j; k++ {
		if len(groups) > 0 && toks[groups[len(groups)-1][0]].track == toks[k].track {
			groups[len(groups)-1] = append(groups[len(groups)-1], k)
			continue
		}
		groups = append(groups, []int{k})
	}
	ops := make([]spineOp, 0, len(groups))
	for _, g := range groups {
		if len(g) < 2 {
			all := make([]int, 0, j-i)
			for k := i; k < j; k++ {
				all = append(all, k)
			}
			return []spineOp{{kind: opMerge, in: all}}
		}
		ops = append(ops, spineOp{kind: opMerge, in: g})
	}
	return ops
}

// stitch links the tokens of prev to those of next according to plan and
// returns the slots active on next.
func stitch(prev, next *Line, plan []spineOp, slots []slot, maxTrack *int) []slot {
	out := make([]slot, 0, len(next.tokens))
	ii := 0
	for _, op := range plan {
		switch op.kind {
		case opPass:
			link(prev.tokens[op.in[0]], next.tokens[ii])
			out = append(out, slots[op.in[0]])
			ii++
		case opSplit:
			src := prev.tokens[op.in[0]]
			s := slots[op.in[0]]
			link(src, next.tokens[ii])
			link(src, next.tokens[ii+1])
			out = append(out,
				slot{info: "(" + s.info + ")a", exinterp: s.exinterp},
				slot{info: "(" + s.info + ")b", exinterp: s.exinterp})
			ii += 2
		case opMerge:
			infos := make([]string, len(op.in))
			for k, idx := range op.in {
				link(prev.tokens[idx], next.tokens[ii])
				infos[k] = slots[idx].info
			}
			out = append(out, slot{info: mergedSpineInfo(infos), exinterp: slots[op.in[0]].exinterp})
			ii++
		case opExchange:
			a, b := op.in[0], op.in[1]
			link(prev.tokens[a], next.tokens[ii+1])
			link(prev.tokens[b], next.tokens[ii])
			out = append(out, slots[b], slots[a])
			ii += 2
		case opTerminate:
		case opAdd:
			link(prev.tokens[op.in[0]], next.tokens[ii])
			*maxTrack++
			out = append(out, slots[op.in[0]], slot{info: strconv.Itoa(*maxTrack)})
			ii += 2
		}
	}
	return out
}

func link(from, to *Token) {
	from.next = append(from.next, to)
	to.prev = append(to.prev, from)
}

// mergedSpineInfo joins merged lineages, collapsing "(x)a (x)b" back to "x".
func mergedSpineInfo(infos []string) string {
	parts := append([]string(nil), infos...)
	for changed := true; changed; {
		changed = false
		for i := 0; i+1 < len(parts); i++ {
			a, b := parts[i], parts[i+1]
			if len(a) < 4 || !strings.HasPrefix(a, "(") || !strings.HasSuffix(a, ")a") {
				continue
			}
			if b != a[:len(a)-1]+"b" {
				continue
			}
			parts[i] = a[1 : len(a)-2]
			parts = append(parts[:i+1], parts[i+2:]...)
			changed = true
			break
		}
	}
	return strings.Join(parts, " ")
}

// trackFromInfo returns the first number in a spine info string.
func trackFromInfo(info string) int {
	start := strings.IndexAny(info, "0123456789")
	if start < 0 {
		return 0
	}
	end := start
	for end < len(info) && info[end] >= '0' && info[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(info[start:end])
	return n
}

func assignSubtracks(line *Line) {
	counts := make(map[int]int)
	for _, t := range line.tokens {
		counts[t.track]++
	}
	seen := make(map[int]int)
	for _, t := range line.tokens {
		seen[t.track]++
		t.subtrack = seen[t.track]
		t.subtrackCount = counts[t.track]
	}
}

// analyzeStrands cuts every spine at splits, merges and terminators.
func (f *File) analyzeStrands() {
	type walk struct {
		tokens []*Token
	}
	var (
		walks   []walk
		queue   = append([]*Token(nil), f.trackStarts...)
		visited = make(map[*Token]bool)
	)
	for q := 0; q < len(queue); q++ {
		start := queue[q]
		if visited[start] {
			continue
		}
		var w walk
		for tok := start; tok != nil; {
			visited[tok] = true
			w.tokens = append(w.tokens, tok)
			if tok.IsSplit() {
				queue = append(queue, tok.next...)
				break
			}
			if tok.IsMerge() {
				if n := tok.NextToken(); n != nil && n.PreviousToken() == tok {
					queue = append(queue, n)
				}
				break
			}
			if tok.IsTerminator() {
				break
			}
			tok = tok.NextToken()
			if tok != nil && visited[tok] {
				break
			}
		}
		walks = append(walks, w)
	}

	sort.SliceStable(walks, func(i, j int) bool {
		a, b := walks[i].tokens[0], walks[j].tokens[0]
		if a.track != b.track {
			return a.track < b.track
		}
		if a.line.index != b.line.index {
			return a.line.index < b.line.index
		}
		return a.field < b.field
	})

	f.strands = make([]Strand, len(walks))
	for i, w := range walks {
		for _, t := range w.tokens {
			t.strand = i
		}
		f.strands[i] = Strand{Start: w.tokens[0], End: w.tokens[len(w.tokens)-1]}
	}
}
