// Package midiexport renders the **kern spines of a Humdrum file as a
// Standard MIDI File.
package midiexport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/starford/humkit/pkg/humdrum"
	"github.com/starford/humkit/pkg/rational"
)

// ErrNoKern is returned for files without a **kern spine.
var ErrNoKern = errors.New("midiexport: no **kern spines")

// Options control the rendering. Zero values fall back to the defaults.
type Options struct {
	TicksPerQuarter uint16
	Tempo           float64 // quarter notes per minute, overridden by *MM
	Velocity        uint8
}

const (
	DefaultTicksPerQuarter = 480
	DefaultTempo           = 120
	DefaultVelocity        = 64
)

func (o Options) withDefaults() Options {
	if o.TicksPerQuarter == 0 {
		o.TicksPerQuarter = DefaultTicksPerQuarter
	}
	if o.Tempo <= 0 {
		o.Tempo = DefaultTempo
	}
	if o.Velocity == 0 || o.Velocity > 127 {
		o.Velocity = DefaultVelocity
	}
	return o
}

// Write renders f and writes the SMF to w.
func Write(w io.Writer, f *humdrum.File, opts Options) error {
	s, err := Build(f, opts)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midiexport: write: %w", err)
	}
	return nil
}

// Build renders f as a type 1 SMF: a conductor track with meter and tempo
// followed by one track per **kern spine. Lyrics come from a **text or
// **silbe spine directly to the right of the kern spine.
func Build(f *humdrum.File, opts Options) (*smf.SMF, error) {
	kern := f.KernSpineStartList()
	if len(kern) == 0 {
		return nil, ErrNoKern
	}
	opts = opts.withDefaults()
	f.AnalyzeTies()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)
	tpq := float64(opts.TicksPerQuarter)

	if err := s.Add(conductor(f, opts, tpq)); err != nil {
		return nil, fmt.Errorf("midiexport: conductor track: %w", err)
	}
	names := instrumentNames(f)
	for i, start := range kern {
		r := &renderer{
			track:    start.Track(),
			lyrics:   lyricTrack(f, start.Track()),
			channel:  channelFor(i),
			velocity: opts.Velocity,
			tpq:      tpq,
		}
		name := names[start.Track()]
		if name == "" {
			name = "spine " + strconv.Itoa(start.Track())
		}
		if err := s.Add(r.render(f, name)); err != nil {
			return nil, fmt.Errorf("midiexport: track %d: %w", start.Track(), err)
		}
	}
	return s, nil
}

// channelFor skips channel 10 (index 9), which General MIDI reserves for drums.
func channelFor(i int) uint8 {
	ch := i % 15
	if ch >= 9 {
		ch++
	}
	return uint8(ch)
}

type event struct {
	tick  uint32
	order int // note-offs sort before metas before note-ons at the same tick
	msg   []byte
}

func finish(events []event) smf.Track {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})
	var tr smf.Track
	var last uint32
	for _, ev := range events {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	tr.Close(0)
	return tr
}

func ticks(r rational.Rational, tpq float64) uint32 {
	if r.IsNaN() || r.IsNegative() {
		return 0
	}
	return uint32(math.Round(r.Float64() * tpq))
}

func conductor(f *humdrum.File, opts Options, tpq float64) smf.Track {
	events := []event{{tick: 0, order: 1, msg: smf.MetaTempo(opts.Tempo)}}
	seenMeter := make(map[uint32]bool)
	seenTempo := map[uint32]bool{}
	for _, l := range f.Lines() {
		if !l.IsInterpretation() {
			continue
		}
		at := ticks(l.DurationFromStart(), tpq)
		for _, t := range l.Tokens() {
			if !t.IsKern() {
				continue
			}
			if num, den, ok := meter(t); ok && !seenMeter[at] {
				seenMeter[at] = true
				events = append(events, event{tick: at, order: 1, msg: smf.MetaMeter(num, den)})
			}
			if bpm, ok := tempo(t); ok && !seenTempo[at] {
				seenTempo[at] = true
				if at == 0 {
					events[0].msg = smf.MetaTempo(bpm)
					continue
				}
				events = append(events, event{tick: at, order: 1, msg: smf.MetaTempo(bpm)})
			}
		}
	}
	events = append(events, event{tick: 0, order: 0, msg: smf.MetaTrackSequenceName(trackTitle(f))})
	return finish(events)
}

func trackTitle(f *humdrum.File) string {
	if v, ok := f.ReferenceValue("OTL"); ok {
		return v
	}
	return f.Name()
}

// meter parses "*M3/4".
func meter(t *humdrum.Token) (num, den uint8, ok bool) {
	if !t.IsTimeSignature() {
		return 0, 0, false
	}
	n, d, found := strings.Cut(strings.TrimPrefix(t.Text(), "*M"), "/")
	if !found {
		return 0, 0, false
	}
	a, err1 := strconv.ParseUint(n, 10, 8)
	b, err2 := strconv.ParseUint(d, 10, 8)
	if err1 != nil || err2 != nil || a == 0 || b == 0 {
		return 0, 0, false
	}
	return uint8(a), uint8(b), true
}

// tempo parses "*MM96" and "*MM72.5".
func tempo(t *humdrum.Token) (float64, bool) {
	rest, ok := strings.CutPrefix(t.Text(), "*MM")
	if !ok {
		return 0, false
	}
	bpm, err := strconv.ParseFloat(rest, 64)
	if err != nil || bpm <= 0 {
		return 0, false
	}
	return bpm, true
}

func instrumentNames(f *humdrum.File) map[int]string {
	out := make(map[int]string)
	for _, inst := range f.Instruments() {
		switch {
		case inst.Name != "":
			out[inst.Track] = inst.Name
		case inst.Code != "" && out[inst.Track] == "":
			out[inst.Track] = inst.Code
		}
	}
	return out
}

// lyricTrack returns the track of a text spine immediately to the right of
// track, or 0.
func lyricTrack(f *humdrum.File, track int) int {
	start, err := f.SpineStart(track + 1)
	if err != nil {
		return 0
	}
	if start.IsDataType("**text") || start.IsDataType("**silbe") {
		return track + 1
	}
	return 0
}

type renderer struct {
	track    int
	lyrics   int
	channel  uint8
	velocity uint8
	tpq      float64
}

func (r *renderer) render(f *humdrum.File, name string) smf.Track {
	events := []event{{tick: 0, order: 0, msg: smf.MetaTrackSequenceName(name)}}
	for _, l := range f.Lines() {
		if !l.IsData() {
			continue
		}
		at := ticks(l.DurationFromStart(), r.tpq)
		attacked := false
		for _, t := range l.Tokens() {
			if t.Track() != r.track || !t.IsNoteAttack() || t.IsGrace() {
				continue
			}
			for i, sub := range t.Subtokens() {
				if strings.ContainsAny(sub, "_]") {
					continue
				}
				key, err := t.MIDI(i)
				if err != nil || key < 0 || key > 127 {
					continue
				}
				dur := r.soundingDuration(t, i, sub)
				length := ticks(dur, r.tpq)
				if length == 0 {
					continue
				}
				attacked = true
				events = append(events,
					event{tick: at, order: 2, msg: midi.NoteOn(r.channel, uint8(key), r.velocity)},
					event{tick: at + length, order: 0, msg: midi.NoteOff(r.channel, uint8(key))},
				)
			}
		}
		if attacked && r.lyrics > 0 {
			if syl := lyricAt(l, r.lyrics); syl != "" {
				events = append(events, event{tick: at, order: 1, msg: smf.MetaLyric(syl)})
			}
		}
	}
	return finish(events)
}

// soundingDuration follows a tie chain from chord member i.
func (r *renderer) soundingDuration(t *humdrum.Token, i int, sub string) rational.Rational {
	dur, err := t.Duration()
	if err != nil {
		return rational.Zero
	}
	if !strings.Contains(sub, "[") {
		return dur
	}
	link, ok := t.TieNext(i)
	for ok {
		d, err := link.Token.Duration()
		if err != nil {
			break
		}
		dur = dur.Add(d)
		link, ok = link.Token.TieNext(link.Subtoken)
	}
	return dur
}

func lyricAt(l *humdrum.Line, track int) string {
	for _, t := range l.Tokens() {
		if t.Track() == track && !t.IsNull() {
			return t.Text()
		}
	}
	return ""
}
