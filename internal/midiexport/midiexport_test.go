package midiexport

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/starford/humkit/pkg/humdrum"
)

const song = "!!!OTL: Little song\n" +
	"**kern\t**text\t**kern\n" +
	"*Ivox\t*\t*Ipiano\n" +
	"*MM90\t*\t*MM90\n" +
	"*M3/4\t*\t*M3/4\n" +
	"4c\tla\t2.C\n" +
	"[4d\tli\t.\n" +
	"4d]\t.\t.\n" +
	"4r\t.\t4G 4B\n" +
	"*-\t*-\t*-\n"

type note struct {
	key        uint8
	start, end uint32
}

type decoded struct {
	notes  []note
	lyrics map[uint32]string
	name   string
}

func decode(t *testing.T, tr smf.Track) decoded {
	t.Helper()
	d := decoded{lyrics: map[uint32]string{}}
	open := map[uint8]uint32{}
	var now uint32
	for _, ev := range tr {
		now += ev.Delta
		var ch, key, vel uint8
		var text string
		m := midi.Message(ev.Message)
		switch {
		case m.GetNoteStart(&ch, &key, &vel):
			open[key] = now
		case m.GetNoteEnd(&ch, &key):
			d.notes = append(d.notes, note{key: key, start: open[key], end: now})
		case ev.Message.GetMetaLyric(&text):
			d.lyrics[now] = text
		case ev.Message.GetMetaTrackName(&text):
			d.name = text
		}
	}
	return d
}

func build(t *testing.T, src string, opts Options) *smf.SMF {
	t.Helper()
	f, err := humdrum.ReadString(src)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, opts); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s, err := smf.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	return s
}

func TestWrite_Tracks(t *testing.T) {
	s := build(t, song, Options{})
	if len(s.Tracks) != 3 {
		t.Fatalf("tracks = %d, want conductor + 2 kern", len(s.Tracks))
	}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); !ok || uint16(mt) != DefaultTicksPerQuarter {
		t.Errorf("time format = %v", s.TimeFormat)
	}

	var bpm float64
	var num, den uint8
	var gotTempo, gotMeter bool
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			gotTempo = true
		}
		if ev.Message.GetMetaMeter(&num, &den) {
			gotMeter = true
		}
	}
	if !gotTempo || bpm != 90 {
		t.Errorf("tempo = %v (found %v)", bpm, gotTempo)
	}
	if !gotMeter || num != 3 || den != 4 {
		t.Errorf("meter = %d/%d (found %v)", num, den, gotMeter)
	}
}

func TestWrite_NotesTiesAndLyrics(t *testing.T) {
	s := build(t, song, Options{})
	voice := decode(t, s.Tracks[1])

	want := []note{
		{key: 60, start: 0, end: 480},
		{key: 62, start: 480, end: 1440},
	}
	if len(voice.notes) != len(want) {
		t.Fatalf("notes = %+v", voice.notes)
	}
	for i, w := range want {
		if voice.notes[i] != w {
			t.Errorf("note %d = %+v, want %+v", i, voice.notes[i], w)
		}
	}
	if voice.lyrics[0] != "la" || voice.lyrics[480] != "li" || len(voice.lyrics) != 2 {
		t.Errorf("lyrics = %v", voice.lyrics)
	}
	if voice.name != "vox" {
		t.Errorf("track name = %q", voice.name)
	}

	piano := decode(t, s.Tracks[2])
	if len(piano.notes) != 3 {
		t.Fatalf("piano notes = %+v", piano.notes)
	}
	if piano.notes[0] != (note{key: 48, start: 0, end: 1440}) {
		t.Errorf("dotted half = %+v", piano.notes[0])
	}
	if len(piano.lyrics) != 0 {
		t.Errorf("piano got lyrics %v", piano.lyrics)
	}
}

func TestWrite_Options(t *testing.T) {
	s := build(t, "**kern\n2c\n*-\n", Options{TicksPerQuarter: 96, Tempo: 60})
	n := decode(t, s.Tracks[1]).notes
	if len(n) != 1 || n[0].end != 192 {
		t.Errorf("notes = %+v", n)
	}
	var bpm float64
	for _, ev := range s.Tracks[0] {
		ev.Message.GetMetaTempo(&bpm)
	}
	if bpm != 60 {
		t.Errorf("tempo = %v", bpm)
	}
}

func TestWrite_NoKern(t *testing.T) {
	f, err := humdrum.ReadString("**text\nla\n*-\n")
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(&bytes.Buffer{}, f, Options{}); !errors.Is(err, ErrNoKern) {
		t.Errorf("err = %v", err)
	}
}

func TestChannelFor(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{{0, 0}, {8, 8}, {9, 10}, {14, 15}, {15, 0}}
	for _, tt := range tests {
		if got := channelFor(tt.in); got != tt.want {
			t.Errorf("channelFor(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
