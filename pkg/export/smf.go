package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/james-see/chordlab/pkg/detector"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	chordChannel  = 0
	chordVelocity = 90
	beatsPerBar   = 4
)

// ErrNoteRange is returned when a snapshot holds a note a MIDI file cannot carry
var ErrNoteRange = errors.New("note outside MIDI range 0-127")

// GenerateMIDI writes one bar of block chord per snapshot
func (e *Exporter) GenerateMIDI(snaps []Snapshot) ([]byte, error) {
	for _, snap := range snaps {
		for _, n := range snap.Notes {
			if n < 0 || n > 127 {
				return nil, fmt.Errorf("%w: %d in %s", ErrNoteRange, n, snap.ChordName)
			}
		}
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(e.ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(e.tempo))

	barTicks := uint32(e.ticksPerQuarter) * beatsPerBar
	var rest uint32

	for _, snap := range snaps {
		if len(snap.Notes) == 0 {
			rest += barTicks
			continue
		}

		track.Add(rest, smf.MetaMarker(snap.ChordName))
		for _, n := range snap.Notes {
			track.Add(0, midi.NoteOn(chordChannel, uint8(n), chordVelocity))
		}
		for i, n := range snap.Notes {
			delta := uint32(0)
			if i == 0 {
				delta = barTicks
			}
			track.Add(delta, midi.NoteOff(chordChannel, uint8(n)))
		}
		rest = 0
	}

	track.Close(rest)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

type noteEvent struct {
	tick int64
	note int
	off  bool
}

// ScanSMF replays the note events of every track and captures each chord change.
// Events at the same tick are applied together, note-offs first.
func ScanSMF(data []byte) ([]Snapshot, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	var events []noteEvent
	for _, track := range s.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				events = append(events, noteEvent{tick: absTicks, note: int(key)})
			case msg.GetNoteEnd(&ch, &key):
				events = append(events, noteEvent{tick: absTicks, note: int(key), off: true})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	det := detector.New(nil)
	pressed := make(map[int]int)
	var snaps []Snapshot
	var prev string

	for i := 0; i < len(events); {
		tick := events[i].tick
		for ; i < len(events) && events[i].tick == tick; i++ {
			ev := events[i]
			if ev.off {
				if pressed[ev.note] > 1 {
					pressed[ev.note]--
				} else {
					delete(pressed, ev.note)
				}
				continue
			}
			pressed[ev.note]++
		}

		notes := make([]int, 0, len(pressed))
		for n := range pressed {
			notes = append(notes, n)
		}
		sort.Ints(notes)

		info := det.Detect(notes)
		if info == nil {
			prev = ""
			continue
		}
		key := fmt.Sprint(info.ChordName, notes)
		if key == prev {
			continue
		}
		prev = key

		offset := time.Duration(s.TimeAt(tick)) * time.Microsecond
		if snap, ok := Capture(info, notes, time.Time{}); ok {
			snap.Offset = offset
			snaps = append(snaps, snap)
		}
	}

	return snaps, nil
}
