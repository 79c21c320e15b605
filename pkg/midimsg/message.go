// Package midimsg turns raw MIDI channel message bytes into structured events
package midimsg

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/james-see/chordlab/pkg/theory"
	"gitlab.com/gomidi/midi/v2"
)

// Type is the kind of a parsed channel message
type Type string

const (
	NoteOn        Type = "note-on"
	NoteOff       Type = "note-off"
	ControlChange Type = "control-change"
	ProgramChange Type = "program-change"
	Unknown       Type = "unknown"
)

// Status nibbles
const (
	statusNoteOff       = 0x8
	statusNoteOn        = 0x9
	statusControlChange = 0xB
	statusProgramChange = 0xC
)

// Message is a parsed channel message. Optional fields are nil when the type does not carry them.
type Message struct {
	Timestamp     time.Time `json:"timestamp"`
	Channel       uint8     `json:"channel"` // 1-16
	Type          Type      `json:"type"`
	NoteNumber    *uint8    `json:"noteNumber,omitempty"`
	NoteName      *string   `json:"noteName,omitempty"`
	Velocity      *uint8    `json:"velocity,omitempty"`
	ControlNumber *uint8    `json:"controlNumber,omitempty"`
	ControlValue  *uint8    `json:"controlValue,omitempty"`
	ProgramNumber *uint8    `json:"programNumber,omitempty"`
	RawData       []byte    `json:"rawData"`
}

// ParseChannelMessage parses a 2-3 byte channel message.
// It returns nil for empty input, a missing status byte or missing data bytes.
// Trailing bytes are kept in RawData only.
func ParseChannelMessage(data []byte, ts time.Time) *Message {
	if len(data) == 0 || data[0] < 0x80 {
		return nil
	}

	status := data[0]
	res := &Message{
		Timestamp: ts,
		Channel:   status&0x0F + 1,
		Type:      Unknown,
		RawData:   append([]byte(nil), data...),
	}

	var ch, key, vel, ctl, val, prog uint8

	switch status >> 4 {
	case statusNoteOn, statusNoteOff:
		msg, ok := dataBytes(data, 3)
		if !ok {
			return nil
		}
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			res.Type = NoteOn
		case msg.GetNoteEnd(&ch, &key):
			// note-on with velocity 0 lands here too
			res.Type = NoteOff
			vel = data[2]
		default:
			return nil
		}
		name := theory.NoteNameWithOctave(int(key))
		res.NoteNumber = &key
		res.NoteName = &name
		res.Velocity = &vel
	case statusControlChange:
		msg, ok := dataBytes(data, 3)
		if !ok || !msg.GetControlChange(&ch, &ctl, &val) {
			return nil
		}
		res.Type = ControlChange
		res.ControlNumber = &ctl
		res.ControlValue = &val
	case statusProgramChange:
		msg, ok := dataBytes(data, 2)
		if !ok || !msg.GetProgramChange(&ch, &prog) {
			return nil
		}
		res.Type = ProgramChange
		res.ProgramNumber = &prog
	}

	return res
}

// dataBytes returns the first n bytes of data as a message. Bytes past n are ignored.
// It fails when data is shorter than n or a data byte has the status bit set.
func dataBytes(data []byte, n int) (midi.Message, bool) {
	if len(data) < n {
		return nil, false
	}
	for _, b := range data[1:n] {
		if b >= 0x80 {
			return nil, false
		}
	}
	return midi.Message(data[:n]), true
}

// Note returns the note number for note-on/note-off messages
func (m *Message) Note() (int, bool) {
	if m == nil || m.NoteNumber == nil {
		return 0, false
	}
	return int(*m.NoteNumber), true
}

func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	var s strings.Builder
	fmt.Fprintf(&s, "ch%d %s", m.Channel, m.Type)
	switch m.Type {
	case NoteOn, NoteOff:
		fmt.Fprintf(&s, " %s(%d) vel=%d", *m.NoteName, *m.NoteNumber, *m.Velocity)
	case ControlChange:
		fmt.Fprintf(&s, " cc%d=%d", *m.ControlNumber, *m.ControlValue)
	case ProgramChange:
		fmt.Fprintf(&s, " program=%d", *m.ProgramNumber)
	default:
		fmt.Fprintf(&s, " % X", m.RawData)
	}
	return s.String()
}

// ParseHex reads message bytes written in hex, e.g. "90 3C 64", "0x90,0x3c,0x64" or "903C64"
func ParseHex(s string) ([]byte, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no bytes in %q", s)
	}

	var res []byte
	for _, f := range fields {
		f = strings.TrimPrefix(strings.ToLower(f), "0x")
		if len(f)%2 == 1 {
			f = "0" + f
		}
		b, err := hex.DecodeString(f)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", f, err)
		}
		res = append(res, b...)
	}
	return res, nil
}
