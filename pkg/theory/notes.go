// Package theory holds the note names and chord qualities the rest of chordlab is built on
package theory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NoteName is one of the 12 chromatic pitch classes, C = 0 through B = 11
type NoteName int

const (
	C NoteName = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// NumPitchClasses is the number of notes in one octave
const NumPitchClasses = 12

// ErrUnknownNote is returned when a note name cannot be parsed
var ErrUnknownNote = errors.New("unknown note name")

var noteNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNames returns the 12 pitch classes in chromatic order
func NoteNames() []NoteName {
	res := make([]NoteName, NumPitchClasses)
	for i := range res {
		res[i] = NoteName(i)
	}
	return res
}

// NaturalNotes returns the 7 natural notes in chromatic order
func NaturalNotes() []NoteName {
	return []NoteName{C, D, E, F, G, A, B}
}

// Valid reports whether n is one of the 12 pitch classes
func (n NoteName) Valid() bool {
	return n >= C && n <= B
}

// IsNatural reports whether n has no sharp
func (n NoteName) IsNatural() bool {
	return n.Valid() && !strings.HasSuffix(noteNames[n], "#")
}

func (n NoteName) String() string {
	if !n.Valid() {
		return "-"
	}
	return noteNames[n]
}

// ParseNoteName parses "C", "c#", "F#" etc. Flats are not accepted.
func ParseNoteName(s string) (NoteName, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range noteNames {
		if s == name {
			return NoteName(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNote, s)
}

// PitchClass maps any integer note number onto 0-11
func PitchClass(midiNote int) int {
	return ((midiNote % NumPitchClasses) + NumPitchClasses) % NumPitchClasses
}

// Octave returns the octave number of a MIDI note, so that 60 is in octave 4
func Octave(midiNote int) int {
	return floorDiv(midiNote, NumPitchClasses) - 1
}

// BaseNoteName returns the pitch class of a MIDI note without octave
func BaseNoteName(midiNote int) NoteName {
	return NoteName(PitchClass(midiNote))
}

// NoteNameWithOctave returns e.g. "C4" for 60 and "C#4" for 61.
// Values outside 0-127 use the same formula.
func NoteNameWithOctave(midiNote int) string {
	return noteNames[PitchClass(midiNote)] + strconv.Itoa(Octave(midiNote))
}

// ParseNoteWithOctave is the inverse of NoteNameWithOctave ("C4" -> 60)
func ParseNoteWithOctave(s string) (int, error) {
	s = strings.TrimSpace(s)
	split := 1
	if len(s) > 1 && s[1] == '#' {
		split = 2
	}
	if len(s) <= split {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNote, s)
	}
	name, err := ParseNoteName(s[:split])
	if err != nil {
		return 0, err
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return 0, fmt.Errorf("%w: bad octave in %q", ErrUnknownNote, s)
	}
	return (octave+1)*NumPitchClasses + int(name), nil
}

// ParseNoteList reads MIDI notes separated by spaces or commas. Each field is either
// a number ("60") or a name with octave ("C4").
func ParseNoteList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	res := make([]int, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			res = append(res, n)
			continue
		}
		n, err := ParseNoteWithOctave(f)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
