// Package voicing enumerates the keyboard voicings of a triad and names the notes of each one
package voicing

import (
	"strconv"
	"strings"

	"github.com/james-see/chordlab/pkg/theory"
)

// MaxVoicing is the highest voicing value, counted in semitones from middle C
const MaxVoicing = 60

// PlayableThreshold bounds the default voicing: the highest voicing below it is shown first
const PlayableThreshold = 2

const (
	// NoSelection is returned when no voicing is given
	NoSelection = ""
	// Invalid is returned for unknown notes, qualities or voicings
	Invalid = "-"
)

// baseOffsets are the starting voicing values of the natural notes
var baseOffsets = map[theory.NoteName]int{
	theory.C: -11,
	theory.D: -9,
	theory.E: -7,
	theory.F: -6,
	theory.G: -4,
	theory.A: -2,
	theory.B: 0,
}

// Voicing is one row of a voicing table
type Voicing struct {
	Voicing   int `json:"voicing"`
	Inversion int `json:"inversion"`
	Octave    int `json:"octave"`
}

// Table is a full voicing table with its default row
type Table struct {
	Note          theory.NoteName `json:"-"`
	NoteName      string          `json:"note"`
	Quality       theory.Quality  `json:"-"`
	QualityCode   string          `json:"quality"`
	Voicings      []Voicing       `json:"voicings"`
	FirstPlayable *int            `json:"firstPlayable"`
}

// Generator builds voicing tables from a pattern library
type Generator struct {
	lib *theory.Library
}

// New returns a Generator over lib. A nil lib means the default library.
func New(lib *theory.Library) *Generator {
	if lib == nil {
		lib = theory.DefaultLibrary()
	}
	return &Generator{lib: lib}
}

// BaseOffset returns the first voicing value of a natural note
func BaseOffset(note theory.NoteName) (int, bool) {
	v, ok := baseOffsets[note]
	return v, ok
}

// VoicingsForNote lists every voicing of the quality rooted at note, up to MaxVoicing.
// The table is empty for a sharp note or unknown quality.
func (g *Generator) VoicingsForNote(note theory.NoteName, q theory.Quality) []Voicing {
	base, ok := baseOffsets[note]
	intervals := g.lib.Intervals(q)
	if !ok || len(intervals) == 0 {
		return []Voicing{}
	}

	var values []int
	for ; ; base += theory.NumPitchClasses {
		added := false
		for _, iv := range intervals {
			if v := base + iv; v <= MaxVoicing {
				values = append(values, v)
				added = true
			}
		}
		if !added {
			break
		}
	}

	res := make([]Voicing, len(values))
	for i, v := range values {
		res[i] = Voicing{
			Voicing:   v,
			Inversion: (i + 1) % theory.IntervalsPerChord,
			Octave:    (i + 1) / theory.IntervalsPerChord,
		}
	}
	return res
}

// FirstPlayableVoicing returns the highest voicing below PlayableThreshold
func FirstPlayableVoicing(table []Voicing) (int, bool) {
	best, found := 0, false
	for _, v := range table {
		if v.Voicing < PlayableThreshold && (!found || v.Voicing > best) {
			best, found = v.Voicing, true
		}
	}
	return best, found
}

// Table builds the voicing table for note and quality together with its default row
func (g *Generator) Table(note theory.NoteName, q theory.Quality) Table {
	t := Table{
		Note:        note,
		NoteName:    note.String(),
		Quality:     q,
		QualityCode: q.Code(),
		Voicings:    g.VoicingsForNote(note, q),
	}
	if first, ok := FirstPlayableVoicing(t.Voicings); ok {
		t.FirstPlayable = &first
	}
	return t
}

// Lookup builds a table from user text. The note must parse; quality codes go
// through theory.QualityFromCode, so unknown codes give a Major table.
func (g *Generator) Lookup(noteText, qualityCode string) (Table, error) {
	note, err := theory.ParseNoteName(noteText)
	if err != nil {
		return Table{}, err
	}
	return g.Table(note, theory.QualityFromCode(qualityCode)), nil
}

// ChordNotesForVoicing names the three notes sounding at voicing v, e.g. "E0 G0 C0".
// It returns NoSelection when v is nil and Invalid for an unknown note, quality or voicing.
func (g *Generator) ChordNotesForVoicing(note theory.NoteName, v *Voicing, q theory.Quality) string {
	if v == nil {
		return NoSelection
	}
	intervals := g.lib.Intervals(q)
	if _, ok := baseOffsets[note]; !ok || len(intervals) == 0 {
		return Invalid
	}

	index := -1
	for i, row := range g.VoicingsForNote(note, q) {
		if row.Voicing == v.Voicing {
			index = i
			break
		}
	}
	if index < 0 {
		return Invalid
	}

	root := int(note)
	third := (root + intervals[1]) % theory.NumPitchClasses
	fifth := (root + intervals[2]) % theory.NumPitchClasses

	var order []int
	switch (index + 1) % theory.IntervalsPerChord {
	case theory.RootPosition:
		order = []int{root, third, fifth}
	case theory.FirstInversion:
		order = []int{third, fifth, root}
	default:
		order = []int{fifth, root, third}
	}

	names := make([]string, len(order))
	for i, pc := range order {
		octave := v.Octave
		// wrapped past B into the next octave
		if pc < root {
			octave++
		}
		names[i] = theory.NoteName(pc).String() + strconv.Itoa(octave)
	}
	return strings.Join(names, " ")
}

// FindVoicing returns the row of table with the given voicing value
func FindVoicing(table []Voicing, value int) (*Voicing, bool) {
	for i := range table {
		if table[i].Voicing == value {
			v := table[i]
			return &v, true
		}
	}
	return nil, false
}
