// Package detector identifies triads, their inversion and extension tones from held MIDI notes
package detector

import (
	"slices"

	"github.com/james-see/chordlab/pkg/theory"
)

// Inversion labels
const (
	InversionRoot   = "Root"
	InversionFirst  = "1st"
	InversionSecond = "2nd"
	InversionThird  = "3rd"
)

// MinNotes is the number of distinct notes needed before anything is detected
const MinNotes = 3

// intervals reserved for extension tones
const (
	ninth        = 2
	sixth        = 9
	seventh      = 10
	majorSeventh = 11
	perfectForth = 5
)

// ChordInfo is the result of a detection
type ChordInfo struct {
	ChordName       string          `json:"chordName"`
	Root            theory.NoteName `json:"-"`
	RootName        string          `json:"root"`
	Quality         theory.Quality  `json:"-"`
	QualityCode     string          `json:"quality"`
	Inversion       string          `json:"inversion"`
	BassNote        string          `json:"bassNote"`
	HasSixth        bool            `json:"hasSixth"`
	HasSeventh      bool            `json:"hasSeventh"`
	HasMajorSeventh bool            `json:"hasMajorSeventh"`
	HasNinth        bool            `json:"hasNinth"`
}

// Detector matches note sets against a pattern library
type Detector struct {
	lib *theory.Library
}

// New returns a Detector over lib. A nil lib means the default library.
func New(lib *theory.Library) *Detector {
	if lib == nil {
		lib = theory.DefaultLibrary()
	}
	return &Detector{lib: lib}
}

var defaultDetector = New(nil)

// Detect runs the default detector
func Detect(notes []int) *ChordInfo {
	return defaultDetector.Detect(notes)
}

// Detect identifies the chord formed by notes, or returns nil when they form none.
// The first candidate root, in the order its pitch class first appears, that matches wins.
func (d *Detector) Detect(notes []int) *ChordInfo {
	unique := dedupe(notes)
	if len(unique) < MinNotes {
		return nil
	}

	pitchClasses := uniquePitchClasses(unique)
	lowest := slices.Min(unique)

	for _, root := range pitchClasses {
		intervals := normalize(pitchClasses, root)
		q, ok := d.match(intervals)
		if !ok {
			continue
		}

		def, _ := d.lib.Def(q)
		rootName := theory.NoteName(root)
		info := &ChordInfo{
			ChordName:   rootName.String() + " " + def.Name,
			Root:        rootName,
			RootName:    rootName.String(),
			Quality:     q,
			QualityCode: def.Code,
			Inversion:   inversionLabel(theory.PitchClass(lowest - root)),
			BassNote:    theory.NoteNameWithOctave(lowest),
		}
		info.HasSixth = slices.Contains(intervals, sixth)
		info.HasSeventh = slices.Contains(intervals, seventh)
		info.HasMajorSeventh = slices.Contains(intervals, majorSeventh)
		info.HasNinth = slices.Contains(intervals, ninth) || hasCompoundNinth(unique, lowest)
		return info
	}

	return nil
}

// match compares the first three non-ninth intervals against every inversion pattern
func (d *Detector) match(intervals []int) (theory.Quality, bool) {
	core := make([]int, 0, theory.IntervalsPerChord)
	for _, iv := range intervals {
		if iv == ninth {
			continue
		}
		core = append(core, iv)
		if len(core) == theory.IntervalsPerChord {
			break
		}
	}
	if len(core) < theory.IntervalsPerChord {
		return 0, false
	}
	candidate := theory.Pattern{core[0], core[1], core[2]}

	for _, q := range d.lib.Qualities() {
		patterns, _ := d.lib.Inversions(q)
		for _, p := range patterns {
			if p != candidate {
				continue
			}
			// a sus4 shape needs the perfect fourth in second place
			if q == theory.Sus4 && candidate[1] != perfectForth {
				continue
			}
			return q, true
		}
	}
	return 0, false
}

func inversionLabel(bassOffset int) string {
	switch bassOffset {
	case 3, 4:
		return InversionFirst
	case 6, 7:
		return InversionSecond
	case 10, 11:
		return InversionThird
	default:
		return InversionRoot
	}
}

// hasCompoundNinth catches a ninth voiced more than an octave above the bass
func hasCompoundNinth(notes []int, lowest int) bool {
	for _, n := range notes {
		offset := n - lowest
		if offset > 12 && offset%12 == ninth {
			return true
		}
	}
	return false
}

// dedupe drops exact repeats and keeps first-appearance order
func dedupe(notes []int) []int {
	seen := make(map[int]bool, len(notes))
	res := make([]int, 0, len(notes))
	for _, n := range notes {
		if seen[n] {
			continue
		}
		seen[n] = true
		res = append(res, n)
	}
	return res
}

func uniquePitchClasses(notes []int) []int {
	seen := [theory.NumPitchClasses]bool{}
	res := make([]int, 0, theory.NumPitchClasses)
	for _, n := range notes {
		pc := theory.PitchClass(n)
		if seen[pc] {
			continue
		}
		seen[pc] = true
		res = append(res, pc)
	}
	return res
}

// normalize returns the intervals above root, ascending. This is the pitch-class
// circle rotated so that root comes first.
func normalize(pitchClasses []int, root int) []int {
	res := make([]int, len(pitchClasses))
	for i, pc := range pitchClasses {
		res[i] = (pc - root + theory.NumPitchClasses) % theory.NumPitchClasses
	}
	slices.Sort(res)
	return res
}
