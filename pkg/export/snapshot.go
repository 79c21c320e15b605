// Package export captures detected chords and writes them out as JSON, a text chart or a MIDI file
package export

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/james-see/chordlab/pkg/theory"
)

// Snapshot is one captured chord
type Snapshot struct {
	ID              string        `json:"id"`
	CapturedAt      time.Time     `json:"capturedAt"`
	Offset          time.Duration `json:"offset,omitempty"` // position inside a scanned file
	ChordName       string        `json:"chordName"`
	Root            string        `json:"root"`
	Quality         string        `json:"quality"`
	Inversion       string        `json:"inversion"`
	BassNote        string        `json:"bassNote"`
	HasSixth        bool          `json:"hasSixth"`
	HasSeventh      bool          `json:"hasSeventh"`
	HasMajorSeventh bool          `json:"hasMajorSeventh"`
	HasNinth        bool          `json:"hasNinth"`
	Notes           []int         `json:"notes"`
	NoteNames       []string      `json:"noteNames"`
}

// Capture freezes a detection result together with the notes that produced it.
// It reports false when info is nil.
func Capture(info *detector.ChordInfo, notes []int, at time.Time) (Snapshot, bool) {
	if info == nil {
		return Snapshot{}, false
	}

	sorted := slices.Clone(notes)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	names := make([]string, len(sorted))
	for i, n := range sorted {
		names[i] = theory.NoteNameWithOctave(n)
	}

	return Snapshot{
		ID:              uuid.New().String(),
		CapturedAt:      at,
		ChordName:       info.ChordName,
		Root:            info.RootName,
		Quality:         info.QualityCode,
		Inversion:       info.Inversion,
		BassNote:        info.BassNote,
		HasSixth:        info.HasSixth,
		HasSeventh:      info.HasSeventh,
		HasMajorSeventh: info.HasMajorSeventh,
		HasNinth:        info.HasNinth,
		Notes:           sorted,
		NoteNames:       names,
	}, true
}

// CaptureAll detects each note set and keeps the ones that form a chord
func CaptureAll(det *detector.Detector, noteSets [][]int, at time.Time) []Snapshot {
	res := make([]Snapshot, 0, len(noteSets))
	for _, notes := range noteSets {
		if snap, ok := Capture(det.Detect(notes), notes, at); ok {
			res = append(res, snap)
		}
	}
	return res
}

// Extensions lists the extension tones as short labels ("6", "7", "maj7", "9")
func (s Snapshot) Extensions() []string {
	var res []string
	if s.HasSixth {
		res = append(res, "6")
	}
	if s.HasSeventh {
		res = append(res, "7")
	}
	if s.HasMajorSeventh {
		res = append(res, "maj7")
	}
	if s.HasNinth {
		res = append(res, "9")
	}
	return res
}
