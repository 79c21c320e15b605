package theory

import (
	"errors"
	"fmt"
	"strings"
)

// Quality is a triad quality
type Quality int

const (
	Major Quality = iota
	Minor
	Diminished
	Sus4
)

// IntervalsPerChord is the number of root position intervals every quality must define
const IntervalsPerChord = 3

var (
	// ErrIntervalCount means a quality was defined with other than 3 intervals
	ErrIntervalCount = errors.New("chord quality must have exactly 3 intervals")
	// ErrUnknownQuality is returned by ParseQuality
	ErrUnknownQuality = errors.New("unknown chord quality")
)

// QualityDef is one row of the pattern table
type QualityDef struct {
	Quality   Quality
	Name      string
	Code      string
	Intervals []int
}

// Inversion pattern indexes
const (
	RootPosition = iota
	FirstInversion
	SecondInversion
)

// Pattern is one ordered rotation of a quality's intervals
type Pattern [IntervalsPerChord]int

// DefaultQualities is the built-in pattern table
var DefaultQualities = []QualityDef{
	{Quality: Major, Name: "Major", Code: "Maj", Intervals: []int{0, 4, 7}},
	{Quality: Minor, Name: "Minor", Code: "Min", Intervals: []int{0, 3, 7}},
	{Quality: Diminished, Name: "Diminished", Code: "Dim", Intervals: []int{0, 3, 6}},
	{Quality: Sus4, Name: "Sus4", Code: "Sus", Intervals: []int{0, 5, 7}},
}

// codeToQuality is the exhaustive short code table used by QualityFromCode
var codeToQuality = map[string]Quality{
	"Maj": Major,
	"Min": Minor,
	"Dim": Diminished,
	"Sus": Sus4,
}

type entry struct {
	def        QualityDef
	inversions [3]Pattern
}

// Library is the derived, read-only pattern table. It is safe to share between goroutines.
type Library struct {
	order   []Quality
	entries map[Quality]entry
}

// NewLibrary derives the inversion patterns for every definition
func NewLibrary(defs []QualityDef) (*Library, error) {
	lib := &Library{entries: make(map[Quality]entry, len(defs))}
	for _, def := range defs {
		inv, err := Inversions(def.Intervals)
		if err != nil {
			return nil, fmt.Errorf("quality %s: %w", def.Name, err)
		}
		d := def
		d.Intervals = append([]int(nil), def.Intervals...)
		lib.entries[def.Quality] = entry{def: d, inversions: inv}
		lib.order = append(lib.order, def.Quality)
	}
	return lib, nil
}

// MustLibrary is like NewLibrary but panics on a bad table
func MustLibrary(defs []QualityDef) *Library {
	lib, err := NewLibrary(defs)
	if err != nil {
		panic("theory: invalid chord pattern table: " + err.Error())
	}
	return lib
}

var defaultLibrary = MustLibrary(DefaultQualities)

// DefaultLibrary returns the library built from DefaultQualities
func DefaultLibrary() *Library {
	return defaultLibrary
}

// Inversions computes root position, first and second inversion of a 3 interval pattern.
// first = [b, c, a+12], second = [c, a+12, b+12]
func Inversions(intervals []int) ([3]Pattern, error) {
	var res [3]Pattern
	if len(intervals) != IntervalsPerChord {
		return res, fmt.Errorf("%w: got %d", ErrIntervalCount, len(intervals))
	}
	a, b, c := intervals[0], intervals[1], intervals[2]
	res[RootPosition] = Pattern{a, b, c}
	res[FirstInversion] = Pattern{b, c, a + 12}
	res[SecondInversion] = Pattern{c, a + 12, b + 12}
	return res, nil
}

// Qualities returns the qualities in table order
func (l *Library) Qualities() []Quality {
	return append([]Quality(nil), l.order...)
}

// Has reports whether q is defined
func (l *Library) Has(q Quality) bool {
	_, ok := l.entries[q]
	return ok
}

// Def returns the table row for q
func (l *Library) Def(q Quality) (QualityDef, bool) {
	e, ok := l.entries[q]
	if !ok {
		return QualityDef{}, false
	}
	d := e.def
	d.Intervals = append([]int(nil), e.def.Intervals...)
	return d, true
}

// Intervals returns the root position intervals of q, nil if unknown
func (l *Library) Intervals(q Quality) []int {
	e, ok := l.entries[q]
	if !ok {
		return nil
	}
	return append([]int(nil), e.def.Intervals...)
}

// Inversions returns the 3 inversion patterns of q
func (l *Library) Inversions(q Quality) ([3]Pattern, bool) {
	e, ok := l.entries[q]
	return e.inversions, ok
}

func (q Quality) String() string {
	if d, ok := defaultLibrary.Def(q); ok {
		return d.Name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Code returns the short display code (Maj/Min/Dim/Sus)
func (q Quality) Code() string {
	if d, ok := defaultLibrary.Def(q); ok {
		return d.Code
	}
	return "-"
}

// QualityFromCode maps a short code to a quality.
// Unrecognized codes give Major; callers pass unvalidated input and rely on that.
func QualityFromCode(code string) Quality {
	if q, ok := codeToQuality[code]; ok {
		return q
	}
	return Major
}

// ParseQuality accepts a full name or short code, case-insensitive
func ParseQuality(s string) (Quality, error) {
	s = strings.TrimSpace(s)
	for _, def := range DefaultQualities {
		if strings.EqualFold(s, def.Name) || strings.EqualFold(s, def.Code) {
			return def.Quality, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
}
