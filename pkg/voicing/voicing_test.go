package voicing

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/james-see/chordlab/pkg/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(table []Voicing) []int {
	res := make([]int, len(table))
	for i, v := range table {
		res[i] = v.Voicing
	}
	return res
}

func TestCMajorTable(t *testing.T) {
	table := New(nil).VoicingsForNote(theory.C, theory.Major)

	assert.Equal(t, []int{
		-11, -7, -4, 1, 5, 8, 13, 17, 20, 25, 29, 32, 37, 41, 44, 49, 53, 56,
	}, values(table))

	assert.Equal(t, Voicing{Voicing: -11, Inversion: 1, Octave: 0}, table[0])
	assert.Equal(t, Voicing{Voicing: -7, Inversion: 2, Octave: 0}, table[1])
	assert.Equal(t, Voicing{Voicing: -4, Inversion: 0, Octave: 1}, table[2])
	assert.Equal(t, Voicing{Voicing: 1, Inversion: 1, Octave: 1}, table[3])
}

func TestTableShape(t *testing.T) {
	g := New(nil)
	for _, note := range theory.NaturalNotes() {
		for _, q := range theory.DefaultLibrary().Qualities() {
			t.Run(fmt.Sprintf("%s %s", note, q), func(t *testing.T) {
				table := g.VoicingsForNote(note, q)
				require.NotEmpty(t, table)

				base, _ := BaseOffset(note)
				assert.Equal(t, base, table[0].Voicing)

				for i, v := range table {
					assert.LessOrEqual(t, v.Voicing, MaxVoicing)
					assert.Equal(t, (i+1)%3, v.Inversion)
					assert.Equal(t, (i+1)/3, v.Octave)
					if i > 0 {
						assert.Greater(t, v.Voicing, table[i-1].Voicing)
					}
					if i >= 3 {
						assert.Equal(t, 12, v.Voicing-table[i-3].Voicing)
					}
				}

				// nothing reachable was left out
				last := table[len(table)-1].Voicing
				for _, iv := range theory.DefaultLibrary().Intervals(q) {
					for b := base; b+iv <= MaxVoicing; b += 12 {
						assert.LessOrEqual(t, b+iv, last)
					}
				}
			})
		}
	}
}

func TestTableReachesUpperBound(t *testing.T) {
	table := New(nil).VoicingsForNote(theory.B, theory.Major)
	require.Len(t, table, 16)
	assert.Equal(t, MaxVoicing, table[len(table)-1].Voicing)
}

func TestInvalidInputsGiveEmptyTable(t *testing.T) {
	g := New(nil)
	assert.Empty(t, g.VoicingsForNote(theory.CSharp, theory.Major))
	assert.Empty(t, g.VoicingsForNote(theory.NoteName(20), theory.Major))
	assert.Empty(t, g.VoicingsForNote(theory.C, theory.Quality(9)))
}

func TestFirstPlayableVoicing(t *testing.T) {
	g := New(nil)
	tests := []struct {
		note     theory.NoteName
		quality  theory.Quality
		expected int
	}{
		{theory.C, theory.Major, 1},
		{theory.B, theory.Major, 0},
		{theory.G, theory.Major, 0},
		{theory.A, theory.Minor, 1},
		{theory.F, theory.Sus4, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.note, tt.quality), func(t *testing.T) {
			got, ok := FirstPlayableVoicing(g.VoicingsForNote(tt.note, tt.quality))
			require.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, ok := FirstPlayableVoicing([]Voicing{{Voicing: 5}, {Voicing: 9}})
	assert.False(t, ok)
	_, ok = FirstPlayableVoicing(nil)
	assert.False(t, ok)
}

func TestChordNotesForVoicing(t *testing.T) {
	g := New(nil)
	tests := []struct {
		name     string
		note     theory.NoteName
		quality  theory.Quality
		voicing  int
		expected string
	}{
		{"C major first row", theory.C, theory.Major, -11, "E0 G0 C0"},
		{"C major second inversion", theory.C, theory.Major, -7, "G0 C0 E0"},
		{"C major root position", theory.C, theory.Major, -4, "C1 E1 G1"},
		{"C major default row", theory.C, theory.Major, 1, "E1 G1 C1"},
		{"A minor wraps past B", theory.A, theory.Minor, -2, "C1 E1 A0"},
		{"G major wraps the fifth", theory.G, theory.Major, -4, "B0 D1 G0"},
		{"B diminished", theory.B, theory.Diminished, 0, "D1 F1 B0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := g.VoicingsForNote(tt.note, tt.quality)
			v, ok := FindVoicing(table, tt.voicing)
			require.True(t, ok)
			assert.Equal(t, tt.expected, g.ChordNotesForVoicing(tt.note, v, tt.quality))
		})
	}
}

func TestChordNotesRoundTrip(t *testing.T) {
	g := New(nil)
	lib := theory.DefaultLibrary()
	for _, note := range theory.NaturalNotes() {
		for _, q := range lib.Qualities() {
			want := map[string]bool{}
			for _, iv := range lib.Intervals(q) {
				want[theory.NoteName((int(note)+iv)%12).String()] = true
			}

			for _, row := range g.VoicingsForNote(note, q) {
				v := row
				got := g.ChordNotesForVoicing(note, &v, q)
				assert.Equal(t, got, g.ChordNotesForVoicing(note, &v, q))

				parts := strings.Fields(got)
				require.Len(t, parts, 3, got)
				seen := map[string]bool{}
				names := map[string]bool{}
				for _, p := range parts {
					assert.False(t, seen[p], "duplicate %s in %s", p, got)
					seen[p] = true
					midi, err := theory.ParseNoteWithOctave(p)
					require.NoError(t, err)
					names[theory.BaseNoteName(midi).String()] = true
				}
				assert.Equal(t, want, names, "%s %s voicing %d", note, q, v.Voicing)
			}
		}
	}
}

func TestChordNotesSentinels(t *testing.T) {
	g := New(nil)
	assert.Equal(t, NoSelection, g.ChordNotesForVoicing(theory.C, nil, theory.Major))
	assert.Equal(t, Invalid, g.ChordNotesForVoicing(theory.CSharp, &Voicing{Voicing: 1}, theory.Major))
	assert.Equal(t, Invalid, g.ChordNotesForVoicing(theory.C, &Voicing{Voicing: 1}, theory.Quality(7)))
	assert.Equal(t, Invalid, g.ChordNotesForVoicing(theory.C, &Voicing{Voicing: 2}, theory.Major))
}

func TestLookup(t *testing.T) {
	g := New(nil)

	table, err := g.Lookup("a", "Min")
	require.NoError(t, err)
	assert.Equal(t, "A", table.NoteName)
	assert.Equal(t, "Min", table.QualityCode)
	require.NotNil(t, table.FirstPlayable)
	assert.Equal(t, 1, *table.FirstPlayable)

	// unknown codes fall back to Major
	table, err = g.Lookup("C", "Aug")
	require.NoError(t, err)
	assert.Equal(t, theory.Major, table.Quality)
	assert.Equal(t, -11, table.Voicings[0].Voicing)

	_, err = g.Lookup("X", "Maj")
	assert.True(t, errors.Is(err, theory.ErrUnknownNote))

	table, err = g.Lookup("C#", "Maj")
	require.NoError(t, err)
	assert.Empty(t, table.Voicings)
	assert.Nil(t, table.FirstPlayable)
}
