package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var progression = [][]int{
	{60, 64, 67},     // C
	{57, 60, 64},     // Am
	{53, 57, 60, 64}, // Fmaj7
	{55, 59, 62, 65}, // G7
}

func captureProgression(t *testing.T) []Snapshot {
	t.Helper()
	snaps := CaptureAll(detector.New(nil), progression, time.Unix(0, 0))
	require.Len(t, snaps, 4)
	return snaps
}

func TestCapture(t *testing.T) {
	info := detector.Detect([]int{64, 60, 67, 60})
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	snap, ok := Capture(info, []int{64, 60, 67, 60}, at)
	require.True(t, ok)

	_, err := uuid.Parse(snap.ID)
	assert.NoError(t, err)
	assert.Equal(t, at, snap.CapturedAt)
	assert.Equal(t, "C Major", snap.ChordName)
	assert.Equal(t, "C", snap.Root)
	assert.Equal(t, "Maj", snap.Quality)
	assert.Equal(t, []int{60, 64, 67}, snap.Notes)
	assert.Equal(t, []string{"C4", "E4", "G4"}, snap.NoteNames)

	_, ok = Capture(nil, []int{60}, at)
	assert.False(t, ok)
}

func TestCaptureAllSkipsNonChords(t *testing.T) {
	snaps := CaptureAll(detector.New(nil), [][]int{{60, 64, 67}, {60, 61}, {59, 62, 65}}, time.Now())
	require.Len(t, snaps, 2)
	assert.Equal(t, "B Diminished", snaps[1].ChordName)
	assert.NotEqual(t, snaps[0].ID, snaps[1].ID)
}

func TestExtensions(t *testing.T) {
	snaps := captureProgression(t)
	assert.Empty(t, snaps[0].Extensions())
	assert.Equal(t, []string{"maj7"}, snaps[2].Extensions())
	assert.Equal(t, []string{"7"}, snaps[3].Extensions())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"chords.json", FormatJSON},
		{"chords.txt", FormatText},
		{"chords.mid", FormatMIDI},
		{"chords.MIDI", FormatMIDI},
		{"chords.pdf", FormatUnknown},
		{"chords", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.filename))
		})
	}

	assert.Equal(t, FormatMIDI, ParseFormat("mid"))
	assert.Equal(t, FormatText, ParseFormat(".text"))
	assert.Equal(t, FormatUnknown, ParseFormat("pdf"))
}

func TestExportJSON(t *testing.T) {
	snaps := captureProgression(t)
	data, err := New().Export(snaps, FormatJSON)
	require.NoError(t, err)

	var back []Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 4)
	assert.Equal(t, "A Minor", back[1].ChordName)
	assert.Equal(t, FormatJSON, DetectFormatFromContent(data))
}

func TestExportChart(t *testing.T) {
	data, err := New().Export(captureProgression(t), FormatText)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "C Major")
	assert.Contains(t, lines[0], "[C4 E4 G4]")
	assert.Contains(t, lines[2], "+maj7")
	assert.Contains(t, lines[3], "G Major")
}

func TestExportErrors(t *testing.T) {
	_, err := New().Export(nil, FormatJSON)
	assert.ErrorIs(t, err, ErrNoChords)

	_, err = New().Export(captureProgression(t), FormatUnknown)
	assert.Error(t, err)
}

func TestMIDIRoundTrip(t *testing.T) {
	snaps := captureProgression(t)
	data, err := New().Export(snaps, FormatMIDI)
	require.NoError(t, err)
	assert.Equal(t, FormatMIDI, DetectFormatFromContent(data))

	scanned, err := ScanSMF(data)
	require.NoError(t, err)
	require.Len(t, scanned, len(snaps))

	for i := range snaps {
		assert.Equal(t, snaps[i].ChordName, scanned[i].ChordName)
		assert.Equal(t, snaps[i].Notes, scanned[i].Notes)
	}

	// one bar at 120 BPM is two seconds
	assert.Equal(t, time.Duration(0), scanned[0].Offset)
	assert.Equal(t, 2*time.Second, scanned[1].Offset)
	assert.Equal(t, 6*time.Second, scanned[3].Offset)
}

func TestMIDIRejectsOutOfRangeNotes(t *testing.T) {
	for _, notes := range [][]int{{64, 67, 300}, {204, 64, 67}, {-1, 64, 67}} {
		snaps := CaptureAll(detector.New(nil), [][]int{{60, 64, 67}, notes}, time.Now())
		require.Len(t, snaps, 2)

		_, err := New().Export(snaps, FormatMIDI)
		assert.ErrorIs(t, err, ErrNoteRange)

		// the other formats carry any note number
		_, err = New().Export(snaps, FormatJSON)
		assert.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "chords.mid")
	snaps := CaptureAll(detector.New(nil), [][]int{{64, 67, 300}}, time.Now())
	assert.ErrorIs(t, New().ExportFile(snaps, path), ErrNoteRange)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestScanSMFRejectsGarbage(t *testing.T) {
	_, err := ScanSMF([]byte("not a midi file"))
	assert.Error(t, err)
}

func TestExportFileAndLoad(t *testing.T) {
	dir := t.TempDir()
	snaps := captureProgression(t)
	ex := New()

	for _, name := range []string{"chords.json", "chords.mid"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, ex.ExportFile(snaps, path))

			loaded, err := ex.LoadFile(path)
			require.NoError(t, err)
			require.Len(t, loaded, 4)
			assert.Equal(t, "G Major", loaded[3].ChordName)
		})
	}

	txt := filepath.Join(dir, "chords.txt")
	require.NoError(t, ex.ExportFile(snaps, txt))
	_, err := ex.LoadFile(txt)
	assert.Error(t, err)

	assert.Error(t, ex.ExportFile(snaps, filepath.Join(dir, "chords.pdf")))
	_, err = os.Stat(filepath.Join(dir, "chords.pdf"))
	assert.True(t, os.IsNotExist(err))
}
