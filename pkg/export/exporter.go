package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format represents an export file format
type Format string

const (
	FormatJSON    Format = "json"
	FormatText    Format = "txt"
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// ErrNoChords is returned when there is nothing to export
var ErrNoChords = errors.New("no chords to export")

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatText
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// ParseFormat maps a format name such as "json", "txt", "mid" or "midi"
func ParseFormat(name string) Format {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return FormatJSON
	case "txt", "text":
		return FormatText
	case "mid", "midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent sniffs data that can be read back with Load
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatUnknown
}

// Extension returns the file extension for a format
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatText:
		return ".txt"
	case FormatMIDI:
		return ".mid"
	default:
		return ""
	}
}

// ContentType returns the MIME type for a format
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatMIDI:
		return "audio/midi"
	default:
		return "application/octet-stream"
	}
}

// GetSupportedFormats returns the export format names
func GetSupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatText), string(FormatMIDI)}
}

// Exporter writes snapshots in the supported formats
type Exporter struct {
	ticksPerQuarter uint16
	tempo           float64
}

// New creates an Exporter writing MIDI at 480 ticks per quarter and 120 BPM
func New() *Exporter {
	return &Exporter{
		ticksPerQuarter: 480,
		tempo:           120.0,
	}
}

// Export encodes snaps in format f
func (e *Exporter) Export(snaps []Snapshot, f Format) ([]byte, error) {
	if len(snaps) == 0 {
		return nil, ErrNoChords
	}

	switch f {
	case FormatJSON:
		return json.MarshalIndent(snaps, "", "  ")
	case FormatText:
		return []byte(Chart(snaps)), nil
	case FormatMIDI:
		return e.GenerateMIDI(snaps)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", f)
	}
}

// ExportFile writes snaps to path, picking the format from its extension
func (e *Exporter) ExportFile(snaps []Snapshot, path string) error {
	f := DetectFormat(path)
	if f == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	data, err := e.Export(snaps, f)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// Load reads snapshots back from JSON, or scans a MIDI file for chords
func (e *Exporter) Load(data []byte) ([]Snapshot, error) {
	switch DetectFormatFromContent(data) {
	case FormatMIDI:
		return ScanSMF(data)
	case FormatJSON:
		var snaps []Snapshot
		if err := json.Unmarshal(data, &snaps); err != nil {
			return nil, fmt.Errorf("failed to parse snapshots: %w", err)
		}
		return snaps, nil
	default:
		return nil, errors.New("unrecognized input: expected a MIDI file or JSON snapshots")
	}
}

// LoadFile reads a file with Load
func (e *Exporter) LoadFile(path string) ([]Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return e.Load(data)
}

// Chart renders snapshots as a plain text chord chart
func Chart(snaps []Snapshot) string {
	var s strings.Builder
	for i, snap := range snaps {
		fmt.Fprintf(&s, "%3d. %-14s %-4s bass %-4s", i+1, snap.ChordName, snap.Inversion, snap.BassNote)
		if ext := snap.Extensions(); len(ext) > 0 {
			fmt.Fprintf(&s, " +%s", strings.Join(ext, " +"))
		}
		if snap.Offset > 0 {
			fmt.Fprintf(&s, " @%s", snap.Offset)
		}
		fmt.Fprintf(&s, "  [%s]\n", strings.Join(snap.NoteNames, " "))
	}
	return s.String()
}
