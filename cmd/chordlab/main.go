// Package main is the entry point for chordlab CLI
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/james-see/chordlab/pkg/api"
	"github.com/james-see/chordlab/pkg/config"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/james-see/chordlab/pkg/export"
	"github.com/james-see/chordlab/pkg/midimsg"
	"github.com/james-see/chordlab/pkg/session"
	"github.com/james-see/chordlab/pkg/theory"
	"github.com/james-see/chordlab/pkg/tui"
	"github.com/james-see/chordlab/pkg/voicing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile    string
	logLevel   string
	outputFile string
	jsonOutput bool
	serverPort int

	cfg = config.DefaultConfig()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chordlab",
	Short: "Chord detection and keyboard voicings from MIDI notes",
	Long: `chordlab names the chord formed by a set of MIDI notes, lists the keyboard
voicings of a triad and decodes raw MIDI channel messages.

Examples:
  chordlab detect 64 67 72
  chordlab detect C4 E4 G4 --json
  chordlab voicings C Maj
  chordlab notes A Min 1
  chordlab parse 90 3C 64
  chordlab scan song.mid -o chords.txt
  chordlab tui
  chordlab serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

var detectCmd = &cobra.Command{
	Use:   "detect <notes...>",
	Short: "Detect the chord formed by MIDI notes (60 or C4)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

var voicingsCmd = &cobra.Command{
	Use:   "voicings <note> [quality]",
	Short: "List the voicings of a triad rooted at a natural note",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runVoicings,
}

var notesCmd = &cobra.Command{
	Use:   "notes <note> <quality> <voicing>",
	Short: "Name the notes sounding at a voicing",
	Args:  cobra.ExactArgs(3),
	RunE:  runNotes,
}

var nameCmd = &cobra.Command{
	Use:   "name <midi...>",
	Short: "Print note names for MIDI note numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runName,
}

var parseCmd = &cobra.Command{
	Use:   "parse <hex...>",
	Short: "Decode a MIDI channel message written in hex",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Read hex MIDI messages from stdin, one per line, and report chord changes",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

var scanCmd = &cobra.Command{
	Use:   "scan <input.mid>",
	Short: "List the chord progression of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/chordlab/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	detectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	parseCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	// monitor and scan can save what they captured
	monitorCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Save captured chords (.json, .txt or .mid)")
	scanCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Save the progression (.json, .txt or .mid)")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config, 8080)")

	// Add commands
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(voicingsCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	lvl, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(cmd.ErrOrStderr())
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDetect(cmd *cobra.Command, args []string) error {
	notes, err := theory.ParseNoteList(strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	chord := detector.Detect(notes)
	if jsonOutput {
		return printJSON(out, map[string]any{"chord": chord})
	}
	if chord == nil {
		fmt.Fprintln(out, "No chord")
		return nil
	}
	printChord(out, chord)
	return nil
}

func printChord(w io.Writer, c *detector.ChordInfo) {
	fmt.Fprintf(w, "%s (%s inversion, bass %s)", c.ChordName, c.Inversion, c.BassNote)
	var ext []string
	if c.HasSixth {
		ext = append(ext, "6")
	}
	if c.HasSeventh {
		ext = append(ext, "7")
	}
	if c.HasMajorSeventh {
		ext = append(ext, "maj7")
	}
	if c.HasNinth {
		ext = append(ext, "9")
	}
	if len(ext) > 0 {
		fmt.Fprintf(w, " +%s", strings.Join(ext, " +"))
	}
	fmt.Fprintln(w)
}

func qualityCode(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return cfg.DefaultQuality().Code()
}

func runVoicings(cmd *cobra.Command, args []string) error {
	gen := voicing.New(nil)
	table, err := gen.Lookup(args[0], qualityCode(args, 1))
	if err != nil {
		return err
	}
	if len(table.Voicings) == 0 {
		return fmt.Errorf("no voicings for %s: only natural notes have a voicing table", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", table.NoteName, table.QualityCode)
	fmt.Fprintf(out, "%8s %4s %4s  %s\n", "voicing", "inv", "oct", "notes")
	for _, v := range table.Voicings {
		mark := ""
		if table.FirstPlayable != nil && *table.FirstPlayable == v.Voicing {
			mark = "  <- first playable"
		}
		fmt.Fprintf(out, "%8d %4d %4d  %s%s\n", v.Voicing, v.Inversion, v.Octave,
			gen.ChordNotesForVoicing(table.Note, &v, table.Quality), mark)
	}
	return nil
}

func runNotes(cmd *cobra.Command, args []string) error {
	gen := voicing.New(nil)
	table, err := gen.Lookup(args[0], args[1])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("voicing must be an integer: %w", err)
	}

	v, _ := voicing.FindVoicing(table.Voicings, value)
	notes := gen.ChordNotesForVoicing(table.Note, v, table.Quality)
	if notes == voicing.NoSelection {
		notes = voicing.Invalid
	}
	fmt.Fprintln(cmd.OutOrStdout(), notes)
	return nil
}

func runName(cmd *cobra.Command, args []string) error {
	names := make([]string, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("not a MIDI note number: %q", a)
		}
		names = append(names, theory.NoteNameWithOctave(n))
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, " "))
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	data, err := midimsg.ParseHex(strings.Join(args, " "))
	if err != nil {
		return err
	}
	msg := midimsg.ParseChannelMessage(data, time.Now())
	if msg == nil {
		return fmt.Errorf("not a MIDI channel message: % X", data)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), msg)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	opts, err := cfg.SessionOptions(logrus.WithField("component", "session"))
	if err != nil {
		return err
	}
	tr := session.NewTracker(opts)

	snaps, err := monitor(cmd.InOrStdin(), cmd.OutOrStdout(), tr, opts.Debounce)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := export.New().ExportFile(snaps, outputFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d chords to %s\n", len(snaps), outputFile)
	}
	return nil
}

// sameChord reports whether two detections print the same line: name, inversion,
// bass and extensions all match
func sameChord(a, b *detector.ChordInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// monitor feeds every parsable line of r to the tracker and prints chord changes.
// A new inversion, bass note or extension counts as a change.
// It returns the chords held at each change. settle is how long to wait at the end
// of input for a debounced notification.
func monitor(r io.Reader, w io.Writer, tr *session.Tracker, settle time.Duration) ([]export.Snapshot, error) {
	log := logrus.WithField("component", "monitor")
	var (
		mu    sync.Mutex
		snaps []export.Snapshot
		last  *detector.ChordInfo
	)

	tr.OnChange(func(chord *detector.ChordInfo, held []int) {
		mu.Lock()
		defer mu.Unlock()
		if sameChord(last, chord) {
			return
		}
		last = chord
		if chord == nil {
			fmt.Fprintln(w, "-")
			return
		}
		printChord(w, chord)
		if snap, ok := export.Capture(chord, held, time.Now()); ok {
			snaps = append(snaps, snap)
		}
	})

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		data, err := midimsg.ParseHex(text)
		if err != nil {
			log.WithError(err).WithField("line", line).Warn("skipping line")
			continue
		}
		msg := midimsg.ParseChannelMessage(data, time.Now())
		if msg == nil {
			log.WithField("line", line).Warn("not a channel message")
			continue
		}
		log.WithField("line", line).Debug(msg.String())
		tr.Handle(msg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if settle > 0 {
		time.Sleep(2 * settle)
	}

	mu.Lock()
	defer mu.Unlock()
	return slices.Clone(snaps), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	snaps, err := export.ScanSMF(data)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No chords found in %s\n", input)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), export.Chart(snaps))

	if outputFile != "" {
		if err := export.New().ExportFile(snaps, outputFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s -> %s\n", input, outputFile)
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg.DefaultQuality())
}

func runServe(cmd *cobra.Command, args []string) error {
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	fmt.Printf("Starting API server on port %d...\n", cfg.Server.Port)
	return api.StartServer(cfg)
}
