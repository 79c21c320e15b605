// Package tui provides a terminal user interface for chordlab
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/james-see/chordlab/pkg/export"
	"github.com/james-see/chordlab/pkg/theory"
	"github.com/james-see/chordlab/pkg/voicing"
)

// Ivory-and-amber color scheme
var (
	ivory     = lipgloss.Color("#F5F0E1")
	amber     = lipgloss.Color("#FFB000")
	slateGray = lipgloss.Color("#8A8F98")
	ebony     = lipgloss.Color("#1E1E24")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(ebony).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(slateGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(ivory).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateVoicings
	StateDetector
	StateFilePicker
	StateScanning
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Target      State
}

var menuItems = []MenuItem{
	{Title: "Voicing explorer", Description: "Browse every voicing of a triad and the notes it plays", Target: StateVoicings},
	{Title: "Chord detector", Description: "Type notes and see the chord they form", Target: StateDetector},
	{Title: "Scan MIDI file", Description: "List the chord progression of a .mid file", Target: StateFilePicker},
	{Title: "Exit", Description: "Exit the application", Target: StateMenu},
}

// Model represents the TUI model
type Model struct {
	state     State
	menuIndex int

	lib       *theory.Library
	det       *detector.Detector
	gen       *voicing.Generator
	qualities []theory.Quality

	// voicing explorer
	noteIndex    int
	qualityIndex int
	voicings     voicing.Table
	table        table.Model

	// chord detector
	input    textinput.Model
	notes    []int
	chord    *detector.ChordInfo
	inputErr error

	// scan
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	snapshots    []export.Snapshot
	err          error

	width  int
	height int
}

// scanDoneMsg signals scan completion
type scanDoneMsg struct {
	snapshots []export.Snapshot
	err       error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model with Major selected in the voicing explorer
func New() Model {
	return NewWithQuality(theory.Major)
}

// NewWithQuality creates a TUI model whose voicing explorer starts on q
func NewWithQuality(q theory.Quality) Model {
	lib := theory.DefaultLibrary()

	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amber)

	ti := textinput.New()
	ti.Placeholder = "60 64 67 or C4 E4 G4"
	ti.CharLimit = 120
	ti.Width = 40

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Voicing", Width: 8},
			{Title: "Inv", Width: 4},
			{Title: "Oct", Width: 4},
			{Title: "Notes", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Foreground(amber).Bold(true)
	ts.Selected = ts.Selected.Foreground(ebony).Background(amber)
	t.SetStyles(ts)

	m := Model{
		state:      StateMenu,
		lib:        lib,
		det:        detector.New(lib),
		gen:        voicing.New(lib),
		qualities:  lib.Qualities(),
		table:      t,
		input:      ti,
		filePicker: fp,
		spinner:    s,
	}
	for i, lq := range m.qualities {
		if lq == q {
			m.qualityIndex = i
		}
	}
	m.refreshVoicings()
	return m
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		// Check for escape/quit keys first
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		// Pass all other messages to the file picker
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateScanning
			return m, tea.Batch(m.spinner.Tick, m.performScan())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateVoicings:
			return m.updateVoicings(msg)
		case StateDetector:
			return m.updateDetector(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case scanDoneMsg:
		m.state = StateResult
		m.snapshots = msg.snapshots
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.state = menuItems[m.menuIndex].Target
		switch m.state {
		case StateDetector:
			return m, m.input.Focus()
		case StateFilePicker:
			return m, m.filePicker.Init()
		}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateVoicings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	naturals := theory.NaturalNotes()
	switch msg.String() {
	case "esc":
		m.state = StateMenu
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.noteIndex = (m.noteIndex + len(naturals) - 1) % len(naturals)
		m.refreshVoicings()
		return m, nil
	case "right", "l":
		m.noteIndex = (m.noteIndex + 1) % len(naturals)
		m.refreshVoicings()
		return m, nil
	case "tab":
		m.qualityIndex = (m.qualityIndex + 1) % len(m.qualities)
		m.refreshVoicings()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refreshVoicings rebuilds the table and selects the first playable voicing
func (m *Model) refreshVoicings() {
	note := theory.NaturalNotes()[m.noteIndex]
	q := m.qualities[m.qualityIndex]
	m.voicings = m.gen.Table(note, q)

	rows := make([]table.Row, len(m.voicings.Voicings))
	cursor := 0
	for i, v := range m.voicings.Voicings {
		label := strconv.Itoa(v.Voicing)
		if m.voicings.FirstPlayable != nil && *m.voicings.FirstPlayable == v.Voicing {
			label += " *"
			cursor = i
		}
		rows[i] = table.Row{
			label,
			strconv.Itoa(v.Inversion),
			strconv.Itoa(v.Octave),
			m.gen.ChordNotesForVoicing(note, &v, q),
		}
	}
	m.table.SetRows(rows)
	m.table.SetCursor(cursor)
}

// SelectedVoicing returns the highlighted voicing row
func (m Model) SelectedVoicing() *voicing.Voicing {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.voicings.Voicings) {
		return nil
	}
	v := m.voicings.Voicings[i]
	return &v
}

func (m Model) updateDetector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.state = StateMenu
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	m.notes, m.inputErr = theory.ParseNoteList(m.input.Value())
	m.chord = nil
	if m.inputErr == nil {
		m.chord = m.det.Detect(m.notes)
	}
	return m, cmd
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.snapshots = nil
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performScan() tea.Cmd {
	path := m.selectedFile
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return scanDoneMsg{err: err}
		}
		snaps, err := export.ScanSMF(data)
		return scanDoneMsg{snapshots: snaps, err: err}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	s.WriteString(asciiLogo())
	s.WriteString("\n")

	help := "↑/↓: navigate • enter: select • q: quit"
	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateVoicings:
		s.WriteString(m.viewVoicings())
		help = "←/→: root • tab: quality • ↑/↓: voicing • esc: menu"
	case StateDetector:
		s.WriteString(m.viewDetector())
		help = "type notes • esc: menu"
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateScanning:
		s.WriteString(m.viewScanning())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(help))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CHORDLAB "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(ivory).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewVoicings() string {
	var s strings.Builder

	def, _ := m.lib.Def(m.voicings.Quality)
	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s %s ", m.voicings.NoteName, def.Name)))
	s.WriteString("\n\n")
	s.WriteString(m.table.View())
	s.WriteString("\n")

	notes := m.gen.ChordNotesForVoicing(m.voicings.Note, m.SelectedVoicing(), m.voicings.Quality)
	s.WriteString(statusStyle.Render(fmt.Sprintf("Notes: %s", notes)))

	return boxStyle.Render(s.String())
}

func (m Model) viewDetector() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CHORD DETECTOR "))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")

	switch {
	case m.inputErr != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.inputErr.Error())))
	case m.chord == nil:
		s.WriteString(statusStyle.Render("No chord"))
	default:
		s.WriteString(successStyle.Render(m.chord.ChordName))
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(chordDetails(m.chord)))
	}

	return boxStyle.Render(s.String())
}

func chordDetails(c *detector.ChordInfo) string {
	parts := []string{
		fmt.Sprintf("Inversion: %s", c.Inversion),
		fmt.Sprintf("Bass: %s", c.BassNote),
	}
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
		parts = append(parts, "Extensions: "+strings.Join(ext, ", "))
	}
	return strings.Join(parts, "  ")
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewScanning() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SCANNING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Scanning %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Scan failed: %s", m.err.Error())))
	case len(m.snapshots) == 0:
		s.WriteString(titleStyle.Render(" NO CHORDS "))
		s.WriteString("\n\n")
		s.WriteString(statusStyle.Render(fmt.Sprintf("No chords found in %s", filepath.Base(m.selectedFile))))
	default:
		s.WriteString(titleStyle.Render(fmt.Sprintf(" %d CHORDS ", len(m.snapshots))))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render(filepath.Base(m.selectedFile)))
		s.WriteString("\n\n")
		s.WriteString(export.Chart(m.snapshots))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ____ _   _  ___  ____  ____  _        _    ____
  / ___| | | |/ _ \|  _ \|  _ \| |      / \  | __ )
 | |   | |_| | | | | |_) | | | | |     / _ \ |  _ \
 | |___|  _  | |_| |  _ <| |_| | |___ / ___ \| |_) |
  \____|_| |_|\___/|_| \_\____/|_____/_/   \_\____/
`
	return lipgloss.NewStyle().Foreground(amber).Render(logo)
}

// Run starts the TUI application
func Run(q theory.Quality) error {
	p := tea.NewProgram(NewWithQuality(q), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
