// Package session keeps the set of currently held notes per musical role and reports chord changes
package session

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/james-see/chordlab/pkg/midimsg"
	"github.com/sirupsen/logrus"
)

// Role is the part a MIDI channel plays
type Role string

const (
	RoleMelody Role = "melody"
	RoleBass   Role = "bass"
	RoleChord  Role = "chord"
)

// Roles lists the roles in display order
var Roles = []Role{RoleMelody, RoleBass, RoleChord}

// DefaultChannels maps roles to 1-based MIDI channels
var DefaultChannels = map[Role][]int{
	RoleMelody: {1},
	RoleBass:   {2},
	RoleChord:  {3},
}

// ParseRole parses a role name
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Roles, r) {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ChangeFunc is called after the held notes change. chord is nil when no chord is formed.
type ChangeFunc func(chord *detector.ChordInfo, held []int)

// Options configures a Tracker
type Options struct {
	Channels map[Role][]int
	Debounce time.Duration
	Detector *detector.Detector
	Logger   logrus.FieldLogger
}

// Tracker follows note-on/note-off messages. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	held      map[Role]map[int]bool
	roleOf    map[uint8]Role
	det       *detector.Detector
	log       logrus.FieldLogger
	listeners []ChangeFunc
	debounced func(func())
}

// NewTracker creates a Tracker. Channels not assigned to any role count as chord notes.
func NewTracker(opts Options) *Tracker {
	channels := opts.Channels
	if channels == nil {
		channels = DefaultChannels
	}
	det := opts.Detector
	if det == nil {
		det = detector.New(nil)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	t := &Tracker{
		held:   make(map[Role]map[int]bool, len(Roles)),
		roleOf: make(map[uint8]Role),
		det:    det,
		log:    log,
	}
	for _, r := range Roles {
		t.held[r] = make(map[int]bool)
	}
	for r, chs := range channels {
		for _, ch := range chs {
			t.roleOf[uint8(ch)] = r
		}
	}
	if opts.Debounce > 0 {
		t.debounced = debounce.New(opts.Debounce)
	}
	return t
}

// RoleFor returns the role of a 1-based channel
func (t *Tracker) RoleFor(channel uint8) Role {
	if r, ok := t.roleOf[channel]; ok {
		return r
	}
	return RoleChord
}

// OnChange registers a listener
func (t *Tracker) OnChange(fn ChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Handle applies one parsed message. It reports whether the held notes changed.
func (t *Tracker) Handle(msg *midimsg.Message) bool {
	note, ok := msg.Note()
	if !ok {
		return false
	}
	role := t.RoleFor(msg.Channel)

	t.mu.Lock()
	changed := false
	switch msg.Type {
	case midimsg.NoteOn:
		if t.held[role][note] {
			t.log.WithField("note", *msg.NoteName).Debug("note already held")
		} else {
			t.held[role][note] = true
			changed = true
		}
	case midimsg.NoteOff:
		if t.held[role][note] {
			delete(t.held[role], note)
			changed = true
		}
	}
	t.mu.Unlock()

	if changed {
		t.log.WithFields(logrus.Fields{"role": role, "event": msg.Type, "note": *msg.NoteName}).Debug("held notes changed")
		t.notify()
	}
	return changed
}

// Held returns the sorted notes held in one role
func (t *Tracker) Held(role Role) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.held[role])
}

// All returns the sorted notes held in every role
func (t *Tracker) All() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allLocked()
}

func (t *Tracker) allLocked() []int {
	merged := make(map[int]bool)
	for _, notes := range t.held {
		for n := range notes {
			merged[n] = true
		}
	}
	return sortedKeys(merged)
}

// Detect runs chord detection over all held notes
func (t *Tracker) Detect() *detector.ChordInfo {
	return t.det.Detect(t.All())
}

// Reset releases every note
func (t *Tracker) Reset() {
	t.mu.Lock()
	for _, r := range Roles {
		t.held[r] = make(map[int]bool)
	}
	t.mu.Unlock()
	t.notify()
}

func (t *Tracker) notify() {
	if t.debounced == nil {
		t.fire()
		return
	}
	t.debounced(t.fire)
}

func (t *Tracker) fire() {
	t.mu.Lock()
	held := t.allLocked()
	listeners := append([]ChangeFunc(nil), t.listeners...)
	t.mu.Unlock()

	chord := t.det.Detect(held)
	for _, fn := range listeners {
		fn(chord, held)
	}
}

func sortedKeys(m map[int]bool) []int {
	res := make([]int, 0, len(m))
	for n := range m {
		res = append(res, n)
	}
	slices.Sort(res)
	return res
}
