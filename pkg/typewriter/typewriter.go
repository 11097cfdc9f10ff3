// Package typewriter reveals text one character at a time on a fixed
// cadence, in the manner of the bubbles components: ticks are messages and
// a tag on each tick invalidates the ones scheduled before a reset.
package typewriter

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultInterval is the delay between two revealed characters.
const DefaultInterval = 10 * time.Millisecond

// Mode selects how text is revealed.
type Mode int

const (
	Animated Mode = iota
	Instant
)

// State of the reveal.
type State int

const (
	Idle State = iota
	Revealing
	Complete
)

func (s State) String() string {
	switch s {
	case Revealing:
		return "revealing"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TickMsg advances the typewriter it belongs to.
type TickMsg struct {
	ID   int
	Time time.Time
	tag  int
}

// Scheduler arranges for fn to be delivered as a message after d.
// tea.Tick satisfies it; tests substitute one that does not sleep.
type Scheduler func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Option configures a Model.
type Option func(*Model)

// WithInterval sets the per-character delay.
func WithInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithScheduler replaces tea.Tick as the timer source.
func WithScheduler(s Scheduler) Option {
	return func(m *Model) {
		if s != nil {
			m.schedule = s
		}
	}
}

// WithOnAdvance registers a callback run after every revealed character.
// The returned command, if any, is batched with the next tick.
func WithOnAdvance(fn func() tea.Cmd) Option {
	return func(m *Model) {
		m.onAdvance = fn
	}
}

// Model is the typewriter state.
type Model struct {
	id        int
	tag       int
	interval  time.Duration
	schedule  Scheduler
	onAdvance func() tea.Cmd

	text  []rune
	shown int
	state State

	CursorStyle lipgloss.Style
	Styles      Styles
}

// New returns an idle typewriter.
func New(opts ...Option) Model {
	m := Model{
		id:          nextID(),
		interval:    DefaultInterval,
		schedule:    tea.Tick,
		CursorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")),
		Styles:      DefaultStyles(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// ID identifies the typewriter in TickMsgs.
func (m Model) ID() int { return m.id }

// State returns the current reveal state.
func (m Model) State() State { return m.state }

// Text returns the full target text.
func (m Model) Text() string { return string(m.text) }

// Displayed returns the revealed part of the text.
func (m Model) Displayed() string { return string(m.text[:m.shown]) }

// SetText starts revealing text. Pending ticks of a previous text are
// invalidated. Setting the text already shown is a no-op.
func (m Model) SetText(text string, mode Mode) (Model, tea.Cmd) {
	if m.state != Idle && string(m.text) == text {
		return m, nil
	}
	m.tag++
	m.text = []rune(text)
	m.shown = 0

	if mode == Instant || len(m.text) == 0 {
		m.shown = len(m.text)
		m.state = Complete
		return m, nil
	}
	m.state = Revealing
	return m, m.tick()
}

// Stop cancels any pending tick. The revealed buffer is kept.
func (m Model) Stop() Model {
	m.tag++
	if m.state == Revealing {
		m.state = Idle
	}
	return m
}

// Update handles TickMsgs addressed to this typewriter.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	tick, ok := msg.(TickMsg)
	if !ok || tick.ID != m.id || tick.tag != m.tag || m.state != Revealing {
		return m, nil
	}

	m.shown++
	var cmds []tea.Cmd
	if m.onAdvance != nil {
		cmds = append(cmds, m.onAdvance())
	}
	if m.shown >= len(m.text) {
		m.state = Complete
	} else {
		cmds = append(cmds, m.tick())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) tick() tea.Cmd {
	id, tag := m.id, m.tag
	return m.schedule(m.interval, func(t time.Time) tea.Msg {
		return TickMsg{ID: id, Time: t, tag: tag}
	})
}

// View renders the revealed text as markdown wrapped to width, with a
// cursor block while revealing.
func (m Model) View(width int) string {
	out, _ := Render(m.Displayed(), width, m.Styles)
	if m.state == Revealing {
		out += m.CursorStyle.Render("█")
	}
	return out
}

// Links returns the http(s) links found in the revealed text.
func (m Model) Links() []Link {
	_, links := Render(m.Displayed(), 0, m.Styles)
	return links
}
