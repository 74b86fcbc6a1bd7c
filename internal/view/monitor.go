// Package view renders a live playback monitor in the terminal.
package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keymacro/internal/app"
	"github.com/dshills/keymacro/internal/keymap"
	"github.com/dshills/keymacro/internal/store"
)

// RecentKeys is how many emitted keys the monitor keeps on screen.
const RecentKeys = 32

const help = "0-9/F1-F12 play  c cancel  q quit"

var (
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleDim    = tcell.StyleDefault.Dim(true)
	styleActive = tcell.StyleDefault.Reverse(true)
	styleWarn   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

type quitSignal struct{}

// Monitor shows the slot table, session state and recent keys, and turns
// terminal key presses into main loop requests. It is an app.Output.
type Monitor struct {
	screen   tcell.Screen
	requests chan<- app.Request

	mu         sync.Mutex
	slots      []app.SlotInfo
	session    string
	activeSlot int
	recent     []string
	finished   int
	status     string
}

// NewScreen creates the terminal screen the monitor draws on.
func NewScreen() (tcell.Screen, error) {
	return tcell.NewScreen()
}

// NewMonitor creates a monitor on an initialized screen. Requests are sent
// without blocking; give the channel a buffer.
func NewMonitor(screen tcell.Screen, slots []app.SlotInfo, requests chan<- app.Request) *Monitor {
	return &Monitor{
		screen:     screen,
		requests:   requests,
		slots:      slots,
		activeSlot: -1,
	}
}

// Emit updates the monitor state from a playback event and wakes the
// drawing loop.
func (m *Monitor) Emit(ev app.Event) {
	m.mu.Lock()
	switch ev.Kind {
	case app.EventSessionStarted:
		m.session = ev.Session.ID
		m.activeSlot = ev.Session.Slot
		m.recent = m.recent[:0]
		m.status = ""
	case app.EventKey:
		m.recent = append(m.recent, ev.Key.String())
		if len(m.recent) > RecentKeys {
			m.recent = m.recent[len(m.recent)-RecentKeys:]
		}
	case app.EventSessionFinished:
		m.activeSlot = -1
		m.finished++
		m.status = fmt.Sprintf("slot %d %s after %d keys", ev.Session.Slot, ev.Reason, ev.Session.Keys)
		if ev.Session.Dropped > 0 {
			m.status += fmt.Sprintf(", %d dropped", ev.Session.Dropped)
		}
	}
	m.mu.Unlock()

	_ = m.screen.PostEvent(tcell.NewEventInterrupt(nil)) // best-effort redraw
}

// Run draws and handles input until q or Esc is pressed or ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = m.screen.PostEvent(tcell.NewEventInterrupt(quitSignal{}))
	})
	defer stop()

	for {
		m.draw()

		switch ev := m.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			m.screen.Sync()
		case *tcell.EventKey:
			if m.handleKey(ev) {
				return nil
			}
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(quitSignal); ok {
				return nil
			}
		}
	}
}

// handleKey reports whether the monitor should quit.
func (m *Monitor) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		r := ev.Rune()
		switch {
		case r == 'q' || r == 'Q':
			return true
		case r == 'c' || r == 'C':
			m.send(app.CancelRequest())
		case r >= '0' && r <= '9':
			m.send(app.TriggerRequest(int(r - '0')))
		}
	default:
		if ev.Key() >= tcell.KeyF1 && ev.Key() <= tcell.KeyF12 {
			m.send(app.TriggerRequest(int(ev.Key() - tcell.KeyF1)))
		}
	}
	return false
}

func (m *Monitor) send(req app.Request) {
	select {
	case m.requests <- req:
	default:
		m.mu.Lock()
		m.status = "busy, request dropped"
		m.mu.Unlock()
	}
}

func (m *Monitor) draw() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.screen
	s.Clear()
	width, _ := s.Size()

	row := 0
	m.put(0, row, width, styleTitle, "keymacro")
	m.put(10, row, width, styleDim, help)
	row += 2

	for _, info := range m.slots {
		style := tcell.StyleDefault
		if !info.Programmed {
			style = styleDim
		}
		if info.Slot == m.activeSlot {
			style = styleActive
		}
		line := fmt.Sprintf("%2d  %s", info.Slot, describe(info))
		m.put(0, row, width, style, line)
		row++
	}
	row++

	if m.activeSlot >= 0 {
		m.put(0, row, width, styleActive, fmt.Sprintf("playing slot %d  session %s", m.activeSlot, shortID(m.session)))
	} else {
		m.put(0, row, width, tcell.StyleDefault, fmt.Sprintf("idle  %d sessions played", m.finished))
	}
	row++
	m.put(0, row, width, tcell.StyleDefault, "keys: "+strings.Join(m.recent, " "))
	row++
	if m.status != "" {
		m.put(0, row, width, styleWarn, m.status)
	}

	s.Show()
}

func (m *Monitor) put(x, y, width int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= width {
			return
		}
		m.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// describe renders a slot's entries as key names with delays.
func describe(info app.SlotInfo) string {
	if !info.Programmed {
		return "-"
	}
	parts := make([]string, 0, len(info.Entries))
	for _, e := range info.Entries {
		parts = append(parts, entryLabel(e))
	}
	return strings.Join(parts, " ")
}

func entryLabel(e store.Entry) string {
	name := keymap.Name(e.Key)
	if d := e.Delay(); d > 0 {
		return fmt.Sprintf("%s+%d", name, d)
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
