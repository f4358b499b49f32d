package models

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/go-go-golems/studioctl/pkg/tui/widgets"
)

const maxEventLogEntries = 500

// eventSources is the cycle order of the source filter; "" shows everything.
var eventSources = []string{"", "poll", "chat", "actions", "system"}

// EventLogModel lists engine reachability changes, chat interruptions and
// action outcomes, newest at the bottom.
type EventLogModel struct {
	entries []tui.EventLogEntry

	width, height int

	source    int
	problems  bool
	query     string
	searching bool
	search    textinput.Model
	vp        viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "text in event"
	search.CharLimit = 120
	return EventLogModel{search: search, vp: viewport.New(0, 0)}
}

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	m.vp.Width = maxInt(width-2, 0)
	m.vp.Height = maxInt(height-4, 3)
	return m.render(false)
}

func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	if e.Level == "" {
		e.Level = tui.LogLevelInfo
	}
	if strings.TrimSpace(e.Source) == "" {
		e.Source = "system"
	}
	m.entries = append(m.entries, e)
	if over := len(m.entries) - maxEventLogEntries; over > 0 {
		m.entries = append([]tui.EventLogEntry(nil), m.entries[over:]...)
	}
	return m.render(m.vp.AtBottom() || m.vp.TotalLineCount() == 0)
}

// Len reports how many entries are kept.
func (m EventLogModel) Len() int { return len(m.entries) }

// Visible returns the entries that pass the current filters.
func (m EventLogModel) Visible() []tui.EventLogEntry {
	var out []tui.EventLogEntry
	src := eventSources[m.source]
	for _, e := range m.entries {
		if src != "" && e.Source != src {
			continue
		}
		if m.problems && e.Level != tui.LogLevelWarn && e.Level != tui.LogLevelError {
			continue
		}
		if m.query != "" && !strings.Contains(strings.ToLower(e.Text), strings.ToLower(m.query)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.searching {
		switch k.String() {
		case "enter", "esc":
			if k.String() == "enter" {
				m.query = strings.TrimSpace(m.search.Value())
			}
			m.searching = false
			m.search.Blur()
			return m.render(true), nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.query)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "s":
		m.source = (m.source + 1) % len(eventSources)
		return m.render(true), nil
	case "e":
		m.problems = !m.problems
		return m.render(true), nil
	case "c":
		m.entries = nil
		return m.render(true), nil
	case "ctrl+l":
		m.query = ""
		return m.render(true), nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(k)
	return m, cmd
}

// Searching reports whether the filter input has focus, so that global keys
// are not intercepted while typing.
func (m EventLogModel) Searching() bool { return m.searching }

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()

	var filters []string
	if src := eventSources[m.source]; src != "" {
		filters = append(filters, "source="+src)
	}
	if m.problems {
		filters = append(filters, "warnings+errors")
	}
	if m.query != "" {
		filters = append(filters, fmt.Sprintf("%q", m.query))
	}
	hint := "[/] find  [s] source  [e] problems  [c] clear"
	if len(filters) > 0 {
		hint = strings.Join(filters, " ") + "  " + hint
	}

	body := m.vp.View()
	if len(m.entries) == 0 {
		body = theme.TitleMuted.Render("(nothing has happened yet)")
	}
	if m.searching {
		body = m.search.View() + "\n" + body
	}
	return widgets.NewBox(fmt.Sprintf("Events (%d)", len(m.entries))).
		WithTitleRight(hint).
		WithContent(body).
		WithSize(m.width, 0).
		Render()
}

func (m EventLogModel) render(follow bool) EventLogModel {
	theme := styles.DefaultTheme()
	visible := m.Visible()
	lines := make([]string, 0, len(visible))
	for _, e := range visible {
		style := theme.LevelStyle(string(e.Level))
		ts := "--:--:--"
		if !e.At.IsZero() {
			ts = e.At.Format("15:04:05")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			style.Render(styles.LogLevelIcon(string(e.Level))),
			theme.TitleMuted.Render(ts),
			theme.TitleMuted.Render(fmt.Sprintf("%-8s", e.Source)),
			style.Render(e.Text),
		))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.vp.GotoBottom()
	}
	return m
}
