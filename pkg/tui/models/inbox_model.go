package models

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/go-go-golems/studioctl/pkg/tui/widgets"
)

type InboxModel struct {
	entries []derive.InboxEntry
	unread  int
	cursor  int
	detail  bool

	width  int
	height int
}

func NewInboxModel() InboxModel { return InboxModel{} }

func (m InboxModel) WithProjections(p derive.Projections) InboxModel {
	m.entries = p.Inbox
	m.unread = p.Unread
	if m.cursor >= len(m.entries) {
		m.cursor = maxInt(0, len(m.entries)-1)
	}
	return m
}

func (m InboxModel) WithSize(width, height int) InboxModel {
	m.width, m.height = width, height
	return m
}

func (m InboxModel) Unread() int { return m.unread }

func (m InboxModel) Selected() (derive.InboxEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return derive.InboxEntry{}, false
	}
	return m.entries[m.cursor], true
}

func (m InboxModel) Update(msg tea.Msg, d tui.Dispatcher) (InboxModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch v.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "d":
		m.detail = !m.detail
	case "enter":
		e, ok := m.Selected()
		if !ok || e.Read {
			return m, nil
		}
		return m, dispatch(func() error { return d.MarkRead(e.ID) })
	case "a":
		var ids []string
		for _, e := range m.entries {
			if !e.Read {
				ids = append(ids, e.ID)
			}
		}
		if len(ids) == 0 {
			return m, nil
		}
		return m, dispatch(func() error { return d.MarkRead(ids...) })
	}
	return m, nil
}

func (m InboxModel) View() string {
	theme := styles.DefaultTheme()
	title := fmt.Sprintf("Inbox (%d unread)", m.unread)
	right := "[enter] mark read  [a] all  [d] details"

	if len(m.entries) == 0 {
		return widgets.NewBox(title).
			WithTitleRight(right).
			WithContent(theme.TitleMuted.Render("(nothing needs attention)")).
			WithSize(m.width, 5).
			Render()
	}

	rows := make([]widgets.TableRow, 0, len(m.entries))
	for _, e := range m.entries {
		rows = append(rows, widgets.InboxRow(string(e.Type), e.Title, formatMillis(e.Timestamp), e.Read))
	}
	table := widgets.NewTable([]widgets.TableColumn{
		{Header: "", Width: 2},
		{Header: "Title", Width: 56},
		{Header: "When", Width: 16},
	}).WithRows(rows).WithCursor(m.cursor).WithSize(m.width-2, 0)

	content := table.Render()
	if e, ok := m.Selected(); ok && m.detail {
		content += "\n\n" + theme.TitleMuted.Render(e.Description)
		if ref := itemRef(e.InboxItem); ref != "" {
			content += "\n" + theme.KeybindKey.Render(ref)
		}
	}
	return widgets.NewBox(title).WithTitleRight(right).WithContent(content).WithSize(m.width, 0).Render()
}

func itemRef(it derive.InboxItem) string {
	switch {
	case it.SceneID != "":
		return fmt.Sprintf("scene %s, stage %s", it.SceneID, it.StageID)
	case it.RunID != "":
		return "run " + it.RunID
	case it.ArtifactType != "":
		if it.EntityID != nil {
			return fmt.Sprintf("%s %s v%d", it.ArtifactType, *it.EntityID, it.Version)
		}
		return fmt.Sprintf("%s v%d", it.ArtifactType, it.Version)
	default:
		return ""
	}
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("Jan 02 15:04")
}

func dispatch(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return tui.PublishErrMsg{Err: err}
		}
		return nil
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
