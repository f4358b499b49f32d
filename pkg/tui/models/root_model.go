package models

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/go-go-golems/studioctl/pkg/tui/widgets"
)

type ViewID string

const (
	ViewDashboard ViewID = "dashboard"
	ViewInbox     ViewID = "inbox"
	ViewChat      ViewID = "chat"
	ViewEvents    ViewID = "events"
)

var viewOrder = []ViewID{ViewDashboard, ViewInbox, ViewChat, ViewEvents}

type RootOptions struct {
	Project    string
	Dispatcher tui.Dispatcher
	History    []protocol.ChatMessage
	Now        func() time.Time
}

type RootModel struct {
	width  int
	height int

	project    string
	dispatcher tui.Dispatcher
	now        func() time.Time
	updatedAt  time.Time
	engineOK   bool
	notice     string
	noticeErr  bool

	active ViewID

	dashboard DashboardModel
	inbox     InboxModel
	chat      ChatModel
	events    EventLogModel
}

func NewRootModel(opts RootOptions) RootModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = tui.BusDispatcher{}
	}
	return RootModel{
		project:    opts.Project,
		dispatcher: opts.Dispatcher,
		now:        opts.Now,
		active:     ViewDashboard,
		dashboard:  NewDashboardModel(),
		inbox:      NewInboxModel(),
		chat:       NewChatModel(opts.History),
		events:     NewEventLogModel(),
	}
}

func (m RootModel) Init() tea.Cmd { return nil }

func (m RootModel) Active() ViewID { return m.active }

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m = m.resize()
		return m, nil
	case tea.KeyMsg:
		switch v.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.active = nextView(m.active, 1)
			return m, nil
		case "shift+tab":
			m.active = nextView(m.active, -1)
			return m, nil
		}
		// Plain keys belong to the chat input and the event filter while
		// they take text.
		if m.active != ViewChat && !(m.active == ViewEvents && m.events.Searching()) {
			switch v.String() {
			case "q":
				return m, tea.Quit
			case "r":
				m.notice, m.noticeErr = "refreshing…", false
				return m, dispatch(m.dispatcher.Refresh)
			}
		}
		return m.updateActive(v)
	case tui.ProjectionsMsg:
		p := v.Projections
		m.updatedAt = m.now()
		m.engineOK = len(p.Errors) == 0
		m.dashboard = m.dashboard.WithProjections(p)
		m.inbox = m.inbox.WithProjections(p)
		m.chat = m.chat.WithRunProgress(p.ActiveRunID, p.Progress)
		if m.notice == "refreshing…" {
			m.notice = ""
		}
		return m, nil
	case tui.ChatMessageMsg, tui.ActionResultMsg:
		if r, ok := v.(tui.ActionResultMsg); ok && !r.Result.Ok && !r.Result.Busy && r.Result.Error != "" {
			m.notice, m.noticeErr = "action failed: "+r.Result.Error, true
		}
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(v, m.dispatcher)
		return m, cmd
	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil
	case tui.PublishErrMsg:
		m.notice, m.noticeErr = v.Err.Error(), true
		return m, nil
	}
	return m, nil
}

func (m RootModel) updateActive(k tea.KeyMsg) (RootModel, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(k, m.dispatcher)
	case ViewChat:
		m.chat, cmd = m.chat.Update(k, m.dispatcher)
	case ViewEvents:
		m.events, cmd = m.events.Update(k)
	default:
		m.dashboard, cmd = m.dashboard.Update(k)
	}
	return m, cmd
}

func (m RootModel) resize() RootModel {
	bodyHeight := maxInt(5, m.height-5)
	m.dashboard = m.dashboard.WithSize(m.width, bodyHeight)
	m.inbox = m.inbox.WithSize(m.width, bodyHeight)
	m.chat = m.chat.WithSize(m.width, bodyHeight)
	m.events = m.events.WithSize(m.width, bodyHeight)
	return m
}

func (m RootModel) View() string {
	status, icon := "engine ok", styles.IconSuccess
	if !m.engineOK {
		status, icon = "engine unreachable", styles.IconError
	}
	if m.updatedAt.IsZero() {
		status, icon = "connecting", styles.IconPending
	}
	header := widgets.NewHeader(fmt.Sprintf("studioctl · %s", m.project)).
		WithStatus(icon, status, m.engineOK).
		WithTabs(m.tabs()).
		WithWidth(m.width)
	if !m.updatedAt.IsZero() {
		header = header.WithSince(m.now().Sub(m.updatedAt))
	}

	var body string
	switch m.active {
	case ViewInbox:
		body = m.inbox.View()
	case ViewChat:
		body = m.chat.View()
	case ViewEvents:
		body = m.events.View()
	default:
		body = m.dashboard.View()
	}

	keys := []widgets.Keybind{{Key: "tab", Label: "switch"}, {Key: "ctrl+c", Label: "quit"}}
	if m.active != ViewChat {
		keys = append(keys, widgets.Keybind{Key: "r", Label: "refresh"}, widgets.Keybind{Key: "q", Label: "quit"})
	}
	footer := widgets.NewFooter(keys).WithMessage(m.notice, m.noticeErr).WithWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left, header.Render(), body, footer.Render())
}

func (m RootModel) tabs() []widgets.Tab {
	out := make([]widgets.Tab, 0, len(viewOrder))
	for _, id := range viewOrder {
		tab := widgets.Tab{Label: string(id), Active: id == m.active}
		if id == ViewInbox {
			tab.Badge = m.inbox.Unread()
		}
		out = append(out, tab)
	}
	return out
}

func nextView(cur ViewID, step int) ViewID {
	for i, id := range viewOrder {
		if id == cur {
			return viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
		}
	}
	return ViewDashboard
}
