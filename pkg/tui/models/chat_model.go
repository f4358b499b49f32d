package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/action"
	"github.com/go-go-golems/studioctl/pkg/chat"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/go-go-golems/studioctl/pkg/tui/widgets"
)

// NumberedAction is a confirmable proposal with its on-screen number.
type NumberedAction struct {
	N               int
	SourceMessageID string
	Action          protocol.ProposedAction
}

// ChatModel renders the conversation, streams replies in place and lets the
// operator confirm proposed actions by number.
type ChatModel struct {
	messages []protocol.ChatMessage
	index    map[string]int

	busy map[string]bool

	activeRunID string
	progress    string

	input textinput.Model
	vp    viewport.Model

	width  int
	height int
}

func NewChatModel(history []protocol.ChatMessage) ChatModel {
	in := textinput.New()
	in.Placeholder = "ask the studio…"
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Focus()

	m := ChatModel{
		index: map[string]int{},
		busy:  map[string]bool{},
		input: in,
		vp:    viewport.New(0, 0),
	}
	for _, msg := range history {
		m = m.upsert(msg)
	}
	return m.refresh(true)
}

func (m ChatModel) WithSize(width, height int) ChatModel {
	m.width, m.height = width, height
	m.input.Width = maxInt(10, width-4)
	m.vp.Width = maxInt(0, width-2)
	m.vp.Height = maxInt(3, height-6)
	return m.refresh(false)
}

// WithRunProgress feeds the live progress line into progress cards of the
// active run.
func (m ChatModel) WithRunProgress(runID, progress string) ChatModel {
	if m.activeRunID == runID && m.progress == progress {
		return m
	}
	m.activeRunID, m.progress = runID, progress
	return m.refresh(false)
}

// Streaming reports whether an assistant reply is still arriving.
func (m ChatModel) Streaming() bool {
	for _, msg := range m.messages {
		if msg.Streaming {
			return true
		}
	}
	return false
}

// Typing reports whether the input holds text, in which case keys belong to it.
func (m ChatModel) Typing() bool {
	return m.input.Value() != ""
}

func (m ChatModel) Actions() []NumberedAction {
	visible := action.VisibleActions(m.messages)
	var out []NumberedAction
	for _, msg := range m.messages {
		for _, a := range visible[msg.ID] {
			out = append(out, NumberedAction{N: len(out) + 1, SourceMessageID: msg.ID, Action: a})
		}
	}
	return out
}

func (m ChatModel) Update(msg tea.Msg, d tui.Dispatcher) (ChatModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.ChatMessageMsg:
		m = m.upsert(v.Message)
		return m.refresh(true), nil
	case tui.ActionResultMsg:
		delete(m.busy, v.Result.SourceMessageID)
		return m.refresh(false), nil
	case tea.KeyMsg:
		switch v.String() {
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" || m.Streaming() {
				return m, nil
			}
			m.input.SetValue("")
			return m, dispatch(func() error { return d.SendChat(prompt) })
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(v)
			return m, cmd
		}
		if n, err := strconv.Atoi(v.String()); err == nil && !m.Typing() {
			return m.confirm(n, d)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(v)
		return m, cmd
	}
	return m, nil
}

func (m ChatModel) confirm(n int, d tui.Dispatcher) (ChatModel, tea.Cmd) {
	for _, na := range m.Actions() {
		if na.N != n {
			continue
		}
		if m.busy[na.SourceMessageID] {
			return m, nil
		}
		m.busy[na.SourceMessageID] = true
		m = m.refresh(false)
		src, a := na.SourceMessageID, na.Action
		return m, func() tea.Msg {
			if err := d.ConfirmAction(src, a); err != nil {
				return tui.ActionResultMsg{Result: tui.ActionResult{ProposalID: a.ID, SourceMessageID: src, Error: err.Error()}}
			}
			return nil
		}
	}
	return m, nil
}

func (m ChatModel) upsert(msg protocol.ChatMessage) ChatModel {
	if i, ok := m.index[msg.ID]; ok {
		msgs := append([]protocol.ChatMessage{}, m.messages...)
		msgs[i] = msg
		m.messages = msgs
		return m
	}
	index := make(map[string]int, len(m.index)+1)
	for k, v := range m.index {
		index[k] = v
	}
	index[msg.ID] = len(m.messages)
	m.index = index
	m.messages = append(append([]protocol.ChatMessage{}, m.messages...), msg)
	return m
}

func (m ChatModel) View() string {
	theme := styles.DefaultTheme()

	title := fmt.Sprintf("Chat (%d)", len(m.messages))
	right := "[enter] send  [1-9] confirm  [pgup/pgdn] scroll"
	body := m.vp.View()
	if len(m.messages) == 0 {
		body = theme.TitleMuted.Render("(no messages yet)")
	}
	box := widgets.NewBox(title).WithTitleRight(right).WithContent(body).WithSize(m.width, 0).Render()

	input := m.input.View()
	if m.Streaming() {
		input = theme.TitleMuted.Render(styles.IconThinking + " waiting for the reply")
	}
	return lipgloss.JoinVertical(lipgloss.Left, box, input)
}

func (m ChatModel) refresh(gotoBottom bool) ChatModel {
	theme := styles.DefaultTheme()

	numbers := map[string][]NumberedAction{}
	for _, na := range m.Actions() {
		numbers[na.SourceMessageID] = append(numbers[na.SourceMessageID], na)
	}

	var blocks []string
	for _, msg := range m.messages {
		blocks = append(blocks, m.renderMessage(theme, msg, numbers[msg.ID]))
	}
	m.vp.SetContent(strings.Join(blocks, "\n\n"))
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}

func (m ChatModel) renderMessage(theme styles.Theme, msg protocol.ChatMessage, actions []NumberedAction) string {
	var lines []string
	switch msg.Role {
	case protocol.RoleUser:
		lines = append(lines, theme.UserMessage.Render("you: ")+msg.Content)
	case protocol.RoleSystem:
		style := theme.SystemMessage
		if msg.Kind == protocol.MessageError {
			style = theme.StatusFailed
		}
		lines = append(lines, style.Render(msg.Content))
	default:
		content := msg.Content
		if msg.Kind == protocol.MessageProgressCard {
			card := chat.ParseProgressCard(msg.Content)
			progress := ""
			if card.OK() && card.Card.RunID == m.activeRunID {
				progress = m.progress
			}
			content = theme.StatusDone.Render(styles.IconRunning) + " " + card.Render(progress)
		}
		lines = append(lines, theme.AssistantMessage.Render(content))
	}
	if msg.ToolStatus != "" {
		lines = append(lines, theme.TitleMuted.Render(msg.ToolStatus))
	}
	for _, na := range actions {
		label := na.Action.Label
		if label == "" {
			label = string(na.Action.Type)
		}
		entry := theme.KeybindKey.Render(fmt.Sprintf("[%d]", na.N)) + " " + label
		if m.busy[na.SourceMessageID] {
			entry = theme.TitleMuted.Render(fmt.Sprintf("[%d] %s (working…)", na.N, label))
		}
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n")
}
