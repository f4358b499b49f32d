package models

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/go-go-golems/studioctl/pkg/tui"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	prompts   []string
	confirmed []string
	read      []string
	refreshes int
}

func (d *recordingDispatcher) SendChat(prompt string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, prompt)
	return nil
}

func (d *recordingDispatcher) ConfirmAction(src string, a protocol.ProposedAction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmed = append(d.confirmed, src+"/"+a.ID)
	return nil
}

func (d *recordingDispatcher) MarkRead(ids ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.read = append(d.read, ids...)
	return nil
}

func (d *recordingDispatcher) Refresh() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run applies msg and executes the returned command once.
func run(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	next, cmd := m.Update(msg)
	if cmd != nil {
		if out := cmd(); out != nil {
			next, _ = next.Update(out)
		}
	}
	return next
}

func proposal(id string) protocol.ProposedAction {
	return protocol.ProposedAction{ID: id, Type: protocol.ActionStartRun, Label: "Run " + id, Endpoint: "/api/runs"}
}

func TestRoot_TabCyclesViews(t *testing.T) {
	var m tea.Model = NewRootModel(RootOptions{Project: "film", Dispatcher: &recordingDispatcher{}})
	require.Equal(t, ViewDashboard, m.(RootModel).Active())
	for _, want := range []ViewID{ViewInbox, ViewChat, ViewEvents, ViewDashboard} {
		m = run(t, m, key("tab"))
		require.Equal(t, want, m.(RootModel).Active())
	}
}

func TestRoot_RefreshOutsideChatOnly(t *testing.T) {
	d := &recordingDispatcher{}
	var m tea.Model = NewRootModel(RootOptions{Project: "film", Dispatcher: d})
	m = run(t, m, key("r"))
	require.Equal(t, 1, d.refreshes)

	m = run(t, m, key("tab"))
	m = run(t, m, key("tab"))
	require.Equal(t, ViewChat, m.(RootModel).Active())
	_ = run(t, m, key("r"))
	require.Equal(t, 1, d.refreshes)
}

func TestInbox_EnterMarksSelectedRead(t *testing.T) {
	d := &recordingDispatcher{}
	var m tea.Model = NewRootModel(RootOptions{Project: "film", Dispatcher: d})
	m = run(t, m, tui.ProjectionsMsg{Projections: derive.Projections{
		Project: "film",
		Inbox: []derive.InboxEntry{
			{InboxItem: derive.InboxItem{ID: "stale-scene-s1", Type: derive.InboxStale, Title: "Scene s1 is stale"}},
			{InboxItem: derive.InboxItem{ID: "error-r1", Type: derive.InboxError, Title: "Run r1 failed"}, Read: true},
		},
		Unread: 1,
	}})
	m = run(t, m, key("tab"))
	require.Equal(t, ViewInbox, m.(RootModel).Active())
	require.Contains(t, m.View(), "Inbox (1 unread)")

	m = run(t, m, key("enter"))
	require.Equal(t, []string{"stale-scene-s1"}, d.read)

	// Already-read entries are not re-sent.
	m = run(t, m, key("j"))
	_ = run(t, m, key("enter"))
	require.Equal(t, []string{"stale-scene-s1"}, d.read)
}

func TestChat_SendsPromptAndConfirmsByNumber(t *testing.T) {
	d := &recordingDispatcher{}
	m := NewChatModel(nil).WithSize(100, 20)

	m.input.SetValue("start the world pass")
	m, cmd := m.Update(key("enter"), d)
	require.NotNil(t, cmd)
	require.Nil(t, cmd())
	require.Equal(t, []string{"start the world pass"}, d.prompts)
	require.Equal(t, "", m.input.Value())

	m, _ = m.Update(tui.ChatMessageMsg{Message: protocol.ChatMessage{
		ID: "m1", Role: protocol.RoleAssistant, Kind: protocol.MessageText,
		Content: "I can do that.", Actions: []protocol.ProposedAction{proposal("a1"), proposal("a2")},
	}}, d)
	require.Len(t, m.Actions(), 2)

	m, cmd = m.Update(key("2"), d)
	require.NotNil(t, cmd)
	cmd()
	require.Equal(t, []string{"m1/a2"}, d.confirmed)
	require.Contains(t, m.vp.View(), "(working…)")

	// A second press while busy does nothing, nor does a sibling.
	m, cmd = m.Update(key("2"), d)
	require.Nil(t, cmd)
	m, cmd = m.Update(key("1"), d)
	require.Nil(t, cmd)
	require.Len(t, d.confirmed, 1)

	m, _ = m.Update(tui.ChatMessageMsg{Message: protocol.ChatMessage{
		ID: "m2", Role: protocol.RoleSystem, Kind: protocol.MessageActionTaken, Content: "Started run run-1.",
		ActionTaken: &protocol.ActionTaken{ProposalID: "a2", SourceMessageID: "m1", ActionType: protocol.ActionStartRun},
	}}, d)
	m, _ = m.Update(tui.ActionResultMsg{Result: tui.ActionResult{ProposalID: "a2", SourceMessageID: "m1", Ok: true}}, d)
	require.Empty(t, m.busy)
	require.Empty(t, m.Actions(), "answered message hides all its actions")
}

func TestChat_StreamingReplacesInPlace(t *testing.T) {
	d := &recordingDispatcher{}
	m := NewChatModel([]protocol.ChatMessage{{ID: "u1", Role: protocol.RoleUser, Kind: protocol.MessageText, Content: "hi"}}).WithSize(100, 20)

	m, _ = m.Update(tui.ChatMessageMsg{Message: protocol.ChatMessage{ID: "r1", Role: protocol.RoleAssistant, Content: "Hel", Streaming: true}}, d)
	require.True(t, m.Streaming())

	m.input.SetValue("next")
	_, cmd := m.Update(key("enter"), d)
	require.Nil(t, cmd, "no prompt while a reply streams")

	m, _ = m.Update(tui.ChatMessageMsg{Message: protocol.ChatMessage{ID: "r1", Role: protocol.RoleAssistant, Content: "Hello"}}, d)
	require.False(t, m.Streaming())
	require.Len(t, m.messages, 2)
	require.Equal(t, "Hello", m.messages[1].Content)
}

func TestChat_ProgressCardFollowsActiveRun(t *testing.T) {
	m := NewChatModel([]protocol.ChatMessage{{
		ID: "c1", Role: protocol.RoleAssistant, Kind: protocol.MessageProgressCard,
		Content: `{"run_id":"run-1","title":"World building"}`,
	}}).WithSize(100, 20)
	require.Contains(t, m.vp.View(), "World building · waiting for first update")

	m = m.WithRunProgress("run-1", "Stage 1/3: characters")
	require.True(t, strings.Contains(m.vp.View(), "World building · Stage 1/3: characters"))
}

func TestDashboard_RendersPhasesAndErrors(t *testing.T) {
	m := NewDashboardModel().WithSize(120, 40).WithProjections(derive.Projections{
		Project:  "film",
		Progress: "Editor is working on Rhythm & Flow (4/10 scenes)",
		Concern:  &derive.ConcernRole{Label: "Rhythm & Flow", RoleID: "editor", RoleName: "Editor"},
		Phases: []derive.PipelineGraphPhase{
			{ID: "ingest", Label: "Ingest", Status: derive.PhaseCompleted, CompletedCount: 3, ImplementedCount: 3},
			{ID: "world", Label: "World", Status: derive.PhaseAvailable, ImplementedCount: 3},
		},
		Nodes: []derive.PipelineGraphNode{
			{ID: "scenes", PhaseID: "ingest", Label: "Scene Breakdown", Status: derive.NodeCompleted, ArtifactCount: 10},
			{ID: "characters", PhaseID: "world", Label: "Characters", Status: derive.NodeAvailable},
		},
		Errors: map[string]string{"runs": "E_TRANSPORT: connection refused"},
	})
	view := m.View()
	require.Contains(t, view, "Editor is working on Rhythm & Flow (4/10 scenes)")
	require.Contains(t, view, "3/3")
	require.Contains(t, view, "Scene Breakdown")
	require.Contains(t, view, "connection refused")

	m, _ = m.Update(key("j"))
	ph, ok := m.SelectedPhase()
	require.True(t, ok)
	require.Equal(t, "world", ph.ID)
	require.Contains(t, m.View(), "Characters")
}

func TestEventLog_FiltersBySourceAndLevel(t *testing.T) {
	m := NewEventLogModel().WithSize(100, 20)
	m = m.Append(tui.EventLogEntry{Source: "poll", Level: tui.LogLevelWarn, Text: "engine: runs: connection refused"})
	m = m.Append(tui.EventLogEntry{Source: "actions", Level: tui.LogLevelInfo, Text: "action ok: Start run"})
	m = m.Append(tui.EventLogEntry{Text: "bare"})
	require.Equal(t, 3, m.Len())
	require.Equal(t, "system", m.Visible()[2].Source)

	m, _ = m.Update(key("s"))
	require.Len(t, m.Visible(), 1)
	require.Equal(t, "poll", m.Visible()[0].Source)

	m, _ = m.Update(key("s"))
	m, _ = m.Update(key("s"))
	m, _ = m.Update(key("e"))
	require.Empty(t, m.Visible())
	require.Contains(t, m.View(), "source=actions")
}

func TestRoot_EventSearchKeepsPlainKeys(t *testing.T) {
	d := &recordingDispatcher{}
	m := NewRootModel(RootOptions{Project: "film", Dispatcher: d})
	for i := 0; i < 3; i++ {
		next, _ := m.Update(key("tab"))
		m = next.(RootModel)
	}
	require.Equal(t, ViewEvents, m.Active())

	next, _ := m.Update(key("/"))
	m = next.(RootModel)
	next, _ = m.Update(key("r"))
	m = next.(RootModel)
	require.Zero(t, d.refreshes)
	require.True(t, m.events.Searching())
}
