package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/studioctl/pkg/action"
	"github.com/go-go-golems/studioctl/pkg/chat"
	"github.com/go-go-golems/studioctl/pkg/console"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/engine/enginetest"
	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/go-go-golems/studioctl/pkg/state"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *collector) Send(msg tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) find(pred func(tea.Msg) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.msgs {
		if pred(m) {
			return true
		}
	}
	return false
}

type harness struct {
	bus     *Bus
	fake    *enginetest.Fake
	stores  *state.Stores
	console *console.Console
	runner  *ActionRunner
	ui      *collector
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	fake := enginetest.New()
	stores, err := state.Open("")
	require.NoError(t, err)
	c, err := console.New(console.Options{Client: fake, Catalog: derive.MustDefaultCatalog(), Stores: stores, Interval: 10 * time.Millisecond})
	require.NoError(t, err)
	guard, err := action.NewGuard(action.Options{Confirmer: fake, Messages: stores.Messages, Runs: stores.ActiveRuns})
	require.NoError(t, err)

	bus, err := NewInMemoryBus()
	require.NoError(t, err)
	ui := &collector{}
	RegisterDomainToUITransformer(bus)
	RegisterUIForwarder(bus, ui)
	runner := RegisterUIActionRunner(ctx, bus, RunnerOptions{
		Project: "film",
		Console: c,
		Guard:   guard,
		Session: chat.NewSession(fake, stores.Messages),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx)
	}()
	<-bus.Running()

	t.Cleanup(func() {
		runner.Wait()
		cancel()
		<-done
		c.Close()
	})
	return &harness{bus: bus, fake: fake, stores: stores, console: c, runner: runner, ui: ui}
}

func TestBus_ChatTurnReachesProgram(t *testing.T) {
	h := newHarness(t)
	h.fake.ScriptChat([]protocol.ChatEvent{
		{Type: protocol.ChatEventText, Content: "Hel"},
		{Type: protocol.ChatEventText, Content: "lo"},
		{Type: protocol.ChatEventDone},
	}, nil)

	require.NoError(t, BusDispatcher{Pub: h.bus.Publisher}.SendChat("hi"))

	require.Eventually(t, func() bool {
		return h.ui.find(func(m tea.Msg) bool {
			v, ok := m.(ChatMessageMsg)
			return ok && v.Message.Role == protocol.RoleAssistant && !v.Message.Streaming && v.Message.Content == "Hello"
		})
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, h.ui.find(func(m tea.Msg) bool {
		v, ok := m.(ChatMessageMsg)
		return ok && v.Message.Role == protocol.RoleUser && v.Message.Content == "hi"
	}))
	require.Len(t, h.stores.Messages.Messages("film"), 2)
}

func TestBus_ConfirmTwiceRunsOnce(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.fake.ConfirmGate = gate

	a := protocol.ProposedAction{
		ID: "a1", Type: protocol.ActionStartRun, Label: "Start world building",
		Endpoint: "/api/runs", Payload: map[string]any{"project_id": "film", "recipe_id": "world_building"},
	}
	d := BusDispatcher{Pub: h.bus.Publisher}
	require.NoError(t, d.ConfirmAction("m1", a))
	require.Eventually(t, func() bool { return h.fake.Calls("ConfirmAction") == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.ConfirmAction("m1", a))

	require.Eventually(t, func() bool {
		return h.ui.find(func(m tea.Msg) bool {
			v, ok := m.(ActionResultMsg)
			return ok && v.Result.Busy
		})
	}, time.Second, 5*time.Millisecond)
	close(gate)

	require.Eventually(t, func() bool {
		return h.ui.find(func(m tea.Msg) bool {
			v, ok := m.(ActionResultMsg)
			return ok && v.Result.Ok && v.Result.Result != nil && v.Result.Result.RunID == "run-1"
		})
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, h.fake.Calls("ConfirmAction"))

	id, ok := h.stores.ActiveRuns.ActiveRun("film")
	require.True(t, ok)
	require.Equal(t, "run-1", id)
	require.True(t, h.ui.find(func(m tea.Msg) bool {
		v, ok := m.(ChatMessageMsg)
		return ok && v.Message.Kind == protocol.MessageProgressCard
	}))
	require.True(t, h.ui.find(func(m tea.Msg) bool {
		v, ok := m.(EventLogAppendMsg)
		return ok && v.Entry.Text == "action ok: Start world building"
	}))
}

func TestBus_ProjectionsAndMarkRead(t *testing.T) {
	h := newHarness(t)
	id := "s1"
	h.fake.SetGroups("film", []protocol.ArtifactGroupSummary{{ArtifactType: "scene", EntityID: &id, LatestVersion: 2, Health: protocol.HealthStale}})

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan error, 1)
	go func() { watchDone <- WatchProjections(ctx, h.bus.Publisher, h.console, "film") }()
	defer func() {
		cancel()
		require.NoError(t, <-watchDone)
	}()

	require.Eventually(t, func() bool {
		return h.ui.find(func(m tea.Msg) bool {
			v, ok := m.(ProjectionsMsg)
			return ok && v.Projections.Unread == 1
		})
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, BusDispatcher{Pub: h.bus.Publisher}.MarkRead("stale-scene-s1"))
	require.Eventually(t, func() bool {
		return h.ui.find(func(m tea.Msg) bool {
			v, ok := m.(ProjectionsMsg)
			return ok && v.Projections.Unread == 0 && len(v.Projections.Inbox) == 1
		})
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, h.stores.ReadSet.IsRead("film", "stale-scene-s1"))
}

func TestBus_EngineErrorsLoggedOnTransition(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail("ListRuns", context.DeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan error, 1)
	go func() { watchDone <- WatchProjections(ctx, h.bus.Publisher, h.console, "film") }()
	defer func() {
		cancel()
		require.NoError(t, <-watchDone)
	}()

	require.Eventually(t, func() bool {
		return h.ui.find(func(m tea.Msg) bool {
			v, ok := m.(EventLogAppendMsg)
			return ok && v.Entry.Level == LogLevelWarn && v.Entry.Source == "poll"
		})
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnvelope_DecodeRejectsEmpty(t *testing.T) {
	env, err := NewEnvelope(UITypeRefreshRequest, nil)
	require.NoError(t, err)
	var req RefreshRequest
	require.Error(t, env.Decode(&req))

	_, err = NewEnvelope("", nil)
	require.Error(t, err)
}
