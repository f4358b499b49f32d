package widgets

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestRatioBar(t *testing.T) {
	require.Equal(t, "█████░░░░░ 1/2", NewRatioBar(1, 2).WithWidth(10).Render())
	require.Equal(t, "░░░░░ 0/0", NewRatioBar(0, 0).WithWidth(5).Render())
	require.Equal(t, "█████ 3/3", NewRatioBar(7, 3).WithWidth(1).Render())
}

func TestAgo(t *testing.T) {
	require.Equal(t, "4s ago", Ago(4*time.Second))
	require.Equal(t, "2m05s ago", Ago(125*time.Second))
	require.Equal(t, "1h30m ago", Ago(90*time.Minute))
}

func TestHeader_TabsAndWidth(t *testing.T) {
	out := NewHeader("studioctl · film").
		WithStatus("●", "engine ok", true).
		WithTabs([]Tab{{Label: "dashboard", Active: true}, {Label: "inbox", Badge: 3}}).
		WithSince(3 * time.Second).
		WithWidth(100).
		Render()

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "inbox (3)")
	require.Contains(t, lines[0], "updated 3s ago")
	require.Equal(t, 100, lipgloss.Width(lines[0]))
	require.Equal(t, 100, lipgloss.Width(lines[1]))
}

func TestBox_TitleAndSize(t *testing.T) {
	out := NewBox("Inbox").WithTitleRight("[enter] read").WithContent("one\ntwo").WithSize(30, 0).Render()
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	require.Contains(t, lines[1], "Inbox")
	require.Contains(t, lines[1], "[enter] read")
	for _, l := range lines {
		require.Equal(t, 30, lipgloss.Width(l))
	}
}

func TestFooter_Notice(t *testing.T) {
	out := NewFooter([]Keybind{{Key: "q", Label: "quit"}}).WithMessage("could not publish", true).WithWidth(40).Render()
	require.Contains(t, out, "could not publish")
	require.Contains(t, out, "[q] quit")
}
