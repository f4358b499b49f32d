package models

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
	"github.com/go-go-golems/studioctl/pkg/tui/widgets"
)

// DashboardModel shows the active run's progress line, the phase roll-up and
// the nodes of the selected phase.
type DashboardModel struct {
	last  *derive.Projections
	phase int

	width  int
	height int
}

func NewDashboardModel() DashboardModel { return DashboardModel{} }

func (m DashboardModel) WithProjections(p derive.Projections) DashboardModel {
	m.last = &p
	if m.phase >= len(p.Phases) {
		m.phase = 0
	}
	return m
}

func (m DashboardModel) WithSize(width, height int) DashboardModel {
	m.width, m.height = width, height
	return m
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok || m.last == nil || len(m.last.Phases) == 0 {
		return m, nil
	}
	switch v.String() {
	case "up", "k":
		if m.phase > 0 {
			m.phase--
		}
	case "down", "j":
		if m.phase < len(m.last.Phases)-1 {
			m.phase++
		}
	}
	return m, nil
}

// SelectedPhase returns the phase whose nodes are listed.
func (m DashboardModel) SelectedPhase() (derive.PipelineGraphPhase, bool) {
	if m.last == nil || m.phase >= len(m.last.Phases) {
		return derive.PipelineGraphPhase{}, false
	}
	return m.last.Phases[m.phase], true
}

func (m DashboardModel) View() string {
	theme := styles.DefaultTheme()
	if m.last == nil {
		return theme.TitleMuted.Render("Loading projections...") + "\n"
	}
	p := m.last

	var sections []string

	runTitle := "Run"
	if p.ActiveRunID != "" {
		runTitle = "Run " + p.ActiveRunID
	}
	progress := p.Progress
	if progress == "" {
		progress = theme.TitleMuted.Render("(no active run)")
	}
	if p.Concern != nil {
		progress = lipgloss.JoinVertical(lipgloss.Left,
			progress,
			theme.TitleMuted.Render(fmt.Sprintf("%s · %s", p.Concern.RoleName, p.Concern.Label)),
		)
	}
	sections = append(sections, widgets.NewBox(runTitle).WithContent(progress).WithSize(m.width, 0).Render())

	if len(p.Errors) > 0 {
		keys := make([]string, 0, len(p.Errors))
		for k := range p.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, theme.StatusFailed.Render(styles.IconError)+" "+k+": "+p.Errors[k])
		}
		sections = append(sections, widgets.NewBox("Engine").WithContent(strings.Join(lines, "\n")).WithSize(m.width, 0).Render())
	}

	sections = append(sections, m.renderPhases(theme))
	if ph, ok := m.SelectedPhase(); ok {
		sections = append(sections, m.renderNodes(ph))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderPhases(theme styles.Theme) string {
	if len(m.last.Phases) == 0 {
		return widgets.NewBox("Pipeline").WithContent(theme.TitleMuted.Render("(empty catalog)")).WithSize(m.width, 0).Render()
	}
	lines := make([]string, 0, len(m.last.Phases))
	for i, ph := range m.last.Phases {
		cursor := "  "
		if i == m.phase {
			cursor = theme.KeybindKey.Render("> ")
		}
		icon := theme.StatusStyle(string(ph.Status)).Render(styles.PhaseIcon(string(ph.Status)))
		label := lipgloss.NewStyle().Width(24).Render(fmt.Sprintf("%s %s", ph.Icon, ph.Label))
		bar := widgets.NewRatioBar(ph.CompletedCount, ph.ImplementedCount).
			WithWidth(16).
			WithStyle(theme.StatusStyle(string(ph.Status))).
			Render()
		lines = append(lines, cursor+icon+" "+label+" "+bar+"  "+theme.TitleMuted.Render(string(ph.Status)))
	}
	return widgets.NewBox("Pipeline").
		WithTitleRight("[↑/↓] phase").
		WithContent(strings.Join(lines, "\n")).
		WithSize(m.width, 0).
		Render()
}

func (m DashboardModel) renderNodes(ph derive.PipelineGraphPhase) string {
	rows := []widgets.TableRow{}
	for _, n := range m.last.Nodes {
		if n.PhaseID != ph.ID {
			continue
		}
		note := n.StaleReason
		if n.FixRecipe != "" && n.Status == derive.NodeStale {
			note = fmt.Sprintf("%s (fix: %s)", note, n.FixRecipe)
		}
		rows = append(rows, widgets.NodeRow(string(n.Status), n.Label, fmt.Sprintf("%d", n.ArtifactCount), note))
	}
	table := widgets.NewTable([]widgets.TableColumn{
		{Header: "Node", Width: 26},
		{Header: "Status", Width: 16},
		{Header: "Artifacts", Width: 10, Align: lipgloss.Right},
		{Header: "Note", Width: 44},
	}).WithRows(rows).WithCursor(-1).WithSize(m.width, 0)

	title := ph.Label
	if ph.NavRoute != "" {
		title = fmt.Sprintf("%s  %s", ph.Label, ph.NavRoute)
	}
	return widgets.NewBox(title).WithContent(table.Render()).WithSize(m.width, 0).Render()
}
