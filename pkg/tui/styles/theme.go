package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the console palette. Status styles follow the graph vocabulary:
// done, in progress, stale, failed or blocked, and pending.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color

	Border     lipgloss.Style
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Selected   lipgloss.Style
	Keybind    lipgloss.Style
	KeybindKey lipgloss.Style

	StatusDone    lipgloss.Style
	StatusActive  lipgloss.Style
	StatusStale   lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style

	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	SystemMessage    lipgloss.Style
}

func DefaultTheme() Theme {
	t := Theme{
		Primary:   lipgloss.Color("#D97706"), // amber, the studio accent
		Secondary: lipgloss.Color("#38BDF8"),
		Success:   lipgloss.Color("#4ADE80"),
		Warning:   lipgloss.Color("#FACC15"),
		Error:     lipgloss.Color("#F87171"),
		Muted:     lipgloss.Color("#6B7280"),
		Text:      lipgloss.Color("#F3F4F6"),
		TextDim:   lipgloss.Color("#9CA3AF"),
	}

	t.Border = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(t.Muted)
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(t.Text)
	t.TitleMuted = lipgloss.NewStyle().Foreground(t.TextDim)
	t.Selected = lipgloss.NewStyle().Bold(true).Foreground(t.Text).Background(lipgloss.Color("#3F3F46"))
	t.Keybind = lipgloss.NewStyle().Foreground(t.TextDim)
	t.KeybindKey = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)

	t.StatusDone = lipgloss.NewStyle().Foreground(t.Success)
	t.StatusActive = lipgloss.NewStyle().Foreground(t.Secondary)
	t.StatusStale = lipgloss.NewStyle().Foreground(t.Warning)
	t.StatusFailed = lipgloss.NewStyle().Foreground(t.Error)
	t.StatusPending = lipgloss.NewStyle().Foreground(t.Muted)

	t.UserMessage = lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	t.AssistantMessage = lipgloss.NewStyle().Foreground(t.Text)
	t.SystemMessage = lipgloss.NewStyle().Italic(true).Foreground(t.TextDim)
	return t
}

// StatusStyle picks the style for a node or phase status string.
func (t Theme) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return t.StatusDone
	case "in_progress", "partial":
		return t.StatusActive
	case "stale":
		return t.StatusStale
	case "blocked":
		return t.StatusFailed
	default:
		return t.StatusPending
	}
}

// LevelStyle styles event-log lines by level.
func (t Theme) LevelStyle(level string) lipgloss.Style {
	switch level {
	case "error":
		return t.StatusFailed
	case "warn":
		return t.StatusStale
	case "debug":
		return t.StatusPending
	default:
		return t.TitleMuted
	}
}
