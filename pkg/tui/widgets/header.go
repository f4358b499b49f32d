package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
)

// Tab is one view in the header's tab strip. Badge is shown when positive,
// e.g. the unread inbox count.
type Tab struct {
	Label  string
	Active bool
	Badge  int
}

// Header shows the project, the engine status, the view tabs and the age of
// the data on screen.
type Header struct {
	title   string
	icon    string
	status  string
	healthy bool
	tabs    []Tab
	since   time.Duration
	width   int
	theme   styles.Theme
}

func NewHeader(title string) Header {
	return Header{title: title, theme: styles.DefaultTheme()}
}

func (h Header) WithStatus(icon, status string, healthy bool) Header {
	h.icon, h.status, h.healthy = icon, status, healthy
	return h
}

func (h Header) WithTabs(tabs []Tab) Header {
	h.tabs = tabs
	return h
}

// WithSince sets how long ago the projections were derived.
func (h Header) WithSince(d time.Duration) Header {
	h.since = d
	return h
}

func (h Header) WithWidth(w int) Header {
	h.width = w
	return h
}

func (h Header) Render() string {
	t := h.theme
	left := lipgloss.NewStyle().Bold(true).Foreground(t.Text).Background(t.Primary).Padding(0, 1).Render(h.title)
	if h.status != "" {
		style := t.StatusFailed
		if h.healthy {
			style = t.StatusDone
		}
		left += "  " + style.Render(h.icon) + " " + t.Title.UnsetBold().Render(h.status)
	}

	var right []string
	if h.since > 0 {
		right = append(right, t.TitleMuted.Render("updated "+Ago(h.since)))
	}
	if len(h.tabs) > 0 {
		right = append(right, h.renderTabs())
	}

	width := h.width
	if width <= 0 {
		width = defaultWidth
	}
	return spread(left, strings.Join(right, "  "), width) + "\n" + rule(width, t)
}

func (h Header) renderTabs() string {
	parts := make([]string, 0, len(h.tabs))
	for _, tab := range h.tabs {
		label := tab.Label
		if tab.Badge > 0 {
			label = fmt.Sprintf("%s (%d)", label, tab.Badge)
		}
		if tab.Active {
			parts = append(parts, h.theme.Selected.Render(" "+label+" "))
		} else {
			parts = append(parts, h.theme.Keybind.Render(" "+label+" "))
		}
	}
	return strings.Join(parts, "")
}

// Ago formats a duration for "updated ... ago" hints with second precision.
func Ago(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds ago", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("%dh%02dm ago", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
}
