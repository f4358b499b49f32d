package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
)

// Footer shows the last notice (a dispatch error or an action result) above
// the key hints of the active view.
type Footer struct {
	keys    []Keybind
	notice  string
	isError bool
	width   int
	theme   styles.Theme
}

func NewFooter(keys []Keybind) Footer {
	return Footer{keys: keys, theme: styles.DefaultTheme()}
}

func (f Footer) WithWidth(w int) Footer {
	f.width = w
	return f
}

func (f Footer) WithMessage(notice string, isError bool) Footer {
	f.notice, f.isError = notice, isError
	return f
}

func (f Footer) Render() string {
	lines := []string{rule(f.width, f.theme)}
	if f.notice != "" {
		style := f.theme.TitleMuted
		if f.isError {
			style = f.theme.StatusFailed
		}
		lines = append(lines, style.Render(f.notice))
	}
	keys := RenderKeybinds(f.keys, f.theme)
	if f.width > 0 {
		keys = lipgloss.PlaceHorizontal(f.width, lipgloss.Center, keys)
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, keys)...)
}
