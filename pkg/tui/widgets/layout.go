package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
)

// defaultWidth is used before the first WindowSizeMsg arrives.
const defaultWidth = 80

func rule(width int, theme styles.Theme) string {
	if width <= 0 {
		width = defaultWidth
	}
	return lipgloss.NewStyle().Foreground(theme.Muted).Render(strings.Repeat("━", width))
}

// spread places left and right on one line of the given width, keeping at
// least one space between them.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
