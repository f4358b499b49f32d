package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RatioBar draws completed-of-implemented counts, e.g. "█████░░░░░ 2/4".
type RatioBar struct {
	done, total int
	width       int
	style       lipgloss.Style
}

func NewRatioBar(done, total int) RatioBar {
	if done < 0 {
		done = 0
	}
	if total > 0 && done > total {
		done = total
	}
	return RatioBar{done: done, total: total, width: 20}
}

func (b RatioBar) WithWidth(width int) RatioBar {
	b.width = max(width, 5)
	return b
}

// WithStyle styles the filled cells.
func (b RatioBar) WithStyle(style lipgloss.Style) RatioBar {
	b.style = style
	return b
}

// Render returns the bar. A zero total renders empty.
func (b RatioBar) Render() string {
	filled := 0
	if b.total > 0 {
		filled = b.width * b.done / b.total
	}
	bar := b.style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", b.width-filled)
	return fmt.Sprintf("%s %d/%d", bar, b.done, b.total)
}
