package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/studioctl/pkg/tui/styles"
)

// TableColumn defines a column in the table.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row in the table. Status picks the icon color.
type TableRow struct {
	Icon   string
	Status string
	Cells  []string
	Dim    bool
}

// Table renders a styled table with selection support.
type Table struct {
	Columns []TableColumn
	Rows    []TableRow
	Cursor  int
	Width   int
	Height  int
	theme   styles.Theme
}

// NewTable creates a new table.
func NewTable(cols []TableColumn) Table {
	return Table{
		Columns: cols,
		theme:   styles.DefaultTheme(),
	}
}

// WithRows sets the table rows.
func (t Table) WithRows(rows []TableRow) Table {
	t.Rows = rows
	return t
}

// WithCursor sets the selected row index.
func (t Table) WithCursor(idx int) Table {
	t.Cursor = idx
	return t
}

// WithSize sets the table dimensions.
func (t Table) WithSize(width, height int) Table {
	t.Width = width
	t.Height = height
	return t
}

// Render returns the styled table as a string.
func (t Table) Render() string {
	if len(t.Rows) == 0 {
		return t.theme.TitleMuted.Render("(no data)")
	}

	theme := t.theme
	var lines []string

	// Calculate column widths if not specified
	cols := t.Columns
	if len(cols) == 0 && len(t.Rows) > 0 {
		// Auto-generate columns from first row
		cols = make([]TableColumn, len(t.Rows[0].Cells))
		for i := range cols {
			cols[i] = TableColumn{Width: 20}
		}
	}

	// Render rows
	for i, row := range t.Rows {
		isSelected := t.Cursor >= 0 && i == t.Cursor

		// Icon + cells
		var parts []string

		// Cursor indicator
		cursor := "  "
		if isSelected {
			cursor = theme.KeybindKey.Render("> ")
		}
		parts = append(parts, cursor)

		// Icon
		if row.Icon != "" {
			iconStyle := theme.StatusStyle(row.Status)
			parts = append(parts, iconStyle.Render(row.Icon)+" ")
		}

		// Cells
		for j, cell := range row.Cells {
			width := 20 // default
			if j < len(cols) && cols[j].Width > 0 {
				width = cols[j].Width
			}

			cellStr := truncate(cell, width)

			cellStyle := lipgloss.NewStyle().Width(width)
			if j < len(cols) {
				cellStyle = cellStyle.Align(cols[j].Align)
			}

			switch {
			case isSelected:
				cellStyle = cellStyle.Bold(true).Foreground(theme.Text)
			case row.Dim:
				cellStyle = cellStyle.Foreground(theme.Muted)
			default:
				cellStyle = cellStyle.Foreground(theme.TextDim)
			}

			parts = append(parts, cellStyle.Render(cellStr))
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

		// Apply selection background
		if isSelected {
			line = theme.Selected.Width(t.Width).Render(line)
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// NodeRow is a table row for a pipeline graph node.
func NodeRow(status, label, artifacts, note string) TableRow {
	return TableRow{
		Icon:   styles.NodeIcon(status),
		Status: status,
		Cells:  []string{label, status, artifacts, note},
		Dim:    status == "not_implemented",
	}
}

// InboxRow is a table row for an inbox entry. Read entries are dimmed.
func InboxRow(itemType, title, when string, read bool) TableRow {
	marker := styles.IconUnread
	if read {
		marker = styles.IconRead
	}
	return TableRow{
		Icon:   styles.InboxIcon(itemType),
		Status: inboxStatus(itemType),
		Cells:  []string{marker, title, when},
		Dim:    read,
	}
}

func inboxStatus(itemType string) string {
	switch itemType {
	case "stale":
		return "stale"
	case "error":
		return "blocked"
	default:
		return "in_progress"
	}
}

func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
