package widgets

import "github.com/go-go-golems/studioctl/pkg/tui/styles"

// Box is a rounded panel with a title line. Title text on the right is used
// for per-view key hints.
type Box struct {
	title   string
	hint    string
	content string
	width   int
	height  int
	focused bool
	theme   styles.Theme
}

func NewBox(title string) Box {
	return Box{title: title, theme: styles.DefaultTheme()}
}

func (b Box) WithContent(content string) Box {
	b.content = content
	return b
}

func (b Box) WithTitleRight(hint string) Box {
	b.hint = hint
	return b
}

// WithSize sets the outer size; zero leaves that dimension to the content.
func (b Box) WithSize(width, height int) Box {
	b.width, b.height = width, height
	return b
}

func (b Box) WithFocus(focused bool) Box {
	b.focused = focused
	return b
}

func (b Box) Render() string {
	style := b.theme.Border
	if b.focused {
		style = style.BorderForeground(b.theme.Primary)
	}

	inner := b.width - 2
	if inner < 0 {
		inner = 0
	}
	body := b.content
	hasTitle := b.title != "" || b.hint != ""
	if hasTitle {
		title := spread(b.theme.Title.Render(b.title), b.theme.TitleMuted.Render(b.hint), inner)
		body = title + "\n" + body
	}

	if b.width > 0 {
		style = style.Width(inner)
	}
	if b.height > 0 {
		h := b.height - 2
		if hasTitle {
			h--
		}
		style = style.Height(max(h, 0))
	}
	return style.Render(body)
}
