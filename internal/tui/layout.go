package tui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	editorHeight   int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 12,
		editorHeight:   codeEditorHeight,
	}
}

// Update splits the window between the input panel and the documentation
// viewport. The chrome covers header, tabs, hints, messages and status bar.
func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth

	l.editorHeight = codeEditorHeight
	if height < 30 {
		l.editorHeight = 5
	}
	const chrome = 14
	l.viewportHeight = height - chrome - l.editorHeight
	if l.viewportHeight < 5 {
		l.viewportHeight = 5
	}
}

// wrapWidth is the text width available inside the page after padding.
func (l pageLayout) wrapWidth(padding int) int {
	width := l.viewportWidth
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func (l pageLayout) wrap(text string) string {
	return wordwrap.String(text, l.wrapWidth(0))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}
