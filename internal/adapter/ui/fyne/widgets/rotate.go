package widgets

import "strings"

// Marquee scrolls text that is longer than the space it is shown in.
// Text that fits is returned unchanged.
type Marquee struct {
	runes []rune
	width int
}

// NewMarquee creates a marquee showing at most width runes.
func NewMarquee(text string, width int) *Marquee {
	m := &Marquee{width: width}
	m.SetText(text)
	return m
}

// SetText replaces the text and restarts the scroll.
func (m *Marquee) SetText(text string) {
	m.runes = []rune(text)
	if len(m.runes) > m.width {
		m.runes = append(m.runes, []rune(strings.Repeat(" ", 4))...)
	}
}

// Rotate moves the text one rune to the left and returns the visible part.
func (m *Marquee) Rotate() string {
	if len(m.runes) <= m.width {
		return string(m.runes)
	}
	m.runes = append(m.runes[1:], m.runes[0])
	return string(m.runes[:m.width])
}

// Scrolls reports whether the text is too long to show at once.
func (m *Marquee) Scrolls() bool {
	return len(m.runes) > m.width
}
