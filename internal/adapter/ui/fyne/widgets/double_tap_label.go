package widgets

import (
	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

var _ fyneapp.DoubleTappable = (*DoubleTapLabel)(nil)

// DoubleTapLabel is a label that runs a callback when double-tapped.
// The control panel uses it for the track name to toggle playback.
type DoubleTapLabel struct {
	widget.Label
	doubleTapped func()
}

// NewDoubleTapLabel creates a new DoubleTapLabel with the given callback function.
func NewDoubleTapLabel(text string, doubleTapped func()) *DoubleTapLabel {
	label := &DoubleTapLabel{
		doubleTapped: doubleTapped,
	}
	label.Text = text
	label.ExtendBaseWidget(label)
	return label
}

// DoubleTapped implements the fyne.DoubleTappable interface.
func (l *DoubleTapLabel) DoubleTapped(_ *fyneapp.PointEvent) {
	if l.doubleTapped != nil {
		l.doubleTapped()
	}
}

// SetOnDoubleTapped replaces the callback.
func (l *DoubleTapLabel) SetOnDoubleTapped(fn func()) {
	l.doubleTapped = fn
}
