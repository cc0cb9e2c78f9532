package fyne

import (
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// FileDialog is a helper for creating media file open dialogs.
type FileDialog struct {
	window     fyne.Window
	extensions []string
	callback   func(string)
	logger     *slog.Logger
}

// NewFileDialog creates a new file dialog. With no extensions every file is shown.
func NewFileDialog(window fyne.Window, extensions []string, callback func(string), logger *slog.Logger) *FileDialog {
	return &FileDialog{
		window:     window,
		extensions: extensions,
		callback:   callback,
		logger:     logger,
	}
}

// Show displays the file dialog.
func (d *FileDialog) Show() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			d.logger.Error("file dialog error", slog.Any("error", err))
			return
		}
		if reader == nil {
			return // User cancelled
		}
		defer reader.Close()

		filePath := reader.URI().Path()
		if d.callback != nil {
			d.callback(filePath)
		}
	}, d.window)

	if len(d.extensions) > 0 {
		fd.SetFilter(storage.NewExtensionFileFilter(d.extensions))
	}
	fd.Show()
}

// URLDialog asks for the address of remote audio.
type URLDialog struct {
	window   fyne.Window
	callback func(string)
}

// NewURLDialog creates a new URL dialog.
func NewURLDialog(window fyne.Window, callback func(string)) *URLDialog {
	return &URLDialog{
		window:   window,
		callback: callback,
	}
}

// Show displays the URL dialog.
func (d *URLDialog) Show() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("https://example.com/track.mp3")

	items := []*widget.FormItem{widget.NewFormItem("URL", entry)}
	dialog.ShowForm("Load from URL", "Load", "Cancel", items, func(confirmed bool) {
		if !confirmed || d.callback == nil {
			return
		}
		d.callback(strings.TrimSpace(entry.Text))
	}, d.window)
}
