package ports

import (
	"github.com/tejashwikalptaru/truestream/internal/domain"
)

// View is the interface the presenter drives.
// This abstracts the Fyne window and allows presenter tests without a real UI.
//
// Thread-safety: Implementations marshal updates onto the UI thread themselves,
// so the presenter may call these from any goroutine.
type View interface {
	// SetTrackInfo shows the loaded source in the control panel.
	SetTrackInfo(info domain.TrackInfo)

	// ClearTrackInfo resets the control panel to its empty state.
	ClearTrackInfo()

	// SetPlaying updates the play/pause toggle.
	SetPlaying(playing bool)

	// SetAnalysisLive switches the "Audio Analysis" indicator between LIVE and STANDBY.
	SetAnalysisLive(live bool)

	// RenderFrame hands one visual frame to the scene.
	RenderFrame(frame domain.VisualFrameEvent)

	// SetBusy shows or hides the loading indicator of the source selector.
	SetBusy(busy bool)

	// ShowNotice displays a single user-visible message.
	ShowNotice(message string)
}
