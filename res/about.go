// Package res holds static application content.
package res

// AboutContent contains the Markdown content for the About dialog.
const AboutContent = `An audio-reactive synthwave visualizer built with Go and Fyne.

**Sources:**
- Local audio and video files (MP3, WAV, OGG, MP4 and more), by dialog or drag-and-drop
- Remote audio by URL
- Live-coded patterns rendered to audio

**Scene:**
- 64 frequency bars driven by a 256-point FFT
- Particle cloud drifting with the mean amplitude
- Animated sun, grid and mountains
`
