package service

import (
	"sync"
	"testing"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/truestream/internal/adapter/clock"
	"github.com/tejashwikalptaru/truestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/truestream/internal/adapter/objecturl"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/logger"
)

// eventLog collects every event published on a bus.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) add(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func (l *eventLog) notices() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if n, ok := e.(domain.NoticeEvent); ok {
			out = append(out, n.Message)
		}
	}
	return out
}

// snapshots returns the frames that carried sampled data.
func (l *eventLog) snapshots() []domain.FrequencySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.FrequencySnapshot
	for _, e := range l.events {
		if f, ok := e.(domain.VisualFrameEvent); ok && f.Snapshot != nil {
			out = append(out, f.Snapshot)
		}
	}
	return out
}

func (l *eventLog) transitions() [][2]domain.PlaybackState {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out [][2]domain.PlaybackState
	for _, e := range l.events {
		if sc, ok := e.(domain.StateChangedEvent); ok {
			out = append(out, [2]domain.PlaybackState{sc.From, sc.To})
		}
	}
	return out
}

func (l *eventLog) count(t domain.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type() == t {
			n++
		}
	}
	return n
}

// recordingMetrics keeps the last live count per resource.
type recordingMetrics struct {
	mu         sync.Mutex
	live       map[string]int
	loads      int
	teardowns  int
	rejections int
	frames     int
	notices    map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{live: map[string]int{}, notices: map[string]int{}}
}

func (m *recordingMetrics) SetLive(resource string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[resource] = n
}

func (m *recordingMetrics) ObserveLoad(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
}

func (m *recordingMetrics) ObserveTeardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardowns++
}

func (m *recordingMetrics) ObserveRejection(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections++
}

func (m *recordingMetrics) ObserveFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

func (m *recordingMetrics) ObserveNotice(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices[category]++
}

func (m *recordingMetrics) liveCount(resource string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[resource]
}

// recordingReporter captures reported errors.
type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(err error, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) Flush(time.Duration) bool { return true }

func (r *recordingReporter) reported() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// staticTags tags every source with the same title and artist.
type staticTags struct {
	title, artist string
}

func (s staticTags) ReadTags(_ domain.MediaSource, info domain.TrackInfo) domain.TrackInfo {
	info.Title = s.title
	info.Artist = s.artist
	return info
}

// pipelineHarness wires a PipelineService to mock adapters and a manual clock.
type pipelineHarness struct {
	svc      *PipelineService
	urls     *objecturl.Manager
	elements *mock.ElementFactory
	graphs   *mock.GraphFactory
	clock    *clock.Manual
	bus      *eventbus.SyncEventBus
	journal  *mock.Journal
	log      *eventLog
	metrics  *recordingMetrics
	reporter *recordingReporter
}

func newPipelineHarness(t *testing.T) *pipelineHarness {
	t.Helper()

	log := logger.NewTestLogger()
	h := &pipelineHarness{
		urls:     objecturl.NewManager(log),
		elements: mock.NewElementFactory(),
		graphs:   mock.NewGraphFactory(),
		clock:    clock.NewManual(time.Unix(0, 0)),
		bus:      eventbus.NewSyncEventBus(),
		journal:  mock.NewJournal(),
		log:      &eventLog{},
		metrics:  newRecordingMetrics(),
		reporter: &recordingReporter{},
	}
	h.elements.SetJournal(h.journal)
	h.graphs.SetJournal(h.journal)
	h.bus.SubscribeAll(h.log.add)

	h.svc = NewPipelineService(log, PipelineDeps{
		URLs:     mock.NewURLStore(h.urls, h.journal),
		Elements: h.elements,
		Graphs:   h.graphs,
		Frames:   h.clock,
		Bus:      h.bus,
		Metrics:  h.metrics,
		Reporter: h.reporter,
	})
	t.Cleanup(func() {
		_ = h.svc.Shutdown()
	})
	return h
}

func audioSource(name string) domain.MediaSource {
	return domain.NewMediaSource(name, "audio/mpeg", make([]byte, 3<<20))
}

func videoSource(name string) domain.MediaSource {
	return domain.NewMediaSource(name, "video/mp4", make([]byte, 1<<20))
}
