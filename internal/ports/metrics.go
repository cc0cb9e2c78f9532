package ports

// PipelineMetrics observes pipeline resource counts and activity.
type PipelineMetrics interface {
	// SetLive sets the live count of a resource ("url", "element", "graph", "loop").
	SetLive(resource string, n int)
	ObserveLoad(kind string)
	ObserveTeardown()
	ObserveRejection(reason string)
	ObserveFrame()
	ObserveNotice(category string)
}
