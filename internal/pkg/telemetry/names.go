package telemetry

// Span and attribute names used for instrumentation.
const (
	SpanTraceRun     = "trace.run"
	SpanTraceroute   = "trace.traceroute"
	SpanGeolocate    = "trace.geolocate"
	SpanSceneBuild   = "scene.build"
	AttrTraceTarget  = "trace.target"
	AttrTraceID      = "trace.id"
	AttrHopCount     = "trace.hops"
	AttrLocatedCount = "trace.hops_located"
)
