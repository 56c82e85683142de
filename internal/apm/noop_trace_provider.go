package apm

// emptyTraceProvider satisfies TraceProvider when tracing is disabled.
// The global otel tracer stays at its no-op default.
type emptyTraceProvider struct{}

func NewEmptyTraceProvider() TraceProvider {
	return emptyTraceProvider{}
}

func (emptyTraceProvider) Stop() error { return nil }
