package apm

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span extends trace.Span with NoticeError, which records the error and
// marks the span failed in one call.
type Span interface {
	trace.Span
	NoticeError(err error)
}

type traceSpan struct {
	trace.Span
}

func NewSpan(span trace.Span) Span {
	return &traceSpan{span}
}

func (t *traceSpan) NoticeError(err error) {
	t.RecordError(err)
	t.SetStatus(codes.Error, err.Error())
}
