// Package ptrace wraps the OpenTelemetry tracing API
// so that the rest of the module only references this package.
package ptrace

import (
	otelattr "go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	otpnoop "go.opentelemetry.io/otel/trace/noop"
)

type TracerProvider = oteltrace.TracerProvider

type Tracer = oteltrace.Tracer

type Span = oteltrace.Span

type KeyValueAttr = otelattr.KeyValue

// InstrumentationName is the tracer name used by this module.
const InstrumentationName = "github.com/gordian-engine/pantry"

// NopTracerProvider returns the otel no-op tracer provider.
// This is intended to use as a fallback when a nil tracer provider is given.
func NopTracerProvider() TracerProvider {
	return otpnoop.NewTracerProvider()
}

// TracerFrom returns the module tracer from tp,
// falling back to the no-op provider if tp is nil.
func TracerFrom(tp TracerProvider) Tracer {
	if tp == nil {
		tp = NopTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}

// WithAttributes is an alias to [oteltrace.WithAttributes]
// to allow consumers to only reference the ptrace package.
func WithAttributes(attrs ...KeyValueAttr) oteltrace.SpanStartEventOption {
	return oteltrace.WithAttributes(attrs...)
}

// SpanError sets the given span to error status,
// with detail from err.Error().
func SpanError(span oteltrace.Span, err error) {
	span.SetStatus(otelcodes.Error, err.Error())
}

// TickSeqAttr is the sequence number of a source tick.
func TickSeqAttr(seq uint64) KeyValueAttr {
	return otelattr.Int64("pantry.tick.seq", int64(seq))
}

// KindAttr is the kind of the item generated by a tick.
func KindAttr(kind string) KeyValueAttr {
	return otelattr.String("pantry.item.kind", kind)
}

// SubscribersAttr is the number of observers a tick was delivered to.
func SubscribersAttr(n int) KeyValueAttr {
	return otelattr.Int("pantry.tick.subscribers", n)
}
