package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/kbukum/augmentkit/observability"

// Span names for the engine's traced operations.
const (
	SpanPipelineRun    = "pipeline.run"
	SpanPipelineReplay = "pipeline.replay"
	SpanTransformApply = "transform.apply"
)

// Attribute keys attached to those spans.
const (
	AttrPipelineName  = "pipeline.name"
	AttrTransformName = "transform.name"
	AttrTargetKind    = "transform.kind"
	AttrSeed          = "seed"
)

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span using the default tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(defaultTracerName).Start(ctx, name, opts...)
}

// SetSpanAttribute sets an attribute on the span recording on ctx, if any.
// Values outside the directly supported types are stringified.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	var kv attribute.KeyValue
	switch v := value.(type) {
	case string:
		kv = attribute.String(key, v)
	case int:
		kv = attribute.Int(key, v)
	case int64:
		kv = attribute.Int64(key, v)
	case float64:
		kv = attribute.Float64(key, v)
	case bool:
		kv = attribute.Bool(key, v)
	default:
		kv = attribute.String(key, fmt.Sprintf("%v", v))
	}
	span.SetAttributes(kv)
}

// SetSpanError records err on the span recording on ctx and marks the span
// status as error.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
