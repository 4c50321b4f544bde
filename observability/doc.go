// Package observability provides OpenTelemetry tracing and metrics for
// pipeline execution.
//
// One call wires both signals to an OTLP collector:
//
//	shutdown, err := observability.Init(ctx, observability.DefaultConfig("augmentkit"))
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("augmentkit"))
//	metrics.RecordRunEnd(ctx, "train", observability.SpanPipelineRun, "ok", duration)
//
// Pipelines thread a RunContext through the walk so spans opened around
// individual transform applies carry the pipeline name and seed.
package observability
