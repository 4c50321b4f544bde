package observability

import (
	"context"
	"time"
)

// RunContext identifies the pipeline run an operation belongs to, so
// instrumentation deeper in the walk can attach it to spans and metrics.
type RunContext struct {
	Pipeline  string
	Operation string
	Seed      uint64
	StartTime time.Time
}

// NewRunContext creates a run context starting now.
func NewRunContext(pipeline, operation string, seed uint64) *RunContext {
	return &RunContext{
		Pipeline:  pipeline,
		Operation: operation,
		Seed:      seed,
		StartTime: time.Now(),
	}
}

// runContextKey is the context key for RunContext.
type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
