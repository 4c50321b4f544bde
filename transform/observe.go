package transform

import (
	"context"
	"time"

	"github.com/kbukum/augmentkit/logger"
	"github.com/kbukum/augmentkit/observability"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
)

// WithLogging wraps a unit with per-apply logging.
// Logs: transform name, role kind, duration, and success/error status.
func WithLogging(t Transform, log *logger.Logger) Transform {
	return &loggingUnit{inner: t, log: log}
}

type loggingUnit struct {
	inner Transform
	log   *logger.Logger
}

func (u *loggingUnit) Name() string           { return u.inner.Name() }
func (u *loggingUnit) Probability() float64   { return u.inner.Probability() }
func (u *loggingUnit) Schema() *sample.Schema { return u.inner.Schema() }
func (u *loggingUnit) Kinds() []target.Kind   { return u.inner.Kinds() }

func (u *loggingUnit) apply(kind target.Kind, payload any, params sample.Values, canvas target.Shape) (any, error) {
	start := time.Now()
	out, err := Apply(u.inner, kind, payload, params, canvas)
	duration := time.Since(start)

	fields := logger.Fields(
		logger.FieldTransform, u.inner.Name(),
		logger.FieldKind, string(kind),
	)
	fields = logger.MergeWithDuration(fields, duration)

	if err != nil {
		u.log.Error("transform apply failed", logger.MergeWithError(fields, err))
	} else {
		u.log.Debug("transform apply completed", fields)
	}

	return out, err
}

func (u *loggingUnit) ApplyImage(img target.Image, params sample.Values, canvas target.Shape) (target.Image, error) {
	out, err := u.apply(target.KindImage, img, params, canvas)
	if err != nil {
		return target.Image{}, err
	}
	return out.(target.Image), nil
}

func (u *loggingUnit) ApplyMask(m target.Mask, params sample.Values, canvas target.Shape) (target.Mask, error) {
	out, err := u.apply(target.KindMask, m, params, canvas)
	if err != nil {
		return target.Mask{}, err
	}
	return out.(target.Mask), nil
}

func (u *loggingUnit) ApplyBoxes(b target.Boxes, params sample.Values, canvas target.Shape) (target.Boxes, error) {
	out, err := u.apply(target.KindBoxes, b, params, canvas)
	if err != nil {
		return target.Boxes{}, err
	}
	return out.(target.Boxes), nil
}

func (u *loggingUnit) ApplyKeypoints(k target.Keypoints, params sample.Values, canvas target.Shape) (target.Keypoints, error) {
	out, err := u.apply(target.KindKeypoints, k, params, canvas)
	if err != nil {
		return target.Keypoints{}, err
	}
	return out.(target.Keypoints), nil
}

func (u *loggingUnit) ApplyVolume(v target.Volume, params sample.Values, canvas target.Shape) (target.Volume, error) {
	out, err := u.apply(target.KindVolume, v, params, canvas)
	if err != nil {
		return target.Volume{}, err
	}
	return out.(target.Volume), nil
}

// WithMetrics wraps a unit with metric recording.
// Records apply count, duration, and errors per role kind.
func WithMetrics(t Transform, metrics *observability.Metrics) Transform {
	return &metricsUnit{inner: t, metrics: metrics}
}

type metricsUnit struct {
	inner   Transform
	metrics *observability.Metrics
}

func (u *metricsUnit) Name() string           { return u.inner.Name() }
func (u *metricsUnit) Probability() float64   { return u.inner.Probability() }
func (u *metricsUnit) Schema() *sample.Schema { return u.inner.Schema() }
func (u *metricsUnit) Kinds() []target.Kind   { return u.inner.Kinds() }

func (u *metricsUnit) apply(kind target.Kind, payload any, params sample.Values, canvas target.Shape) (any, error) {
	ctx := context.Background()
	start := time.Now()
	out, err := Apply(u.inner, kind, payload, params, canvas)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		u.metrics.RecordError(ctx, "apply", u.inner.Name())
	}
	u.metrics.RecordOperation(ctx, u.inner.Name(), "transform.apply."+string(kind), status, duration)

	return out, err
}

func (u *metricsUnit) ApplyImage(img target.Image, params sample.Values, canvas target.Shape) (target.Image, error) {
	out, err := u.apply(target.KindImage, img, params, canvas)
	if err != nil {
		return target.Image{}, err
	}
	return out.(target.Image), nil
}

func (u *metricsUnit) ApplyMask(m target.Mask, params sample.Values, canvas target.Shape) (target.Mask, error) {
	out, err := u.apply(target.KindMask, m, params, canvas)
	if err != nil {
		return target.Mask{}, err
	}
	return out.(target.Mask), nil
}

func (u *metricsUnit) ApplyBoxes(b target.Boxes, params sample.Values, canvas target.Shape) (target.Boxes, error) {
	out, err := u.apply(target.KindBoxes, b, params, canvas)
	if err != nil {
		return target.Boxes{}, err
	}
	return out.(target.Boxes), nil
}

func (u *metricsUnit) ApplyKeypoints(k target.Keypoints, params sample.Values, canvas target.Shape) (target.Keypoints, error) {
	out, err := u.apply(target.KindKeypoints, k, params, canvas)
	if err != nil {
		return target.Keypoints{}, err
	}
	return out.(target.Keypoints), nil
}

func (u *metricsUnit) ApplyVolume(v target.Volume, params sample.Values, canvas target.Shape) (target.Volume, error) {
	out, err := u.apply(target.KindVolume, v, params, canvas)
	if err != nil {
		return target.Volume{}, err
	}
	return out.(target.Volume), nil
}

var (
	_ Transform    = (*loggingUnit)(nil)
	_ ImageApplier = (*loggingUnit)(nil)
	_ Transform    = (*metricsUnit)(nil)
	_ ImageApplier = (*metricsUnit)(nil)
)

// SpanName returns the observability span name for one apply of the named
// unit, used by pipeline-level tracing.
func SpanName(name string) string {
	return observability.SpanTransformApply + "." + name
}

// TraceApply runs one apply of t under an OpenTelemetry span tied to ctx.
// The pipeline walk owns the context, so tracing happens here rather than in
// a unit decorator.
func TraceApply(ctx context.Context, t Transform, kind target.Kind, payload any, params sample.Values, canvas target.Shape) (any, error) {
	ctx, span := observability.StartSpan(ctx, SpanName(t.Name()))
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrTransformName, t.Name())
	observability.SetSpanAttribute(ctx, observability.AttrTargetKind, string(kind))
	if rc := observability.RunContextFromContext(ctx); rc != nil {
		observability.SetSpanAttribute(ctx, observability.AttrPipelineName, rc.Pipeline)
		observability.SetSpanAttribute(ctx, observability.AttrSeed, int64(rc.Seed))
	}

	out, err := Apply(t, kind, payload, params, canvas)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return out, err
}
