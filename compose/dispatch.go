package compose

import (
	"context"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform"
)

// applyLeaf routes every bundle role the unit supports through its applier.
// Pixel targets go first; the canvas is then re-derived so geometry targets
// are filtered against the post-transform shape. Geometry movement and the
// policy filter form one step: label columns are compacted together with
// their entries before anything is written back.
func (w *walker) applyLeaf(ctx context.Context, path string, t transform.Transform, params sample.Values) error {
	caps := transform.Capabilities(t)
	canvas := w.canvas

	for _, role := range w.bundle.Roles() {
		kind, _ := w.p.kindOf(role)
		if !kind.Pixel() || !caps[kind] {
			continue
		}
		payload, _ := w.bundle.Get(role)
		out, err := w.apply(ctx, t, kind, payload, params, canvas)
		if err != nil {
			return errors.TransformFailed(path, t.Name(), err)
		}
		w.bundle.Set(role, out)
	}

	next := canvas
	if caps[w.canvasKind] {
		shape, err := shapeOf(w.bundle, w.canvasRole, w.canvasKind)
		if err != nil {
			return errors.TransformFailed(path, t.Name(), err)
		}
		if shape.Empty() {
			return errors.TransformFailed(path, t.Name(), errors.InvalidInput(w.canvasRole, "transform produced a zero-sized canvas"))
		}
		next = shape
	}

	for _, role := range w.bundle.Roles() {
		kind, _ := w.p.kindOf(role)
		if !kind.Geometry() || !caps[kind] {
			continue
		}
		payload, _ := w.bundle.Get(role)
		out, err := w.apply(ctx, t, kind, payload, params, canvas)
		if err != nil {
			return errors.TransformFailed(path, t.Name(), err)
		}
		switch kind {
		case target.KindBoxes:
			out = out.(target.Boxes).Filter(w.p.boxPolicy, next)
		case target.KindKeypoints:
			out = out.(target.Keypoints).Filter(w.p.kpPolicy, next)
		}
		w.bundle.Set(role, out)
	}

	w.canvas = next
	return nil
}

func (w *walker) apply(ctx context.Context, t transform.Transform, kind target.Kind, payload any, params sample.Values, canvas target.Shape) (any, error) {
	if w.p.tracing {
		return transform.TraceApply(ctx, t, kind, payload, params, canvas)
	}
	return transform.Apply(t, kind, payload, params, canvas)
}
