package compose

import (
	"context"
	"fmt"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/logger"
	"github.com/kbukum/augmentkit/observability"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform"
	"github.com/kbukum/augmentkit/util"
)

// Run executes one walk over the bundle and returns the transformed copy.
// The input bundle and its payloads are never modified. Any transform
// failure aborts the walk and discards the partial output.
func (p *Pipeline) Run(ctx context.Context, b *target.Bundle) (*target.Bundle, error) {
	out, _, err := p.RunTraced(ctx, b)
	return out, err
}

// RunTraced is Run plus the decision trace of the walk.
func (p *Pipeline) RunTraced(ctx context.Context, b *target.Bundle) (*target.Bundle, *Trace, error) {
	canvasRole, canvas, err := p.validateBundle(b)
	if err != nil {
		return nil, nil, err
	}

	seed, stream := p.streamFor()
	canvasKind, _ := p.kindOf(canvasRole)
	w := &walker{
		mode:       modeRecord,
		p:          p,
		stream:     stream,
		bundle:     b.Clone(),
		canvas:     canvas,
		canvasRole: canvasRole,
		canvasKind: canvasKind,
	}

	fields := logger.Fields(logger.FieldPipeline, p.name, logger.FieldSeed, seed)
	if err := p.execute(ctx, w, observability.SpanPipelineRun, seed, fields); err != nil {
		return nil, nil, err
	}
	return w.bundle, &Trace{Pipeline: p.name, Seed: seed, Entries: w.trace}, nil
}

// Replay re-executes a recorded trace against a new bundle. Every fire
// decision and parameter comes from the trace; the walk consumes no random
// draws at all. A trace that does not match the tree structurally fails
// with a trace mismatch error.
func (p *Pipeline) Replay(ctx context.Context, tr *Trace, b *target.Bundle) (*target.Bundle, error) {
	if tr == nil {
		return nil, errors.TraceMismatch("", "trace is nil")
	}
	if tr.Pipeline != p.name {
		return nil, errors.TraceMismatch("", fmt.Sprintf("trace belongs to pipeline %q, not %q", tr.Pipeline, p.name))
	}

	canvasRole, canvas, err := p.validateBundle(b)
	if err != nil {
		return nil, err
	}

	canvasKind, _ := p.kindOf(canvasRole)
	w := &walker{
		mode:       modeReplay,
		p:          p,
		bundle:     b.Clone(),
		canvas:     canvas,
		canvasRole: canvasRole,
		canvasKind: canvasKind,
		replay:     tr.Entries,
	}

	fields := logger.Fields(logger.FieldPipeline, p.name, "entries", len(tr.Entries))
	if err := p.execute(ctx, w, observability.SpanPipelineReplay, tr.Seed, fields); err != nil {
		return nil, err
	}
	if w.pos != len(w.replay) {
		return nil, errors.TraceMismatch("", fmt.Sprintf("%d unconsumed trace entries", len(w.replay)-w.pos))
	}
	return w.bundle, nil
}

// execute runs the walk with the pipeline's instrumentation around it. The
// run identity travels in the context so per-transform spans can attach it.
func (p *Pipeline) execute(ctx context.Context, w *walker, op string, seed uint64, fields map[string]interface{}) error {
	rc := observability.NewRunContext(p.name, op, seed)
	runCtx := observability.WithRunContext(ctx, rc)
	if p.tracing {
		spanCtx, span := observability.StartSpan(runCtx, op)
		defer span.End()
		observability.SetSpanAttribute(spanCtx, observability.AttrPipelineName, p.name)
		observability.SetSpanAttribute(spanCtx, observability.AttrSeed, int64(seed))
		runCtx = spanCtx
	}

	if p.metrics != nil {
		p.metrics.RecordRunStart(runCtx)
	}
	err := w.walk(runCtx, p.root, rootPath)
	duration := rc.Duration()

	if p.tracing && err != nil {
		observability.SetSpanError(runCtx, err)
	}
	if p.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
			p.metrics.RecordError(runCtx, "walk", p.name)
		}
		p.metrics.RecordRunEnd(runCtx, p.name, op, status, duration)
	}
	if p.log != nil {
		fields[logger.FieldOperation] = op
		fields = logger.MergeWithDuration(fields, duration)
		walkLog := p.log.WithContext(runCtx)
		if err != nil {
			walkLog.Error("pipeline walk failed", logger.MergeWithError(fields, err))
		} else {
			walkLog.Debug("pipeline walk completed", fields)
		}
	}
	return err
}

type walkMode int

const (
	modeRecord walkMode = iota
	modeReplay
)

// walker carries the state of one walk: the working bundle, the current
// canvas, and either the stream being drawn from or the trace being
// replayed.
type walker struct {
	mode       walkMode
	p          *Pipeline
	stream     *sample.Stream
	bundle     *target.Bundle
	canvas     target.Shape
	canvasRole string
	canvasKind target.Kind
	trace      []TraceEntry
	replay     []TraceEntry
	pos        int
}

func (w *walker) walk(ctx context.Context, n Node, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch v := n.(type) {
	case *sequentialNode:
		if err := w.visitSequential(path); err != nil {
			return err
		}
		for i, child := range v.nodes {
			if err := w.walk(ctx, child, childPath(path, i)); err != nil {
				return err
			}
		}
		return nil

	case *sometimesNode:
		fired, err := w.decideFire(path, KindSometimes, v.p)
		if err != nil {
			return err
		}
		if !fired {
			return nil
		}
		return w.walk(ctx, v.node, childPath(path, 0))

	case *oneOfNode:
		fired, choice, err := w.decideChoice(path, v)
		if err != nil {
			return err
		}
		if !fired {
			return nil
		}
		return w.walk(ctx, v.nodes[choice], childPath(path, choice))

	case *leafNode:
		return w.visitLeaf(ctx, path, v.t)

	default:
		return errors.Internal(fmt.Errorf("unknown node type %T at %s", n, path))
	}
}

func (w *walker) visitSequential(path string) error {
	if w.mode == modeReplay {
		e, err := w.next(path, KindSequential)
		if err != nil {
			return err
		}
		if !e.Fired {
			return errors.TraceMismatch(path, "sequential entry marked unfired")
		}
		return nil
	}
	w.trace = append(w.trace, TraceEntry{Path: path, Kind: KindSequential, Fired: true})
	return nil
}

func (w *walker) decideFire(path, kind string, p float64) (bool, error) {
	if w.mode == modeReplay {
		e, err := w.next(path, kind)
		if err != nil {
			return false, err
		}
		return e.Fired, nil
	}
	// The gate consumes exactly one draw, p = 0 and p = 1 included, so
	// sibling decisions stay stream-aligned across configurations.
	fired := w.stream.Bernoulli(p)
	w.trace = append(w.trace, TraceEntry{Path: path, Kind: kind, Fired: fired})
	return fired, nil
}

func (w *walker) decideChoice(path string, n *oneOfNode) (bool, int, error) {
	if w.mode == modeReplay {
		e, err := w.next(path, KindOneOf)
		if err != nil {
			return false, 0, err
		}
		if !e.Fired {
			return false, 0, nil
		}
		if e.Choice == nil {
			return false, 0, errors.TraceMismatch(path, "fired oneof entry has no choice")
		}
		choice := *e.Choice
		if choice < 0 || choice >= len(n.nodes) {
			return false, 0, errors.TraceMismatch(path, fmt.Sprintf("choice %d outside %d children", choice, len(n.nodes)))
		}
		return true, choice, nil
	}

	fired := w.stream.Bernoulli(n.p)
	entry := TraceEntry{Path: path, Kind: KindOneOf, Fired: fired}
	choice := 0
	if fired {
		choice = w.stream.WeightedIndex(n.weights)
		entry.Choice = util.Ptr(choice)
	}
	w.trace = append(w.trace, entry)
	return fired, choice, nil
}

func (w *walker) visitLeaf(ctx context.Context, path string, t transform.Transform) error {
	var (
		fired  bool
		params sample.Values
	)

	if w.mode == modeReplay {
		e, err := w.next(path, KindLeaf)
		if err != nil {
			return err
		}
		if e.Name != t.Name() {
			return errors.TraceMismatch(path, fmt.Sprintf("trace names %q, tree has %q", e.Name, t.Name()))
		}
		fired, params = e.Fired, e.Params
	} else {
		fired = w.stream.Bernoulli(t.Probability())
		entry := TraceEntry{Path: path, Kind: KindLeaf, Name: t.Name(), Fired: fired}
		if fired {
			var err error
			params, err = t.Schema().Sample(w.stream)
			if err != nil {
				return errors.TransformFailed(path, t.Name(), err)
			}
			entry.Params = params
		}
		w.trace = append(w.trace, entry)
	}

	if !fired {
		return nil
	}

	if w.p.log != nil {
		w.p.log.Debug("transform fired", logger.Fields(
			logger.FieldNode, path,
			logger.FieldTransform, t.Name(),
		))
	}
	return w.applyLeaf(ctx, path, t, params)
}

// next pops the next replay entry and verifies it sits at the expected tree
// position.
func (w *walker) next(path, kind string) (TraceEntry, error) {
	if w.pos >= len(w.replay) {
		return TraceEntry{}, errors.TraceMismatch(path, "trace exhausted")
	}
	e := w.replay[w.pos]
	w.pos++
	if e.Path != path || e.Kind != kind {
		return TraceEntry{}, errors.TraceMismatch(path, fmt.Sprintf("expected %s at %s, trace has %s at %s", kind, path, e.Kind, e.Path))
	}
	return e, nil
}
