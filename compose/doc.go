// Package compose builds and executes augmentation pipelines: trees of
// transform units combined with sequential, exclusive-choice, and
// probabilistic grouping nodes, driven by a seedable random stream.
//
// A pipeline is constructed once, validated eagerly, and then shared freely:
// Run never mutates the pipeline or its input bundle, and every run owns a
// private random stream, so concurrent runs need no locking.
//
//	shift := testutil.Shift("shift", 1.0, 2, 0)
//	pipe, err := compose.New("train",
//	    compose.Sequential(
//	        compose.Leaf(shift),
//	        compose.OneOf(0.9, compose.Leaf(blur), compose.Leaf(sharpen)),
//	    ),
//	    compose.WithSeed(42),
//	)
//
// RunTraced additionally returns a Trace, the ordered record of every fire
// decision and sampled parameter. Replay re-executes a trace against a new
// bundle without consuming a single random draw, reproducing the exact
// augmentation on another input.
package compose
