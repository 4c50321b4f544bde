// Package sample provides the randomness primitives of the augmentation
// engine: a per-walk random stream, the fire/skip Bernoulli decision, and
// declarative parameter schemas sampled deterministically from a stream.
//
// All randomness in a pipeline walk resolves through one Stream. A Stream is
// never shared between concurrent walks; the same seed and the same schema
// always produce the same values.
//
//	stream := sample.NewStream(42)
//	schema := sample.NewSchema(
//	    sample.Uniform("angle", -30, 30),
//	    sample.Derived("fill", func(v sample.Values) (any, error) {
//	        a, err := v.Float64("angle")
//	        return a / 90, err
//	    }),
//	)
//	vals, err := schema.Sample(stream)
package sample
