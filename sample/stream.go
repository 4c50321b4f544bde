package sample

import (
	"math/rand/v2"
)

// DefaultSeed is the seed used by helpers that need a stable default.
const DefaultSeed uint64 = 42

// Stream is the deterministic random source for one pipeline walk.
//
// A Stream is owned by exactly one walk and must not be shared across
// goroutines; concurrent walks each create their own. Consumption order is
// part of the engine contract: every draw below advances the stream by
// exactly one underlying value.
type Stream struct {
	rng *rand.Rand
}

// NewStream creates a Stream seeded with the given value. The same seed
// always yields the same draw sequence.
func NewStream(seed uint64) *Stream {
	return &Stream{rng: rand.New(rand.NewPCG(seed, seed^0xdeadbeef))}
}

// FreshSeed derives a new random seed from the process-level source. It is
// used once per walk to seed that walk's own Stream; per-walk draws never
// touch process-level state.
func FreshSeed() uint64 {
	return rand.Uint64()
}

// Float64 draws one value uniformly from [0, 1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// IntN draws one value uniformly from [0, n). It panics if n <= 0, matching
// the underlying generator.
func (s *Stream) IntN(n int) int {
	return s.rng.IntN(n)
}

// Uint64 draws one uniformly distributed 64-bit value.
func (s *Stream) Uint64() uint64 {
	return s.rng.Uint64()
}

// Bernoulli decides fire/skip for probability p, consuming exactly one draw
// regardless of p. Probability 0 never fires and probability 1 always fires,
// but both still consume the single decision draw so that disabling a
// transform never shifts the stream alignment of the rest of the pipeline.
func (s *Stream) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}

// WeightedIndex selects an index by a single weighted categorical draw.
// Weights must be non-negative with a positive sum; the engine validates
// this at pipeline construction. An index with weight zero is unreachable.
func (s *Stream) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}

	v := s.rng.Float64() * total

	var acc float64
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if v < acc {
			return i
		}
	}
	// Float accumulation may leave v a hair above the final boundary.
	return last
}
