package transform

import (
	"fmt"
	"math"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
)

// Transform is a single augmentation unit. Implementations must be stateless
// with respect to Apply: all per-call variability comes in through the
// sampled parameter values, never from internal random state.
type Transform interface {
	// Name returns the stable identifier used in traces and registries.
	Name() string

	// Probability returns the fire probability in [0, 1].
	Probability() float64

	// Schema returns the parameter schema sampled before each fired apply.
	// A nil schema means the unit takes no parameters.
	Schema() *sample.Schema

	// Kinds returns the role kinds this unit supports, in canonical order.
	Kinds() []target.Kind
}

// ImageApplier is implemented by units that support the image kind.
type ImageApplier interface {
	ApplyImage(img target.Image, params sample.Values, canvas target.Shape) (target.Image, error)
}

// MaskApplier is implemented by units that support the mask kind.
type MaskApplier interface {
	ApplyMask(m target.Mask, params sample.Values, canvas target.Shape) (target.Mask, error)
}

// BoxesApplier is implemented by units that support the bounding-box kind.
// Appliers move coordinates only; out-of-bounds filtering happens afterwards
// in the dispatcher, in the same step as label compaction.
type BoxesApplier interface {
	ApplyBoxes(b target.Boxes, params sample.Values, canvas target.Shape) (target.Boxes, error)
}

// KeypointsApplier is implemented by units that support the keypoint kind.
type KeypointsApplier interface {
	ApplyKeypoints(k target.Keypoints, params sample.Values, canvas target.Shape) (target.Keypoints, error)
}

// VolumeApplier is implemented by units that support the volume kind.
type VolumeApplier interface {
	ApplyVolume(v target.Volume, params sample.Values, canvas target.Shape) (target.Volume, error)
}

// applierFor reports whether t implements the applier interface for kind.
func applierFor(t Transform, kind target.Kind) bool {
	switch kind {
	case target.KindImage:
		_, ok := t.(ImageApplier)
		return ok
	case target.KindMask:
		_, ok := t.(MaskApplier)
		return ok
	case target.KindBoxes:
		_, ok := t.(BoxesApplier)
		return ok
	case target.KindKeypoints:
		_, ok := t.(KeypointsApplier)
		return ok
	case target.KindVolume:
		_, ok := t.(VolumeApplier)
		return ok
	default:
		return false
	}
}

// Capabilities returns the declared kinds of t as a set.
func Capabilities(t Transform) map[target.Kind]bool {
	caps := make(map[target.Kind]bool, len(t.Kinds()))
	for _, k := range t.Kinds() {
		caps[k] = true
	}
	return caps
}

// Supports reports whether t declares the given kind.
func Supports(t Transform, kind target.Kind) bool {
	for _, k := range t.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Validate checks a unit's static contract: a non-empty name, a probability
// in [0, 1], a valid schema, and a matching applier for every declared kind.
func Validate(t Transform) error {
	if t == nil {
		return errors.Configuration("transform is nil")
	}
	name := t.Name()
	if name == "" {
		return errors.Configuration("transform name is empty")
	}
	p := t.Probability()
	if math.IsNaN(p) || p < 0 || p > 1 {
		return errors.ConfigurationAt(name, fmt.Sprintf("probability %v outside [0, 1]", p))
	}
	if err := t.Schema().Validate(); err != nil {
		return errors.ConfigurationAt(name, err.Error())
	}
	kinds := t.Kinds()
	if len(kinds) == 0 {
		return errors.ConfigurationAt(name, "declares no role kinds")
	}
	seen := make(map[target.Kind]bool, len(kinds))
	for _, k := range kinds {
		if !k.Valid() {
			return errors.ConfigurationAt(name, fmt.Sprintf("unknown role kind %q", k))
		}
		if seen[k] {
			return errors.ConfigurationAt(name, fmt.Sprintf("role kind %q declared twice", k))
		}
		seen[k] = true
		if !applierFor(t, k) {
			return errors.ConfigurationAt(name, fmt.Sprintf("declares kind %q but implements no applier for it", k))
		}
	}
	return nil
}

// Apply invokes the applier of t for the given kind on a single payload.
// The payload is returned transformed; the input value is never mutated.
// Calling Apply for a kind the unit does not declare is a configuration
// defect surfaced as an error rather than a panic.
func Apply(t Transform, kind target.Kind, payload any, params sample.Values, canvas target.Shape) (any, error) {
	switch kind {
	case target.KindImage:
		a, ok := t.(ImageApplier)
		if !ok {
			return nil, errors.ConfigurationAt(t.Name(), "no image applier")
		}
		img, ok := payload.(target.Image)
		if !ok {
			return nil, errors.InvalidInput(string(kind), fmt.Sprintf("expected target.Image, got %T", payload))
		}
		return a.ApplyImage(img, params, canvas)
	case target.KindMask:
		a, ok := t.(MaskApplier)
		if !ok {
			return nil, errors.ConfigurationAt(t.Name(), "no mask applier")
		}
		m, ok := payload.(target.Mask)
		if !ok {
			return nil, errors.InvalidInput(string(kind), fmt.Sprintf("expected target.Mask, got %T", payload))
		}
		return a.ApplyMask(m, params, canvas)
	case target.KindBoxes:
		a, ok := t.(BoxesApplier)
		if !ok {
			return nil, errors.ConfigurationAt(t.Name(), "no boxes applier")
		}
		b, ok := payload.(target.Boxes)
		if !ok {
			return nil, errors.InvalidInput(string(kind), fmt.Sprintf("expected target.Boxes, got %T", payload))
		}
		return a.ApplyBoxes(b, params, canvas)
	case target.KindKeypoints:
		a, ok := t.(KeypointsApplier)
		if !ok {
			return nil, errors.ConfigurationAt(t.Name(), "no keypoints applier")
		}
		k, ok := payload.(target.Keypoints)
		if !ok {
			return nil, errors.InvalidInput(string(kind), fmt.Sprintf("expected target.Keypoints, got %T", payload))
		}
		return a.ApplyKeypoints(k, params, canvas)
	case target.KindVolume:
		a, ok := t.(VolumeApplier)
		if !ok {
			return nil, errors.ConfigurationAt(t.Name(), "no volume applier")
		}
		v, ok := payload.(target.Volume)
		if !ok {
			return nil, errors.InvalidInput(string(kind), fmt.Sprintf("expected target.Volume, got %T", payload))
		}
		return a.ApplyVolume(v, params, canvas)
	default:
		return nil, errors.ConfigurationAt(t.Name(), fmt.Sprintf("unknown role kind %q", kind))
	}
}
