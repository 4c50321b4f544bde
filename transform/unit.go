package transform

import (
	"fmt"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
)

// Config assembles a unit from plain functions. Exactly the kinds with a
// non-nil function are declared as supported; at least one is required.
type Config struct {
	// Name is the stable identifier of the unit.
	Name string

	// P is the fire probability in [0, 1].
	P float64

	// Schema describes the parameters sampled before each fired apply.
	// Nil means the unit takes no parameters.
	Schema *sample.Schema

	Image     func(img target.Image, params sample.Values, canvas target.Shape) (target.Image, error)
	Mask      func(m target.Mask, params sample.Values, canvas target.Shape) (target.Mask, error)
	Boxes     func(b target.Boxes, params sample.Values, canvas target.Shape) (target.Boxes, error)
	Keypoints func(k target.Keypoints, params sample.Values, canvas target.Shape) (target.Keypoints, error)
	Volume    func(v target.Volume, params sample.Values, canvas target.Shape) (target.Volume, error)
}

// Unit is a function-backed Transform built by New.
type Unit struct {
	cfg   Config
	kinds []target.Kind
}

var (
	_ Transform        = (*Unit)(nil)
	_ ImageApplier     = (*Unit)(nil)
	_ MaskApplier      = (*Unit)(nil)
	_ BoxesApplier     = (*Unit)(nil)
	_ KeypointsApplier = (*Unit)(nil)
	_ VolumeApplier    = (*Unit)(nil)
)

// New builds a unit from cfg and validates it.
func New(cfg Config) (*Unit, error) {
	u := &Unit{cfg: cfg}
	for _, k := range target.Kinds() {
		if u.fnFor(k) {
			u.kinds = append(u.kinds, k)
		}
	}
	if len(u.kinds) == 0 {
		return nil, errors.ConfigurationAt(cfg.Name, "no apply function set")
	}
	if err := Validate(u); err != nil {
		return nil, err
	}
	return u, nil
}

// MustNew is New that panics on error. Intended for static unit tables where
// a bad config is a programming mistake.
func MustNew(cfg Config) *Unit {
	u, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf("transform: %v", err))
	}
	return u
}

func (u *Unit) fnFor(kind target.Kind) bool {
	switch kind {
	case target.KindImage:
		return u.cfg.Image != nil
	case target.KindMask:
		return u.cfg.Mask != nil
	case target.KindBoxes:
		return u.cfg.Boxes != nil
	case target.KindKeypoints:
		return u.cfg.Keypoints != nil
	case target.KindVolume:
		return u.cfg.Volume != nil
	default:
		return false
	}
}

// Name returns the unit name.
func (u *Unit) Name() string { return u.cfg.Name }

// Probability returns the fire probability.
func (u *Unit) Probability() float64 { return u.cfg.P }

// Schema returns the parameter schema, possibly nil.
func (u *Unit) Schema() *sample.Schema { return u.cfg.Schema }

// Kinds returns the supported kinds in canonical order.
func (u *Unit) Kinds() []target.Kind { return u.kinds }

// ApplyImage implements ImageApplier.
func (u *Unit) ApplyImage(img target.Image, params sample.Values, canvas target.Shape) (target.Image, error) {
	if u.cfg.Image == nil {
		return target.Image{}, errors.ConfigurationAt(u.cfg.Name, "no image apply function")
	}
	return u.cfg.Image(img, params, canvas)
}

// ApplyMask implements MaskApplier.
func (u *Unit) ApplyMask(m target.Mask, params sample.Values, canvas target.Shape) (target.Mask, error) {
	if u.cfg.Mask == nil {
		return target.Mask{}, errors.ConfigurationAt(u.cfg.Name, "no mask apply function")
	}
	return u.cfg.Mask(m, params, canvas)
}

// ApplyBoxes implements BoxesApplier.
func (u *Unit) ApplyBoxes(b target.Boxes, params sample.Values, canvas target.Shape) (target.Boxes, error) {
	if u.cfg.Boxes == nil {
		return target.Boxes{}, errors.ConfigurationAt(u.cfg.Name, "no boxes apply function")
	}
	return u.cfg.Boxes(b, params, canvas)
}

// ApplyKeypoints implements KeypointsApplier.
func (u *Unit) ApplyKeypoints(k target.Keypoints, params sample.Values, canvas target.Shape) (target.Keypoints, error) {
	if u.cfg.Keypoints == nil {
		return target.Keypoints{}, errors.ConfigurationAt(u.cfg.Name, "no keypoints apply function")
	}
	return u.cfg.Keypoints(k, params, canvas)
}

// ApplyVolume implements VolumeApplier.
func (u *Unit) ApplyVolume(v target.Volume, params sample.Values, canvas target.Shape) (target.Volume, error) {
	if u.cfg.Volume == nil {
		return target.Volume{}, errors.ConfigurationAt(u.cfg.Name, "no volume apply function")
	}
	return u.cfg.Volume(v, params, canvas)
}
