package testutil

import (
	"sync"

	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform"
)

// Shift builds a unit that translates all targets by a fixed integer offset.
// Pixels shifted in from outside the canvas are zero-filled; geometry moves
// without clipping, which happens later in the dispatch step.
func Shift(name string, p float64, dx, dy int) *transform.Unit {
	return transform.MustNew(transform.Config{
		Name: name,
		P:    p,
		Schema: sample.NewSchema(
			sample.Fixed("dx", dx),
			sample.Fixed("dy", dy),
		),
		Image: func(img target.Image, params sample.Values, _ target.Shape) (target.Image, error) {
			dx, err := params.Int("dx")
			if err != nil {
				return target.Image{}, err
			}
			dy, err := params.Int("dy")
			if err != nil {
				return target.Image{}, err
			}
			out := target.NewImage(img.Width, img.Height, img.Channels)
			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					sx, sy := x-dx, y-dy
					if sx < 0 || sx >= img.Width || sy < 0 || sy >= img.Height {
						continue
					}
					for c := 0; c < img.Channels; c++ {
						out.Set(x, y, c, img.At(sx, sy, c))
					}
				}
			}
			return out, nil
		},
		Mask: func(m target.Mask, params sample.Values, _ target.Shape) (target.Mask, error) {
			dx, err := params.Int("dx")
			if err != nil {
				return target.Mask{}, err
			}
			dy, err := params.Int("dy")
			if err != nil {
				return target.Mask{}, err
			}
			out := target.NewMask(m.Width, m.Height)
			for y := 0; y < m.Height; y++ {
				for x := 0; x < m.Width; x++ {
					sx, sy := x-dx, y-dy
					if sx < 0 || sx >= m.Width || sy < 0 || sy >= m.Height {
						continue
					}
					out.Set(x, y, m.At(sx, sy))
				}
			}
			return out, nil
		},
		Boxes: func(b target.Boxes, params sample.Values, _ target.Shape) (target.Boxes, error) {
			dx, err := params.Float64("dx")
			if err != nil {
				return target.Boxes{}, err
			}
			dy, err := params.Float64("dy")
			if err != nil {
				return target.Boxes{}, err
			}
			out := b.Clone()
			for i := range out.Items {
				out.Items[i].X1 += dx
				out.Items[i].Y1 += dy
				out.Items[i].X2 += dx
				out.Items[i].Y2 += dy
			}
			return out, nil
		},
		Keypoints: func(k target.Keypoints, params sample.Values, _ target.Shape) (target.Keypoints, error) {
			dx, err := params.Float64("dx")
			if err != nil {
				return target.Keypoints{}, err
			}
			dy, err := params.Float64("dy")
			if err != nil {
				return target.Keypoints{}, err
			}
			out := k.Clone()
			for i := range out.Items {
				out.Items[i].X += dx
				out.Items[i].Y += dy
			}
			return out, nil
		},
		Volume: func(v target.Volume, params sample.Values, _ target.Shape) (target.Volume, error) {
			dx, err := params.Int("dx")
			if err != nil {
				return target.Volume{}, err
			}
			dy, err := params.Int("dy")
			if err != nil {
				return target.Volume{}, err
			}
			out := target.NewVolume(v.Width, v.Height, v.Depth, v.Channels)
			for z := 0; z < v.Depth; z++ {
				for y := 0; y < v.Height; y++ {
					for x := 0; x < v.Width; x++ {
						sx, sy := x-dx, y-dy
						if sx < 0 || sx >= v.Width || sy < 0 || sy >= v.Height {
							continue
						}
						for c := 0; c < v.Channels; c++ {
							out.Set(x, y, z, c, v.At(sx, sy, z, c))
						}
					}
				}
			}
			return out, nil
		},
	})
}

// Brightness builds a pixel-only unit that adds a uniformly sampled delta to
// every image pixel and voxel. Geometry targets are untouched because the
// unit does not declare them.
func Brightness(name string, p, lo, hi float64) *transform.Unit {
	return transform.MustNew(transform.Config{
		Name:   name,
		P:      p,
		Schema: sample.NewSchema(sample.Uniform("delta", lo, hi)),
		Image: func(img target.Image, params sample.Values, _ target.Shape) (target.Image, error) {
			delta, err := params.Float64("delta")
			if err != nil {
				return target.Image{}, err
			}
			out := img.Clone()
			for i := range out.Pix {
				out.Pix[i] += float32(delta)
			}
			return out, nil
		},
		Volume: func(v target.Volume, params sample.Values, _ target.Shape) (target.Volume, error) {
			delta, err := params.Float64("delta")
			if err != nil {
				return target.Volume{}, err
			}
			out := v.Clone()
			for i := range out.Vox {
				out.Vox[i] += float32(delta)
			}
			return out, nil
		},
	})
}

// Marker is an image-only unit that counts applies and records the last
// sampled parameters. The image passes through unchanged.
type Marker struct {
	name   string
	p      float64
	schema *sample.Schema

	mu     sync.Mutex
	calls  int
	params sample.Values
}

var (
	_ transform.Transform    = (*Marker)(nil)
	_ transform.ImageApplier = (*Marker)(nil)
)

// NewMarker creates a marker unit. A nil schema means no parameters.
func NewMarker(name string, p float64, schema *sample.Schema) *Marker {
	return &Marker{name: name, p: p, schema: schema}
}

func (m *Marker) Name() string           { return m.name }
func (m *Marker) Probability() float64   { return m.p }
func (m *Marker) Schema() *sample.Schema { return m.schema }
func (m *Marker) Kinds() []target.Kind   { return []target.Kind{target.KindImage} }

func (m *Marker) ApplyImage(img target.Image, params sample.Values, _ target.Shape) (target.Image, error) {
	m.mu.Lock()
	m.calls++
	m.params = params
	m.mu.Unlock()
	return img, nil
}

// Calls returns how many times the marker fired.
func (m *Marker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastParams returns the parameters of the most recent apply.
func (m *Marker) LastParams() sample.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Reset clears the call counter and recorded parameters.
func (m *Marker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.params = nil
}

// Failing builds an image-only unit whose apply always returns err.
func Failing(name string, p float64, err error) *transform.Unit {
	return transform.MustNew(transform.Config{
		Name: name,
		P:    p,
		Image: func(target.Image, sample.Values, target.Shape) (target.Image, error) {
			return target.Image{}, err
		},
	})
}
