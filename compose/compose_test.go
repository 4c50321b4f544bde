package compose

import (
	"testing"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform/testutil"
)

// imageBundle builds a w x h single-channel image bundle with one marked
// pixel at (px, py).
func imageBundle(w, h, px, py int) *target.Bundle {
	img := target.NewImage(w, h, 1)
	img.Set(px, py, 0, 1)
	return target.NewBundle().Set("image", img)
}

func boxes(labels map[string][]any, items ...target.Box) target.Boxes {
	return target.Boxes{Items: items, Labels: labels}
}

func TestNew_Success(t *testing.T) {
	p, err := New("train",
		Sequential(
			Leaf(testutil.Shift("shift", 1.0, 1, 0)),
			OneOf(0.9,
				Leaf(testutil.Brightness("darken", 1.0, -0.2, 0)),
				Leaf(testutil.Brightness("lighten", 1.0, 0, 0.2)),
			),
			Sometimes(0.5, Leaf(testutil.NewMarker("marker", 1.0, nil))),
		),
		WithSeed(42),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "train" {
		t.Fatalf("expected name train, got %s", p.Name())
	}

	names := p.Transforms()
	expected := []string{"shift", "darken", "lighten", "marker"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d transforms, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("expected %s at %d, got %s", name, i, names[i])
		}
	}

	caps := p.Capabilities()
	for _, kind := range []target.Kind{target.KindImage, target.KindMask, target.KindBoxes, target.KindKeypoints, target.KindVolume} {
		if !caps[kind] {
			t.Fatalf("expected capability %s from shift unit", kind)
		}
	}
}

func TestNew_InvalidTree(t *testing.T) {
	marker := Leaf(testutil.NewMarker("m", 0.5, nil))

	tests := []struct {
		name string
		root Node
	}{
		{"oneof without children", OneOf(0.5)},
		{"oneof weight count mismatch", OneOfWeighted(0.5, []float64{1}, marker, marker)},
		{"negative weight", OneOfWeighted(0.5, []float64{1, -1}, marker, marker)},
		{"all zero weights", OneOfWeighted(0.5, []float64{0, 0}, marker, marker)},
		{"probability above one", Sometimes(1.5, marker)},
		{"negative probability", OneOf(-0.1, marker)},
		{"nil sometimes child", Sometimes(0.5, nil)},
		{"nil sequential child", Sequential(marker, nil)},
		{"nil leaf transform", Leaf(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("bad", tt.root)
			if !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestNew_EmptyName(t *testing.T) {
	_, err := New("", Leaf(testutil.NewMarker("m", 1.0, nil)))
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_NilRoot(t *testing.T) {
	_, err := New("train", nil)
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_InvalidLeafSchema(t *testing.T) {
	bad := testutil.NewMarker("m", 1.0, sample.NewSchema(sample.Uniform("a", 5, 1)))
	_, err := New("train", Leaf(bad))
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_TargetAliases(t *testing.T) {
	marker := Leaf(testutil.NewMarker("m", 1.0, nil))

	_, err := New("train", marker, WithTargets(map[string]target.Kind{"depth": target.Kind("tensor")}))
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error for unknown kind, got %v", err)
	}

	_, err = New("train", marker, WithTargets(map[string]target.Kind{"image": target.KindMask}))
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error for shadowed canonical role, got %v", err)
	}

	_, err = New("train", marker, WithTargets(map[string]target.Kind{"image2": target.KindImage}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidBoxPolicy(t *testing.T) {
	marker := Leaf(testutil.NewMarker("m", 1.0, nil))
	policy := target.BoxPolicy{MinArea: -4, Clip: true}
	_, err := New("train", marker, WithBoxPolicy(policy))
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPipeline_CapabilitiesCopy(t *testing.T) {
	p, err := New("train", Leaf(testutil.NewMarker("m", 1.0, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	caps := p.Capabilities()
	caps[target.KindBoxes] = true
	if p.Capabilities()[target.KindBoxes] {
		t.Fatal("expected Capabilities to return a copy")
	}
}
