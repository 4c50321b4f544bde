package sample

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/augmentkit/errors"
)

func TestSchema_Sample_Deterministic(t *testing.T) {
	schema := NewSchema(
		Uniform("angle", -30, 30),
		UniformInt("kernel", 1, 7),
		Choice("mode", "reflect", "constant", "edge"),
		Fixed("order", 1),
	)
	if err := schema.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	v1, err := schema.Sample(NewStream(99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := schema.Sample(NewStream(99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(v1, v2); diff != "" {
		t.Fatalf("same seed produced different values (-first +second):\n%s", diff)
	}
}

func TestSchema_Sample_DeclarationOrderConsumesStream(t *testing.T) {
	// Two schemas with the same rules in different order must consume the
	// stream differently; order is part of the contract.
	a, err := NewSchema(Uniform("x", 0, 1), UniformInt("n", 0, 1000)).Sample(NewStream(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewSchema(UniformInt("n", 0, 1000), Uniform("x", 0, 1)).Sample(NewStream(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a["x"] == b["x"] && a["n"] == b["n"] {
		t.Fatal("expected reordered schema to consume the stream differently")
	}
}

func TestSchema_Sample_FixedConsumesNoDraw(t *testing.T) {
	withFixed := NewSchema(Fixed("c", 10), Uniform("x", 0, 1))
	plain := NewSchema(Uniform("x", 0, 1))

	v1, err := withFixed.Sample(NewStream(31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := plain.Sample(NewStream(31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v1["x"] != v2["x"] {
		t.Fatal("Fixed rule consumed a stream draw")
	}
}

func TestSchema_Sample_DerivedSeesEarlierValues(t *testing.T) {
	schema := NewSchema(
		Uniform("angle", 10, 10), // degenerate range pins the value
		Derived("fill", func(v Values) (any, error) {
			a, err := v.Float64("angle")
			if err != nil {
				return nil, err
			}
			return a * 2, nil
		}),
	)

	vals, err := schema.Sample(NewStream(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fill, err := vals.Float64("fill")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fill != 20 {
		t.Fatalf("expected fill=20 derived from angle, got %v", fill)
	}
}

func TestSchema_Sample_DerivedConsumesNoDraw(t *testing.T) {
	withDerived := NewSchema(
		Uniform("a", 0, 1),
		Derived("b", func(v Values) (any, error) { return 1, nil }),
		Uniform("c", 0, 1),
	)
	plain := NewSchema(Uniform("a", 0, 1), Uniform("c", 0, 1))

	v1, err := withDerived.Sample(NewStream(17))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := plain.Sample(NewStream(17))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v1["a"] != v2["a"] || v1["c"] != v2["c"] {
		t.Fatal("Derived rule consumed a stream draw")
	}
}

func TestSchema_Sample_DerivedErrorPropagates(t *testing.T) {
	schema := NewSchema(Derived("bad", func(Values) (any, error) {
		return nil, fmt.Errorf("boom")
	}))

	_, err := schema.Sample(NewStream(1))
	if err == nil {
		t.Fatal("expected derive error")
	}
}

func TestSchema_Sample_NilSchema(t *testing.T) {
	var schema *Schema
	vals, err := schema.Sample(NewStream(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 0 {
		t.Fatalf("expected empty values, got %d", len(vals))
	}
	if schema.Len() != 0 {
		t.Fatal("expected Len 0 for nil schema")
	}
	if err := schema.Validate(); err != nil {
		t.Fatalf("nil schema should validate, got %v", err)
	}
}

func TestSchema_Sample_UniformIntInclusive(t *testing.T) {
	schema := NewSchema(UniformInt("k", 2, 4))
	s := NewStream(8)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		vals, err := schema.Sample(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		k, err := vals.Int("k")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if k < 2 || k > 4 {
			t.Fatalf("UniformInt(2,4) produced %d", k)
		}
		seen[k] = true
	}
	if !seen[2] || !seen[3] || !seen[4] {
		t.Fatalf("expected all of 2,3,4 over 2000 draws, saw %v", seen)
	}
}

func TestSchema_Sample_WeightedChoiceZeroWeightUnreachable(t *testing.T) {
	schema := NewSchema(WeightedChoice("mode", []any{"a", "b"}, []float64{1, 0}))
	s := NewStream(12)
	for i := 0; i < 1000; i++ {
		vals, err := schema.Sample(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if vals["mode"] != "a" {
			t.Fatalf("draw %d selected zero-weight option %v", i, vals["mode"])
		}
	}
}

func TestSchema_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
	}{
		{"empty name", NewSchema(Uniform("", 0, 1))},
		{"min above max", NewSchema(Uniform("x", 2, 1))},
		{"int min above max", NewSchema(UniformInt("x", 5, 4))},
		{"empty choice", NewSchema(Choice("x"))},
		{"weights length mismatch", NewSchema(WeightedChoice("x", []any{1, 2}, []float64{1}))},
		{"negative weight", NewSchema(WeightedChoice("x", []any{1, 2}, []float64{1, -1}))},
		{"zero weight sum", NewSchema(WeightedChoice("x", []any{1, 2}, []float64{0, 0}))},
		{"nil derive func", NewSchema(Derived("x", nil))},
		{"duplicate name", NewSchema(Fixed("x", 1), Uniform("x", 0, 1))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.schema.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
			}
		})
	}
}

func TestSchema_Names_DeclarationOrder(t *testing.T) {
	schema := NewSchema(Fixed("b", 1), Fixed("a", 2), Fixed("c", 3))
	names := schema.Names()
	want := []string{"b", "a", "c"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}
}

func TestValues_Float64Coercion(t *testing.T) {
	v := Values{"f": 1.5, "i": 3, "i64": int64(4), "s": "x"}

	if got, err := v.Float64("f"); err != nil || got != 1.5 {
		t.Errorf("expected 1.5, got %v err %v", got, err)
	}
	if got, err := v.Float64("i"); err != nil || got != 3 {
		t.Errorf("expected 3, got %v err %v", got, err)
	}
	if got, err := v.Float64("i64"); err != nil || got != 4 {
		t.Errorf("expected 4, got %v err %v", got, err)
	}
	if _, err := v.Float64("s"); err == nil {
		t.Error("expected error for string value")
	}
	if _, err := v.Float64("missing"); err == nil {
		t.Error("expected error for missing param")
	}
}

func TestValues_IntCoercion(t *testing.T) {
	v := Values{"i": 3, "whole": 4.0, "frac": 4.5}

	if got, err := v.Int("i"); err != nil || got != 3 {
		t.Errorf("expected 3, got %v err %v", got, err)
	}
	// JSON round trips integers as float64; whole floats must still read.
	if got, err := v.Int("whole"); err != nil || got != 4 {
		t.Errorf("expected 4, got %v err %v", got, err)
	}
	if _, err := v.Int("frac"); err == nil {
		t.Error("expected error for fractional value")
	}
}

func TestValues_BoolAndString(t *testing.T) {
	v := Values{"b": true, "s": "edge"}

	if got, err := v.Bool("b"); err != nil || !got {
		t.Errorf("expected true, got %v err %v", got, err)
	}
	if got, err := v.String("s"); err != nil || got != "edge" {
		t.Errorf("expected edge, got %v err %v", got, err)
	}
	if _, err := v.Bool("s"); err == nil {
		t.Error("expected error for non-bool")
	}
	if _, err := v.String("b"); err == nil {
		t.Error("expected error for non-string")
	}
	if !v.Has("b") || v.Has("missing") {
		t.Error("Has misreported presence")
	}
}
