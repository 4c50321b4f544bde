package compose

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform/testutil"
	"github.com/kbukum/augmentkit/util"
)

func replayTree() Node {
	return Sequential(
		Leaf(testutil.Shift("shift", 0.7, 1, 0)),
		OneOf(0.9,
			Leaf(testutil.Brightness("darken", 1.0, -0.4, -0.1)),
			Leaf(testutil.Brightness("lighten", 1.0, 0.1, 0.4)),
		),
	)
}

func TestPipeline_Replay_ReproducesRun(t *testing.T) {
	p, err := New("train", replayTree(), WithSeed(77))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := imageBundle(6, 6, 2, 2)
	ran, trace, err := p.RunTraced(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replayed, err := p.Replay(context.Background(), trace, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranImg, _ := target.At[target.Image](ran, "image")
	repImg, _ := target.At[target.Image](replayed, "image")
	if diff := cmp.Diff(ranImg, repImg); diff != "" {
		t.Fatalf("replay diverged from original run (-run +replay):\n%s", diff)
	}
}

func TestPipeline_Replay_AppliesRecordedParamsToNewBundle(t *testing.T) {
	p, err := New("train", Leaf(testutil.Brightness("bright", 1.0, 0.1, 0.9)), WithSeed(11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, trace, err := p.RunTraced(context.Background(), imageBundle(2, 2, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	delta, ok := trace.Entries[0].Params["delta"].(float64)
	if !ok {
		t.Fatalf("expected sampled delta in trace, got %v", trace.Entries[0].Params)
	}

	other := target.NewImage(2, 2, 1)
	other.Set(1, 1, 0, 2)
	out, err := p.Replay(context.Background(), trace, target.NewBundle().Set("image", other))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := target.At[target.Image](out, "image")
	if want := float32(2) + float32(delta); got.At(1, 1, 0) != want {
		t.Fatalf("expected recorded delta %v applied to new bundle, got %v", want, got.At(1, 1, 0))
	}
}

func TestPipeline_Replay_IgnoresPipelineSeed(t *testing.T) {
	p1, err := New("train", replayTree(), WithSeed(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := New("train", replayTree(), WithSeed(987654))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := imageBundle(6, 6, 2, 2)
	ran, trace, err := p1.RunTraced(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replayed, err := p2.Replay(context.Background(), trace, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranImg, _ := target.At[target.Image](ran, "image")
	repImg, _ := target.At[target.Image](replayed, "image")
	if diff := cmp.Diff(ranImg, repImg); diff != "" {
		t.Fatalf("replay depended on the pipeline seed (-run +replay):\n%s", diff)
	}
}

func TestPipeline_Replay_SkipsUnfiredLeaf(t *testing.T) {
	marker := testutil.NewMarker("m", 0.5, nil)
	p, err := New("train", Leaf(marker), WithSeed(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trace := &Trace{
		Pipeline: "train",
		Seed:     3,
		Entries:  []TraceEntry{{Path: "0", Kind: KindLeaf, Name: "m", Fired: false}},
	}
	if _, err := p.Replay(context.Background(), trace, imageBundle(2, 2, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marker.Calls() != 0 {
		t.Fatalf("expected unfired entry to skip the transform, got %d applies", marker.Calls())
	}
}

func TestPipeline_Replay_NilTrace(t *testing.T) {
	p, err := New("train", Leaf(testutil.NewMarker("m", 1.0, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Replay(context.Background(), nil, imageBundle(2, 2, 0, 0)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
		t.Fatalf("expected trace mismatch error, got %v", err)
	}
}

func TestPipeline_Replay_Mismatches(t *testing.T) {
	run := func(t *testing.T) (*Pipeline, *Trace) {
		t.Helper()
		p, err := New("train", replayTree(), WithSeed(42))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, trace, err := p.RunTraced(context.Background(), imageBundle(6, 6, 2, 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return p, trace
	}

	findLeaf := func(t *testing.T, tr *Trace, name string) int {
		t.Helper()
		for i, e := range tr.Entries {
			if e.Kind == KindLeaf && e.Name == name {
				return i
			}
		}
		t.Fatalf("no leaf %q in trace", name)
		return -1
	}

	t.Run("renamed transform", func(t *testing.T) {
		_, trace := run(t)
		renamed, err := New("train",
			Sequential(
				Leaf(testutil.Shift("translate", 0.7, 1, 0)),
				OneOf(0.9,
					Leaf(testutil.Brightness("darken", 1.0, -0.4, -0.1)),
					Leaf(testutil.Brightness("lighten", 1.0, 0.1, 0.4)),
				),
			),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i := findLeaf(t, trace, "shift"); trace.Entries[i].Name != "shift" {
			t.Fatalf("expected recorded leaf name shift, got %q", trace.Entries[i].Name)
		}
		if _, err := renamed.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("different tree shape", func(t *testing.T) {
		_, trace := run(t)
		flat, err := New("train", Leaf(testutil.Shift("shift", 0.7, 1, 0)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := flat.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("wrong pipeline name", func(t *testing.T) {
		_, trace := run(t)
		other, err := New("eval", replayTree())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := other.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("truncated trace", func(t *testing.T) {
		p, trace := run(t)
		trace.Entries = trace.Entries[:1]
		if _, err := p.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("surplus entries", func(t *testing.T) {
		p, trace := run(t)
		trace.Entries = append(trace.Entries, TraceEntry{Path: "0/9", Kind: KindLeaf, Name: "ghost"})
		if _, err := p.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("choice out of range", func(t *testing.T) {
		p, trace := run(t)
		for i, e := range trace.Entries {
			if e.Kind == KindOneOf {
				trace.Entries[i].Fired = true
				trace.Entries[i].Choice = util.Ptr(5)
			}
		}
		if _, err := p.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("fired selection without choice", func(t *testing.T) {
		p, trace := run(t)
		for i, e := range trace.Entries {
			if e.Kind == KindOneOf {
				trace.Entries[i].Fired = true
				trace.Entries[i].Choice = nil
				trace.Entries = trace.Entries[:i+1]
				break
			}
		}
		if _, err := p.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})

	t.Run("sequential marked unfired", func(t *testing.T) {
		p, trace := run(t)
		trace.Entries[0].Fired = false
		if _, err := p.Replay(context.Background(), trace, imageBundle(6, 6, 2, 2)); !errors.Is(err, errors.ErrCodeTraceMismatch) {
			t.Fatalf("expected trace mismatch error, got %v", err)
		}
	})
}

func TestTrace_EncodeDecodeReplay(t *testing.T) {
	p, err := New("train", Leaf(testutil.Shift("shift", 1.0, 1, 0)), WithSeed(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := imageBundle(4, 4, 1, 1)
	ran, trace, err := p.RunTraced(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := trace.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := DecodeTrace(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Pipeline != "train" || decoded.Seed != 8 {
		t.Fatalf("expected metadata to survive the round trip, got %s/%d", decoded.Pipeline, decoded.Seed)
	}

	// Integer parameters come back from JSON as float64; replay must still
	// feed them to the transform as the integers it sampled.
	replayed, err := p.Replay(context.Background(), decoded, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ranImg, _ := target.At[target.Image](ran, "image")
	repImg, _ := target.At[target.Image](replayed, "image")
	if diff := cmp.Diff(ranImg, repImg); diff != "" {
		t.Fatalf("decoded trace replay diverged (-run +replay):\n%s", diff)
	}
}

func TestTrace_Fired(t *testing.T) {
	tr := &Trace{Entries: []TraceEntry{
		{Path: "0", Kind: KindSequential, Fired: true},
		{Path: "0/0", Kind: KindLeaf, Name: "a", Fired: true},
		{Path: "0/1", Kind: KindLeaf, Name: "b", Fired: false},
		{Path: "0/2", Kind: KindSometimes, Fired: true},
		{Path: "0/2/0", Kind: KindLeaf, Name: "c", Fired: true},
	}}

	fired := tr.Fired()
	if len(fired) != 2 {
		t.Fatalf("expected 2 fired leaves, got %d", len(fired))
	}
	if fired[0].Name != "a" || fired[1].Name != "c" {
		t.Fatalf("expected fired leaves [a c], got [%s %s]", fired[0].Name, fired[1].Name)
	}
}

func TestTrace_CloneIsIndependent(t *testing.T) {
	tr := &Trace{
		Pipeline: "train",
		Seed:     9,
		Entries: []TraceEntry{
			{Path: "0", Kind: KindOneOf, Fired: true, Choice: util.Ptr(1)},
			{Path: "0/1", Kind: KindLeaf, Name: "a", Fired: true, Params: map[string]any{"dx": 1}},
		},
	}

	cp := tr.Clone()
	*cp.Entries[0].Choice = 0
	cp.Entries[1].Params["dx"] = 99

	if *tr.Entries[0].Choice != 1 {
		t.Fatalf("expected original choice untouched, got %d", *tr.Entries[0].Choice)
	}
	if tr.Entries[1].Params["dx"] != 1 {
		t.Fatalf("expected original params untouched, got %v", tr.Entries[1].Params["dx"])
	}
}

func TestLedger_RecordAndReplay(t *testing.T) {
	p, err := New("train", Leaf(testutil.Shift("shift", 1.0, 1, 0)), WithSeed(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := imageBundle(4, 4, 1, 1)
	ran, trace, err := p.RunTraced(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger := NewLedger()
	id := ledger.Record(trace)
	if id == "" {
		t.Fatal("expected a non-empty trace id")
	}
	if ledger.Len() != 1 {
		t.Fatalf("expected 1 stored trace, got %d", ledger.Len())
	}

	replayed, err := ledger.Replay(context.Background(), p, id, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ranImg, _ := target.At[target.Image](ran, "image")
	repImg, _ := target.At[target.Image](replayed, "image")
	if diff := cmp.Diff(ranImg, repImg); diff != "" {
		t.Fatalf("ledger replay diverged (-run +replay):\n%s", diff)
	}
}

func TestLedger_ReplayUnknownID(t *testing.T) {
	p, err := New("train", Leaf(testutil.NewMarker("m", 1.0, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, rErr := NewLedger().Replay(context.Background(), p, "missing", imageBundle(2, 2, 0, 0))
	if !errors.Is(rErr, errors.ErrCodeTraceMismatch) {
		t.Fatalf("expected trace mismatch error, got %v", rErr)
	}
}

func TestLedger_GetReturnsCopy(t *testing.T) {
	ledger := NewLedger()
	id := ledger.Record(&Trace{
		Pipeline: "train",
		Entries:  []TraceEntry{{Path: "0", Kind: KindLeaf, Name: "a", Fired: true}},
	})

	got, ok := ledger.Get(id)
	if !ok {
		t.Fatal("expected stored trace")
	}
	got.Entries[0].Name = "tampered"

	again, _ := ledger.Get(id)
	if again.Entries[0].Name != "a" {
		t.Fatalf("expected stored trace unaffected by caller mutation, got %q", again.Entries[0].Name)
	}
}

func TestLedger_ListRemoveLen(t *testing.T) {
	ledger := NewLedger()
	tr := &Trace{Pipeline: "train"}
	ids := []string{ledger.Record(tr), ledger.Record(tr), ledger.Record(tr)}

	list := ledger.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(list))
	}
	if !sort.StringsAreSorted(list) {
		t.Fatalf("expected sorted ids, got %v", list)
	}

	if !ledger.Remove(ids[0]) {
		t.Fatal("expected removal of a stored id to succeed")
	}
	if ledger.Remove(ids[0]) {
		t.Fatal("expected second removal to report a miss")
	}
	if ledger.Len() != 2 {
		t.Fatalf("expected 2 remaining traces, got %d", ledger.Len())
	}
	if _, ok := ledger.Get(ids[0]); ok {
		t.Fatal("expected removed id to be gone")
	}
}
