package compose

import (
	"encoding/json"

	"github.com/kbukum/augmentkit/sample"
)

// TraceEntry records one node visit during a walk, in preorder. Skipped
// subtrees produce no entries; the gating node's entry with Fired == false
// stands in for them.
type TraceEntry struct {
	// Path locates the node in the tree: "0" is the root, "0/2" its third
	// child, and so on.
	Path string `json:"path"`

	// Kind is the node variant label: sequential, oneof, sometimes, or leaf.
	Kind string `json:"kind"`

	// Name is the transform name, set on leaf entries only.
	Name string `json:"name,omitempty"`

	// Fired reports the node's fire decision. Sequential nodes always fire.
	Fired bool `json:"fired"`

	// Choice is the selected child index of a fired oneof entry.
	Choice *int `json:"choice,omitempty"`

	// Params holds the sampled parameters of a fired leaf.
	Params sample.Values `json:"params,omitempty"`
}

// Trace is the complete decision record of one pipeline walk. Replaying it
// against another bundle reproduces the identical augmentation without
// consuming any random draws.
type Trace struct {
	// Pipeline is the name of the pipeline that produced the trace.
	Pipeline string `json:"pipeline"`

	// Seed is the stream seed the walk ran with.
	Seed uint64 `json:"seed"`

	// Entries lists every visited node in preorder.
	Entries []TraceEntry `json:"entries"`
}

// Encode serializes the trace as JSON.
func (t *Trace) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTrace parses a trace previously produced by Encode.
func DecodeTrace(data []byte) (*Trace, error) {
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Fired returns the entries of fired leaves, in walk order.
func (t *Trace) Fired() []TraceEntry {
	var fired []TraceEntry
	for _, e := range t.Entries {
		if e.Kind == KindLeaf && e.Fired {
			fired = append(fired, e)
		}
	}
	return fired
}

// Clone returns a deep copy of the trace.
func (t *Trace) Clone() *Trace {
	out := &Trace{Pipeline: t.Pipeline, Seed: t.Seed}
	out.Entries = make([]TraceEntry, len(t.Entries))
	for i, e := range t.Entries {
		ce := e
		if e.Choice != nil {
			c := *e.Choice
			ce.Choice = &c
		}
		if e.Params != nil {
			ce.Params = make(sample.Values, len(e.Params))
			for k, v := range e.Params {
				ce.Params[k] = v
			}
		}
		out.Entries[i] = ce
	}
	return out
}
