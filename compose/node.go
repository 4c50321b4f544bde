package compose

import (
	"fmt"
	"math"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform"
	"github.com/kbukum/augmentkit/validation"
)

// Node kind labels, recorded in trace entries.
const (
	KindSequential = "sequential"
	KindOneOf      = "oneof"
	KindSometimes  = "sometimes"
	KindLeaf       = "leaf"
)

// Node is one position in a pipeline tree. The variant set is closed:
// Sequential, OneOf, Sometimes, and Leaf are the only implementations.
// Nodes are assembled bottom-up from finished children, so a tree can
// never contain a cycle.
type Node interface {
	// kind returns the trace label of the variant.
	kind() string

	// validate checks the node's own configuration. path locates the node
	// in error messages.
	validate(path string) error
}

// Sequential groups children that run in order, each making its own fire
// decision. The group itself always runs; wrap it in Sometimes to gate it.
func Sequential(children ...Node) Node {
	return &sequentialNode{nodes: children}
}

type sequentialNode struct {
	nodes []Node
}

func (n *sequentialNode) kind() string { return KindSequential }

func (n *sequentialNode) validate(path string) error {
	for i, child := range n.nodes {
		if child == nil {
			return errors.ConfigurationAt(childPath(path, i), "child is nil")
		}
		if err := child.validate(childPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

// OneOf selects exactly one child per fired activation, with equal weights.
// The group fires with probability p; when it does not fire, no child runs.
func OneOf(p float64, children ...Node) Node {
	weights := make([]float64, len(children))
	for i := range weights {
		weights[i] = 1
	}
	return &oneOfNode{p: p, weights: weights, nodes: children}
}

// OneOfWeighted is OneOf with explicit selection weights. A weight of zero
// makes the corresponding child unselectable without removing it from the
// tree.
func OneOfWeighted(p float64, weights []float64, children ...Node) Node {
	return &oneOfNode{p: p, weights: weights, nodes: children}
}

type oneOfNode struct {
	p       float64
	weights []float64
	nodes   []Node
}

func (n *oneOfNode) kind() string { return KindOneOf }

func (n *oneOfNode) validate(path string) error {
	if err := checkProbability(n.p, path); err != nil {
		return err
	}
	if len(n.nodes) == 0 {
		return errors.ConfigurationAt(path, "oneof requires at least one child")
	}
	if len(n.weights) != len(n.nodes) {
		return errors.ConfigurationAt(path, fmt.Sprintf("%d weights for %d children", len(n.weights), len(n.nodes)))
	}
	if err := validation.New().Weights("weights", n.weights).Validate(); err != nil {
		return errors.ConfigurationAt(path, err.Message)
	}
	for i, child := range n.nodes {
		if child == nil {
			return errors.ConfigurationAt(childPath(path, i), "child is nil")
		}
		if err := child.validate(childPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Sometimes gates a single child: with probability p the child runs,
// otherwise the whole subtree is skipped.
func Sometimes(p float64, child Node) Node {
	return &sometimesNode{p: p, node: child}
}

type sometimesNode struct {
	p    float64
	node Node
}

func (n *sometimesNode) kind() string { return KindSometimes }

func (n *sometimesNode) validate(path string) error {
	if err := checkProbability(n.p, path); err != nil {
		return err
	}
	if n.node == nil {
		return errors.ConfigurationAt(path, "sometimes requires a child")
	}
	return n.node.validate(childPath(path, 0))
}

// Leaf wraps a transform unit as a tree position. The unit's own probability
// gates its fire decision.
func Leaf(t transform.Transform) Node {
	return &leafNode{t: t}
}

type leafNode struct {
	t transform.Transform
}

func (n *leafNode) kind() string { return KindLeaf }

func (n *leafNode) validate(path string) error {
	if n.t == nil {
		return errors.ConfigurationAt(path, "leaf transform is nil")
	}
	if err := transform.Validate(n.t); err != nil {
		return errors.ConfigurationAt(path, err.Error())
	}
	return nil
}

func checkProbability(p float64, path string) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return errors.ConfigurationAt(path, fmt.Sprintf("probability %v outside [0, 1]", p))
	}
	return nil
}

func childPath(path string, i int) string {
	return fmt.Sprintf("%s/%d", path, i)
}

// capabilities unions the declared kinds of every leaf under n.
func capabilities(n Node, caps map[target.Kind]bool) {
	switch v := n.(type) {
	case *leafNode:
		for _, k := range v.t.Kinds() {
			caps[k] = true
		}
	case *sequentialNode:
		for _, child := range v.nodes {
			capabilities(child, caps)
		}
	case *oneOfNode:
		for _, child := range v.nodes {
			capabilities(child, caps)
		}
	case *sometimesNode:
		capabilities(v.node, caps)
	}
}

// leafNames collects transform names in preorder.
func leafNames(n Node, names []string) []string {
	switch v := n.(type) {
	case *leafNode:
		names = append(names, v.t.Name())
	case *sequentialNode:
		for _, child := range v.nodes {
			names = leafNames(child, names)
		}
	case *oneOfNode:
		for _, child := range v.nodes {
			names = leafNames(child, names)
		}
	case *sometimesNode:
		names = leafNames(v.node, names)
	}
	return names
}
