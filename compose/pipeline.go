package compose

import (
	"fmt"
	"sort"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/logger"
	"github.com/kbukum/augmentkit/observability"
	"github.com/kbukum/augmentkit/sample"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/telemetry"
	"github.com/kbukum/augmentkit/version"
)

// rootPath is the tree path of the root node.
const rootPath = "0"

// Pipeline is a validated, immutable augmentation pipeline. A pipeline is
// safe for concurrent use: each Run owns its working bundle and random
// stream.
type Pipeline struct {
	name      string
	root      Node
	seed      uint64
	seeded    bool
	aliases   map[string]target.Kind
	boxPolicy target.BoxPolicy
	kpPolicy  target.KeypointPolicy
	log       *logger.Logger
	metrics   *observability.Metrics
	tracing   bool
	caps      map[target.Kind]bool
}

// Option configures a pipeline at construction time.
type Option func(*Pipeline)

// WithSeed pins the random stream seed. Every Run then draws the identical
// sequence, making runs reproducible. Without it each run seeds itself.
func WithSeed(seed uint64) Option {
	return func(p *Pipeline) {
		p.seed = seed
		p.seeded = true
	}
}

// WithTargets registers additional role names, each mapped to the kind it
// carries. Canonical roles (image, mask, bboxes, keypoints, volume) are
// always known.
func WithTargets(aliases map[string]target.Kind) Option {
	return func(p *Pipeline) {
		for role, kind := range aliases {
			p.aliases[role] = kind
		}
	}
}

// WithBoxPolicy sets the bounding-box filter policy applied after each
// geometric transform.
func WithBoxPolicy(policy target.BoxPolicy) Option {
	return func(p *Pipeline) { p.boxPolicy = policy }
}

// WithKeypointPolicy sets the keypoint filter policy applied after each
// geometric transform.
func WithKeypointPolicy(policy target.KeypointPolicy) Option {
	return func(p *Pipeline) { p.kpPolicy = policy }
}

// WithLogger attaches a logger; the walk then logs fire decisions and
// failures at debug/error level.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics records a pipeline.run operation per walk on the given
// instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracing opens an OpenTelemetry span per walk and per fired leaf apply.
func WithTracing() Option {
	return func(p *Pipeline) { p.tracing = true }
}

// New builds a pipeline from a node tree and validates the whole tree
// eagerly: probabilities, selection weights, unit schemas, and applier
// coverage are all checked here so a bad configuration never reaches a walk.
func New(name string, root Node, opts ...Option) (*Pipeline, error) {
	if name == "" {
		return nil, errors.Configuration("pipeline name is empty")
	}
	if root == nil {
		return nil, errors.Configuration("pipeline root is nil")
	}

	p := &Pipeline{
		name:      name,
		root:      root,
		aliases:   make(map[string]target.Kind),
		boxPolicy: target.DefaultBoxPolicy(),
		kpPolicy:  target.DefaultKeypointPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for role, kind := range p.aliases {
		if !kind.Valid() {
			return nil, errors.Configuration(fmt.Sprintf("target %q maps to unknown kind %q", role, kind))
		}
		if target.IsCanonicalRole(role) {
			return nil, errors.Configuration(fmt.Sprintf("target %q shadows a canonical role", role))
		}
	}
	if err := p.boxPolicy.Validate(); err != nil {
		return nil, err
	}
	if err := root.validate(rootPath); err != nil {
		return nil, err
	}

	p.caps = make(map[target.Kind]bool)
	capabilities(root, p.caps)

	telemetry.TrackPipeline(telemetry.PipelineInfo{
		Transforms: leafNames(root, nil),
		Targets:    p.targetLabels(),
	})
	version.CheckInBackground()

	return p, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Transforms returns the names of all leaf units in preorder.
func (p *Pipeline) Transforms() []string {
	return leafNames(p.root, nil)
}

// Capabilities returns the union of role kinds the tree's leaves declare.
func (p *Pipeline) Capabilities() map[target.Kind]bool {
	caps := make(map[target.Kind]bool, len(p.caps))
	for k, v := range p.caps {
		caps[k] = v
	}
	return caps
}

func (p *Pipeline) targetLabels() []string {
	labels := make([]string, 0, len(p.caps))
	for k := range p.caps {
		labels = append(labels, string(k))
	}
	sort.Strings(labels)
	return labels
}

// kindOf resolves a role name against canonical roles and aliases.
func (p *Pipeline) kindOf(role string) (target.Kind, bool) {
	return target.KindOf(role, p.aliases)
}

// validateBundle checks the input against the pipeline before any sampling:
// every role must resolve to a kind some leaf supports, payload types must
// match their kinds, and a canvas-bearing role must be present.
func (p *Pipeline) validateBundle(b *target.Bundle) (canvasRole string, canvas target.Shape, err error) {
	if b == nil || b.Len() == 0 {
		return "", target.Shape{}, errors.InvalidInput("bundle", "no targets")
	}

	for _, role := range b.Roles() {
		kind, ok := p.kindOf(role)
		if !ok {
			return "", target.Shape{}, errors.UnknownRole(role)
		}
		if !p.caps[kind] {
			return "", target.Shape{}, errors.UnsupportedRole(role, string(kind))
		}
		if err := checkPayload(b, role, kind); err != nil {
			return "", target.Shape{}, err
		}
	}

	canvasRole, canvas, err = p.canvasOf(b)
	if err != nil {
		return "", target.Shape{}, err
	}
	return canvasRole, canvas, nil
}

// canvasOf picks the role that defines the canvas shape: the first image
// role, else the first volume role, else the first mask role.
func (p *Pipeline) canvasOf(b *target.Bundle) (string, target.Shape, error) {
	for _, kind := range []target.Kind{target.KindImage, target.KindVolume, target.KindMask} {
		for _, role := range b.Roles() {
			rk, _ := p.kindOf(role)
			if rk != kind {
				continue
			}
			shape, err := shapeOf(b, role, kind)
			if err != nil {
				return "", target.Shape{}, err
			}
			if shape.Empty() {
				return "", target.Shape{}, errors.InvalidInput(role, "zero-sized canvas")
			}
			return role, shape, nil
		}
	}
	return "", target.Shape{}, errors.InvalidInput("bundle", "no canvas-bearing role (image, volume, or mask)")
}

func checkPayload(b *target.Bundle, role string, kind target.Kind) error {
	var err error
	switch kind {
	case target.KindImage:
		_, err = target.At[target.Image](b, role)
	case target.KindMask:
		_, err = target.At[target.Mask](b, role)
	case target.KindVolume:
		_, err = target.At[target.Volume](b, role)
	case target.KindBoxes:
		var boxes target.Boxes
		boxes, err = target.At[target.Boxes](b, role)
		if err == nil {
			err = boxes.Validate()
		}
	case target.KindKeypoints:
		var kps target.Keypoints
		kps, err = target.At[target.Keypoints](b, role)
		if err == nil {
			err = kps.Validate()
		}
	}
	return err
}

func shapeOf(b *target.Bundle, role string, kind target.Kind) (target.Shape, error) {
	switch kind {
	case target.KindImage:
		img, err := target.At[target.Image](b, role)
		if err != nil {
			return target.Shape{}, err
		}
		return img.Shape(), nil
	case target.KindVolume:
		vol, err := target.At[target.Volume](b, role)
		if err != nil {
			return target.Shape{}, err
		}
		return vol.Shape(), nil
	case target.KindMask:
		m, err := target.At[target.Mask](b, role)
		if err != nil {
			return target.Shape{}, err
		}
		return m.Shape(), nil
	default:
		return target.Shape{}, errors.InvalidInput(role, fmt.Sprintf("kind %q carries no canvas", kind))
	}
}

// streamFor returns the stream for one walk: the pinned seed when set,
// otherwise a fresh process-level seed.
func (p *Pipeline) streamFor() (uint64, *sample.Stream) {
	seed := p.seed
	if !p.seeded {
		seed = sample.FreshSeed()
	}
	return seed, sample.NewStream(seed)
}
