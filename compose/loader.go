package compose

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/target"
	"github.com/kbukum/augmentkit/transform"
	"github.com/kbukum/augmentkit/validation"
)

// Definition is a YAML pipeline definition. Transform names resolve against
// a registry at build time; includes splice other definitions in by name.
type Definition struct {
	// Name is the pipeline identifier.
	Name string `yaml:"name" validate:"required"`
	// Seed pins the random stream seed when set.
	Seed *uint64 `yaml:"seed,omitempty"`
	// Targets maps additional role names to the kind they carry.
	Targets map[string]string `yaml:"targets,omitempty"`
	// BoxPolicy overrides the bounding-box filter policy.
	BoxPolicy *target.BoxPolicy `yaml:"bbox_policy,omitempty"`
	// KeypointPolicy overrides the keypoint filter policy.
	KeypointPolicy *target.KeypointPolicy `yaml:"keypoint_policy,omitempty"`
	// Pipeline is the root node of the tree.
	Pipeline *nodeDef `yaml:"pipeline" validate:"required"`
}

// nodeDef defines one tree node. Exactly one of the variant fields must be
// set.
type nodeDef struct {
	// Transform is the registry lookup key for a leaf.
	Transform string `yaml:"transform,omitempty"`
	// Include splices another definition's tree in by name.
	Include string `yaml:"include,omitempty"`
	// Sequential lists children that run in order.
	Sequential []nodeDef `yaml:"sequential,omitempty"`
	// OneOf selects exactly one child per fired activation.
	OneOf *oneOfDef `yaml:"oneof,omitempty"`
	// Sometimes gates a single child subtree.
	Sometimes *sometimesDef `yaml:"sometimes,omitempty"`
	// Weight is the selection weight of a oneof choice.
	Weight *float64 `yaml:"weight,omitempty"`
}

type oneOfDef struct {
	P       float64   `yaml:"p"`
	Choices []nodeDef `yaml:"choices" validate:"required,min=1,dive"`
}

type sometimesDef struct {
	P    float64  `yaml:"p"`
	Node *nodeDef `yaml:"node" validate:"required"`
}

// DefinitionLoader loads pipeline definitions by name, for resolving
// includes.
type DefinitionLoader interface {
	Load(name string) (*Definition, error)
}

// FileLoader loads definitions from YAML files on disk. It searches for
// {name}.yaml and {name}.yml in each directory.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader over the given directories.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load searches the configured directories for a definition by name. A file
// that exists but fails to parse stops the search with its error.
func (l *FileLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			def, err := loadDefinitionFile(filepath.Join(dir, name+ext))
			if err == nil {
				return def, nil
			}
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}
	return nil, errors.Configuration(fmt.Sprintf("pipeline definition %q not found in %v", name, l.dirs))
}

func loadDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.Configuration(fmt.Sprintf("reading %s: %v", path, err))
	}
	return ParseDefinition(data)
}

// ParseDefinition parses and validates a YAML definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Configuration("parsing pipeline definition: " + err.Error())
	}
	if err := validation.Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinition reads and validates one definition file.
func LoadDefinition(path string) (*Definition, error) {
	def, err := loadDefinitionFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Configuration(fmt.Sprintf("pipeline definition file %s not found", path))
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// Build resolves a definition into an executable pipeline: transform names
// against the registry, includes against the loader. Options from the
// definition come first, so caller options can extend but not lose them.
func Build(def *Definition, reg *transform.Registry, loader DefinitionLoader, opts ...Option) (*Pipeline, error) {
	if def == nil {
		return nil, errors.Configuration("definition is nil")
	}
	if err := validation.Validate(def); err != nil {
		return nil, err
	}

	b := &builder{
		reg:    reg,
		loader: loader,
		stack:  make(map[string]bool),
		cache:  make(map[string]Node),
	}
	root, err := b.resolve(def, rootPath)
	if err != nil {
		return nil, err
	}

	all := def.options()
	all = append(all, opts...)
	return New(def.Name, root, all...)
}

// LoadFile loads one definition file and builds it, resolving includes
// relative to the file's directory.
func LoadFile(path string, reg *transform.Registry, opts ...Option) (*Pipeline, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	return Build(def, reg, NewFileLoader(filepath.Dir(path)), opts...)
}

func (d *Definition) options() []Option {
	var opts []Option
	if d.Seed != nil {
		opts = append(opts, WithSeed(*d.Seed))
	}
	if len(d.Targets) > 0 {
		aliases := make(map[string]target.Kind, len(d.Targets))
		for role, kind := range d.Targets {
			aliases[role] = target.Kind(kind)
		}
		opts = append(opts, WithTargets(aliases))
	}
	if d.BoxPolicy != nil {
		opts = append(opts, WithBoxPolicy(*d.BoxPolicy))
	}
	if d.KeypointPolicy != nil {
		opts = append(opts, WithKeypointPolicy(*d.KeypointPolicy))
	}
	return opts
}

type builder struct {
	reg    *transform.Registry
	loader DefinitionLoader
	stack  map[string]bool
	cache  map[string]Node
}

// resolve builds a definition's tree, guarding against include cycles with
// the recursion stack. Resolved trees are cached by name; nodes are
// stateless, so a shared subtree is safe to splice into several positions.
func (b *builder) resolve(def *Definition, path string) (Node, error) {
	if b.stack[def.Name] {
		return nil, errors.Configuration(fmt.Sprintf("circular include detected for pipeline %q", def.Name))
	}
	b.stack[def.Name] = true
	defer delete(b.stack, def.Name)

	return b.buildNode(def.Pipeline, path)
}

func (b *builder) buildNode(def *nodeDef, path string) (Node, error) {
	variants := 0
	if def.Transform != "" {
		variants++
	}
	if def.Include != "" {
		variants++
	}
	if len(def.Sequential) > 0 {
		variants++
	}
	if def.OneOf != nil {
		variants++
	}
	if def.Sometimes != nil {
		variants++
	}
	if variants != 1 {
		return nil, errors.ConfigurationAt(path, "node must set exactly one of transform, include, sequential, oneof, sometimes")
	}

	switch {
	case def.Transform != "":
		if b.reg == nil {
			return nil, errors.ConfigurationAt(path, "no transform registry provided")
		}
		t, ok := b.reg.Get(def.Transform)
		if !ok {
			return nil, errors.ConfigurationAt(path, fmt.Sprintf("transform %q not registered", def.Transform))
		}
		return Leaf(t), nil

	case def.Include != "":
		if node, ok := b.cache[def.Include]; ok {
			return node, nil
		}
		if b.loader == nil {
			return nil, errors.ConfigurationAt(path, fmt.Sprintf("include %q but no loader provided", def.Include))
		}
		sub, err := b.loader.Load(def.Include)
		if err != nil {
			return nil, errors.ConfigurationAt(path, fmt.Sprintf("loading include %q: %v", def.Include, err))
		}
		node, err := b.resolve(sub, path)
		if err != nil {
			return nil, err
		}
		b.cache[def.Include] = node
		return node, nil

	case len(def.Sequential) > 0:
		children := make([]Node, len(def.Sequential))
		for i := range def.Sequential {
			child := &def.Sequential[i]
			if child.Weight != nil {
				return nil, errors.ConfigurationAt(childPath(path, i), "weight is only valid on oneof choices")
			}
			node, err := b.buildNode(child, childPath(path, i))
			if err != nil {
				return nil, err
			}
			children[i] = node
		}
		return Sequential(children...), nil

	case def.OneOf != nil:
		children := make([]Node, len(def.OneOf.Choices))
		weights := make([]float64, len(def.OneOf.Choices))
		for i := range def.OneOf.Choices {
			choice := &def.OneOf.Choices[i]
			weights[i] = 1
			if choice.Weight != nil {
				weights[i] = *choice.Weight
			}
			node, err := b.buildNode(choice, childPath(path, i))
			if err != nil {
				return nil, err
			}
			children[i] = node
		}
		return OneOfWeighted(def.OneOf.P, weights, children...), nil

	default:
		if def.Sometimes.Node == nil {
			return nil, errors.ConfigurationAt(path, "sometimes requires a node")
		}
		if def.Sometimes.Node.Weight != nil {
			return nil, errors.ConfigurationAt(path, "weight is only valid on oneof choices")
		}
		node, err := b.buildNode(def.Sometimes.Node, childPath(path, 0))
		if err != nil {
			return nil, err
		}
		return Sometimes(def.Sometimes.P, node), nil
	}
}
