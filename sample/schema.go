package sample

import (
	"fmt"

	"github.com/kbukum/augmentkit/errors"
)

// Rule declares how one parameter is sampled. The set of rule kinds is
// closed: fixed values, uniform ranges (float and int), categorical choices,
// and values derived from already-sampled parameters.
type Rule interface {
	// Name returns the parameter name the rule binds.
	Name() string

	validate() error
	sample(vals Values, s *Stream) (any, error)
}

// Fixed declares a parameter with a constant value. Consumes no draw.
func Fixed(name string, value any) Rule {
	return fixedRule{name: name, value: value}
}

// Uniform declares a parameter drawn uniformly from [min, max). Consumes one
// draw.
func Uniform(name string, min, max float64) Rule {
	return uniformRule{name: name, min: min, max: max}
}

// UniformInt declares a parameter drawn uniformly from the inclusive integer
// range [min, max]. Consumes one draw.
func UniformInt(name string, min, max int) Rule {
	return uniformIntRule{name: name, min: min, max: max}
}

// Choice declares a parameter drawn uniformly from a fixed option set.
// Consumes one draw.
func Choice(name string, options ...any) Rule {
	return choiceRule{name: name, options: options}
}

// WeightedChoice declares a parameter drawn from an option set with relative
// weights. A zero-weight option is unreachable. Consumes one draw.
func WeightedChoice(name string, options []any, weights []float64) Rule {
	return choiceRule{name: name, options: options, weights: weights}
}

// Derived declares a parameter computed from already-sampled values of the
// same schema, in declaration order. Consumes no draw; this is how coupled
// parameters (an angle and its matching fill value) stay consistent without
// a second independent draw.
func Derived(name string, fn func(Values) (any, error)) Rule {
	return derivedRule{name: name, fn: fn}
}

type fixedRule struct {
	name  string
	value any
}

func (r fixedRule) Name() string { return r.name }

func (r fixedRule) validate() error {
	if r.name == "" {
		return errors.Configuration("parameter name must not be empty")
	}
	return nil
}

func (r fixedRule) sample(Values, *Stream) (any, error) {
	return r.value, nil
}

type uniformRule struct {
	name     string
	min, max float64
}

func (r uniformRule) Name() string { return r.name }

func (r uniformRule) validate() error {
	if r.name == "" {
		return errors.Configuration("parameter name must not be empty")
	}
	if r.min > r.max {
		return errors.Configuration(fmt.Sprintf("parameter %q: min %v greater than max %v", r.name, r.min, r.max))
	}
	return nil
}

func (r uniformRule) sample(_ Values, s *Stream) (any, error) {
	return r.min + s.Float64()*(r.max-r.min), nil
}

type uniformIntRule struct {
	name     string
	min, max int
}

func (r uniformIntRule) Name() string { return r.name }

func (r uniformIntRule) validate() error {
	if r.name == "" {
		return errors.Configuration("parameter name must not be empty")
	}
	if r.min > r.max {
		return errors.Configuration(fmt.Sprintf("parameter %q: min %d greater than max %d", r.name, r.min, r.max))
	}
	return nil
}

func (r uniformIntRule) sample(_ Values, s *Stream) (any, error) {
	return r.min + s.IntN(r.max-r.min+1), nil
}

type choiceRule struct {
	name    string
	options []any
	weights []float64
}

func (r choiceRule) Name() string { return r.name }

func (r choiceRule) validate() error {
	if r.name == "" {
		return errors.Configuration("parameter name must not be empty")
	}
	if len(r.options) == 0 {
		return errors.Configuration(fmt.Sprintf("parameter %q: choice needs at least one option", r.name))
	}
	if r.weights == nil {
		return nil
	}
	if len(r.weights) != len(r.options) {
		return errors.Configuration(fmt.Sprintf("parameter %q: %d weights for %d options", r.name, len(r.weights), len(r.options)))
	}
	var total float64
	for i, w := range r.weights {
		if w < 0 {
			return errors.Configuration(fmt.Sprintf("parameter %q: weight %d is negative", r.name, i))
		}
		total += w
	}
	if total <= 0 {
		return errors.Configuration(fmt.Sprintf("parameter %q: weights sum to zero", r.name))
	}
	return nil
}

func (r choiceRule) sample(_ Values, s *Stream) (any, error) {
	if r.weights == nil {
		return r.options[s.IntN(len(r.options))], nil
	}
	return r.options[s.WeightedIndex(r.weights)], nil
}

type derivedRule struct {
	name string
	fn   func(Values) (any, error)
}

func (r derivedRule) Name() string { return r.name }

func (r derivedRule) validate() error {
	if r.name == "" {
		return errors.Configuration("parameter name must not be empty")
	}
	if r.fn == nil {
		return errors.Configuration(fmt.Sprintf("parameter %q: derived rule needs a function", r.name))
	}
	return nil
}

func (r derivedRule) sample(vals Values, _ *Stream) (any, error) {
	v, err := r.fn(vals)
	if err != nil {
		return nil, fmt.Errorf("derive %q: %w", r.name, err)
	}
	return v, nil
}

// Schema is an ordered parameter declaration for one transform. Order
// matters twice: draws consume the stream in declaration order, and derived
// rules see only the values declared before them. A nil *Schema is valid and
// samples to empty Values.
type Schema struct {
	rules []Rule
}

// NewSchema builds a schema from rules in declaration order.
func NewSchema(rules ...Rule) *Schema {
	return &Schema{rules: rules}
}

// Len returns the number of declared parameters.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Names returns the parameter names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name()
	}
	return names
}

// Validate checks the schema eagerly: unique non-empty names plus each
// rule's own domain constraints.
func (s *Schema) Validate() error {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.rules))
	for _, r := range s.rules {
		if err := r.validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name()]; dup {
			return errors.Configuration(fmt.Sprintf("parameter %q declared twice", r.Name()))
		}
		seen[r.Name()] = struct{}{}
	}
	return nil
}

// Sample produces one concrete value per declared parameter, consuming the
// stream deterministically. The same stream state and schema always yield
// the same values.
func (s *Schema) Sample(stream *Stream) (Values, error) {
	vals := make(Values, s.Len())
	if s == nil {
		return vals, nil
	}
	for _, r := range s.rules {
		v, err := r.sample(vals, stream)
		if err != nil {
			return nil, err
		}
		vals[r.Name()] = v
	}
	return vals, nil
}
