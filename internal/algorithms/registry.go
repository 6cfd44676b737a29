package algorithms

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/konnekt/internal/network"
)

// ErrUnknownKind is returned by Registry.Build for an unregistered kind.
var ErrUnknownKind = errors.New("unknown algorithm kind")

// Params are the free-form parameters of one algorithm in a network
// description.
type Params map[string]any

// Float returns the number stored under key, or def if key is absent.
// YAML decoding produces int or float64; both are accepted.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("param %q: want number, got %T", key, v)
	}
}

// Factory builds an Algorithm named name from params.
type Factory func(name string, params Params) (network.Algorithm, error)

// Registry maps kind names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a Registry holding the built-in kinds:
// constant, scale, sum, dataset, line-count and sink.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("constant", func(name string, p Params) (network.Algorithm, error) {
		v, err := p.Float("value", 0)
		if err != nil {
			return nil, err
		}
		return NewConstant(name, v), nil
	})
	r.Register("scale", func(name string, p Params) (network.Algorithm, error) {
		f, err := p.Float("factor", 1)
		if err != nil {
			return nil, err
		}
		return NewScale(name, f), nil
	})
	r.Register("sum", func(name string, _ Params) (network.Algorithm, error) {
		return NewSum(name), nil
	})
	r.Register("dataset", func(name string, _ Params) (network.Algorithm, error) {
		return NewDatasetSource(name), nil
	})
	r.Register("line-count", func(name string, _ Params) (network.Algorithm, error) {
		return NewLineCount(name), nil
	})
	r.Register("sink", func(name string, _ Params) (network.Algorithm, error) {
		return NewSink(name), nil
	})
	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build creates an Algorithm of the given kind.
func (r *Registry) Build(kind, name string, params Params) (network.Algorithm, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	a, err := f(name, params)
	if err != nil {
		return nil, fmt.Errorf("build %s (%s): %w", name, kind, err)
	}
	return a, nil
}
