package network

import (
	"context"
	"slices"

	"github.com/roach88/konnekt/internal/state"
)

// Algorithm is a named unit of computation with declared input and output
// Connectors.
//
// Process is called by a run pass when at least one input received a new
// value (or the Algorithm was invalidated). It must tolerate repeated calls,
// produce the same outputs for unchanged inputs, and publish results only
// through its Outputs.
//
// Implementations embed *Base, which supplies everything but Process.
type Algorithm interface {
	Name() string
	Description() string
	Inputs() []Connector
	Outputs() []Connector
	Process(ctx context.Context) error

	base() *Base
}

// Stateful is implemented by Algorithms that contribute their own entries to
// a network snapshot.
type Stateful interface {
	SaveState(s *state.State)
}

// Visualization is the capability overlay of Algorithms that also render.
// The rendering loop drives these hooks; the engine never calls them.
type Visualization interface {
	Prepare() error
	Finalize() error
	Render() error
	Update() error
}

// Base holds an Algorithm's identity and connectors.
type Base struct {
	name        string
	description string
	inputs      []Connector
	outputs     []Connector

	// self is the registered Algorithm embedding this Base; sealed forbids
	// new connectors once the Algorithm has been registered.
	self   Algorithm
	sealed bool
}

// NewBase creates the embeddable core of an Algorithm.
func NewBase(name, description string) *Base {
	return &Base{name: name, description: description}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Description() string { return b.description }
func (b *Base) base() *Base         { return b }

// Inputs returns the declared input connectors in declaration order.
func (b *Base) Inputs() []Connector { return slices.Clone(b.inputs) }

// Outputs returns the declared output connectors in declaration order.
func (b *Base) Outputs() []Connector { return slices.Clone(b.outputs) }

// Input returns the input connector named name.
func (b *Base) Input(name string) (Connector, bool) {
	return find(b.inputs, name)
}

// Output returns the output connector named name.
func (b *Base) Output(name string) (Connector, bool) {
	return find(b.outputs, name)
}

func (b *Base) connectors() []Connector {
	return append(slices.Clone(b.inputs), b.outputs...)
}

func find(cs []Connector, name string) (Connector, bool) {
	for _, c := range cs {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
