package network

import (
	"fmt"
	"reflect"

	"github.com/roach88/konnekt/internal/observer"
)

// Role tells whether a Connector receives or publishes values.
type Role int

const (
	RoleInput Role = iota + 1
	RoleOutput
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Connector is a named, typed data slot owned by an Algorithm. Observers
// registered on a Connector are notified whenever it receives a new value.
//
// Connectors are created with NewInput and NewOutput while the owning
// Algorithm is constructed; the set is sealed when the Algorithm is added
// to a Network.
type Connector interface {
	Name() string
	Description() string
	// Owner returns the registered Algorithm that owns the connector, or nil
	// before registration.
	Owner() Algorithm
	// Type is the declared value type, checked when a Connection is built.
	Type() reflect.Type
	Role() Role
	// HasValue reports whether a value has been published or received.
	HasValue() bool
	Observe(h *observer.Handle)
	Remove(h *observer.Handle)

	core() *connector
}

// packet is one published value. Its pointer is its identity.
type packet struct {
	value any
}

type connector struct {
	observer.Observable

	name        string
	description string
	owner       *Base
	typ         reflect.Type
	role        Role

	current  *packet
	incoming *Connection
}

func (c *connector) Name() string        { return c.name }
func (c *connector) Description() string { return c.description }
func (c *connector) Type() reflect.Type  { return c.typ }
func (c *connector) Role() Role          { return c.role }
func (c *connector) HasValue() bool      { return c.current != nil }
func (c *connector) core() *connector    { return c }

func (c *connector) Owner() Algorithm {
	if c.owner == nil {
		return nil
	}
	return c.owner.self
}

func (c *connector) String() string {
	owner := "?"
	if c.owner != nil {
		owner = c.owner.name
	}
	return owner + "." + c.name
}

// publish installs p as the current package and notifies observers.
func (c *connector) publish(p *packet) {
	c.current = p
	c.Notify()
}

func newConnector(b *Base, name, description string, typ reflect.Type, role Role) *connector {
	if b == nil {
		panic("network: connector " + name + " declared without an owning Base")
	}
	if b.sealed {
		panic(fmt.Sprintf("network: connector %s declared on %s after registration", name, b.name))
	}
	for _, existing := range b.connectors() {
		if existing.Name() == name && existing.Role() == role {
			panic(fmt.Sprintf("network: duplicate %s connector %s on %s", role, name, b.name))
		}
	}
	return &connector{
		name:        name,
		description: description,
		owner:       b,
		typ:         typ,
		role:        role,
	}
}

func valueOf[T any](p *packet) (T, bool) {
	var zero T
	if p == nil {
		return zero, false
	}
	if p.value == nil {
		return zero, true
	}
	v, ok := p.value.(T)
	return v, ok
}

// Input is a connector that receives values of type T from at most one
// incoming Connection.
type Input[T any] struct {
	*connector
}

// NewInput declares an input connector on b. It panics if b's Algorithm was
// already added to a Network or if the name is taken.
func NewInput[T any](b *Base, name, description string) *Input[T] {
	in := &Input[T]{connector: newConnector(b, name, description, reflect.TypeFor[T](), RoleInput)}
	b.inputs = append(b.inputs, in)
	return in
}

// Get returns the last value received, and false if none was received yet.
// Process implementations must check the flag before using the value.
func (in *Input[T]) Get() (T, bool) {
	return valueOf[T](in.current)
}

// Connected reports whether a Connection feeds this input.
func (in *Input[T]) Connected() bool {
	return in.incoming != nil
}

// Output is a connector that publishes values of type T.
type Output[T any] struct {
	*connector
}

// NewOutput declares an output connector on b. It panics if b's Algorithm was
// already added to a Network or if the name is taken.
func NewOutput[T any](b *Base, name, description string) *Output[T] {
	out := &Output[T]{connector: newConnector(b, name, description, reflect.TypeFor[T](), RoleOutput)}
	b.outputs = append(b.outputs, out)
	return out
}

// Set publishes v as a new package.
//
// Change is judged by identity. For reference kinds (pointer, map, slice,
// chan) setting the instance that is already published keeps the current
// package, so downstream Connections see no change; a producer that mutated
// that instance in place calls Touch instead. Values of other kinds have no
// identity and every Set is a new package, even if v equals the previous
// value.
func (out *Output[T]) Set(v T) {
	if out.current != nil && sameInstance(out.current.value, v) {
		return
	}
	out.publish(&packet{value: v})
}

// Touch republishes the current value under a new identity, signalling
// consumers that it changed. It is a no-op if nothing was published.
func (out *Output[T]) Touch() {
	if out.current == nil {
		return
	}
	out.publish(&packet{value: out.current.value})
}

// Get returns the currently published value.
func (out *Output[T]) Get() (T, bool) {
	return valueOf[T](out.current)
}

// sameInstance reports whether a and b hold the same non-nil instance of a
// reference kind. Funcs are excluded: distinct closures can share a code
// pointer.
func sameInstance(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return !va.IsNil() && va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return !va.IsNil() && va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}

// compatible reports whether values of type src may flow into dst.
func compatible(src, dst reflect.Type) bool {
	if src == dst {
		return true
	}
	return dst.Kind() == reflect.Interface && src.Implements(dst)
}
