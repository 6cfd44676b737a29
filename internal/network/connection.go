package network

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/konnekt/internal/observer"
)

// Connection is a directed link from one output Connector to one input
// Connector.
//
// The Connection observes its source: a notification marks it pending.
// Propagate transfers the source's current package when it differs, by
// identity, from the last package transferred.
type Connection struct {
	source *connector
	target *connector

	last    *packet
	pending atomic.Bool
	handle  *observer.Handle
}

// newConnection checks the declared types and builds an unattached
// Connection.
func newConnection(src, dst Connector) (*Connection, error) {
	s, d := src.core(), dst.core()
	if s.role != RoleOutput {
		return nil, &GraphError{
			Code:      ErrCodeUnknownConnector,
			Message:   fmt.Sprintf("%s is not an output", s),
			Connector: s.name,
		}
	}
	if d.role != RoleInput {
		return nil, &GraphError{
			Code:      ErrCodeUnknownConnector,
			Message:   fmt.Sprintf("%s is not an input", d),
			Connector: d.name,
		}
	}
	if !compatible(s.typ, d.typ) {
		return nil, &GraphError{
			Code:      ErrCodeIncompatibleTypes,
			Message:   fmt.Sprintf("cannot connect %s (%s) to %s (%s)", s, s.typ, d, d.typ),
			Connector: d.name,
		}
	}

	c := &Connection{source: s, target: d}
	c.handle = observer.NewHandle(observer.Func(func() { c.pending.Store(true) }))
	return c, nil
}

// Source returns the output end.
func (c *Connection) Source() Connector { return c.source }

// Target returns the input end.
func (c *Connection) Target() Connector { return c.target }

// Pending reports whether the source was notified since the last Propagate.
func (c *Connection) Pending() bool { return c.pending.Load() }

// Propagate copies the source's current package into the target if it is a
// package this Connection has not transferred yet. It returns true exactly
// when the target received a new package.
func (c *Connection) Propagate() bool {
	c.pending.Store(false)

	p := c.source.current
	if p == nil || p == c.last {
		return false
	}
	c.last = p
	c.target.publish(p)
	return true
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s -> %s", c.source, c.target)
}

func (c *Connection) attach() {
	c.target.incoming = c
	c.source.Observe(c.handle)
	if c.source.current != nil {
		c.pending.Store(true)
	}
}

// detach unlinks both ends. The target keeps the last value it received.
func (c *Connection) detach() {
	c.source.Remove(c.handle)
	if c.target.incoming == c {
		c.target.incoming = nil
	}
}
