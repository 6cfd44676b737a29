package network

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/logging"
)

// Network is the Processing Network: the Algorithm graph plus the single
// command.Queue that serializes all work on it.
//
// Thread-safety model:
//   - Start(), Stop(), Commit(), Exec() and the *Command constructors: safe
//     from any goroutine
//   - every method taking a *command.Token: worker goroutine only, enforced
//     by the token
type Network struct {
	name      string
	queue     *command.Queue
	queueOpts []command.QueueOption
	logger    *slog.Logger

	algorithms  []Algorithm // registration order
	byName      map[string]Algorithm
	connections []*Connection
	dirty       map[Algorithm]bool
	order       []Algorithm // cached topological order; nil when stale
	passes      int
}

// Option configures a Network.
type Option func(*Network)

// WithName names the network in snapshots and logs.
func WithName(name string) Option {
	return func(n *Network) {
		n.name = name
	}
}

// WithLogger sets the network's logger. The queue logs through it as well
// unless a queue option overrides that.
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		n.logger = l
	}
}

// WithQueueOptions passes options to the network's Command Queue.
func WithQueueOptions(opts ...command.QueueOption) Option {
	return func(n *Network) {
		n.queueOpts = append(n.queueOpts, opts...)
	}
}

// New creates a Network and its Command Queue. The queue is not started.
func New(opts ...Option) *Network {
	n := &Network{
		name:   "network",
		byName: make(map[string]Algorithm),
		dirty:  make(map[Algorithm]bool),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logging.New("network")
	}

	qopts := append([]command.QueueOption{command.WithLogger(n.logger.With("queue", n.name))}, n.queueOpts...)
	n.queue = command.NewQueue(qopts...)
	return n
}

// Name returns the network's name.
func (n *Network) Name() string { return n.name }

// Queue returns the network's Command Queue.
func (n *Network) Queue() *command.Queue { return n.queue }

// Start starts the queue's worker.
func (n *Network) Start() { n.queue.Start() }

// Stop stops the queue's worker; see command.Queue.Stop.
func (n *Network) Stop(graceful bool) { n.queue.Stop(graceful) }

// Commit submits c to the network's queue and returns it.
func (n *Network) Commit(c *command.Command) *command.Command {
	return n.queue.Commit(c)
}

// Exec commits a Command running fn and waits for it. It returns the
// Command's result, or its error (command.ErrAborted, *command.FailedError,
// or ctx's error).
//
// Exec must not be called from inside a Command on the same network.
func (n *Network) Exec(ctx context.Context, name string, fn command.WorkFunc, opts ...command.Option) (any, error) {
	c := n.Commit(command.New(name, name, fn, opts...))
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}
	return c.Result(), nil
}

func (n *Network) check(tok *command.Token, op string) error {
	if !tok.IssuedBy(n.queue) {
		return errNoCapability(op)
	}
	return nil
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "./=\r\n")
}

// AddAlgorithm registers a and seals its connector set. A newly added
// Algorithm is processed on the next run pass.
func (n *Network) AddAlgorithm(tok *command.Token, a Algorithm) error {
	if err := n.check(tok, "add algorithm"); err != nil {
		return err
	}
	if a == nil || a.base() == nil {
		return &GraphError{Code: ErrCodeInvalidName, Message: "algorithm has no Base"}
	}
	name := a.Name()
	if !validName(name) {
		return &GraphError{
			Code:      ErrCodeInvalidName,
			Message:   "algorithm names must be non-empty and free of '.', '/', '='",
			Algorithm: name,
		}
	}
	if _, exists := n.byName[name]; exists {
		return &GraphError{Code: ErrCodeDuplicateAlgorithm, Message: "already registered", Algorithm: name}
	}
	b := a.base()
	if b.self != nil {
		return &GraphError{Code: ErrCodeDuplicateAlgorithm, Message: "registered in another network", Algorithm: name}
	}

	b.self = a
	b.sealed = true
	n.algorithms = append(n.algorithms, a)
	n.byName[name] = a
	n.dirty[a] = true
	n.order = nil

	n.logger.Debug("algorithm added", "algorithm", name)
	return nil
}

// RemoveAlgorithm tears down every Connection touching the named Algorithm,
// then unregisters it.
func (n *Network) RemoveAlgorithm(tok *command.Token, name string) error {
	if err := n.check(tok, "remove algorithm"); err != nil {
		return err
	}
	a, ok := n.byName[name]
	if !ok {
		return &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "not registered", Algorithm: name}
	}

	kept := n.connections[:0]
	for _, c := range n.connections {
		if c.source.owner == a.base() || c.target.owner == a.base() {
			c.detach()
			continue
		}
		kept = append(kept, c)
	}
	clear(n.connections[len(kept):])
	n.connections = kept

	for i, existing := range n.algorithms {
		if existing == a {
			n.algorithms = append(n.algorithms[:i], n.algorithms[i+1:]...)
			break
		}
	}
	delete(n.byName, name)
	delete(n.dirty, a)
	a.base().self = nil
	n.order = nil

	n.logger.Debug("algorithm removed", "algorithm", name)
	return nil
}

// Connect links source's output to target's input.
//
// It fails, leaving the graph unchanged, if either Algorithm is not
// registered, a connector name is unknown, the input is already connected,
// the declared types are incompatible, or the link would close a cycle.
func (n *Network) Connect(tok *command.Token, source Algorithm, output string, target Algorithm, input string) (*Connection, error) {
	if err := n.check(tok, "connect"); err != nil {
		return nil, err
	}
	if err := n.registered(source); err != nil {
		return nil, err
	}
	if err := n.registered(target); err != nil {
		return nil, err
	}

	out, ok := source.base().Output(output)
	if !ok {
		return nil, &GraphError{
			Code:      ErrCodeUnknownConnector,
			Message:   "no such output",
			Algorithm: source.Name(),
			Connector: output,
		}
	}
	in, ok := target.base().Input(input)
	if !ok {
		return nil, &GraphError{
			Code:      ErrCodeUnknownConnector,
			Message:   "no such input",
			Algorithm: target.Name(),
			Connector: input,
		}
	}
	if existing := in.core().incoming; existing != nil {
		return nil, &GraphError{
			Code:      ErrCodeInputConnected,
			Message:   fmt.Sprintf("already fed by %s", existing.source),
			Algorithm: target.Name(),
			Connector: input,
		}
	}

	conn, err := newConnection(out, in)
	if err != nil {
		return nil, err
	}

	if source == target || n.reaches(target, source) {
		return nil, &GraphError{
			Code:      ErrCodeCycle,
			Message:   fmt.Sprintf("%s would close a cycle", conn),
			Algorithm: target.Name(),
			Connector: input,
		}
	}

	conn.attach()
	n.connections = append(n.connections, conn)
	n.order = nil

	n.logger.Debug("connected", "source", conn.source.String(), "target", conn.target.String())
	return conn, nil
}

// ConnectByName resolves Algorithm names and calls Connect.
func (n *Network) ConnectByName(tok *command.Token, source, output, target, input string) (*Connection, error) {
	if err := n.check(tok, "connect"); err != nil {
		return nil, err
	}
	src, ok := n.byName[source]
	if !ok {
		return nil, &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "not registered", Algorithm: source}
	}
	dst, ok := n.byName[target]
	if !ok {
		return nil, &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "not registered", Algorithm: target}
	}
	return n.Connect(tok, src, output, dst, input)
}

// Invalidate forces the named Algorithm to be processed on the next run
// pass, even if none of its inputs changed. This is how sources whose
// parameters changed get re-run.
func (n *Network) Invalidate(tok *command.Token, name string) error {
	if err := n.check(tok, "invalidate"); err != nil {
		return err
	}
	a, ok := n.byName[name]
	if !ok {
		return &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "not registered", Algorithm: name}
	}
	n.dirty[a] = true
	return nil
}

// Algorithm returns the registered Algorithm named name.
func (n *Network) Algorithm(tok *command.Token, name string) (Algorithm, error) {
	if err := n.check(tok, "lookup"); err != nil {
		return nil, err
	}
	a, ok := n.byName[name]
	if !ok {
		return nil, &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "not registered", Algorithm: name}
	}
	return a, nil
}

// Algorithms returns the registered Algorithms in registration order.
func (n *Network) Algorithms(tok *command.Token) ([]Algorithm, error) {
	if err := n.check(tok, "list algorithms"); err != nil {
		return nil, err
	}
	return append([]Algorithm(nil), n.algorithms...), nil
}

// Connections returns the Connections in creation order.
func (n *Network) Connections(tok *command.Token) ([]*Connection, error) {
	if err := n.check(tok, "list connections"); err != nil {
		return nil, err
	}
	return append([]*Connection(nil), n.connections...), nil
}

func (n *Network) registered(a Algorithm) error {
	if a == nil {
		return &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "nil algorithm"}
	}
	if n.byName[a.Name()] != a {
		return &GraphError{Code: ErrCodeUnknownAlgorithm, Message: "not registered", Algorithm: a.Name()}
	}
	return nil
}
