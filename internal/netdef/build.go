package netdef

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/konnekt/internal/algorithms"
	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/dataset"
	"github.com/roach88/konnekt/internal/network"
)

// DatasetSink is implemented by algorithms that accept a loaded dataset.
type DatasetSink interface {
	network.Algorithm
	SetDataset(dataset.Dataset)
}

// Builder turns a Definition into Commands on a Network.
type Builder struct {
	Kinds   *algorithms.Registry
	Readers *dataset.Registry

	// Options are applied to every Command the Builder commits, typically
	// command.WithObserver.
	Options []command.Option
}

// NewBuilder returns a Builder with the built-in kinds and readers.
func NewBuilder(opts ...command.Option) *Builder {
	return &Builder{
		Kinds:   algorithms.NewRegistry(),
		Readers: dataset.NewRegistry(),
		Options: opts,
	}
}

// Build validates d, then commits, in order, one AddAlgorithm Command per
// algorithm, one Connect Command per connection, and per dataset a ReadFile
// Command followed by a Command that hands the result to its source. It
// waits for every Command and returns the first failure.
//
// n's queue must be running, otherwise Build blocks until ctx is done.
func (b *Builder) Build(ctx context.Context, d *Definition, n *network.Network) error {
	if errs := d.Validate(b.Kinds); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return errors.Join(joined...)
	}

	// Construct every algorithm before committing anything, so a bad
	// parameter leaves the network untouched.
	algs := make([]network.Algorithm, 0, len(d.Algorithms))
	for _, spec := range d.Algorithms {
		a, err := b.Kinds.Build(spec.Kind, spec.Name, spec.Params)
		if err != nil {
			return err
		}
		algs = append(algs, a)
	}

	var cmds []*command.Command
	commit := func(c *command.Command) *command.Command {
		cmds = append(cmds, n.Commit(c))
		return c
	}

	for _, a := range algs {
		commit(n.AddAlgorithmCommand(a, b.Options...))
	}

	for _, spec := range d.Connections {
		src, out, _ := Endpoint(spec.From)
		dst, in, _ := Endpoint(spec.To)
		commit(n.ConnectCommand(src, out, dst, in, b.Options...))
	}

	for _, spec := range d.Datasets {
		read := commit(command.NewReadFile(d.DatasetPath(spec), b.Readers, b.Options...))
		commit(b.installCommand(n, spec.Into, read))
	}

	for _, c := range cmds {
		if err := c.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

// installCommand hands read's dataset to the named source and invalidates
// it. The queue is FIFO, so read is terminal when this Command runs.
func (b *Builder) installCommand(n *network.Network, into string, read *command.Command) *command.Command {
	work := func(_ context.Context, tok *command.Token) (any, error) {
		ds, ok := command.ReadFileResult(read)
		if !ok {
			return nil, fmt.Errorf("%s did not produce a dataset", read.Name())
		}
		a, err := n.Algorithm(tok, into)
		if err != nil {
			return nil, err
		}
		sink, ok := a.(DatasetSink)
		if !ok {
			return nil, fmt.Errorf("algorithm %s does not accept datasets", into)
		}
		sink.SetDataset(ds)
		return nil, n.Invalidate(tok, into)
	}
	return command.New("install "+into, "hand "+read.Name()+" to "+into, work, b.Options...)
}
