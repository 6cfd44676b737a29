package network

import (
	"context"
	"fmt"

	"github.com/roach88/konnekt/internal/command"
)

// Kinds of the graph Commands.
const (
	KindAddAlgorithm    = "add-algorithm"
	KindRemoveAlgorithm = "remove-algorithm"
	KindConnect         = "connect"
	KindInvalidate      = "invalidate"
	KindRunNetwork      = "run-network"
	KindQueryState      = "query-state"
)

// The constructors below build Commands bound to n without committing them,
// so callers can attach an Observer first and then Commit.

// AddAlgorithmCommand registers a when executed.
func (n *Network) AddAlgorithmCommand(a Algorithm, opts ...command.Option) *command.Command {
	name := "<nil>"
	if a != nil {
		name = a.Name()
	}
	return command.New("add "+name, "register algorithm "+name,
		func(_ context.Context, tok *command.Token) (any, error) {
			return nil, n.AddAlgorithm(tok, a)
		},
		withKind(KindAddAlgorithm, opts)...)
}

// RemoveAlgorithmCommand unregisters the named Algorithm when executed.
func (n *Network) RemoveAlgorithmCommand(name string, opts ...command.Option) *command.Command {
	return command.New("remove "+name, "unregister algorithm "+name,
		func(_ context.Context, tok *command.Token) (any, error) {
			return nil, n.RemoveAlgorithm(tok, name)
		},
		withKind(KindRemoveAlgorithm, opts)...)
}

// ConnectCommand links source.output to target.input when executed. The
// result is the *Connection.
func (n *Network) ConnectCommand(source, output, target, input string, opts ...command.Option) *command.Command {
	name := fmt.Sprintf("connect %s.%s -> %s.%s", source, output, target, input)
	return command.New(name, name,
		func(_ context.Context, tok *command.Token) (any, error) {
			conn, err := n.ConnectByName(tok, source, output, target, input)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		withKind(KindConnect, opts)...)
}

// InvalidateCommand marks the named Algorithm for processing on the next pass.
func (n *Network) InvalidateCommand(name string, opts ...command.Option) *command.Command {
	return command.New("invalidate "+name, "force "+name+" to run on the next pass",
		func(_ context.Context, tok *command.Token) (any, error) {
			return nil, n.Invalidate(tok, name)
		},
		withKind(KindInvalidate, opts)...)
}

// RunNetworkCommand executes one run pass. The result is the *RunReport.
func (n *Network) RunNetworkCommand(opts ...command.Option) *command.Command {
	return command.New("run "+n.name, "execute one run pass over "+n.name,
		func(ctx context.Context, tok *command.Token) (any, error) {
			report, err := n.Run(ctx, tok)
			if err != nil {
				return nil, err
			}
			return report, nil
		},
		withKind(KindRunNetwork, opts)...)
}

// QueryStateCommand snapshots the graph. The result is the *state.State.
func (n *Network) QueryStateCommand(opts ...command.Option) *command.Command {
	return command.New("query "+n.name, "snapshot the state of "+n.name,
		func(_ context.Context, tok *command.Token) (any, error) {
			s, err := n.Snapshot(tok)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		withKind(KindQueryState, opts)...)
}

func withKind(kind string, opts []command.Option) []command.Option {
	return append([]command.Option{command.WithKind(kind)}, opts...)
}
