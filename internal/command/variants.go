package command

import (
	"context"
	"fmt"

	"github.com/roach88/konnekt/internal/dataset"
)

// NewCallback creates a Command that calls fn on the worker. Committing a
// Callback and waiting for it is a barrier: every Command committed before it
// has reached a terminal state.
func NewCallback(name string, fn func(), opts ...Option) *Command {
	work := func(context.Context, *Token) (any, error) {
		if fn != nil {
			fn()
		}
		return nil, nil
	}
	return New(name, "callback", work, append([]Option{WithKind(KindCallback)}, opts...)...)
}

// NewReadFile creates a Command that loads path with reader. On success the
// Command's result is the dataset.Dataset; on failure it is nil.
func NewReadFile(path string, reader dataset.Reader, opts ...Option) *Command {
	work := func(ctx context.Context, _ *Token) (any, error) {
		if reader == nil {
			return nil, fmt.Errorf("read %s: no reader", path)
		}
		ds, err := reader.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		return ds, nil
	}
	return New("read "+path, "load a dataset from "+path, work,
		append([]Option{WithKind(KindReadFile)}, opts...)...)
}

// ReadFileResult returns the dataset produced by a successful ReadFile
// Command.
func ReadFileResult(c *Command) (dataset.Dataset, bool) {
	if c == nil || c.State() != StateSuccess {
		return nil, false
	}
	ds, ok := c.Result().(dataset.Dataset)
	return ds, ok
}
