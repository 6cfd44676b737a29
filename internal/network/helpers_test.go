package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/state"
)

// producer publishes a value on "x" only when one was queued with emit.
type producer struct {
	*Base
	X     *Output[int]
	next  *int
	calls int
}

func newProducer(name string) *producer {
	p := &producer{Base: NewBase(name, "emits integers")}
	p.X = NewOutput[int](p.Base, "x", "emitted integer")
	return p
}

func (p *producer) emit(v int) { p.next = &v }

func (p *producer) Process(context.Context) error {
	p.calls++
	if p.next != nil {
		p.X.Set(*p.next)
		p.next = nil
	}
	return nil
}

// consumer records what arrives on "y".
type consumer struct {
	*Base
	Y     *Input[int]
	seen  []int
	calls int
}

func newConsumer(name string) *consumer {
	c := &consumer{Base: NewBase(name, "records integers")}
	c.Y = NewInput[int](c.Base, "y", "")
	return c
}

func (c *consumer) Process(context.Context) error {
	c.calls++
	if v, ok := c.Y.Get(); ok {
		c.seen = append(c.seen, v)
	}
	return nil
}

func (c *consumer) SaveState(s *state.State) {
	s.SetInt("calls", int64(c.calls))
}

// relay forwards "in" to "out", adding one, and logs its name when processed.
type relay struct {
	*Base
	In  *Input[int]
	Out *Output[int]
	log *[]string
	err error
}

func newRelay(name string, log *[]string) *relay {
	r := &relay{Base: NewBase(name, "adds one"), log: log}
	r.In = NewInput[int](r.Base, "in", "")
	r.Out = NewOutput[int](r.Base, "out", "")
	return r
}

func (r *relay) Process(context.Context) error {
	if r.log != nil {
		*r.log = append(*r.log, r.Name())
	}
	if r.err != nil {
		return r.err
	}
	v, _ := r.In.Get()
	r.Out.Set(v + 1)
	return nil
}

// textSink accepts any value.
type textSink struct {
	*Base
	In *Input[any]
}

func newTextSink(name string) *textSink {
	s := &textSink{Base: NewBase(name, "accepts anything")}
	s.In = NewInput[any](s.Base, "in", "")
	return s
}

func (s *textSink) Process(context.Context) error { return nil }

type labeler struct {
	*Base
	Out *Output[string]
}

func newLabeler(name string) *labeler {
	l := &labeler{Base: NewBase(name, "emits labels")}
	l.Out = NewOutput[string](l.Base, "label", "")
	return l
}

func (l *labeler) Process(context.Context) error {
	l.Out.Set("tract")
	return nil
}

func testNetwork(t *testing.T) *Network {
	t.Helper()
	n := New(WithName("test"))
	n.Start()
	t.Cleanup(func() { n.Stop(true) })
	return n
}

// do runs fn on the network's worker and fails the test on error.
func do(t *testing.T, n *Network, fn func(ctx context.Context, tok *command.Token) error) {
	t.Helper()
	require.NoError(t, try(t, n, fn))
}

// try runs fn on the network's worker and returns its error unwrapped.
func try(t *testing.T, n *Network, fn func(ctx context.Context, tok *command.Token) error) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var inner error
	_, err := n.Exec(ctx, "test", func(ctx context.Context, tok *command.Token) (any, error) {
		inner = fn(ctx, tok)
		return nil, inner
	})
	if inner != nil {
		return inner
	}
	return err
}

func runPass(t *testing.T, n *Network) *RunReport {
	t.Helper()
	var report *RunReport
	do(t, n, func(ctx context.Context, tok *command.Token) error {
		var err error
		report, err = n.Run(ctx, tok)
		return err
	})
	return report
}

// mesh is a reference-typed payload; producers may republish the same
// instance.
type mesh struct {
	vertices int
}

// meshSource publishes whatever mesh it holds each time it is processed.
type meshSource struct {
	*Base
	Out  *Output[*mesh]
	mesh *mesh
}

func newMeshSource(name string, m *mesh) *meshSource {
	s := &meshSource{Base: NewBase(name, "publishes a mesh"), mesh: m}
	s.Out = NewOutput[*mesh](s.Base, "mesh", "")
	return s
}

func (s *meshSource) Process(context.Context) error {
	s.Out.Set(s.mesh)
	return nil
}

// meshSink counts processed meshes and panics while panicking is set.
type meshSink struct {
	*Base
	In        *Input[*mesh]
	seen      []*mesh
	panicking bool
}

func newMeshSink(name string) *meshSink {
	s := &meshSink{Base: NewBase(name, "consumes meshes")}
	s.In = NewInput[*mesh](s.Base, "mesh", "")
	return s
}

func (s *meshSink) Process(context.Context) error {
	if s.panicking {
		panic("corrupt mesh")
	}
	m, _ := s.In.Get()
	s.seen = append(s.seen, m)
	return nil
}

// meshPipeline registers src -> dst on n.
func meshPipeline(t *testing.T, n *Network, src *meshSource, dst *meshSink) {
	t.Helper()
	do(t, n, func(_ context.Context, tok *command.Token) error {
		require.NoError(t, n.AddAlgorithm(tok, src))
		require.NoError(t, n.AddAlgorithm(tok, dst))
		_, err := n.Connect(tok, src, "mesh", dst, "mesh")
		return err
	})
}
