package algorithms_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/konnekt/internal/algorithms"
	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/dataset"
	"github.com/roach88/konnekt/internal/network"
	"github.com/roach88/konnekt/internal/state"
)

func startNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := network.New(network.WithName("algorithms"))
	n.Start()
	t.Cleanup(func() { n.Stop(true) })
	return n
}

func exec(t *testing.T, n *network.Network, fn func(ctx context.Context, tok *command.Token) error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := n.Exec(ctx, "test", func(ctx context.Context, tok *command.Token) (any, error) {
		return nil, fn(ctx, tok)
	})
	require.NoError(t, err)
}

func run(t *testing.T, n *network.Network) *network.RunReport {
	t.Helper()
	c := n.Commit(n.RunNetworkCommand())
	require.NoError(t, c.Wait(context.Background()))
	return c.Result().(*network.RunReport)
}

func TestArithmeticChain(t *testing.T) {
	n := startNetwork(t)
	two := algorithms.NewConstant("two", 2)
	three := algorithms.NewConstant("three", 3)
	scale := algorithms.NewScale("scale", 10)
	sum := algorithms.NewSum("sum")
	sink := algorithms.NewSink("sink")

	exec(t, n, func(_ context.Context, tok *command.Token) error {
		for _, a := range []network.Algorithm{two, three, scale, sum, sink} {
			require.NoError(t, n.AddAlgorithm(tok, a))
		}
		for _, link := range [][4]string{
			{"two", "value", "scale", "in"},
			{"scale", "out", "sum", "a"},
			{"three", "value", "sum", "b"},
			{"sum", "sum", "sink", "in"},
		} {
			if _, err := n.ConnectByName(tok, link[0], link[1], link[2], link[3]); err != nil {
				return err
			}
		}
		return nil
	})

	run(t, n)
	assert.Equal(t, []any{23.0}, sink.Values())

	report := run(t, n)
	assert.Empty(t, report.Processed)
	assert.Equal(t, 1, sink.Calls())

	exec(t, n, func(_ context.Context, tok *command.Token) error {
		three.SetValue(4)
		return n.Invalidate(tok, "three")
	})
	report = run(t, n)
	assert.Equal(t, []string{"three", "sum", "sink"}, report.Processed)
	assert.Equal(t, []any{23.0, 24.0}, sink.Values())
}

func TestScale_NoInputIsNoop(t *testing.T) {
	s := algorithms.NewScale("s", 2)
	require.NoError(t, s.Process(context.Background()))

	_, ok := s.Out.Get()
	assert.False(t, ok)
}

func TestLineCount_FromReadFile(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "tracts.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("one\ntwo\nthree\n"), 0o644))

	n := startNetwork(t)
	src := algorithms.NewDatasetSource("src")
	count := algorithms.NewLineCount("count")
	sink := algorithms.NewSink("sink")

	exec(t, n, func(_ context.Context, tok *command.Token) error {
		for _, a := range []network.Algorithm{src, count, sink} {
			require.NoError(t, n.AddAlgorithm(tok, a))
		}
		if _, err := n.Connect(tok, src, "dataset", count, "dataset"); err != nil {
			return err
		}
		_, err := n.Connect(tok, count, "count", sink, "in")
		return err
	})

	read := n.Commit(command.NewReadFile(textPath, dataset.NewRegistry()))
	require.NoError(t, read.Wait(context.Background()))
	ds, ok := command.ReadFileResult(read)
	require.True(t, ok)

	exec(t, n, func(_ context.Context, tok *command.Token) error {
		src.SetDataset(ds)
		return n.Invalidate(tok, "src")
	})
	run(t, n)
	assert.Equal(t, []any{3.0}, sink.Values())
}

func TestLineCount_StateTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.state")
	s := state.New()
	s.Set("a", "1")
	s.Child("camera").Set("zoom", "2")
	require.NoError(t, s.ToFile(path))

	ds, err := dataset.StateReader.Read(context.Background(), path)
	require.NoError(t, err)

	src := algorithms.NewDatasetSource("src")
	count := algorithms.NewLineCount("count")
	n := startNetwork(t)
	exec(t, n, func(_ context.Context, tok *command.Token) error {
		require.NoError(t, n.AddAlgorithm(tok, src))
		require.NoError(t, n.AddAlgorithm(tok, count))
		_, err := n.Connect(tok, src, "dataset", count, "dataset")
		src.SetDataset(ds)
		return err
	})
	run(t, n)

	got, ok := count.Count.Get()
	require.True(t, ok)
	assert.Equal(t, 2.0, got)
}

func TestSink_SaveState(t *testing.T) {
	n := startNetwork(t)
	c := algorithms.NewConstant("c", 1.5)
	sink := algorithms.NewSink("sink")

	exec(t, n, func(_ context.Context, tok *command.Token) error {
		require.NoError(t, n.AddAlgorithm(tok, c))
		require.NoError(t, n.AddAlgorithm(tok, sink))
		_, err := n.Connect(tok, c, "value", sink, "in")
		return err
	})
	run(t, n)

	q := n.Commit(n.QueryStateCommand())
	require.NoError(t, q.Wait(context.Background()))
	snap := q.Result().(*state.State)

	sinkState, ok := snap.Lookup("algorithms")
	require.True(t, ok)
	st := sinkState.Child("sink").Child("state")
	calls, err := st.Int("process_count")
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls)
	last, _ := st.Get("last")
	assert.Equal(t, "1.5", last)

	value, err := sinkState.Child("c").Child("state").Float("value")
	require.NoError(t, err)
	assert.Equal(t, 1.5, value)
}

func TestRegistry(t *testing.T) {
	r := algorithms.NewRegistry()
	assert.Equal(t, []string{"constant", "dataset", "line-count", "scale", "sink", "sum"}, r.Kinds())

	a, err := r.Build("scale", "s", algorithms.Params{"factor": 3})
	require.NoError(t, err)
	s, ok := a.(*algorithms.Scale)
	require.True(t, ok)
	assert.Equal(t, "s", s.Name())

	a, err = r.Build("constant", "c", nil)
	require.NoError(t, err)
	assert.Equal(t, "c", a.Name())

	_, err = r.Build("warp", "w", nil)
	assert.ErrorIs(t, err, algorithms.ErrUnknownKind)

	_, err = r.Build("scale", "s", algorithms.Params{"factor": "large"})
	assert.ErrorContains(t, err, `param "factor"`)
}

func TestParams_Float(t *testing.T) {
	p := algorithms.Params{"i": 2, "f": 2.5, "i64": int64(4)}

	for key, want := range map[string]float64{"i": 2, "f": 2.5, "i64": 4, "missing": 9} {
		got, err := p.Float(key, 9)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
}
