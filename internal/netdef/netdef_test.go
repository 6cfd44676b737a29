package netdef

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/konnekt/internal/algorithms"
	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/network"
	"github.com/roach88/konnekt/internal/testutil"
)

func TestLoad(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "demo", def.Name)
	require.Len(t, def.Algorithms, 4)
	assert.Equal(t, AlgorithmSpec{Name: "scale", Kind: "scale", Params: map[string]any{"factor": 2}}, def.Algorithms[2])
	assert.Equal(t, ConnectionSpec{From: "fibers.dataset", To: "count.dataset"}, def.Connections[0])
	assert.Equal(t, filepath.Join("testdata", "fibers.txt"), def.DatasetPath(def.Datasets[0]))
	assert.Empty(t, def.Validate(algorithms.NewRegistry()))
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "algorithms: [{name: a, kind: sink}]"},
		{"unknown field", "name: x\nextra: 1"},
		{"unknown algorithm field", "name: x\nalgorithms: [{name: a, kind: sink, colour: red}]"},
		{"dotted algorithm name", "name: x\nalgorithms: [{name: a.b, kind: sink}]"},
		{"bad endpoint", "name: x\nconnections: [{from: a, to: b.in}]"},
		{"empty kind", "name: x\nalgorithms: [{name: a, kind: \"\"}]"},
		{"nested params", "name: x\nalgorithms: [{name: a, kind: sink, params: {p: {q: 1}}}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.NotEmpty(t, se.Problems)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, doc := range []string{"", "name: [unterminated"} {
		_, err := Parse([]byte(doc))
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, "doc %q", doc)
	}
}

func TestValidate(t *testing.T) {
	def, err := Parse([]byte(`
name: broken
algorithms:
  - {name: a, kind: constant}
  - {name: a, kind: sink}
  - {name: b, kind: warp}
connections:
  - {from: a.value, to: ghost.in}
datasets:
  - {path: x.txt, into: nobody}
`))
	require.NoError(t, err)

	errs := def.Validate(algorithms.NewRegistry())
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{ErrDuplicateAlgorithm, ErrUnknownKind, ErrUndefinedAlgorithm, ErrUndefinedAlgorithm}, codes)

	empty, err := Parse([]byte("name: empty"))
	require.NoError(t, err)
	errs = empty.Validate(algorithms.NewRegistry())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoAlgorithms, errs[0].Code)
	assert.Equal(t, "[E201] algorithms: at least one algorithm is required", errs[0].Error())
}

func TestEndpoint(t *testing.T) {
	alg, conn, err := Endpoint("scale.out")
	require.NoError(t, err)
	assert.Equal(t, "scale", alg)
	assert.Equal(t, "out", conn)

	for _, bad := range []string{"scale", ".out", "scale."} {
		_, _, err := Endpoint(bad)
		assert.Error(t, err, bad)
	}
}

func startNetwork(t *testing.T, name string) *network.Network {
	t.Helper()
	n := network.New(network.WithName(name))
	n.Start()
	t.Cleanup(func() { n.Stop(true) })
	return n
}

func TestBuild_RunsDemo(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := testutil.NewRecorder()
	n := startNetwork(t, def.Name)
	require.NoError(t, NewBuilder(command.WithObserver(rec)).Build(ctx, def, n))
	assert.Equal(t, 9, rec.Count(command.StateSuccess))

	run := n.Commit(n.RunNetworkCommand())
	require.NoError(t, run.Wait(ctx))

	var sink *algorithms.Sink
	_, err = n.Exec(ctx, "lookup", func(_ context.Context, tok *command.Token) (any, error) {
		a, err := n.Algorithm(tok, "out")
		if err != nil {
			return nil, err
		}
		sink = a.(*algorithms.Sink)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{8.0}, sink.Values())
}

func TestBuild_ReportsFirstFailure(t *testing.T) {
	def, err := Parse([]byte(`
name: mismatch
algorithms:
  - {name: c, kind: constant}
  - {name: l, kind: line-count}
connections:
  - {from: c.value, to: l.dataset}
`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = NewBuilder().Build(ctx, def, startNetwork(t, def.Name))
	var fe *command.FailedError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "INCOMPATIBLE_TYPES")
}

func TestBuild_InvalidDefinitionCommitsNothing(t *testing.T) {
	def := &Definition{Name: "x", Algorithms: []AlgorithmSpec{{Name: "a", Kind: "warp"}}}
	n := network.New()

	err := NewBuilder().Build(context.Background(), def, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrUnknownKind)
	assert.Zero(t, n.Queue().Pending())
}

func TestBuild_BadParamCommitsNothing(t *testing.T) {
	def := &Definition{Name: "x", Algorithms: []AlgorithmSpec{
		{Name: "a", Kind: "constant"},
		{Name: "b", Kind: "scale", Params: map[string]any{"factor": "big"}},
	}}
	n := network.New()

	err := NewBuilder().Build(context.Background(), def, n)
	require.Error(t, err)
	assert.Zero(t, n.Queue().Pending())
}

func TestBuild_MissingDataset(t *testing.T) {
	def, err := Parse([]byte(`
name: missing
algorithms:
  - {name: src, kind: dataset}
datasets:
  - {path: does-not-exist.txt, into: src}
`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = NewBuilder().Build(ctx, def, startNetwork(t, def.Name))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read does-not-exist.txt")
}
