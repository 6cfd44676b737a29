package state

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *State {
	s := New()
	s.Set("name", "demo")
	scale := s.Child("algorithms").Child("scale")
	scale.Set("description", "multiplies its input")
	scale.SetFloat("factor", 2.5)
	s.Child("algorithms").Child("sum").SetInt("process_count", 3)
	s.Child("connections").Child("0").Set("source", "scale.out")
	return s
}

func TestEncode_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleState().Encode(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "network_state", buf.Bytes())
}

func TestFileRoundTrip(t *testing.T) {
	s := sampleState()
	path := filepath.Join(t.TempDir(), "network.state")

	require.NoError(t, s.ToFile(path))
	got, err := FromFile(path)
	require.NoError(t, err)

	if diff := cmp.Diff(s.Flatten(), got.Flatten()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, s.Equal(got))
}

func TestRoundTrip_ValuesWithSeparators(t *testing.T) {
	s := New()
	s.Set("expr", "a=b")
	s.Child("paths").Set("input", "/data/brain/fibers.fib")

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	got, err := Decode(&buf)
	require.NoError(t, err)

	v, ok := got.Get("expr")
	require.True(t, ok)
	assert.Equal(t, "a=b", v)

	paths, ok := got.Lookup("paths")
	require.True(t, ok)
	v, _ = paths.Get("input")
	assert.Equal(t, "/data/brain/fibers.fib", v)
}

func TestEncode_RejectsUnrepresentableKeys(t *testing.T) {
	tests := []struct {
		name  string
		build func(*State)
	}{
		{"slash in key", func(s *State) { s.Set("a/b", "v") }},
		{"equals in key", func(s *State) { s.Set("a=b", "v") }},
		{"newline in value", func(s *State) { s.Set("a", "line1\nline2") }},
		{"slash in child name", func(s *State) { s.Child("x/y").Set("k", "v") }},
		{"empty key", func(s *State) { s.Set("", "v") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.build(s)
			err := s.Encode(&bytes.Buffer{})
			assert.ErrorIs(t, err, ErrUnrepresentable)
		})
	}
}

func TestDecode_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing equals", "a=1\nnovalue\n", 2},
		{"empty segment", "a//b=1\n", 1},
		{"empty key", "a/=1\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestDecode_SkipsBlankLines(t *testing.T) {
	got, err := Decode(strings.NewReader("\na=1\n\r\n  \nb/c=2\n"))
	require.NoError(t, err)

	want := map[string]string{"a": "1", "b/c": "2"}
	if diff := cmp.Diff(want, got.Flatten()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestKeys_NormalizedToNFC(t *testing.T) {
	s := New()
	s.Set("cafe\u0301", "decomposed")

	v, ok := s.Get("caf\u00e9")
	require.True(t, ok)
	assert.Equal(t, "decomposed", v)
	assert.Equal(t, []string{"caf\u00e9"}, s.Keys())
}

func TestTypedValues(t *testing.T) {
	s := New()
	s.SetInt("n", -42)
	s.SetFloat("f", 0.125)
	s.SetBool("b", true)

	n, err := s.Int("n")
	require.NoError(t, err)
	assert.Equal(t, int64(-42), n)

	f, err := s.Float("f")
	require.NoError(t, err)
	assert.Equal(t, 0.125, f)

	b, err := s.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = s.Int("missing")
	assert.True(t, IsMissingKey(err))
}

func TestChild_GetOrCreate(t *testing.T) {
	s := New()
	c1 := s.Child("a")
	c1.Set("k", "v")
	c2 := s.Child("a")
	assert.Same(t, c1, c2)

	_, ok := s.Lookup("missing")
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, sampleState().Equal(sampleState()))

	other := sampleState()
	other.Child("algorithms").Child("sum").SetInt("process_count", 4)
	assert.False(t, sampleState().Equal(other))
}

func TestSetChild_NilRemoves(t *testing.T) {
	s := sampleState()
	s.SetChild("connections", nil)

	_, ok := s.Lookup("connections")
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NotPanics(t, func() {
		require.NoError(t, s.Encode(&buf))
	})
	assert.NotContains(t, buf.String(), "connections/")

	s.SetChild("never-set", nil)
	assert.NotContains(t, s.Children(), "never-set")
}

func TestEqual_IgnoresHollowChildren(t *testing.T) {
	s := sampleState()
	s.Child("algorithms").Child("idle")
	s.Child("scratch").Child("deeper")

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	got, err := Decode(&buf)
	require.NoError(t, err)

	_, ok := got.Lookup("scratch")
	assert.False(t, ok)
	assert.True(t, s.Equal(got))
	assert.True(t, got.Equal(s))
	assert.True(t, s.Equal(sampleState()))

	other := sampleState()
	other.Child("scratch").Set("k", "v")
	assert.False(t, s.Equal(other))
	assert.False(t, other.Equal(s))
}
