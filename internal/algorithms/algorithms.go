package algorithms

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/konnekt/internal/dataset"
	"github.com/roach88/konnekt/internal/network"
	"github.com/roach88/konnekt/internal/state"
)

// Constant publishes a fixed number on "value".
type Constant struct {
	*network.Base
	Value *network.Output[float64]

	v float64
}

// NewConstant creates a Constant publishing v.
func NewConstant(name string, v float64) *Constant {
	c := &Constant{Base: network.NewBase(name, "publishes a constant"), v: v}
	c.Value = network.NewOutput[float64](c.Base, "value", "the constant")
	return c
}

// SetValue changes the published number. It takes effect on the next pass
// that processes c, so callers invalidate c afterwards. Worker only.
func (c *Constant) SetValue(v float64) { c.v = v }

// Process publishes the current number.
func (c *Constant) Process(context.Context) error {
	c.Value.Set(c.v)
	return nil
}

// SaveState implements network.Stateful.
func (c *Constant) SaveState(s *state.State) {
	s.SetFloat("value", c.v)
}

// Scale multiplies "in" by a factor and publishes it on "out".
type Scale struct {
	*network.Base
	In  *network.Input[float64]
	Out *network.Output[float64]

	factor float64
}

// NewScale creates a Scale with the given factor.
func NewScale(name string, factor float64) *Scale {
	s := &Scale{Base: network.NewBase(name, "multiplies its input"), factor: factor}
	s.In = network.NewInput[float64](s.Base, "in", "")
	s.Out = network.NewOutput[float64](s.Base, "out", "")
	return s
}

// Process publishes in*factor. Without an input value there is nothing to do.
func (s *Scale) Process(context.Context) error {
	v, ok := s.In.Get()
	if !ok {
		return nil
	}
	s.Out.Set(v * s.factor)
	return nil
}

// SaveState implements network.Stateful.
func (s *Scale) SaveState(st *state.State) {
	st.SetFloat("factor", s.factor)
}

// Sum adds "a" and "b". A missing operand counts as zero.
type Sum struct {
	*network.Base
	A, B *network.Input[float64]
	Out  *network.Output[float64]
}

// NewSum creates a Sum.
func NewSum(name string) *Sum {
	s := &Sum{Base: network.NewBase(name, "adds its inputs")}
	s.A = network.NewInput[float64](s.Base, "a", "")
	s.B = network.NewInput[float64](s.Base, "b", "")
	s.Out = network.NewOutput[float64](s.Base, "sum", "")
	return s
}

// Process publishes a+b.
func (s *Sum) Process(context.Context) error {
	a, _ := s.A.Get()
	b, _ := s.B.Get()
	s.Out.Set(a + b)
	return nil
}

// DatasetSource publishes a Dataset handed to it from a ReadFile result.
type DatasetSource struct {
	*network.Base
	Out *network.Output[dataset.Dataset]

	ds dataset.Dataset
}

// NewDatasetSource creates an empty DatasetSource.
func NewDatasetSource(name string) *DatasetSource {
	s := &DatasetSource{Base: network.NewBase(name, "publishes a loaded dataset")}
	s.Out = network.NewOutput[dataset.Dataset](s.Base, "dataset", "")
	return s
}

// SetDataset installs ds for the next pass that processes s. Worker only.
func (s *DatasetSource) SetDataset(ds dataset.Dataset) { s.ds = ds }

// Process publishes the installed dataset, if any.
func (s *DatasetSource) Process(context.Context) error {
	if s.ds != nil {
		s.Out.Set(s.ds)
	}
	return nil
}

// SaveState implements network.Stateful.
func (s *DatasetSource) SaveState(st *state.State) {
	if s.ds != nil {
		st.Set("path", s.ds.Path())
	}
}

// LineCount publishes the size of a dataset: lines for text, values for
// state trees.
type LineCount struct {
	*network.Base
	In    *network.Input[dataset.Dataset]
	Count *network.Output[float64]
}

// NewLineCount creates a LineCount.
func NewLineCount(name string) *LineCount {
	l := &LineCount{Base: network.NewBase(name, "counts dataset entries")}
	l.In = network.NewInput[dataset.Dataset](l.Base, "dataset", "")
	l.Count = network.NewOutput[float64](l.Base, "count", "")
	return l
}

// Process publishes the entry count of the input dataset.
func (l *LineCount) Process(context.Context) error {
	ds, ok := l.In.Get()
	if !ok || ds == nil {
		return nil
	}
	switch d := ds.(type) {
	case *dataset.Text:
		l.Count.Set(float64(d.Len()))
	case *dataset.Tree:
		l.Count.Set(float64(len(d.State().Flatten())))
	default:
		return fmt.Errorf("cannot count entries of %T", ds)
	}
	return nil
}

// Sink records every value it receives on "in".
type Sink struct {
	*network.Base
	In *network.Input[any]

	mu     sync.Mutex
	values []any
	calls  int
}

// NewSink creates a Sink.
func NewSink(name string) *Sink {
	s := &Sink{Base: network.NewBase(name, "records received values")}
	s.In = network.NewInput[any](s.Base, "in", "")
	return s
}

// Process records the current input value.
func (s *Sink) Process(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if v, ok := s.In.Get(); ok {
		s.values = append(s.values, v)
	}
	return nil
}

// Values returns the recorded values in arrival order. Safe from any
// goroutine.
func (s *Sink) Values() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.values...)
}

// Calls returns how many times Process ran. Safe from any goroutine.
func (s *Sink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SaveState implements network.Stateful.
func (s *Sink) SaveState(st *state.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.SetInt("process_count", int64(s.calls))
	if n := len(s.values); n > 0 {
		last := fmt.Sprint(s.values[n-1])
		if strings.ContainsAny(last, "\r\n") {
			last = strconv.Quote(last)
		}
		st.Set("last", last)
	}
}
