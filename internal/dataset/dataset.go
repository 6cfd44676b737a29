// Package dataset defines the payloads produced by ReadFile commands and the
// readers that load them.
package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roach88/konnekt/internal/state"
)

// ErrNoReader is returned when no Reader is registered for a file extension.
var ErrNoReader = errors.New("dataset: no reader for file type")

// Dataset is an immutable value loaded from a file.
type Dataset interface {
	Name() string
	Path() string
}

// Reader loads a Dataset from a file path.
type Reader interface {
	Read(ctx context.Context, path string) (Dataset, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, path string) (Dataset, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, path string) (Dataset, error) {
	return f(ctx, path)
}

// Text is a line-oriented dataset.
type Text struct {
	path  string
	lines []string
}

// NewText builds a Text dataset from lines already in memory.
func NewText(path string, lines []string) *Text {
	return &Text{path: path, lines: append([]string(nil), lines...)}
}

func (t *Text) Name() string { return filepath.Base(t.path) }
func (t *Text) Path() string { return t.path }

// Lines returns a copy of the dataset's lines.
func (t *Text) Lines() []string {
	return append([]string(nil), t.lines...)
}

// Len returns the number of lines.
func (t *Text) Len() int { return len(t.lines) }

// Tree is a dataset holding a state tree.
type Tree struct {
	path string
	tree *state.State
}

func (t *Tree) Name() string { return filepath.Base(t.path) }
func (t *Tree) Path() string { return t.path }

// State returns the loaded tree. Callers must not mutate it.
func (t *Tree) State() *state.State { return t.tree }

// TextReader loads files line by line.
var TextReader = ReaderFunc(func(ctx context.Context, path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	return &Text{path: path, lines: lines}, nil
})

// StateReader loads files written by state.ToFile.
var StateReader = ReaderFunc(func(_ context.Context, path string) (Dataset, error) {
	tree, err := state.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return &Tree{path: path, tree: tree}, nil
})

// Registry selects a Reader by file extension. It is itself a Reader.
type Registry struct {
	mu      sync.RWMutex
	readers map[string]Reader
}

// NewRegistry returns a Registry with the built-in readers:
// .txt and .csv (TextReader), .state (StateReader).
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]Reader)}
	r.Register(".txt", TextReader)
	r.Register(".csv", TextReader)
	r.Register(".state", StateReader)
	return r
}

// Register associates ext (with or without the leading dot) with reader.
func (r *Registry) Register(ext string, reader Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readers[normalizeExt(ext)] = reader
}

// Lookup returns the Reader registered for path's extension.
func (r *Registry) Lookup(path string) (Reader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reader, ok := r.readers[normalizeExt(filepath.Ext(path))]
	return reader, ok
}

// Read dispatches to the Reader registered for path's extension.
func (r *Registry) Read(ctx context.Context, path string) (Dataset, error) {
	reader, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoReader, path)
	}
	return reader.Read(ctx, path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
