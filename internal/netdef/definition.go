package netdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a parsed network description.
type Definition struct {
	Name        string           `yaml:"name"`
	Algorithms  []AlgorithmSpec  `yaml:"algorithms"`
	Connections []ConnectionSpec `yaml:"connections,omitempty"`
	Datasets    []DatasetSpec    `yaml:"datasets,omitempty"`

	// dir resolves relative dataset paths; empty means the working
	// directory.
	dir string
}

// AlgorithmSpec declares one algorithm.
type AlgorithmSpec struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params,omitempty"`
}

// ConnectionSpec links From ("algorithm.output") to To ("algorithm.input").
type ConnectionSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DatasetSpec loads Path and hands it to the dataset source Into.
type DatasetSpec struct {
	Path string `yaml:"path"`
	Into string `yaml:"into"`
}

// Endpoint splits "algorithm.connector".
func Endpoint(s string) (algorithm, connector string, err error) {
	algorithm, connector, ok := strings.Cut(s, ".")
	if !ok || algorithm == "" || connector == "" {
		return "", "", fmt.Errorf("endpoint %q: want algorithm.connector", s)
	}
	return algorithm, connector, nil
}

// DatasetPath returns ds.Path resolved against the directory the
// description was loaded from.
func (d *Definition) DatasetPath(ds DatasetSpec) string {
	if d.dir == "" || filepath.IsAbs(ds.Path) {
		return ds.Path
	}
	return filepath.Join(d.dir, ds.Path)
}

// Load reads and parses the description at path. Relative dataset paths are
// resolved against path's directory.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network description: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.dir = filepath.Dir(path)
	return def, nil
}

// Parse decodes a description and checks it against the schema.
func Parse(data []byte) (*Definition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	if doc == nil {
		return nil, &ParseError{Message: "empty document"}
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{Message: err.Error()}
	}
	return &def, nil
}

// ParseError reports a document that is not valid YAML or does not decode
// into a Definition.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "parse network description: " + e.Message
}
