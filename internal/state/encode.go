package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUnrepresentable is returned when a tree holds a key or value the line
// format cannot carry.
var ErrUnrepresentable = errors.New("state: not representable in line format")

// SyntaxError reports a malformed line while decoding.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("state: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Flatten returns every value keyed by its full slash-separated path.
func (s *State) Flatten() map[string]string {
	out := make(map[string]string)
	s.flatten("", out)
	return out
}

func (s *State) flatten(prefix string, out map[string]string) {
	for k, v := range s.values {
		out[prefix+k] = v
	}
	for name, c := range s.children {
		c.flatten(prefix+name+"/", out)
	}
}

// Encode writes s in line format.
func (s *State) Encode(w io.Writer) error {
	if err := s.check(""); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := s.encode(bw, ""); err != nil {
		return err
	}
	return bw.Flush()
}

// encode writes a level's values before its children.
func (s *State) encode(w *bufio.Writer, prefix string) error {
	for _, k := range s.Keys() {
		if _, err := fmt.Fprintf(w, "%s%s=%s\n", prefix, k, s.values[k]); err != nil {
			return err
		}
	}
	for _, name := range s.Children() {
		if err := s.children[name].encode(w, prefix+name+"/"); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) check(prefix string) error {
	for k, v := range s.values {
		if err := checkKey(prefix, k); err != nil {
			return err
		}
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: value of %q contains a newline", ErrUnrepresentable, prefix+k)
		}
	}
	for name, c := range s.children {
		if err := checkKey(prefix, name); err != nil {
			return err
		}
		if err := c.check(prefix + name + "/"); err != nil {
			return err
		}
	}
	return nil
}

func checkKey(prefix, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key under %q", ErrUnrepresentable, prefix)
	}
	if strings.ContainsAny(key, "/=\r\n") {
		return fmt.Errorf("%w: key %q", ErrUnrepresentable, prefix+key)
	}
	return nil
}

// Decode reads a tree in line format. Blank lines are ignored.
func Decode(r io.Reader) (*State, error) {
	s := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		path, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, &SyntaxError{Line: line, Text: text, Msg: "missing '='"}
		}

		segments := strings.Split(path, "/")
		node := s
		for _, seg := range segments[:len(segments)-1] {
			if seg == "" {
				return nil, &SyntaxError{Line: line, Text: text, Msg: "empty path segment"}
			}
			node = node.Child(seg)
		}
		key := segments[len(segments)-1]
		if key == "" {
			return nil, &SyntaxError{Line: line, Text: text, Msg: "empty key"}
		}
		node.Set(key, value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("state: read: %w", err)
	}
	return s, nil
}

// ToFile writes s to path in line format, replacing any existing file.
func (s *State) ToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("state: create %s: %w", path, err)
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("state: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("state: close %s: %w", path, err)
	}
	return nil
}

// FromFile reads a tree written by ToFile.
func FromFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
