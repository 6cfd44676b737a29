package state

import (
	"errors"
	"maps"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// State is a recursive key/value tree. The zero value is not usable; call New.
//
// State is not safe for concurrent mutation.
type State struct {
	values   map[string]string
	children map[string]*State
}

// New returns an empty State.
func New() *State {
	return &State{
		values:   make(map[string]string),
		children: make(map[string]*State),
	}
}

func normalize(key string) string {
	return norm.NFC.String(key)
}

// Set stores value under key.
func (s *State) Set(key, value string) {
	s.values[normalize(key)] = value
}

// Get returns the value stored under key.
func (s *State) Get(key string) (string, bool) {
	v, ok := s.values[normalize(key)]
	return v, ok
}

// Delete removes the value stored under key.
func (s *State) Delete(key string) {
	delete(s.values, normalize(key))
}

// SetInt stores an integer value.
func (s *State) SetInt(key string, v int64) {
	s.Set(key, strconv.FormatInt(v, 10))
}

// Int returns the integer stored under key.
func (s *State) Int(key string) (int64, error) {
	v, ok := s.Get(key)
	if !ok {
		return 0, &MissingKeyError{Key: key}
	}
	return strconv.ParseInt(v, 10, 64)
}

// SetFloat stores a floating point value in its shortest exact form.
func (s *State) SetFloat(key string, v float64) {
	s.Set(key, strconv.FormatFloat(v, 'g', -1, 64))
}

// Float returns the floating point value stored under key.
func (s *State) Float(key string) (float64, error) {
	v, ok := s.Get(key)
	if !ok {
		return 0, &MissingKeyError{Key: key}
	}
	return strconv.ParseFloat(v, 64)
}

// SetBool stores a boolean value.
func (s *State) SetBool(key string, v bool) {
	s.Set(key, strconv.FormatBool(v))
}

// Bool returns the boolean stored under key.
func (s *State) Bool(key string) (bool, error) {
	v, ok := s.Get(key)
	if !ok {
		return false, &MissingKeyError{Key: key}
	}
	return strconv.ParseBool(v)
}

// Child returns the nested State named name, creating it if needed.
func (s *State) Child(name string) *State {
	name = normalize(name)
	c, ok := s.children[name]
	if !ok {
		c = New()
		s.children[name] = c
	}
	return c
}

// Lookup returns the nested State named name without creating it.
func (s *State) Lookup(name string) (*State, bool) {
	c, ok := s.children[normalize(name)]
	return c, ok
}

// SetChild replaces the nested State named name. A nil c removes it.
func (s *State) SetChild(name string, c *State) {
	if c == nil {
		delete(s.children, normalize(name))
		return
	}
	s.children[normalize(name)] = c
}

// Keys returns the value keys in sorted order.
func (s *State) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Children returns the nested state names in sorted order.
func (s *State) Children() []string {
	return slices.Sorted(maps.Keys(s.children))
}

// Empty reports whether s has neither values nor children.
func (s *State) Empty() bool {
	return len(s.values) == 0 && len(s.children) == 0
}

// Equal reports whether s and other hold the same values and nested states.
// Nested states with no values anywhere below them are ignored, since the
// line format cannot represent them.
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	if !maps.Equal(s.values, other.values) {
		return false
	}
	return s.childrenIn(other) && other.childrenIn(s)
}

func (s *State) childrenIn(other *State) bool {
	for name, c := range s.children {
		if c.hollow() {
			continue
		}
		oc, ok := other.children[name]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}

// hollow reports whether no value is stored in s or below it.
func (s *State) hollow() bool {
	if len(s.values) > 0 {
		return false
	}
	for _, c := range s.children {
		if !c.hollow() {
			return false
		}
	}
	return true
}

// MissingKeyError reports a typed read of a key that holds no value.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return "state: no value for key " + strconv.Quote(e.Key)
}

// IsMissingKey reports whether err is a MissingKeyError.
func IsMissingKey(err error) bool {
	var mk *MissingKeyError
	return errors.As(err, &mk)
}
