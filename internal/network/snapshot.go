package network

import (
	"strconv"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/state"
)

// Snapshot captures the graph as a state tree without mutating it:
//
//	name=<network>
//	passes=<run passes so far>
//	algorithms/<name>/description=...
//	algorithms/<name>/index=<registration index>
//	algorithms/<name>/invalidated=<bool>
//	algorithms/<name>/inputs/<connector>/type=...
//	algorithms/<name>/inputs/<connector>/has_value=<bool>
//	algorithms/<name>/outputs/<connector>/...
//	algorithms/<name>/state/...          (Stateful algorithms only)
//	connections/<i>/source=<algorithm>.<output>
//	connections/<i>/target=<algorithm>.<input>
func (n *Network) Snapshot(tok *command.Token) (*state.State, error) {
	if err := n.check(tok, "snapshot"); err != nil {
		return nil, err
	}

	s := state.New()
	s.Set("name", n.name)
	s.SetInt("passes", int64(n.passes))

	algs := s.Child("algorithms")
	for i, a := range n.algorithms {
		as := algs.Child(a.Name())
		as.Set("description", a.Description())
		as.SetInt("index", int64(i))
		as.SetBool("invalidated", n.dirty[a])

		for _, c := range a.base().inputs {
			saveConnector(as.Child("inputs").Child(c.Name()), c)
		}
		for _, c := range a.base().outputs {
			saveConnector(as.Child("outputs").Child(c.Name()), c)
		}
		if st, ok := a.(Stateful); ok {
			st.SaveState(as.Child("state"))
		}
	}

	conns := s.Child("connections")
	for i, c := range n.connections {
		cs := conns.Child(strconv.Itoa(i))
		cs.Set("source", c.source.String())
		cs.Set("target", c.target.String())
	}
	return s, nil
}

func saveConnector(s *state.State, c Connector) {
	s.Set("type", c.Type().String())
	s.SetBool("has_value", c.HasValue())
	if d := c.Description(); d != "" {
		s.Set("description", d)
	}
}
