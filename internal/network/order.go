package network

// successors returns, per Algorithm, the Algorithms its outputs feed, in
// connection order.
func (n *Network) successors() map[Algorithm][]Algorithm {
	succ := make(map[Algorithm][]Algorithm, len(n.algorithms))
	for _, c := range n.connections {
		from, to := c.source.owner.self, c.target.owner.self
		succ[from] = append(succ[from], to)
	}
	return succ
}

// reaches reports whether to is reachable from from along connections.
// Connect uses it to reject a link target -> ... -> source before it exists.
func (n *Network) reaches(from, to Algorithm) bool {
	succ := n.successors()
	seen := make(map[Algorithm]bool)
	stack := []Algorithm{from}

	for len(stack) > 0 {
		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if a == to {
			return true
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		stack = append(stack, succ[a]...)
	}
	return false
}

// topologicalOrder sorts the Algorithms with Kahn's algorithm. Among
// Algorithms that are ready at the same time, registration order wins, so the
// order is deterministic. Connect rejects cycles, so every Algorithm is
// emitted.
func (n *Network) topologicalOrder() []Algorithm {
	if n.order != nil {
		return n.order
	}

	index := make(map[Algorithm]int, len(n.algorithms))
	for i, a := range n.algorithms {
		index[a] = i
	}

	succ := n.successors()
	inDegree := make(map[Algorithm]int, len(n.algorithms))
	for _, targets := range succ {
		for _, t := range targets {
			inDegree[t]++
		}
	}

	// ready is kept sorted by registration index.
	var ready []Algorithm
	for _, a := range n.algorithms {
		if inDegree[a] == 0 {
			ready = append(ready, a)
		}
	}

	order := make([]Algorithm, 0, len(n.algorithms))
	for len(ready) > 0 {
		a := ready[0]
		ready = ready[1:]
		order = append(order, a)

		for _, t := range succ[a] {
			inDegree[t]--
			if inDegree[t] == 0 {
				ready = insertByIndex(ready, t, index)
			}
		}
	}

	n.order = order
	return order
}

func insertByIndex(ready []Algorithm, a Algorithm, index map[Algorithm]int) []Algorithm {
	pos := len(ready)
	for i, r := range ready {
		if index[r] > index[a] {
			pos = i
			break
		}
	}
	ready = append(ready, nil)
	copy(ready[pos+1:], ready[pos:])
	ready[pos] = a
	return ready
}
