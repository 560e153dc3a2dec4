package graph

import "sort"

// Graph holds forward and reverse adjacency over symbol ids.
// forward[n] is the set of symbols n references (its dependencies);
// reverse[n] is the set of symbols that reference n (its dependents).
// Every known node has an entry in both maps, possibly empty, and the two
// maps stay symmetric: (a,b) in forward iff (b,a) in reverse.
type Graph struct {
	forward map[int64]map[int64]bool
	reverse map[int64]map[int64]bool
}

// NewGraph creates a graph over the given node set with no edges.
func NewGraph(nodes []int64) *Graph {
	g := &Graph{
		forward: make(map[int64]map[int64]bool, len(nodes)),
		reverse: make(map[int64]map[int64]bool, len(nodes)),
	}
	for _, n := range nodes {
		g.forward[n] = make(map[int64]bool)
		g.reverse[n] = make(map[int64]bool)
	}
	return g
}

// AddEdge records a reference from one known node to another.
// Edges with an unknown endpoint are refused; set semantics collapse
// duplicates. Returns whether the edge was (or already is) present.
func (g *Graph) AddEdge(from, to int64) bool {
	if _, ok := g.forward[from]; !ok {
		return false
	}
	if _, ok := g.forward[to]; !ok {
		return false
	}
	g.forward[from][to] = true
	g.reverse[to][from] = true
	return true
}

// HasNode reports whether the id belongs to the node set.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.forward[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.forward)
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.forward))
	for id := range g.forward {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OutNeighbors returns the ids the given node depends on, ascending.
func (g *Graph) OutNeighbors(id int64) []int64 {
	return sortedKeys(g.forward[id])
}

// InNeighbors returns the ids that depend on the given node, ascending.
func (g *Graph) InNeighbors(id int64) []int64 {
	return sortedKeys(g.reverse[id])
}

// InDegree returns the number of distinct symbols referencing the node.
func (g *Graph) InDegree(id int64) int {
	return len(g.reverse[id])
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, targets := range g.forward {
		total += len(targets)
	}
	return total
}

func sortedKeys(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
