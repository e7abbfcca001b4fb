package singlecell

// Edge is one weighted half-edge of the undirected neighbor graph.
type Edge struct {
	To     int
	Weight float64
}

// Graph is an undirected weighted graph over cell indices 0..n-1, stored as
// adjacency lists. The neighbor graph builder produces it and the clusterer
// and layout consume it; it never contains self-loops.
type Graph struct {
	adj         [][]Edge
	totalWeight float64
}

// NewGraph returns an empty graph over n nodes.
func NewGraph(n int) *Graph {
	return &Graph{adj: make([][]Edge, n)}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.adj) }

// AddEdge inserts the undirected edge {u, v} with weight w. Self-loops and
// non-positive weights are rejected; the builder is expected to have pruned
// them already.
func (g *Graph) AddEdge(u, v int, w float64) error {
	if u == v {
		return shapeErrorf("self-loop on node %d", u)
	}
	if u < 0 || u >= len(g.adj) || v < 0 || v >= len(g.adj) {
		return shapeErrorf("edge {%d, %d} out of range for %d nodes", u, v, len(g.adj))
	}
	if w <= 0 {
		return shapeErrorf("edge {%d, %d} has non-positive weight %g", u, v, w)
	}
	g.adj[u] = append(g.adj[u], Edge{To: v, Weight: w})
	g.adj[v] = append(g.adj[v], Edge{To: u, Weight: w})
	g.totalWeight += w
	return nil
}

// Neighbors returns u's adjacency list. The slice is owned by the graph.
func (g *Graph) Neighbors(u int) []Edge { return g.adj[u] }

// Degree returns the weighted degree of u.
func (g *Graph) Degree(u int) float64 {
	var d float64
	for _, e := range g.adj[u] {
		d += e.Weight
	}
	return d
}

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int {
	n := 0
	for _, nbrs := range g.adj {
		n += len(nbrs)
	}
	return n / 2
}

// TotalWeight returns the sum of weights over undirected edges, each counted
// once.
func (g *Graph) TotalWeight() float64 { return g.totalWeight }
