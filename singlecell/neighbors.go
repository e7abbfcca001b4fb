package singlecell

import (
	"sort"

	"github.com/biogo/store/kdtree"
	"github.com/grailbio/base/traverse"
)

// cellPoint is one cell's embedding coordinates plus its row index, so
// kd-tree query results can be mapped back to cells.
type cellPoint struct {
	vec []float64
	idx int
}

func (p cellPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(cellPoint)
	return p.vec[d] - q.vec[d]
}

func (p cellPoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance; ordering is all the
// neighbor search needs.
func (p cellPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(cellPoint)
	var sum float64
	for i, v := range p.vec {
		d := v - q.vec[i]
		sum += d * d
	}
	return sum
}

type cellPoints []cellPoint

func (p cellPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p cellPoints) Len() int                              { return len(p) }
func (p cellPoints) Pivot(d kdtree.Dim) int                { return cellPlane{cellPoints: p, Dim: d}.Pivot() }
func (p cellPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type cellPlane struct {
	cellPoints
	kdtree.Dim
}

func (p cellPlane) Less(i, j int) bool {
	return p.cellPoints[i].vec[p.Dim] < p.cellPoints[j].vec[p.Dim]
}
func (p cellPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p cellPlane) Slice(start, end int) kdtree.SortSlicer {
	p.cellPoints = p.cellPoints[start:end]
	return p
}
func (p cellPlane) Swap(i, j int) {
	p.cellPoints[i], p.cellPoints[j] = p.cellPoints[j], p.cellPoints[i]
}

// KNN returns, for each cell, the indices of its k nearest neighbors in the
// embedding (Euclidean metric, self excluded), ordered by ascending distance
// with ties broken by cell index. k is capped at cells-1. Queries run in
// parallel; results are independent of the parallelism.
func KNN(emb *Matrix, k int) ([][]int, error) {
	nCells, _ := emb.Dims()
	if nCells < 2 {
		return nil, configErrorf("neighbor search requires at least 2 cells, have %d", nCells)
	}
	if k <= 0 {
		return nil, configErrorf("neighbor count %d must be positive", k)
	}
	if k > nCells-1 {
		k = nCells - 1
	}

	pts := make(cellPoints, nCells)
	for i := 0; i < nCells; i++ {
		pts[i] = cellPoint{vec: emb.Row(i), idx: i}
	}
	tree := kdtree.New(append(cellPoints(nil), pts...), false)

	type hit struct {
		idx  int
		dist float64
	}
	nbrs := make([][]int, nCells)
	err := traverse.Each(nCells, func(i int) error {
		keeper := kdtree.NewNKeeper(k + 1) // +1: the query point finds itself
		tree.NearestSet(keeper, pts[i])
		hits := make([]hit, 0, k)
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			p := c.Comparable.(cellPoint)
			if p.idx == i {
				continue
			}
			hits = append(hits, hit{idx: p.idx, dist: c.Dist})
		}
		sort.Slice(hits, func(a, b int) bool {
			if hits[a].dist != hits[b].dist {
				return hits[a].dist < hits[b].dist
			}
			return hits[a].idx < hits[b].idx
		})
		if len(hits) > k {
			hits = hits[:k]
		}
		out := make([]int, len(hits))
		for j, h := range hits {
			out[j] = h.idx
		}
		nbrs[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nbrs, nil
}

// BuildSNNGraph builds the shared-nearest-neighbor graph over the embedding:
// cells i and j are connected when j is among i's k nearest neighbors (or
// vice versa) and the Jaccard overlap of their neighbor sets (each including
// the cell itself) is at least prune. Edge weight is the Jaccard overlap.
// This weighting, rather than raw distance, keeps the graph robust to local
// density variation.
func BuildSNNGraph(emb *Matrix, k int, prune float64) (*Graph, error) {
	nbrs, err := KNN(emb, k)
	if err != nil {
		return nil, err
	}
	nCells := len(nbrs)

	// Neighbor sets include the cell itself, sorted for the merge below.
	sets := make([][]int, nCells)
	for i, nn := range nbrs {
		s := make([]int, 0, len(nn)+1)
		s = append(s, nn...)
		s = append(s, i)
		sort.Ints(s)
		sets[i] = s
	}

	g := NewGraph(nCells)
	seen := make(map[uint64]bool, nCells*len(nbrs[0]))
	for i := 0; i < nCells; i++ {
		for _, j := range nbrs[i] {
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			key := uint64(a)<<32 | uint64(b)
			if seen[key] {
				continue
			}
			seen[key] = true
			w := jaccard(sets[a], sets[b])
			if w < prune || w == 0 {
				continue
			}
			if err := g.AddEdge(a, b, w); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// jaccard computes |a∩b| / |a∪b| for sorted, duplicate-free int slices.
func jaccard(a, b []int) float64 {
	var inter int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
