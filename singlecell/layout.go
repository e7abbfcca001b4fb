package singlecell

import (
	"math"
	"math/rand"
)

// Layout2D produces per-cell 2D coordinates for visualization. Coordinates
// are initialized from the first two principal components and refined by a
// force-directed pass over the neighbor graph: connected cells attract in
// proportion to edge weight, and each cell is repelled from a few randomly
// sampled others. The refinement is seeded and deterministic; it shares
// nothing with clustering, which consumes the same graph independently.
func Layout2D(p *PCA, g *Graph, iters int, seed int64) ([][2]float64, error) {
	nCells, k := p.Embedding.Dims()
	if g.NumNodes() != nCells {
		return nil, shapeErrorf("graph has %d nodes, embedding has %d cells", g.NumNodes(), nCells)
	}
	pos := make([][2]float64, nCells)

	// Initialize from PCs 1-2, rescaled to a fixed extent so step sizes below
	// are meaningful regardless of the data's scale.
	maxAbs := 0.0
	for i := 0; i < nCells; i++ {
		pos[i][0] = p.Embedding.At(i, 0)
		if k > 1 {
			pos[i][1] = p.Embedding.At(i, 1)
		}
		for d := 0; d < 2; d++ {
			if a := math.Abs(pos[i][d]); a > maxAbs {
				maxAbs = a
			}
		}
	}
	if maxAbs > 0 {
		for i := range pos {
			pos[i][0] *= 10 / maxAbs
			pos[i][1] *= 10 / maxAbs
		}
	}

	rng := rand.New(rand.NewSource(seed))
	const negSamples = 3
	for it := 0; it < iters; it++ {
		alpha := 1 - float64(it)/float64(iters) // step size decays to zero
		for i := 0; i < nCells; i++ {
			for _, e := range g.Neighbors(i) {
				attract(&pos[i], pos[e.To], e.Weight*alpha)
			}
			for s := 0; s < negSamples; s++ {
				j := rng.Intn(nCells)
				if j != i {
					repel(&pos[i], pos[j], alpha)
				}
			}
		}
	}
	return pos, nil
}

func attract(p *[2]float64, q [2]float64, step float64) {
	dx, dy := q[0]-p[0], q[1]-p[1]
	d2 := dx*dx + dy*dy
	f := step * d2 / (1 + d2) // saturating pull, capped per move
	if f > 0.5 {
		f = 0.5
	}
	p[0] += f * dx
	p[1] += f * dy
}

func repel(p *[2]float64, q [2]float64, step float64) {
	dx, dy := p[0]-q[0], p[1]-q[1]
	d2 := dx*dx + dy*dy
	if d2 < 1e-9 {
		d2 = 1e-9
	}
	f := step / (1 + d2) * 0.1
	p[0] += f * dx / math.Sqrt(d2)
	p[1] += f * dy / math.Sqrt(d2)
}
