package singlecell

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestKNNLine(t *testing.T) {
	// Cells on a line: 0, 1, 2, 10.
	emb, err := NewMatrixFromRows([][]float64{{0}, {1}, {2}, {10}})
	assert.NoError(t, err)

	nbrs, err := KNN(emb, 2)
	assert.NoError(t, err)
	expect.EQ(t, nbrs[0], []int{1, 2})
	expect.EQ(t, nbrs[1], []int{0, 2})
	expect.EQ(t, nbrs[2], []int{1, 0})
	expect.EQ(t, nbrs[3], []int{2, 1})
}

func TestKNNProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	const nCells, dims, k = 50, 5, 7
	emb := NewMatrix(nCells, dims)
	for c := 0; c < nCells; c++ {
		for d := 0; d < dims; d++ {
			emb.Set(c, d, rng.NormFloat64())
		}
	}

	nbrs, err := KNN(emb, k)
	assert.NoError(t, err)
	for i, nn := range nbrs {
		assert.Equal(t, k, len(nn), "cell %d", i)
		for _, j := range nn {
			assert.True(t, j != i, "cell %d is its own neighbor", i)
		}
	}
}

func TestKNNCapsAtCells(t *testing.T) {
	emb, err := NewMatrixFromRows([][]float64{{0, 0}, {1, 0}, {0, 1}})
	assert.NoError(t, err)
	nbrs, err := KNN(emb, 10)
	assert.NoError(t, err)
	for _, nn := range nbrs {
		expect.EQ(t, len(nn), 2)
	}

	_, err = KNN(emb, 0)
	expect.EQ(t, KindOf(err), KindConfig)

	one := NewMatrix(1, 2)
	_, err = KNN(one, 1)
	expect.EQ(t, KindOf(err), KindConfig)
}

func TestBuildSNNGraphWeights(t *testing.T) {
	// Two tight triads far apart: within a triad every pair shares the full
	// neighbor set, so all within-triad Jaccard weights are 1 and there are
	// no cross-triad edges.
	emb, err := NewMatrixFromRows([][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{100, 100}, {100.1, 100}, {100, 100.1},
	})
	assert.NoError(t, err)

	g, err := BuildSNNGraph(emb, 2, 1.0/15)
	assert.NoError(t, err)
	expect.EQ(t, g.NumNodes(), 6)
	expect.EQ(t, g.NumEdges(), 6) // 3 per triad
	for i := 0; i < 6; i++ {
		for _, e := range g.Neighbors(i) {
			assert.True(t, e.To != i, "self loop on %d", i)
			expect.EQ(t, e.Weight, 1.0)
			assert.Equal(t, i/3, e.To/3, "edge across triads: %d-%d", i, e.To)
		}
	}
}

func TestBuildSNNGraphPrune(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	emb := NewMatrix(40, 3)
	for c := 0; c < 40; c++ {
		for d := 0; d < 3; d++ {
			emb.Set(c, d, rng.NormFloat64())
		}
	}
	const prune = 0.2
	g, err := BuildSNNGraph(emb, 8, prune)
	assert.NoError(t, err)
	for i := 0; i < g.NumNodes(); i++ {
		for _, e := range g.Neighbors(i) {
			assert.True(t, e.Weight >= prune, "edge %d-%d below prune: %g", i, e.To, e.Weight)
			expect.True(t, e.Weight <= 1.0)
		}
	}
}

func TestJaccard(t *testing.T) {
	expect.EQ(t, jaccard([]int{1, 2, 3}, []int{2, 3, 4}), 0.5)
	expect.EQ(t, jaccard([]int{1}, []int{2}), 0.0)
	expect.EQ(t, jaccard([]int{1, 2}, []int{1, 2}), 1.0)
	expect.EQ(t, jaccard(nil, nil), 0.0)
}
