package singlecell

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutFixture(t *testing.T) (*PCA, *Graph) {
	t.Helper()
	m := centeredMatrix(15, 30, 6)
	p, err := RunPCA(m, 4)
	require.NoError(t, err)
	g, err := BuildSNNGraph(p.Embedding, 5, 0)
	require.NoError(t, err)
	return p, g
}

func TestLayout2D(t *testing.T) {
	p, g := layoutFixture(t)
	pos, err := Layout2D(p, g, 30, 1)
	require.NoError(t, err)
	expect.EQ(t, len(pos), 30)
	for i, xy := range pos {
		assert.True(t, !math.IsNaN(xy[0]) && !math.IsNaN(xy[1]), "cell %d has NaN coordinates", i)
		expect.True(t, !math.IsInf(xy[0], 0) && !math.IsInf(xy[1], 0))
	}
}

// With no refinement sweeps the layout is exactly the first two principal
// components rescaled to a fixed extent, not a random placement.
func TestLayout2DSeededFromPCs(t *testing.T) {
	p, g := layoutFixture(t)
	pos, err := Layout2D(p, g, 0, 3)
	require.NoError(t, err)

	maxAbs := 0.0
	for i := range pos {
		for d := 0; d < 2; d++ {
			if a := math.Abs(p.Embedding.At(i, d)); a > maxAbs {
				maxAbs = a
			}
		}
	}
	require.True(t, maxAbs > 0)
	for i, xy := range pos {
		expect.EQ(t, xy[0], p.Embedding.At(i, 0)*(10/maxAbs))
		expect.EQ(t, xy[1], p.Embedding.At(i, 1)*(10/maxAbs))
	}
}

func TestLayout2DDeterministic(t *testing.T) {
	p, g := layoutFixture(t)
	a, err := Layout2D(p, g, 30, 7)
	require.NoError(t, err)
	b, err := Layout2D(p, g, 30, 7)
	require.NoError(t, err)
	expect.EQ(t, a, b)
}

func TestLayout2DShapeMismatch(t *testing.T) {
	p, _ := layoutFixture(t)
	_, err := Layout2D(p, NewGraph(3), 10, 0)
	expect.EQ(t, KindOf(err), KindShapeMismatch)
}
