package singlecell

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestScaleFeaturesZScores(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	rows := make([][]float64, 50)
	for c := range rows {
		rows[c] = []float64{rng.NormFloat64()*4 + 10, rng.Float64() * 100}
	}
	d := testDataset(t, rows, []string{"G1", "G2"})
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))

	fs := FeatureSet{Idx: []int{0, 1}, Names: []string{"G1", "G2"}}
	scaled, err := d.ScaleFeatures(fs, 10)
	assert.NoError(t, err)

	for j := 0; j < 2; j++ {
		col := scaled.Col(j, nil)
		mean, variance := stat.MeanVariance(col, nil)
		assert.True(t, math.Abs(mean) < 1e-12, "column %d mean %g", j, mean)
		assert.True(t, math.Abs(variance-1) < 1e-12, "column %d variance %g", j, variance)
	}
}

func TestScaleFeaturesClip(t *testing.T) {
	// One extreme outlier: its z-score must be clipped, not propagated.
	rows := make([][]float64, 30)
	for c := range rows {
		rows[c] = []float64{1}
	}
	rows[0][0] = 1e6
	d := testDataset(t, rows, []string{"G1"})
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))

	scaled, err := d.ScaleFeatures(FeatureSet{Idx: []int{0}, Names: []string{"G1"}}, 3)
	assert.NoError(t, err)
	for c := 0; c < 30; c++ {
		assert.True(t, math.Abs(scaled.At(c, 0)) <= 3, "cell %d scaled to %g", c, scaled.At(c, 0))
	}
}

func TestScaleFeaturesZeroVariance(t *testing.T) {
	rows := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	d := testDataset(t, rows, []string{"G1", "G2"})
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))

	scaled, err := d.ScaleFeatures(FeatureSet{Idx: []int{0, 1}, Names: []string{"G1", "G2"}}, 10)
	assert.NoError(t, err)
	expect.EQ(t, scaled.Col(0, nil), []float64{0, 0, 0})
}

func TestScaleFeaturesEmptySet(t *testing.T) {
	d := testDataset(t, [][]float64{{1}}, []string{"G1"})
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))
	_, err := d.ScaleFeatures(FeatureSet{}, 10)
	expect.EQ(t, KindOf(err), KindConfig)
}
