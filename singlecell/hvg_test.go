package singlecell

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

// hvgDataset builds a normalized dataset where higher-numbered genes have
// higher variance, plus two constant genes.
func hvgDataset(t *testing.T, nCells, nVariable int) *Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	nGenes := nVariable + 2
	rows := make([][]float64, nCells)
	for c := range rows {
		row := make([]float64, nGenes)
		for g := 0; g < nVariable; g++ {
			// Variance grows with the gene index.
			row[g] = math.Abs(rng.NormFloat64()) * float64(g+1) * 3
		}
		row[nVariable] = 7   // constant, positive
		row[nVariable+1] = 0 // constant, zero
		rows[c] = row
	}
	genes := make([]string, nGenes)
	for g := range genes {
		genes[g] = "G" + strconv.Itoa(g)
	}
	d := testDataset(t, rows, genes)
	// NormNone keeps the constant genes exactly constant.
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))
	return d
}

func TestSelectFeaturesCountAndUniqueness(t *testing.T) {
	d := hvgDataset(t, 40, 20)
	o := DefaultOpts
	o.NFeatures = 10

	fs, stats, err := d.SelectFeatures(o)
	assert.NoError(t, err)
	expect.EQ(t, len(fs.Idx), 10)
	expect.EQ(t, stats.HVGSelected, 10)
	expect.EQ(t, stats.HVGRequested, 10)

	seen := map[int]bool{}
	for i, g := range fs.Idx {
		assert.True(t, g >= 0 && g < d.NGenes(), "index %d out of range", g)
		assert.False(t, seen[g], "duplicate feature %d", g)
		seen[g] = true
		expect.EQ(t, fs.Names[i], d.Genes[g].ID)
		expect.True(t, d.Genes[g].HighlyVariable)
	}
}

func TestSelectFeaturesZeroVarianceNeverSelected(t *testing.T) {
	d := hvgDataset(t, 40, 5)
	o := DefaultOpts
	o.NFeatures = 100 // far more than available

	fs, stats, err := d.SelectFeatures(o)
	assert.NoError(t, err)
	// Both constant genes are excluded; the shortfall shows in the stats.
	expect.EQ(t, len(fs.Idx), 5)
	expect.EQ(t, stats.HVGSelected, 5)
	expect.EQ(t, stats.HVGRequested, 100)
	for _, g := range fs.Idx {
		assert.True(t, d.Genes[g].Variance > 0, "selected constant gene %d", g)
	}
	// Constant genes rank below every gene with positive variance.
	for g := 5; g < 7; g++ {
		assert.True(t, d.Genes[g].HVGRank >= 5, "constant gene ranked %d", d.Genes[g].HVGRank)
		expect.False(t, d.Genes[g].HighlyVariable)
	}
}

func TestSelectFeaturesTieBreakStable(t *testing.T) {
	// Genes 0 and 1 are exact copies, so their standardized variances tie;
	// the earlier gene must win the earlier rank.
	rng := rand.New(rand.NewSource(4))
	rows := make([][]float64, 30)
	for c := range rows {
		v := math.Abs(rng.NormFloat64()) * 5
		w := math.Abs(rng.NormFloat64()) * 2
		rows[c] = []float64{v, v, w}
	}
	d := testDataset(t, rows, []string{"A", "B", "C"})
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))

	o.NFeatures = 3
	_, _, err := d.SelectFeatures(o)
	assert.NoError(t, err)
	assert.True(t, d.Genes[0].HVGRank < d.Genes[1].HVGRank,
		"tied genes ranked %d, %d", d.Genes[0].HVGRank, d.Genes[1].HVGRank)
}

func TestSelectFeaturesRequiresNormalized(t *testing.T) {
	d := testDataset(t, [][]float64{{1, 2}, {3, 4}}, []string{"G1", "G2"})
	_, _, err := d.SelectFeatures(DefaultOpts)
	expect.EQ(t, KindOf(err), KindConfig)
}

func TestSelectFeaturesAllConstant(t *testing.T) {
	d := testDataset(t, [][]float64{{1, 1}, {1, 1}}, []string{"G1", "G2"})
	o := DefaultOpts
	o.Norm = NormNone
	assert.NoError(t, d.Normalize(o))
	_, _, err := d.SelectFeatures(o)
	expect.EQ(t, KindOf(err), KindDegenerate)
}
