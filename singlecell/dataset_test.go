package singlecell

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func testDataset(t *testing.T, rows [][]float64, genes []string) *Dataset {
	t.Helper()
	m, err := NewMatrixFromRows(rows)
	assert.NoError(t, err)
	cells := make([]string, len(rows))
	for i := range cells {
		cells[i] = "cell" + string(rune('A'+i))
	}
	d, err := NewDataset(m, cells, genes)
	assert.NoError(t, err)
	return d
}

func TestNewDatasetSummaries(t *testing.T) {
	d := testDataset(t, [][]float64{
		{0, 3, 7},
		{0, 0, 0},
		{1, 1, 1},
	}, []string{"G1", "G2", "G3"})

	expect.EQ(t, d.Cells[0].TotalCounts, 10.0)
	expect.EQ(t, d.Cells[0].NFeatures, 2)
	expect.EQ(t, d.Cells[1].TotalCounts, 0.0)
	expect.EQ(t, d.Cells[1].NFeatures, 0)
	expect.EQ(t, d.Cells[2].NFeatures, 3)
	for _, c := range d.Cells {
		expect.EQ(t, c.Cluster, -1)
	}
	for _, g := range d.Genes {
		expect.EQ(t, g.HVGRank, -1)
		expect.False(t, g.HighlyVariable)
	}
}

func TestNewDatasetShapeErrors(t *testing.T) {
	m, err := NewMatrixFromRows([][]float64{{1, 2}})
	assert.NoError(t, err)

	_, err = NewDataset(m, []string{"a", "b"}, []string{"G1", "G2"})
	expect.EQ(t, KindOf(err), KindShapeMismatch)

	_, err = NewDataset(m, []string{"a"}, []string{"G1"})
	expect.EQ(t, KindOf(err), KindShapeMismatch)

	neg, err := NewMatrixFromRows([][]float64{{1, -2}})
	assert.NoError(t, err)
	_, err = NewDataset(neg, []string{"a"}, []string{"G1", "G2"})
	expect.EQ(t, KindOf(err), KindShapeMismatch)
}

func TestFilterCellsAtomic(t *testing.T) {
	d := testDataset(t, [][]float64{
		{1, 0},
		{0, 2},
		{3, 3},
	}, []string{"G1", "G2"})
	assert.NoError(t, d.Normalize(DefaultOpts))

	out, err := d.FilterCells([]bool{true, false, true})
	assert.NoError(t, err)
	expect.EQ(t, out.NCells(), 2)
	expect.EQ(t, out.Cells[0].ID, "cellA")
	expect.EQ(t, out.Cells[1].ID, "cellC")
	expect.EQ(t, out.Counts.Row(1), []float64{3, 3})

	// Normalized matrix rows move together with the metadata.
	nCells, _ := out.X.Dims()
	expect.EQ(t, nCells, 2)
	expect.EQ(t, out.X.Row(0), d.X.Row(0))
	expect.EQ(t, out.X.Row(1), d.X.Row(2))

	// The original dataset is untouched.
	expect.EQ(t, d.NCells(), 3)
}
