package singlecell

import (
	"math"

	"github.com/grailbio/base/traverse"
	"gonum.org/v1/gonum/stat"
)

// ScaleFeatures z-scores the normalized expression of the selected genes,
// clipping at +-maxValue. The result is a new cells x len(fs.Idx) matrix with
// column j holding gene fs.Idx[j]; a zero-variance gene produces an all-zero
// column instead of a division by zero.
func (d *Dataset) ScaleFeatures(fs FeatureSet, maxValue float64) (*Matrix, error) {
	if d.X == nil {
		return nil, configErrorf("scaling requires a normalized matrix; call Normalize first")
	}
	if len(fs.Idx) == 0 {
		return nil, configErrorf("empty feature set")
	}
	sub, err := d.X.SelectCols(fs.Idx)
	if err != nil {
		return nil, err
	}
	nCells, nSel := sub.Dims()
	out := NewMatrix(nCells, nSel)
	err = traverse.Each(nSel, func(j int) error {
		col := sub.Col(j, nil)
		mean, variance := stat.MeanVariance(col, nil)
		if variance == 0 {
			return nil // column stays zero
		}
		sd := math.Sqrt(variance)
		for c, v := range col {
			z := (v - mean) / sd
			if z > maxValue {
				z = maxValue
			} else if z < -maxValue {
				z = -maxValue
			}
			out.Set(c, j, z)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
