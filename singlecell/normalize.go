package singlecell

import "math"

// Normalize fills d.X with the normalized expression matrix according to
// o.Norm. Calling it again replaces d.X; downstream stages hold their own
// derived matrices, so re-normalizing never mutates data behind them.
func (d *Dataset) Normalize(o Opts) error {
	if err := o.check(); err != nil {
		return err
	}
	switch o.Norm {
	case NormTotal:
		d.X = normalizeTotal(d.Counts, d.Cells, o.ScaleFactor)
	case NormNone:
		d.X = d.Counts.Clone()
	default:
		return configErrorf("unknown normalization method %d", o.Norm)
	}
	return nil
}

// normalizeTotal computes ln(1 + count/total*scaleFactor) per entry. A zero
// count maps to exactly zero because the pseudocount is added before the log.
// A cell with zero total counts (possible when QC was skipped) yields an
// all-zero row rather than NaNs.
func normalizeTotal(counts *Matrix, cells []CellInfo, scaleFactor float64) *Matrix {
	nCells, nGenes := counts.Dims()
	out := NewMatrix(nCells, nGenes)
	for c := 0; c < nCells; c++ {
		total := cells[c].TotalCounts
		if total == 0 {
			continue
		}
		k := scaleFactor / total
		src := counts.Row(c)
		dst := out.Row(c)
		for g, v := range src {
			if v != 0 {
				dst[g] = math.Log1p(v * k)
			}
		}
	}
	return out
}
