package singlecell

import (
	"strings"

	"github.com/grailbio/base/log"
)

// ComputeMitoFraction fills CellInfo.MitoFrac from the genes whose name
// starts with one of the given prefixes (case-insensitive). A cell with zero
// total counts has no defined fraction; it gets 0 here and is rejected
// unconditionally by QCMask.
func (d *Dataset) ComputeMitoFraction(prefixes []string) int {
	mito := make([]bool, d.NGenes())
	nMito := 0
	for g := range d.Genes {
		name := strings.ToUpper(d.Genes[g].ID)
		for _, p := range prefixes {
			if strings.HasPrefix(name, strings.ToUpper(p)) {
				mito[g] = true
				nMito++
				break
			}
		}
	}
	for c := range d.Cells {
		if d.Cells[c].TotalCounts == 0 {
			d.Cells[c].MitoFrac = 0
			continue
		}
		var mt float64
		row := d.Counts.Row(c)
		for g, isMito := range mito {
			if isMito {
				mt += row[g]
			}
		}
		d.Cells[c].MitoFrac = mt / d.Cells[c].TotalCounts
	}
	return nMito
}

// QCMask computes the retention mask: a cell is kept iff its detected-feature
// count lies in [MinFeatures, MaxFeatures], its mitochondrial fraction is
// below MaxMitoFrac, and it has at least one count. Zero surviving cells is a
// configuration error carrying the offending bounds. The returned Stats
// records per-bound rejection counts.
func (d *Dataset) QCMask(o Opts) ([]bool, Stats, error) {
	if err := o.check(); err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{CellsIn: d.NCells()}
	mask := make([]bool, d.NCells())
	for c := range d.Cells {
		cell := &d.Cells[c]
		keep := true
		if cell.TotalCounts == 0 {
			// Mitochondrial fraction is undefined here; reject rather than
			// divide by zero.
			stats.ZeroCountCells++
			keep = false
		}
		if cell.NFeatures < o.MinFeatures {
			stats.LowFeatureCells++
			keep = false
		}
		if cell.NFeatures > o.MaxFeatures {
			stats.HighFeatureCells++
			keep = false
		}
		if cell.MitoFrac >= o.MaxMitoFrac {
			stats.HighMitoCells++
			keep = false
		}
		if keep {
			stats.CellsKept++
		}
		mask[c] = keep
	}
	if stats.CellsKept == 0 {
		return nil, stats, configErrorf(
			"QC bounds (features in [%d, %d], mito < %g) reject all %d cells",
			o.MinFeatures, o.MaxFeatures, o.MaxMitoFrac, stats.CellsIn)
	}
	return mask, stats, nil
}

// ApplyQC computes the mitochondrial fractions and retention mask and returns
// the filtered dataset.
func (d *Dataset) ApplyQC(o Opts) (*Dataset, Stats, error) {
	nMito := d.ComputeMitoFraction(o.MitoPrefixes)
	mask, stats, err := d.QCMask(o)
	if err != nil {
		return nil, stats, err
	}
	out, err := d.FilterCells(mask)
	if err != nil {
		return nil, stats, err
	}
	log.Printf("QC: kept %d/%d cells (%d low-feature, %d high-feature, %d high-mito, %d zero-count; %d mito genes)",
		stats.CellsKept, stats.CellsIn,
		stats.LowFeatureCells, stats.HighFeatureCells, stats.HighMitoCells, stats.ZeroCountCells, nMito)
	return out, stats, nil
}
