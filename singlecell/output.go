package singlecell

import (
	"io"

	"github.com/grailbio/base/tsv"
)

type cellRow struct {
	Cell        string  `tsv:"cell"`
	TotalCounts float64 `tsv:"total_counts"`
	NFeatures   int     `tsv:"n_features"`
	MitoFrac    float64 `tsv:"mito_frac"`
	Cluster     int     `tsv:"cluster"`
	X           float64 `tsv:"x"`
	Y           float64 `tsv:"y"`
}

// WriteCellsTSV writes the annotated per-cell metadata table.
func WriteCellsTSV(w io.Writer, d *Dataset) error {
	tw := tsv.NewRowWriter(w)
	for i := range d.Cells {
		c := &d.Cells[i]
		row := cellRow{
			Cell:        c.ID,
			TotalCounts: c.TotalCounts,
			NFeatures:   c.NFeatures,
			MitoFrac:    c.MitoFrac,
			Cluster:     c.Cluster,
			X:           c.XY[0],
			Y:           c.XY[1],
		}
		if err := tw.Write(&row); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type hvgRow struct {
	Gene     string  `tsv:"gene"`
	Rank     int     `tsv:"rank"`
	Mean     float64 `tsv:"mean"`
	Variance float64 `tsv:"variance"`
	VarStd   float64 `tsv:"variance_standardized"`
}

// WriteHVGTSV writes the selected variable features with their statistics,
// most variable first.
func WriteHVGTSV(w io.Writer, d *Dataset, fs FeatureSet) error {
	tw := tsv.NewRowWriter(w)
	for _, g := range fs.Idx {
		info := &d.Genes[g]
		row := hvgRow{
			Gene:     info.ID,
			Rank:     info.HVGRank,
			Mean:     info.Mean,
			Variance: info.Variance,
			VarStd:   info.VarStd,
		}
		if err := tw.Write(&row); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteMarkersTSV writes a marker table in its given order.
func WriteMarkersTSV(w io.Writer, markers []Marker) error {
	tw := tsv.NewRowWriter(w)
	for i := range markers {
		if err := tw.Write(&markers[i]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
