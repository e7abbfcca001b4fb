package singlecell

import (
	"math"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"gonum.org/v1/gonum/stat"
)

// FeatureSet is the ordered set of selected highly variable genes, most
// variable first. Every index is a column of the matrix it was selected from.
type FeatureSet struct {
	Idx   []int
	Names []string
}

// SelectFeatures ranks genes by variance standardized against a local
// mean-variance trend and selects the top o.NFeatures. Gene metadata (mean,
// variance, standardized variance, rank, selected flag) is filled in and
// immutable afterwards.
//
// Genes with zero variance always rank last and are never selected; when
// fewer than o.NFeatures genes have positive variance, all of them are
// selected and the shortfall is visible in the returned Stats.
func (d *Dataset) SelectFeatures(o Opts) (FeatureSet, Stats, error) {
	if err := o.check(); err != nil {
		return FeatureSet{}, Stats{}, err
	}
	if d.X == nil {
		return FeatureSet{}, Stats{}, configErrorf("feature selection requires a normalized matrix; call Normalize first")
	}
	nCells, nGenes := d.X.Dims()
	if nCells < 2 {
		return FeatureSet{}, Stats{}, degenerateErrorf("feature selection requires at least 2 cells, have %d", nCells)
	}

	// Per-gene moments over the normalized matrix.
	err := traverse.Each(nGenes, func(g int) error {
		col := d.X.Col(g, nil)
		mean, variance := stat.MeanVariance(col, nil)
		d.Genes[g].Mean = mean
		d.Genes[g].Variance = variance
		return nil
	})
	if err != nil {
		return FeatureSet{}, Stats{}, err
	}

	fitTrend(d.Genes, o.LoessSpan)

	// Rank descending by standardized variance; ties keep original gene
	// order. Zero-variance genes have VarStd 0 and land at the bottom.
	order := make([]int, nGenes)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return d.Genes[order[a]].VarStd > d.Genes[order[b]].VarStd
	})
	nPositive := 0
	for rank, g := range order {
		d.Genes[g].HVGRank = rank
		if d.Genes[g].Variance > 0 {
			nPositive++
		}
	}

	nSel := o.NFeatures
	if nSel > nPositive {
		nSel = nPositive
	}
	stats := Stats{HVGRequested: o.NFeatures, HVGSelected: nSel}
	if nSel < o.NFeatures {
		log.Printf("feature selection: only %d genes have positive variance, selected %d of %d requested",
			nPositive, nSel, o.NFeatures)
	}
	if nSel == 0 {
		return FeatureSet{}, stats, degenerateErrorf("no gene has positive variance")
	}
	fs := FeatureSet{
		Idx:   make([]int, nSel),
		Names: make([]string, nSel),
	}
	for i := 0; i < nSel; i++ {
		g := order[i]
		d.Genes[g].HighlyVariable = true
		fs.Idx[i] = g
		fs.Names[i] = d.Genes[g].ID
	}
	return fs, stats, nil
}

// fitTrend fits the expected log10 variance as a local weighted linear
// function of log10 mean across the genes with positive variance, and stores
// each gene's variance divided by its trend value into VarStd.
func fitTrend(genes []GeneInfo, span float64) {
	type obs struct {
		gene int
		x, y float64 // log10 mean, log10 variance
	}
	var pts []obs
	for g := range genes {
		switch {
		case genes[g].Variance > 0 && genes[g].Mean > 0:
			pts = append(pts, obs{gene: g, x: math.Log10(genes[g].Mean), y: math.Log10(genes[g].Variance)})
		case genes[g].Variance > 0:
			// Non-positive mean (possible with pre-normalized input): no
			// trend position, use the raw variance.
			genes[g].VarStd = genes[g].Variance
		}
	}
	if len(pts) == 0 {
		return
	}
	sort.Slice(pts, func(a, b int) bool { return pts[a].x < pts[b].x })

	window := int(span * float64(len(pts)))
	if window < 2 {
		window = 2
	}
	half := window / 2
	for i := range pts {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi >= len(pts) {
			hi = len(pts) - 1
		}
		dmax := 0.0
		for j := lo; j <= hi; j++ {
			if d := math.Abs(pts[j].x - pts[i].x); d > dmax {
				dmax = d
			}
		}
		// Tricube-weighted least squares over the window. With all window
		// means identical (dmax 0) this degenerates to the plain mean.
		var sw, sx, sy, sxx, sxy float64
		for j := lo; j <= hi; j++ {
			w := 1.0
			if dmax > 0 {
				u := math.Abs(pts[j].x-pts[i].x) / dmax
				w = math.Pow(1-u*u*u, 3)
			}
			sw += w
			sx += w * pts[j].x
			sy += w * pts[j].y
			sxx += w * pts[j].x * pts[j].x
			sxy += w * pts[j].x * pts[j].y
		}
		fitted := sy / sw
		if denom := sw*sxx - sx*sx; math.Abs(denom) > 1e-12 {
			beta := (sw*sxy - sx*sy) / denom
			alpha := (sy - beta*sx) / sw
			fitted = alpha + beta*pts[i].x
		}
		trend := math.Pow(10, fitted)
		genes[pts[i].gene].VarStd = genes[pts[i].gene].Variance / trend
	}
}
