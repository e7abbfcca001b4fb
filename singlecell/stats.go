package singlecell

// Stats summarizes what each stage did to the data, so a caller tuning QC or
// clustering parameters can see why cells were dropped or how many features
// were actually selected without re-deriving it from the outputs.
type Stats struct {
	// CellsIn is the number of cells before QC, CellsKept after.
	CellsIn   int
	CellsKept int
	// Per-bound rejection counts. A cell rejected by several bounds is
	// counted under each, so these may sum to more than CellsIn-CellsKept.
	LowFeatureCells  int
	HighFeatureCells int
	HighMitoCells    int
	ZeroCountCells   int
	// HVGRequested is Opts.NFeatures; HVGSelected is the number actually
	// selected, which is lower when fewer genes have positive variance.
	HVGRequested int
	HVGSelected  int
	// Clusters is the number of communities found.
	Clusters int
	// GenesTested is the number of genes that passed marker prefiltering,
	// summed over all marker calls recorded into this Stats.
	GenesTested int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.CellsIn += o.CellsIn
	s.CellsKept += o.CellsKept
	s.LowFeatureCells += o.LowFeatureCells
	s.HighFeatureCells += o.HighFeatureCells
	s.HighMitoCells += o.HighMitoCells
	s.ZeroCountCells += o.ZeroCountCells
	s.HVGRequested += o.HVGRequested
	s.HVGSelected += o.HVGSelected
	s.Clusters += o.Clusters
	s.GenesTested += o.GenesTested
	return s
}
