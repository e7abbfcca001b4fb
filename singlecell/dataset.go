package singlecell

// CellInfo is the per-cell metadata record. The count-derived fields are
// filled at ingestion; MitoFrac is filled by QC, Cluster and XY by the late
// pipeline stages. A cell's row is kept or removed atomically across the
// matrix and this record.
type CellInfo struct {
	ID          string
	TotalCounts float64
	NFeatures   int     // genes with nonzero count
	MitoFrac    float64 // mitochondrial fraction; 0 for zero-count cells
	Cluster     int     // -1 until assigned
	XY          [2]float64
}

// GeneInfo is the per-gene metadata record. Mean/Variance/VarStd/HVGRank are
// filled by feature selection and immutable afterwards.
type GeneInfo struct {
	ID             string
	Mean           float64 // mean normalized expression
	Variance       float64 // variance of normalized expression
	VarStd         float64 // variance standardized against the mean-variance trend
	HVGRank        int     // rank by descending VarStd, -1 if unranked
	HighlyVariable bool
}

// Dataset owns the expression matrix and its aligned metadata. Counts holds
// the raw counts; X is set once by Normalize and read-only afterwards. Row i
// of both matrices describes Cells[i]; column j describes Genes[j].
type Dataset struct {
	Counts *Matrix
	X      *Matrix // normalized expression, nil until Normalize
	Cells  []CellInfo
	Genes  []GeneInfo
}

// NewDataset validates shapes and builds a dataset around the given raw count
// matrix, computing the count-derived per-cell fields.
func NewDataset(counts *Matrix, cellIDs, geneIDs []string) (*Dataset, error) {
	nCells, nGenes := counts.Dims()
	if len(cellIDs) != nCells {
		return nil, shapeErrorf("%d cell IDs for %d matrix rows", len(cellIDs), nCells)
	}
	if len(geneIDs) != nGenes {
		return nil, shapeErrorf("%d gene IDs for %d matrix columns", len(geneIDs), nGenes)
	}
	d := &Dataset{
		Counts: counts,
		Cells:  make([]CellInfo, nCells),
		Genes:  make([]GeneInfo, nGenes),
	}
	for c := 0; c < nCells; c++ {
		info := CellInfo{ID: cellIDs[c], Cluster: -1}
		for _, v := range counts.Row(c) {
			if v < 0 {
				return nil, shapeErrorf("cell %q has a negative count", cellIDs[c])
			}
			if v > 0 {
				info.TotalCounts += v
				info.NFeatures++
			}
		}
		d.Cells[c] = info
	}
	for g := 0; g < nGenes; g++ {
		d.Genes[g] = GeneInfo{ID: geneIDs[g], HVGRank: -1}
	}
	return d, nil
}

// NCells returns the number of cells currently in the dataset.
func (d *Dataset) NCells() int { return len(d.Cells) }

// NGenes returns the number of genes tracked by the dataset.
func (d *Dataset) NGenes() int { return len(d.Genes) }

// FilterCells returns a new dataset containing only the cells where mask is
// true. The count matrix row and the metadata record are dropped together;
// gene metadata is shared structure and copied. This is the only row-removal
// operation the dataset supports.
func (d *Dataset) FilterCells(mask []bool) (*Dataset, error) {
	if len(mask) != d.NCells() {
		return nil, shapeErrorf("mask has %d entries, dataset has %d cells", len(mask), d.NCells())
	}
	counts, err := d.Counts.SelectRows(mask)
	if err != nil {
		return nil, err
	}
	out := &Dataset{
		Counts: counts,
		Genes:  append([]GeneInfo(nil), d.Genes...),
	}
	if d.X != nil {
		if out.X, err = d.X.SelectRows(mask); err != nil {
			return nil, err
		}
	}
	for c, keep := range mask {
		if keep {
			out.Cells = append(out.Cells, d.Cells[c])
		}
	}
	return out, nil
}
