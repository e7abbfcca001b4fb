package singlecell

// NormMethod selects the normalization strategy. It is resolved once when an
// Opts is validated; stages never dispatch on strings.
type NormMethod int

const (
	// NormTotal divides each cell by its total counts, multiplies by
	// Opts.ScaleFactor and applies ln(1+x).
	NormTotal NormMethod = iota
	// NormNone passes raw values through unchanged, for input that was
	// normalized upstream.
	NormNone
)

// MarkerTest selects the statistical test used by the marker engine.
type MarkerTest int

const (
	// TestWilcoxon is the Wilcoxon rank-sum (Mann-Whitney U) test with the
	// normal approximation, tie correction and continuity correction.
	TestWilcoxon MarkerTest = iota
	// TestWelchT is Welch's unequal-variance t-test.
	TestWelchT
)

// Opts collects every tunable of the pipeline. Zero values are not usable
// defaults; start from DefaultOpts and override fields.
type Opts struct {
	// MinFeatures and MaxFeatures bound the per-cell detected-gene count
	// during QC. MaxMitoFrac is the exclusive upper bound on the
	// mitochondrial fraction. These defaults are dataset-specific tuning
	// knobs, not contracts; expect to adjust them per experiment.
	MinFeatures int
	MaxFeatures int
	MaxMitoFrac float64
	// MitoPrefixes are the gene-name prefixes identifying mitochondrial
	// genes, matched case-insensitively.
	MitoPrefixes []string

	Norm NormMethod
	// ScaleFactor is the per-cell target sum used by NormTotal.
	ScaleFactor float64

	// NFeatures is the number of highly variable genes to select. LoessSpan
	// is the fraction of genes in the local regression window of the
	// mean-variance trend fit.
	NFeatures int
	LoessSpan float64

	// MaxScaleValue clips scaled (z-scored) expression at +-MaxScaleValue to
	// limit outlier influence on PCA.
	MaxScaleValue float64

	// NPCs is the number of principal components to compute and to use for
	// neighbor search.
	NPCs int

	// Neighbors is the k of the kNN graph. PruneSNN drops shared-neighbor
	// edges whose Jaccard weight falls below it.
	Neighbors int
	PruneSNN  float64

	// Resolution scales the modularity null model; higher values yield more,
	// smaller clusters. Seed fixes the node visit order of the local move
	// phase so runs are reproducible.
	Resolution float64
	Seed       int64

	// Marker testing: a gene is tested only if detected in at least MinPct of
	// the cells of one of the compared groups and its average log
	// fold-change magnitude is at least LogFCThreshold. OnlyPositive
	// restricts FindAllMarkers to genes up-regulated in the cluster.
	MinPct         float64
	LogFCThreshold float64
	Test           MarkerTest
	OnlyPositive   bool

	// LayoutIters is the number of refinement sweeps of the 2D layout.
	LayoutIters int
}

// DefaultOpts holds the default pipeline parameters.
var DefaultOpts = Opts{
	MinFeatures:    500,
	MaxFeatures:    5000,
	MaxMitoFrac:    0.05,
	MitoPrefixes:   []string{"MT-"},
	Norm:           NormTotal,
	ScaleFactor:    1e4,
	NFeatures:      2000,
	LoessSpan:      0.3,
	MaxScaleValue:  10,
	NPCs:           10,
	Neighbors:      20,
	PruneSNN:       1.0 / 15,
	Resolution:     0.5,
	Seed:           0,
	MinPct:         0.25,
	LogFCThreshold: 0.25,
	Test:           TestWilcoxon,
	OnlyPositive:   false,
	LayoutIters:    200,
}

func (o *Opts) check() error {
	if o.MinFeatures < 0 || o.MaxFeatures < o.MinFeatures {
		return configErrorf("feature bounds [%d, %d] are not a valid interval", o.MinFeatures, o.MaxFeatures)
	}
	if o.MaxMitoFrac < 0 || o.MaxMitoFrac > 1 {
		return configErrorf("max mitochondrial fraction %g outside [0, 1]", o.MaxMitoFrac)
	}
	if o.Norm == NormTotal && o.ScaleFactor <= 0 {
		return configErrorf("scale factor %g must be positive", o.ScaleFactor)
	}
	if o.NFeatures <= 0 {
		return configErrorf("feature count %d must be positive", o.NFeatures)
	}
	if o.LoessSpan <= 0 || o.LoessSpan > 1 {
		return configErrorf("loess span %g outside (0, 1]", o.LoessSpan)
	}
	if o.MaxScaleValue <= 0 {
		return configErrorf("scale clip %g must be positive", o.MaxScaleValue)
	}
	if o.NPCs <= 0 {
		return configErrorf("component count %d must be positive", o.NPCs)
	}
	if o.Neighbors <= 0 {
		return configErrorf("neighbor count %d must be positive", o.Neighbors)
	}
	if o.PruneSNN < 0 || o.PruneSNN >= 1 {
		return configErrorf("SNN prune threshold %g outside [0, 1)", o.PruneSNN)
	}
	if o.Resolution <= 0 {
		return configErrorf("resolution %g must be positive", o.Resolution)
	}
	if o.MinPct < 0 || o.MinPct > 1 {
		return configErrorf("min detected fraction %g outside [0, 1]", o.MinPct)
	}
	if o.LogFCThreshold < 0 {
		return configErrorf("log fold-change threshold %g must be non-negative", o.LogFCThreshold)
	}
	if o.LayoutIters < 0 {
		return configErrorf("layout iteration count %d must be non-negative", o.LayoutIters)
	}
	return nil
}
