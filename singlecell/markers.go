package singlecell

import (
	"math"
	"sort"

	"github.com/grailbio/base/traverse"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Marker is one differential-expression test result: gene g tested between a
// cell group and its comparison group. PctIn/PctOut are the detected
// fractions in the two groups; PAdj is Bonferroni-corrected across the genes
// tested in the same call.
type Marker struct {
	Gene     string  `tsv:"gene"`
	Cluster  int     `tsv:"cluster"`
	AvgLogFC float64 `tsv:"avg_logFC"`
	PctIn    float64 `tsv:"pct_in"`
	PctOut   float64 `tsv:"pct_out"`
	PValue   float64 `tsv:"p_val"`
	PAdj     float64 `tsv:"p_val_adj"`
}

// FindMarkers tests every prefiltered gene for differential expression
// between the cells whose label is in group and those whose label is in rest
// (rest nil means all remaining cells). A gene is tested when it is detected
// in at least o.MinPct of one of the two groups and its average log
// fold-change clears o.LogFCThreshold (in absolute value, or positively if
// o.OnlyPositive). P-values are Bonferroni-corrected across the tested genes.
// Results are sorted by ascending adjusted p-value, ties by descending fold
// change. The returned Stats records how many genes were tested.
func FindMarkers(d *Dataset, labels []int, group, rest []int, o Opts) ([]Marker, Stats, error) {
	if err := o.check(); err != nil {
		return nil, Stats{}, err
	}
	if d.X == nil {
		return nil, Stats{}, configErrorf("marker testing requires a normalized matrix; call Normalize first")
	}
	if len(labels) != d.NCells() {
		return nil, Stats{}, shapeErrorf("%d labels for %d cells", len(labels), d.NCells())
	}
	if len(group) == 0 {
		return nil, Stats{}, configErrorf("empty target group")
	}
	inGroup, inRest, err := splitCells(labels, group, rest)
	if err != nil {
		return nil, Stats{}, err
	}

	clusterID := -1
	if len(group) == 1 {
		clusterID = group[0]
	}
	nGenes := d.NGenes()
	results := make([]*Marker, nGenes)
	err = traverse.Each(nGenes, func(g int) error {
		results[g] = testGene(d, g, inGroup, inRest, clusterID, o)
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}

	var markers []Marker
	for _, m := range results {
		if m != nil {
			markers = append(markers, *m)
		}
	}
	stats := Stats{GenesTested: len(markers)}
	for i := range markers {
		markers[i].PAdj = math.Min(1, markers[i].PValue*float64(len(markers)))
	}
	sort.SliceStable(markers, func(a, b int) bool {
		if markers[a].PAdj != markers[b].PAdj {
			return markers[a].PAdj < markers[b].PAdj
		}
		return markers[a].AvgLogFC > markers[b].AvgLogFC
	})
	return markers, stats, nil
}

// FindAllMarkers runs FindMarkers for every cluster present in labels against
// all other cells and concatenates the results, each row carrying its cluster
// identity. Only positive-fold-change markers are reported when
// o.OnlyPositive is set.
func FindAllMarkers(d *Dataset, labels []int, o Opts) ([]Marker, Stats, error) {
	present := make(map[int]bool)
	for _, l := range labels {
		present[l] = true
	}
	clusters := make([]int, 0, len(present))
	for l := range present {
		clusters = append(clusters, l)
	}
	sort.Ints(clusters)

	var all []Marker
	var stats Stats
	for _, cl := range clusters {
		markers, s, err := FindMarkers(d, labels, []int{cl}, nil, o)
		if err != nil {
			return nil, stats, err
		}
		stats = stats.Merge(s)
		all = append(all, markers...)
	}
	return all, stats, nil
}

// splitCells resolves group/rest label sets into cell index lists. rest nil
// means the complement of group.
func splitCells(labels []int, group, rest []int) (inGroup, inRest []int, err error) {
	gset := make(map[int]bool, len(group))
	for _, l := range group {
		gset[l] = true
	}
	var rset map[int]bool
	if rest != nil {
		rset = make(map[int]bool, len(rest))
		for _, l := range rest {
			if gset[l] {
				return nil, nil, configErrorf("label %d appears in both compared groups", l)
			}
			rset[l] = true
		}
	}
	for c, l := range labels {
		switch {
		case gset[l]:
			inGroup = append(inGroup, c)
		case rset == nil || rset[l]:
			inRest = append(inRest, c)
		}
	}
	if len(inGroup) == 0 {
		return nil, nil, configErrorf("target group matches no cells")
	}
	if len(inRest) == 0 {
		return nil, nil, configErrorf("comparison group matches no cells")
	}
	return inGroup, inRest, nil
}

// testGene applies the prefilters and the configured test to one gene,
// returning nil when the gene is filtered out.
func testGene(d *Dataset, g int, inGroup, inRest []int, clusterID int, o Opts) *Marker {
	x := gather(d.X, g, inGroup)
	y := gather(d.X, g, inRest)

	pctIn := detectedFraction(x)
	pctOut := detectedFraction(y)
	if pctIn < o.MinPct && pctOut < o.MinPct {
		return nil
	}
	logFC := logMeanExpm1(x) - logMeanExpm1(y)
	if o.OnlyPositive {
		if logFC < o.LogFCThreshold {
			return nil
		}
	} else if math.Abs(logFC) < o.LogFCThreshold {
		return nil
	}

	var p float64
	switch o.Test {
	case TestWelchT:
		p = welchTP(x, y)
	default:
		p = wilcoxonP(x, y)
	}
	return &Marker{
		Gene:     d.Genes[g].ID,
		Cluster:  clusterID,
		AvgLogFC: logFC,
		PctIn:    pctIn,
		PctOut:   pctOut,
		PValue:   p,
	}
}

func gather(m *Matrix, g int, cells []int) []float64 {
	out := make([]float64, len(cells))
	for i, c := range cells {
		out[i] = m.At(c, g)
	}
	return out
}

func detectedFraction(x []float64) float64 {
	n := 0
	for _, v := range x {
		if v > 0 {
			n++
		}
	}
	return float64(n) / float64(len(x))
}

// logMeanExpm1 maps the log-normalized values back to the normalized count
// scale, averages, and returns to log space, so the fold change reflects mean
// expression rather than mean of logs.
func logMeanExpm1(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += math.Expm1(v)
	}
	return math.Log1p(sum / float64(len(x)))
}

// wilcoxonP is the two-sided Wilcoxon rank-sum (Mann-Whitney U) p-value under
// the normal approximation with tie and continuity corrections. Identical
// samples (zero rank variance) yield p=1.
func wilcoxonP(x, y []float64) float64 {
	n1, n2 := float64(len(x)), float64(len(y))
	n := len(x) + len(y)

	type obs struct {
		v     float64
		first bool
	}
	all := make([]obs, 0, n)
	for _, v := range x {
		all = append(all, obs{v, true})
	}
	for _, v := range y {
		all = append(all, obs{v, false})
	}
	sort.Slice(all, func(a, b int) bool { return all[a].v < all[b].v })

	// Average ranks for ties, accumulating the tie correction term.
	var r1, tieSum float64
	for i := 0; i < n; {
		j := i
		for j < n && all[j].v == all[i].v {
			j++
		}
		t := float64(j - i)
		rank := (float64(i+1) + float64(j)) / 2 // 1-based average rank
		for k := i; k < j; k++ {
			if all[k].first {
				r1 += rank
			}
		}
		tieSum += t*t*t - t
		i = j
	}

	u1 := r1 - n1*(n1+1)/2
	mu := n1 * n2 / 2
	nf := float64(n)
	sigma2 := n1 * n2 / 12 * ((nf + 1) - tieSum/(nf*(nf-1)))
	if sigma2 <= 0 {
		return 1
	}
	z := u1 - mu
	switch {
	case z > 0:
		z -= 0.5
	case z < 0:
		z += 0.5
	}
	z /= math.Sqrt(sigma2)
	p := 2 * distuv.UnitNormal.Survival(math.Abs(z))
	return math.Min(1, p)
}

// welchTP is the two-sided Welch's t-test p-value. Groups smaller than two
// observations or with zero pooled variance yield p=1 when the means agree
// and p=0 otherwise.
func welchTP(x, y []float64) float64 {
	if len(x) < 2 || len(y) < 2 {
		return 1
	}
	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)
	n1, n2 := float64(len(x)), float64(len(y))
	se2 := v1/n1 + v2/n2
	if se2 == 0 {
		if m1 == m2 {
			return 1
		}
		return 0
	}
	t := (m1 - m2) / math.Sqrt(se2)
	df := se2 * se2 / ((v1/n1)*(v1/n1)/(n1-1) + (v2/n2)*(v2/n2)/(n2-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	return math.Min(1, p)
}
