package singlecell

import (
	"math"
	"math/rand"

	"github.com/grailbio/base/traverse"
	"gonum.org/v1/gonum/mat"
)

// PCA holds the output of the dimensionality reduction: the per-cell
// embedding (cells x k), the per-feature loadings (features x k) and the
// fraction of total variance captured by each component, in descending order.
//
// The sign of each component is arbitrary: for the same input, U and V may
// come back negated together. Callers comparing embeddings across runs must
// compare up to a per-component sign flip.
type PCA struct {
	Embedding      *Matrix
	Loadings       *Matrix
	VarExplained   []float64
	SingularValues []float64
}

// RunPCA computes a truncated PCA of the scaled (centered) matrix via thin
// SVD, keeping k components. k must not exceed min(cells, features).
func RunPCA(scaled *Matrix, k int) (*PCA, error) {
	nCells, nFeat := scaled.Dims()
	maxK := nCells
	if nFeat < maxK {
		maxK = nFeat
	}
	if k <= 0 || k > maxK {
		return nil, configErrorf("component count %d outside [1, %d] for a %dx%d matrix", k, maxK, nCells, nFeat)
	}
	if nCells < 2 {
		return nil, degenerateErrorf("PCA requires at least 2 cells, have %d", nCells)
	}

	var svd mat.SVD
	if !svd.Factorize(scaled.Dense(), mat.SVDThin) {
		return nil, degenerateErrorf("SVD of %dx%d matrix did not converge", nCells, nFeat)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	totalVar := 0.0
	for _, sv := range s {
		totalVar += sv * sv
	}
	if totalVar == 0 {
		return nil, degenerateErrorf("input matrix has no variance")
	}

	p := &PCA{
		Embedding:      NewMatrix(nCells, k),
		Loadings:       NewMatrix(nFeat, k),
		VarExplained:   make([]float64, k),
		SingularValues: make([]float64, k),
	}
	for j := 0; j < k; j++ {
		p.SingularValues[j] = s[j]
		p.VarExplained[j] = s[j] * s[j] / totalVar
		for i := 0; i < nCells; i++ {
			p.Embedding.Set(i, j, u.At(i, j)*s[j])
		}
		for g := 0; g < nFeat; g++ {
			p.Loadings.Set(g, j, v.At(g, j))
		}
	}
	return p, nil
}

// PermutationSignificance estimates, per retained component, the probability
// that a component of that strength arises from noise. Each of the rounds
// shuffles a random colFrac of the feature columns within themselves
// (breaking cell structure while keeping per-gene marginals), recomputes the
// singular values, and counts how often the null value reaches the observed
// one. The returned p-values are advisory, for choosing k; downstream stages
// do not depend on them.
func (p *PCA) PermutationSignificance(scaled *Matrix, rounds int, colFrac float64, seed int64) ([]float64, error) {
	if rounds <= 0 {
		return nil, configErrorf("permutation round count %d must be positive", rounds)
	}
	if colFrac <= 0 || colFrac > 1 {
		return nil, configErrorf("permuted column fraction %g outside (0, 1]", colFrac)
	}
	nCells, nFeat := scaled.Dims()
	k := len(p.SingularValues)

	exceed := make([][]int, rounds)
	err := traverse.Each(rounds, func(r int) error {
		rng := rand.New(rand.NewSource(seed + int64(r)))
		perm := scaled.Clone()
		nShuf := int(math.Ceil(colFrac * float64(nFeat)))
		cols := rng.Perm(nFeat)[:nShuf]
		buf := make([]float64, nCells)
		for _, g := range cols {
			buf = perm.Col(g, buf)
			rng.Shuffle(nCells, func(a, b int) { buf[a], buf[b] = buf[b], buf[a] })
			for c, v := range buf {
				perm.Set(c, g, v)
			}
		}
		var svd mat.SVD
		if !svd.Factorize(perm.Dense(), mat.SVDThin) {
			return degenerateErrorf("SVD of permuted matrix did not converge")
		}
		s := svd.Values(nil)
		counts := make([]int, k)
		for j := 0; j < k; j++ {
			if s[j] >= p.SingularValues[j] {
				counts[j] = 1
			}
		}
		exceed[r] = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	pvals := make([]float64, k)
	for j := 0; j < k; j++ {
		n := 1 // add-one so a p-value is never exactly zero
		for r := 0; r < rounds; r++ {
			n += exceed[r][j]
		}
		pvals[j] = float64(n) / float64(rounds+1)
	}
	return pvals, nil
}
