package singlecell

import (
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense cells-by-genes expression matrix stored row-major, so a
// cell's expression vector is a contiguous slice. Raw counts and all derived
// (normalized, scaled) matrices use the same representation; stages that
// transform a matrix always allocate a new one.
type Matrix struct {
	nCells, nGenes int
	data           []float64
}

// NewMatrix returns a zero-filled nCells x nGenes matrix.
func NewMatrix(nCells, nGenes int) *Matrix {
	return &Matrix{
		nCells: nCells,
		nGenes: nGenes,
		data:   make([]float64, nCells*nGenes),
	}
}

// NewMatrixFromRows builds a matrix from per-cell rows. All rows must have
// equal length.
func NewMatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return &Matrix{}, nil
	}
	nGenes := len(rows[0])
	m := NewMatrix(len(rows), nGenes)
	for i, row := range rows {
		if len(row) != nGenes {
			return nil, shapeErrorf("row %d has %d columns, row 0 has %d", i, len(row), nGenes)
		}
		copy(m.Row(i), row)
	}
	return m, nil
}

// Dims returns (cells, genes).
func (m *Matrix) Dims() (int, int) { return m.nCells, m.nGenes }

// At returns the value for cell c, gene g.
func (m *Matrix) At(c, g int) float64 { return m.data[c*m.nGenes+g] }

// Set stores v for cell c, gene g.
func (m *Matrix) Set(c, g int, v float64) { m.data[c*m.nGenes+g] = v }

// Row returns the expression vector of cell c as a view into the matrix.
// Mutating the returned slice mutates the matrix.
func (m *Matrix) Row(c int) []float64 {
	return m.data[c*m.nGenes : (c+1)*m.nGenes]
}

// Col gathers the expression of gene g across all cells into dst, which is
// grown as needed.
func (m *Matrix) Col(g int, dst []float64) []float64 {
	if cap(dst) < m.nCells {
		dst = make([]float64, m.nCells)
	}
	dst = dst[:m.nCells]
	for c := 0; c < m.nCells; c++ {
		dst[c] = m.data[c*m.nGenes+g]
	}
	return dst
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.nCells, m.nGenes)
	copy(out.data, m.data)
	return out
}

// SelectRows returns a new matrix containing the rows where mask is true, in
// their original order. len(mask) must equal the number of cells.
func (m *Matrix) SelectRows(mask []bool) (*Matrix, error) {
	if len(mask) != m.nCells {
		return nil, shapeErrorf("mask has %d entries, matrix has %d cells", len(mask), m.nCells)
	}
	n := 0
	for _, keep := range mask {
		if keep {
			n++
		}
	}
	out := NewMatrix(n, m.nGenes)
	r := 0
	for c, keep := range mask {
		if keep {
			copy(out.Row(r), m.Row(c))
			r++
		}
	}
	return out, nil
}

// SelectCols returns a new matrix containing the named columns, in the given
// order. Column indices may repeat.
func (m *Matrix) SelectCols(idx []int) (*Matrix, error) {
	for _, g := range idx {
		if g < 0 || g >= m.nGenes {
			return nil, shapeErrorf("column %d out of range (matrix has %d genes)", g, m.nGenes)
		}
	}
	out := NewMatrix(m.nCells, len(idx))
	for c := 0; c < m.nCells; c++ {
		src := m.Row(c)
		dst := out.Row(c)
		for j, g := range idx {
			dst[j] = src[g]
		}
	}
	return out, nil
}

// Dense wraps the matrix as a gonum mat.Dense sharing the same backing
// storage.
func (m *Matrix) Dense() *mat.Dense {
	return mat.NewDense(m.nCells, m.nGenes, m.data)
}
