package interval

import (
	"fmt"
	"math/big"
)

// Matrix is a 2x2 integer matrix acting on the column vectors (nv, dv) and
// (snv, sdv) of an interval.
type Matrix [2][2]int64

// Identity leaves every interval unchanged.
var Identity = Matrix{{1, 0}, {0, 1}}

// superRoot is the basis of the virtual parent of all roots, so that
// superRoot * [[1, 1], [n, n+1]] is the root at position n.
var superRoot = Matrix{{0, 1}, {1, 0}}

// NewMatrix converts rows into a Matrix. It panics unless rows is exactly 2x2.
func NewMatrix(rows [][]int64) Matrix {
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 2 {
		panic(fmt.Sprintf("interval: matrix must be 2x2, got %v", rows))
	}
	return Matrix{{rows[0][0], rows[0][1]}, {rows[1][0], rows[1][1]}}
}

// Basis returns the matrix whose columns are the bounds of parent. Every child
// of parent at position k equals Basis(parent) * [[1, 1], [k, k+1]]. A nil
// parent returns the basis of the virtual super root.
func Basis(parent *Interval) Matrix {
	if parent == nil {
		return superRoot
	}
	return Matrix{{parent.Nv, parent.SNv}, {parent.Dv, parent.SDv}}
}

// Shift returns the matrix that moves a child delta positions to the right
// within the same basis.
func Shift(delta int64) Matrix {
	return Matrix{{1, 0}, {delta, 1}}
}

// Det returns the determinant.
func (m Matrix) Det() (int64, error) {
	return toInt64(m.big().det())
}

// Mul returns m * o. Intermediate products are exact; only the entries of the
// result must fit in int64.
func (m Matrix) Mul(o Matrix) (Matrix, error) {
	r, err := m.big().mul(o.big()).int64s()
	if err != nil {
		return Matrix{}, fmt.Errorf("multiply %s by %s: %w", m, o, err)
	}
	return r, nil
}

// Inverse returns the adjugate inverse of a unimodular matrix.
func (m Matrix) Inverse() (Matrix, error) {
	inv, err := m.big().inverse()
	if err != nil {
		return Matrix{}, err
	}
	r, err := inv.int64s()
	if err != nil {
		return Matrix{}, fmt.Errorf("invert %s: %w", m, err)
	}
	return r, nil
}

// Apply left-multiplies both bounds of iv by m. Depth is copied unchanged;
// the caller adjusts it.
func (m Matrix) Apply(iv Interval) (Interval, error) {
	return m.big().apply(iv)
}

// String returns the matrix as [[a b] [c d]].
func (m Matrix) String() string {
	return fmt.Sprintf("[[%d %d] [%d %d]]", m[0][0], m[0][1], m[1][0], m[1][1])
}

// RelocationMatrix returns the matrix that maps every interval of the subtree
// rooted at source onto the corresponding interval of a subtree rooted at
// target. It is Basis(targetParent) * Shift(targetPos-sourcePos) *
// Basis(sourceParent)^-1. Roots are moved relative to the virtual super root.
// Depth is not encoded; the caller adds target.Depth - source.Depth.
//
// The entries of the matrix grow with the product of both parents' bounds and
// may not fit in int64 even when every relocated interval does. Use
// NewRelocation to move entries.
func RelocationMatrix(source, target Interval) (Matrix, error) {
	rel, err := NewRelocation(source, target)
	if err != nil {
		return Matrix{}, err
	}
	return rel.Matrix()
}

// RelocationMatrixUnder returns the matrix that moves the subtree rooted at
// source to become the child at position of newParent, or the root at
// position when newParent is nil.
func RelocationMatrixUnder(source Interval, newParent *Interval, position int64) (Matrix, error) {
	target, err := ForPosition(newParent, position)
	if err != nil {
		return Matrix{}, err
	}
	return RelocationMatrix(source, target)
}

func parentAndPosition(iv Interval) (*Interval, int64, error) {
	if iv.IsRoot() {
		pos, err := PositionOf(nil, &iv)
		return nil, pos, err
	}
	parent, err := ParentOf(iv)
	if err != nil {
		return nil, 0, err
	}
	pos, err := PositionOf(&parent, &iv)
	if err != nil {
		return nil, 0, err
	}
	return &parent, pos, nil
}

// bigMatrix is a Matrix in arbitrary precision.
type bigMatrix [2][2]*big.Int

func (m Matrix) big() bigMatrix {
	var r bigMatrix
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = big.NewInt(m[i][j])
		}
	}
	return r
}

func (m bigMatrix) mul(o bigMatrix) bigMatrix {
	var r bigMatrix
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = dot(m[i][0], o[0][j], m[i][1], o[1][j])
		}
	}
	return r
}

func (m bigMatrix) det() *big.Int {
	return new(big.Int).Sub(
		new(big.Int).Mul(m[0][0], m[1][1]),
		new(big.Int).Mul(m[0][1], m[1][0]),
	)
}

// inverse returns adj(m) / det for det in {-1, 1}, where 1/det == det.
func (m bigMatrix) inverse() (bigMatrix, error) {
	det := m.det()
	if !det.IsInt64() || (det.Int64() != 1 && det.Int64() != -1) {
		return bigMatrix{}, fmt.Errorf("%w: %s has determinant %s", ErrNotUnimodular, m, det)
	}
	neg := new(big.Int).Neg(det)
	return bigMatrix{
		{new(big.Int).Mul(m[1][1], det), new(big.Int).Mul(m[0][1], neg)},
		{new(big.Int).Mul(m[1][0], neg), new(big.Int).Mul(m[0][0], det)},
	}, nil
}

func (m bigMatrix) apply(iv Interval) (Interval, error) {
	nv, dv := big.NewInt(iv.Nv), big.NewInt(iv.Dv)
	snv, sdv := big.NewInt(iv.SNv), big.NewInt(iv.SDv)

	var r Interval
	var err error
	for _, c := range []struct {
		dst  *int64
		a, b *big.Int
		x, y *big.Int
	}{
		{&r.Nv, m[0][0], nv, m[0][1], dv},
		{&r.Dv, m[1][0], nv, m[1][1], dv},
		{&r.SNv, m[0][0], snv, m[0][1], sdv},
		{&r.SDv, m[1][0], snv, m[1][1], sdv},
	} {
		if *c.dst, err = toInt64(dot(c.a, c.b, c.x, c.y)); err != nil {
			return Interval{}, fmt.Errorf("apply %s to %s: %w", m, iv, err)
		}
	}
	r.Depth = iv.Depth
	return r, nil
}

func (m bigMatrix) int64s() (Matrix, error) {
	var r Matrix
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v, err := toInt64(m[i][j])
			if err != nil {
				return Matrix{}, err
			}
			r[i][j] = v
		}
	}
	return r, nil
}

func (m bigMatrix) String() string {
	return fmt.Sprintf("[[%s %s] [%s %s]]", m[0][0], m[0][1], m[1][0], m[1][1])
}

// dot returns a*b + x*y.
func dot(a, b, x, y *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Add(r, new(big.Int).Mul(x, y))
}

func toInt64(v *big.Int) (int64, error) {
	if !v.IsInt64() {
		return 0, ErrOverflow
	}
	return v.Int64(), nil
}
