package interval

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix(t *testing.T) {
	m := NewMatrix([][]int64{{1, 2}, {3, 4}})
	assert.Equal(t, Matrix{{1, 2}, {3, 4}}, m)

	assert.Panics(t, func() { NewMatrix([][]int64{{1, 2}}) })
	assert.Panics(t, func() { NewMatrix([][]int64{{1, 2, 3}, {4, 5, 6}}) })
	assert.Panics(t, func() { NewMatrix([][]int64{{1}, {2}}) })
}

func TestInverse(t *testing.T) {
	cases := map[string]struct {
		m           Matrix
		expectedErr error
	}{
		"Identity":  {m: Identity},
		"SuperRoot": {m: superRoot},
		"Shift":     {m: Shift(-3)},
		"Basis":     {m: Basis(&Interval{Nv: 5, Dv: 3, SNv: 7, SDv: 4, Depth: 2})},
		"Singular":  {m: Matrix{{2, 4}, {1, 2}}, expectedErr: ErrNotUnimodular},
		"Det2":      {m: Matrix{{2, 0}, {0, 1}}, expectedErr: ErrNotUnimodular},
		"MinInt64":  {m: Matrix{{1, math.MinInt64}, {0, 1}}, expectedErr: ErrOverflow},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			inv, err := tc.m.Inverse()
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			p, err := tc.m.Mul(inv)
			require.NoError(t, err)
			assert.Equal(t, Identity, p)
		})
	}
}

func TestBasisGeneratesChildren(t *testing.T) {
	for _, parent := range []*Interval{nil, {Nv: 5, Dv: 3, SNv: 7, SDv: 4, Depth: 2}} {
		for k := int64(1); k < 6; k++ {
			m, err := Basis(parent).Mul(Matrix{{1, 1}, {k, k + 1}})
			require.NoError(t, err)
			child, err := ForPosition(parent, k)
			require.NoError(t, err)
			assert.Equal(t, Matrix{{child.Nv, child.SNv}, {child.Dv, child.SDv}}, m)
		}
	}
}

// relocating the 1st root's subtree to be the 5th child of the 2nd root
// yields exactly the intervals created there directly
func TestRelocationMatchesCreated(t *testing.T) {
	firstRoot := mustRoot(t, 1)
	firstChild := mustChild(t, firstRoot, 2)
	firstChildChild := mustChild(t, firstChild, 1)

	secondRoot := mustRoot(t, 2)
	secondChild := mustChild(t, secondRoot, 5)
	secondChildChild := mustChild(t, secondChild, 2)
	second3Child := mustChild(t, secondChildChild, 1)

	m, err := RelocationMatrixUnder(firstRoot, &secondRoot, 5)
	require.NoError(t, err)

	cases := map[string]struct {
		source   Interval
		expected Interval
	}{
		"Root":       {source: firstRoot, expected: secondChild},
		"Child":      {source: firstChild, expected: secondChildChild},
		"ChildChild": {source: firstChildChild, expected: second3Child},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := m.Apply(tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.source.Depth, got.Depth, "apply must not touch depth")
			got.Depth += secondChild.Depth - firstRoot.Depth
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
		})
	}
}

func TestRelocationPreservesShape(t *testing.T) {
	cases := map[string]struct {
		source []int64
		target []int64
	}{
		"SiblingSubtree":   {source: []int64{1, 2}, target: []int64{1, 3, 4}},
		"RootToChild":      {source: []int64{3}, target: []int64{1, 1, 1}},
		"ChildToRoot":      {source: []int64{2, 4, 1}, target: []int64{6}},
		"Shallower":        {source: []int64{1, 1, 1, 1}, target: []int64{2, 2}},
		"SameParentOthers": {source: []int64{2, 1}, target: []int64{2, 7}},
	}
	relatives := [][]int64{{}, {1}, {2}, {1, 1}, {3, 2}, {2, 5, 1}}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			source, err := ForPath(tc.source)
			require.NoError(t, err)
			target, err := ForPath(tc.target)
			require.NoError(t, err)
			m, err := RelocationMatrix(source, target)
			require.NoError(t, err)

			for _, rel := range relatives {
				from, err := ForPath(append(append([]int64{}, tc.source...), rel...))
				require.NoError(t, err)
				want, err := ForPath(append(append([]int64{}, tc.target...), rel...))
				require.NoError(t, err)

				got, err := m.Apply(from)
				require.NoError(t, err)
				got.Depth += target.Depth - source.Depth
				assert.Equal(t, want, got, "relative path %v", rel)
			}

			back, err := RelocationMatrix(target, source)
			require.NoError(t, err)
			roundTrip, err := back.Mul(m)
			require.NoError(t, err)
			assert.Equal(t, Identity, roundTrip)
		})
	}
}

func TestRelocationErrors(t *testing.T) {
	_, err := RelocationMatrix(Interval{Nv: 5, Dv: 3, SNv: 4, SDv: 3, Depth: 2}, mustRoot(t, 1))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = RelocationMatrixUnder(mustRoot(t, 1), nil, -2)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestApplyOverflow(t *testing.T) {
	m := Matrix{{1 << 40, 0}, {0, 1 << 40}}
	_, err := m.Apply(Interval{Nv: 1 << 30, Dv: 1, SNv: 1<<30 + 1, SDv: 1, Depth: 1})
	assert.ErrorIs(t, err, ErrOverflow)
}

// the relocation matrix entries reach ~1e18 for these parents, so its products
// with the relocated bounds only fit after cancellation
func TestRelocationLargeBounds(t *testing.T) {
	relatives := [][]int64{{}, {1}, {2, 5}}

	for _, fanOut := range []int64{500, 600, 700, 800, 1000} {
		parent := []int64{1, 1000, 1000, fanOut}
		source, err := ForPath(append(append([]int64{}, parent...), 1))
		require.NoError(t, err)
		target, err := ForPath(append(append([]int64{}, parent...), 3))
		require.NoError(t, err)

		rel, err := NewRelocation(source, target)
		require.NoError(t, err)
		m, err := RelocationMatrix(source, target)
		require.NoError(t, err)

		for _, r := range relatives {
			from, err := ForPath(append(append(append([]int64{}, parent...), 1), r...))
			require.NoError(t, err)
			want, err := ForPath(append(append(append([]int64{}, parent...), 3), r...))
			require.NoError(t, err)

			got, err := rel.Apply(from)
			require.NoError(t, err)
			assert.Equal(t, want, got, "fan-out %d, relative path %v", fanOut, r)

			got, err = m.Apply(from)
			require.NoError(t, err)
			got.Depth = want.Depth
			assert.Equal(t, want, got, "fan-out %d, relative path %v", fanOut, r)
		}
	}
}
