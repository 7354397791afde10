// Package interval implements the nested interval encoding of a rooted tree.
//
// Every node owns the half-open rational interval [Nv/Dv, SNv/SDv). A child
// interval is a weighted mediant of its parent's bounds, so the intervals of a
// subtree nest inside the interval of its root and the intervals of siblings
// never overlap. All comparisons are done by cross multiplication; nothing in
// this package divides rationals.
package interval

import (
	"fmt"
	"math/big"
)

// Interval is the quadruple stored for every tree entry plus its depth. The
// right bound SNv/SDv equals the left bound of the next sibling.
type Interval struct {
	Nv    int64 `json:"nv" yaml:"nv"`
	Dv    int64 `json:"dv" yaml:"dv"`
	SNv   int64 `json:"snv" yaml:"snv"`
	SDv   int64 `json:"sdv" yaml:"sdv"`
	Depth int64 `json:"depth" yaml:"depth"`
}

// Bound is one rational bound nv/dv.
type Bound struct {
	Nv int64
	Dv int64
}

// Root returns the interval of the root entry at the 1-based position.
func Root(position int64) (Interval, error) {
	return ForPosition(nil, position)
}

// ForPosition returns the interval of the child at the 1-based position under
// parent. A nil parent returns a root interval. Position 0 denotes the slot
// before the first child and must never be stored.
func ForPosition(parent *Interval, position int64) (Interval, error) {
	if position < 0 {
		return Interval{}, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	c := &calc{}
	if parent == nil {
		iv := Interval{
			Nv:    position,
			Dv:    1,
			SNv:   c.add(position, 1),
			SDv:   1,
			Depth: 1,
		}
		return iv, c.err()
	}
	next := c.add(position, 1)
	iv := Interval{
		Nv:    c.mulAdd(parent.Nv, position, parent.SNv),
		Dv:    c.mulAdd(parent.Dv, position, parent.SDv),
		SNv:   c.mulAdd(parent.Nv, next, parent.SNv),
		SDv:   c.mulAdd(parent.Dv, next, parent.SDv),
		Depth: c.add(parent.Depth, 1),
	}
	if err := c.err(); err != nil {
		return Interval{}, fmt.Errorf("child %d of %s: %w", position, parent, err)
	}
	return iv, nil
}

// ForPath returns the interval reached by following the 1-based positions
// path from the roots, e.g. {2, 1, 3} is the third child of the first child
// of the second root.
func ForPath(path []int64) (Interval, error) {
	if len(path) == 0 {
		return Interval{}, fmt.Errorf("%w: empty positions path", ErrInvalidPosition)
	}
	var parent *Interval
	var iv Interval
	for _, position := range path {
		if position < 1 {
			return Interval{}, fmt.Errorf("%w: %d in path %v", ErrInvalidPosition, position, path)
		}
		var err error
		iv, err = ForPosition(parent, position)
		if err != nil {
			return Interval{}, err
		}
		parent = &iv
	}
	return iv, nil
}

// PositionOf is the inverse of ForPosition. A nil entry returns 0, the
// position before the first child. With a nil parent the entry must be a root.
func PositionOf(parent, entry *Interval) (int64, error) {
	if entry == nil {
		return 0, nil
	}
	if parent == nil {
		if !entry.IsRoot() {
			return 0, fmt.Errorf("%w: %s", ErrNotRoot, entry)
		}
		return entry.Nv, nil
	}
	if parent.SNv <= 0 {
		return 0, fmt.Errorf("%w: parent %s", ErrInvalidInterval, parent)
	}
	c := &calc{}
	diff := c.sub(entry.Nv, parent.Nv)
	if err := c.err(); err != nil {
		return 0, err
	}
	if diff%parent.SNv != 0 {
		return 0, fmt.Errorf("%w: entry %s, parent %s", ErrNotChild, entry, parent)
	}
	position := diff / parent.SNv
	if position < 1 {
		return 0, fmt.Errorf("%w: entry %s, parent %s", ErrNotChild, entry, parent)
	}
	child, err := ForPosition(parent, position)
	if err != nil {
		return 0, err
	}
	if !child.SameBounds(*entry) {
		return 0, fmt.Errorf("%w: entry %s, parent %s", ErrNotChild, entry, parent)
	}
	return position, nil
}

// ParentOf recovers the parent interval by inverting the child recurrence.
func ParentOf(entry Interval) (Interval, error) {
	if entry.IsRoot() {
		return Interval{}, fmt.Errorf("%w: %s", ErrRootHasNoParent, entry)
	}
	spanN := entry.SNv - entry.Nv
	spanD := entry.SDv - entry.Dv
	if entry.Dv <= 0 || spanN <= 0 || spanD <= 0 {
		return Interval{}, fmt.Errorf("%w: %s", ErrInvalidInterval, entry)
	}
	parent := Interval{
		Nv:    entry.Nv % spanN,
		Dv:    1,
		SNv:   spanN,
		SDv:   spanD,
		Depth: entry.Depth - 1,
	}
	if spanD != 1 {
		parent.Dv = entry.Dv % spanD
	}
	return parent, nil
}

// Path returns the 1-based positions path from the root to entry.
func Path(entry Interval) ([]int64, error) {
	var path []int64
	current := entry
	for !current.IsRoot() {
		parent, err := ParentOf(current)
		if err != nil {
			return nil, err
		}
		position, err := PositionOf(&parent, &current)
		if err != nil {
			return nil, err
		}
		path = append(path, position)
		current = parent
	}
	position, err := PositionOf(nil, &current)
	if err != nil {
		return nil, err
	}
	path = append(path, position)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// IsRoot returns whether the interval belongs to a root entry.
func (r Interval) IsRoot() bool { return r.Dv == 1 }

// Left returns the left bound nv/dv.
func (r Interval) Left() Bound { return Bound{Nv: r.Nv, Dv: r.Dv} }

// Right returns the right bound snv/sdv.
func (r Interval) Right() Bound { return Bound{Nv: r.SNv, Dv: r.SDv} }

// SameBounds compares the four rational bounds and ignores depth.
func (r Interval) SameBounds(o Interval) bool {
	return r.Nv == o.Nv && r.Dv == o.Dv && r.SNv == o.SNv && r.SDv == o.SDv
}

// Equal compares bounds and depth.
func (r Interval) Equal(o Interval) bool {
	return r.SameBounds(o) && r.Depth == o.Depth
}

// Validate checks positive denominators and nv/dv < snv/sdv.
func (r Interval) Validate() error {
	if r.Dv <= 0 || r.SDv <= 0 || r.Depth < 1 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, r)
	}
	if r.Left().Cmp(r.Right()) >= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, r)
	}
	return nil
}

// Compare orders intervals by their left bound, which is document (pre-order)
// order: a parent sorts before its first child, a subtree before the next
// sibling.
func (r Interval) Compare(o Interval) int {
	return r.Left().Cmp(o.Left())
}

// Less reports whether r sorts before o.
func (r Interval) Less(o Interval) bool { return r.Compare(o) < 0 }

// Contains reports whether o is nested inside r, or equal to it.
func (r Interval) Contains(o Interval) bool {
	return r.Left().Cmp(o.Left()) <= 0 && o.Right().Cmp(r.Right()) <= 0
}

// String returns the interval as [nv/dv, snv/sdv)@depth.
func (r Interval) String() string {
	return fmt.Sprintf("[%d/%d, %d/%d)@%d", r.Nv, r.Dv, r.SNv, r.SDv, r.Depth)
}

// Cmp compares b and o as rationals by cross multiplication. Denominators
// must be positive.
func (b Bound) Cmp(o Bound) int {
	lhs := new(big.Int).Mul(big.NewInt(b.Nv), big.NewInt(o.Dv))
	rhs := new(big.Int).Mul(big.NewInt(o.Nv), big.NewInt(b.Dv))
	return lhs.Cmp(rhs)
}

// String returns nv/dv.
func (b Bound) String() string { return fmt.Sprintf("%d/%d", b.Nv, b.Dv) }
