// Package relation builds tree relationship tests over nested intervals.
//
// Every constructor takes the fixed interval of a reference entry (item) and
// returns an Expr over the columns of a candidate entry r. The same Expr is
// evaluated in memory with Matches, and rendered to a SQL WHERE clause with
// ToSQL, so a store can push the relationship down to its query engine.
package relation

import (
	"fmt"

	"github.com/henderiw/nestedtable/pkg/interval"
)

// AncestorsOf matches the entries whose interval contains item's:
//
//	item.nv*r.dv >= item.dv*r.nv AND item.snv*r.sdv <= item.sdv*r.snv
//
// With includeSelf false both inequalities are strict, which excludes item.
// A depthLimit > 0 additionally requires item.depth - r.depth <= depthLimit.
func AncestorsOf(item interval.Interval, depthLimit int64, includeSelf bool) Expr {
	lo, hi := Ge, Le
	if !includeSelf {
		lo, hi = Gt, Lt
	}
	x := And(
		compare(scaled(item.Nv, Dv), lo, scaled(item.Dv, Nv)),
		compare(scaled(item.SNv, SDv), hi, scaled(item.SDv, SNv)),
	)
	if depthLimit > 0 {
		x = And(x, compare(Linear{Terms: []Term{{Coef: -1, Field: Depth}}, Const: item.Depth}, Le, constant(depthLimit)))
	}
	return x
}

// DescendantsOf matches the entries whose interval is contained in item's:
//
//	item.nv*r.dv <= item.dv*r.nv AND item.snv*r.sdv >= item.sdv*r.snv
//
// With includeSelf false both inequalities are strict. A depthLimit > 0
// additionally requires r.depth - item.depth <= depthLimit.
func DescendantsOf(item interval.Interval, depthLimit int64, includeSelf bool) Expr {
	lo, hi := Le, Ge
	if !includeSelf {
		lo, hi = Lt, Gt
	}
	x := And(
		compare(scaled(item.Nv, Dv), lo, scaled(item.Dv, Nv)),
		compare(scaled(item.SNv, SDv), hi, scaled(item.SDv, SNv)),
	)
	if depthLimit > 0 {
		x = And(x, compare(Linear{Terms: []Term{{Coef: 1, Field: Depth}}, Const: -item.Depth}, Le, constant(depthLimit)))
	}
	return x
}

// DescendantsOfAny is the disjunction of DescendantsOf over items. No items
// matches nothing.
func DescendantsOfAny(items []interval.Interval, depthLimit int64, includeSelf bool) Expr {
	x := False()
	for _, item := range items {
		x = Or(x, DescendantsOf(item, depthLimit, includeSelf))
	}
	return x
}

// SiblingsOf matches the entries sharing item's parent. Siblings, and only
// siblings, have the same span snv-nv and sdv-dv, which is the right bound of
// the parent. Roots share the span 1/0.
func SiblingsOf(item interval.Interval, includeSelf bool) Expr {
	x := And(
		compare(span(SNv, Nv), Eq, constant(item.SNv-item.Nv)),
		compare(span(SDv, Dv), Eq, constant(item.SDv-item.Dv)),
	)
	if !includeSelf {
		x = And(x, compare(field(Nv), Ne, constant(item.Nv)))
	}
	return x
}

// SiblingsBefore matches item's siblings at lower positions. Within one
// parent nv grows with the position.
func SiblingsBefore(item interval.Interval, includeSelf bool) Expr {
	op := Lt
	if includeSelf {
		op = Le
	}
	return And(SiblingsOf(item, true), compare(field(Nv), op, constant(item.Nv)))
}

// SiblingsAfter matches item's siblings at higher positions.
func SiblingsAfter(item interval.Interval, includeSelf bool) Expr {
	op := Gt
	if includeSelf {
		op = Ge
	}
	return And(SiblingsOf(item, true), compare(field(Nv), op, constant(item.Nv)))
}

// NextSiblingOf matches the sibling whose left bound is item's right bound.
func NextSiblingOf(item interval.Interval) Expr {
	return At(item.Right())
}

// NthChildOf matches the child of item at the 1-based position n.
func NthChildOf(item interval.Interval, n int64) (Expr, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", interval.ErrInvalidPosition, n)
	}
	child, err := interval.ForPosition(&item, n)
	if err != nil {
		return nil, err
	}
	return At(child.Left()), nil
}

// FirstChildOf matches the child of item at position 1.
func FirstChildOf(item interval.Interval) (Expr, error) {
	return NthChildOf(item, 1)
}

// ChildrenOf matches the direct children of item.
func ChildrenOf(item interval.Interval) Expr {
	return DescendantsOf(item, 1, false)
}

// ParentOf matches the direct parent of item.
func ParentOf(item interval.Interval) Expr {
	return AncestorsOf(item, 1, false)
}

// RootEntries matches every root, i.e. dv = 1.
func RootEntries() Expr {
	return compare(field(Dv), Eq, constant(1))
}

// NthRootEntry matches the root at the 1-based position n.
func NthRootEntry(n int64) (Expr, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", interval.ErrInvalidPosition, n)
	}
	return And(RootEntries(), compare(field(Nv), Eq, constant(n))), nil
}

// FirstRootEntry matches the root at position 1.
func FirstRootEntry() Expr {
	return And(RootEntries(), compare(field(Nv), Eq, constant(1)))
}

// ElementsByPositionsPath matches every entry along path, e.g. {2, 1, 3}
// matches the 2nd root, its 1st child and that child's 3rd child.
func ElementsByPositionsPath(path []int64) (Expr, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty positions path", interval.ErrInvalidPosition)
	}
	x := False()
	var parent *interval.Interval
	for _, position := range path {
		if position < 1 {
			return nil, fmt.Errorf("%w: %d in path %v", interval.ErrInvalidPosition, position, path)
		}
		iv, err := interval.ForPosition(parent, position)
		if err != nil {
			return nil, err
		}
		x = Or(x, At(iv.Left()))
		parent = &iv
	}
	return x, nil
}

// At matches the entry whose left bound is b. Left bounds are unique across a
// tree, so At identifies at most one entry.
func At(b interval.Bound) Expr {
	return And(
		compare(field(Nv), Eq, constant(b.Nv)),
		compare(field(Dv), Eq, constant(b.Dv)),
	)
}

// Is matches item itself.
func Is(item interval.Interval) Expr {
	return At(item.Left())
}
