package hierarchy

import (
	"context"

	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/tree"
)

// Ancestors returns the entries above item, root first. A depthLimit <= 0 is
// unlimited.
func (r *Hierarchy) Ancestors(ctx context.Context, item interval.Interval, depthLimit int64, includeSelf bool) (tree.Entries, error) {
	return r.store.Select(ctx, relation.AncestorsOf(item, depthLimit, includeSelf))
}

// Descendants returns the subtree below item in document order.
func (r *Hierarchy) Descendants(ctx context.Context, item interval.Interval, depthLimit int64, includeSelf bool) (tree.Entries, error) {
	return r.store.Select(ctx, relation.DescendantsOf(item, depthLimit, includeSelf))
}

// DescendantsOfAny returns the union of the subtrees below items.
func (r *Hierarchy) DescendantsOfAny(ctx context.Context, items []interval.Interval, depthLimit int64, includeSelf bool) (tree.Entries, error) {
	return r.store.Select(ctx, relation.DescendantsOfAny(items, depthLimit, includeSelf))
}

func (r *Hierarchy) Children(ctx context.Context, item interval.Interval) (tree.Entries, error) {
	return r.store.Select(ctx, relation.ChildrenOf(item))
}

func (r *Hierarchy) Siblings(ctx context.Context, item interval.Interval, includeSelf bool) (tree.Entries, error) {
	return r.store.Select(ctx, relation.SiblingsOf(item, includeSelf))
}

func (r *Hierarchy) SiblingsBefore(ctx context.Context, item interval.Interval, includeSelf bool) (tree.Entries, error) {
	return r.store.Select(ctx, relation.SiblingsBefore(item, includeSelf))
}

func (r *Hierarchy) SiblingsAfter(ctx context.Context, item interval.Interval, includeSelf bool) (tree.Entries, error) {
	return r.store.Select(ctx, relation.SiblingsAfter(item, includeSelf))
}

func (r *Hierarchy) Roots(ctx context.Context) (tree.Entries, error) {
	return r.store.Select(ctx, relation.RootEntries())
}

// ByPositionsPath returns every entry along path, e.g. {2, 1, 3} returns the
// 2nd root, its 1st child and that child's 3rd child when they exist.
func (r *Hierarchy) ByPositionsPath(ctx context.Context, path []int64) (tree.Entries, error) {
	x, err := relation.ElementsByPositionsPath(path)
	if err != nil {
		return nil, err
	}
	return r.store.Select(ctx, x)
}

// The single entry lookups below return nil without error when nothing
// matches.

func (r *Hierarchy) Parent(ctx context.Context, item interval.Interval) (tree.Entry, error) {
	return first(r.store.Select(ctx, relation.ParentOf(item)))
}

func (r *Hierarchy) FirstSibling(ctx context.Context, item interval.Interval) (tree.Entry, error) {
	return first(r.store.Select(ctx, relation.SiblingsBefore(item, true)))
}

func (r *Hierarchy) LastSibling(ctx context.Context, item interval.Interval) (tree.Entry, error) {
	return last(r.store.Select(ctx, relation.SiblingsAfter(item, true)))
}

func (r *Hierarchy) NextSibling(ctx context.Context, item interval.Interval) (tree.Entry, error) {
	return first(r.store.Select(ctx, relation.NextSiblingOf(item)))
}

// FirstChild returns the existing child of item with the lowest position.
func (r *Hierarchy) FirstChild(ctx context.Context, item interval.Interval) (tree.Entry, error) {
	return first(r.store.Select(ctx, relation.ChildrenOf(item)))
}

// LastChild returns the existing child of item with the highest position.
func (r *Hierarchy) LastChild(ctx context.Context, item interval.Interval) (tree.Entry, error) {
	return r.store.LastChild(ctx, &item)
}

// FirstRoot returns the root at position 1.
func (r *Hierarchy) FirstRoot(ctx context.Context) (tree.Entry, error) {
	return first(r.store.Select(ctx, relation.FirstRootEntry()))
}

// LastRoot returns the root with the highest position.
func (r *Hierarchy) LastRoot(ctx context.Context) (tree.Entry, error) {
	return r.store.LastChild(ctx, nil)
}

func first(entries tree.Entries, err error) (tree.Entry, error) {
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

func last(entries tree.Entries, err error) (tree.Entry, error) {
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[len(entries)-1], nil
}
