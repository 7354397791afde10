package hierarchy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/predicate"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/tree"
	"k8s.io/apimachinery/pkg/labels"
)

// Session is a unit of work. Entries added to it are pending until Commit and
// are taken into account when computing the next position.
type Session struct {
	h       *Hierarchy
	m       *sync.Mutex
	pending tree.Entries
}

func (r *Hierarchy) Begin() *Session {
	return &Session{
		h: r,
		m: new(sync.Mutex),
	}
}

// AddRoot appends a new root after the last durable or pending root.
func (r *Session) AddRoot(ctx context.Context, l labels.Set) (tree.Entry, error) {
	return r.add(ctx, nil, l)
}

// AddChild appends a new child after the last durable or pending child of
// parent. The parent itself may still be pending.
func (r *Session) AddChild(ctx context.Context, parent tree.Entry, l labels.Set) (tree.Entry, error) {
	if parent == nil {
		return nil, fmt.Errorf("add child: nil parent")
	}
	iv := parent.Interval()
	return r.add(ctx, &iv, l)
}

func (r *Session) add(ctx context.Context, parent *interval.Interval, l labels.Set) (tree.Entry, error) {
	r.m.Lock()
	defer r.m.Unlock()

	iv, err := r.h.nextPosition(ctx, parent, r.pendingLastChild(parent))
	if err != nil {
		return nil, err
	}
	e := tree.NewEntry(uuid.New(), iv, l)
	r.pending = append(r.pending, e)
	r.h.metrics.added.Inc()
	r.h.log.V(1).Info("add entry", "id", e.ID().String(), "interval", iv.String())
	return e, nil
}

func (r *Session) pendingLastChild(parent *interval.Interval) tree.Entry {
	x := relation.RootEntries()
	if parent != nil {
		x = relation.ChildrenOf(*parent)
	}
	return tree.Entries(predicate.Filter(r.pending, relation.On(tree.IntervalOf, x))).Last()
}

// Pending returns the entries not yet committed, in insertion order.
func (r *Session) Pending() tree.Entries {
	r.m.Lock()
	defer r.m.Unlock()

	return append(tree.Entries(nil), r.pending...)
}

// Commit writes the pending entries to the store as one batch. On failure the
// entries stay pending.
func (r *Session) Commit(ctx context.Context) (tree.Entries, error) {
	r.m.Lock()
	defer r.m.Unlock()

	if len(r.pending) == 0 {
		return nil, nil
	}
	if err := r.h.store.Insert(ctx, r.pending...); err != nil {
		r.h.metrics.commits.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("commit %d entries: %w", len(r.pending), err)
	}
	r.h.metrics.commits.WithLabelValues(resultSuccess).Inc()
	r.h.log.Info("committed entries", "entries", len(r.pending))

	committed := r.pending
	r.pending = nil
	return committed, nil
}

// Discard drops the pending entries.
func (r *Session) Discard() {
	r.m.Lock()
	defer r.m.Unlock()

	r.pending = nil
}
