// Package hierarchy appends entries to a nested interval tree and relocates
// whole subtrees, on top of any Store that can evaluate relation expressions.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrMoveIntoSubtree is returned when the move target lies inside the
	// subtree being moved.
	ErrMoveIntoSubtree = errors.New("cannot move a subtree into itself")
	// ErrTargetOccupied is returned when an entry already sits at the move
	// target.
	ErrTargetOccupied = errors.New("move target is occupied")
	// ErrSourceNotFound is returned when no entry sits at the move source.
	ErrSourceNotFound = errors.New("move source not found")
)

// Store is the durable side of a hierarchy.
type Store interface {
	// Select returns the entries matching x in document order.
	Select(ctx context.Context, x relation.Expr) (tree.Entries, error)
	// LastChild returns the child of parent with the greatest position, or the
	// last root for a nil parent. It returns nil without error when there is
	// none.
	LastChild(ctx context.Context, parent *interval.Interval) (tree.Entry, error)
	// Insert adds new entries. Either all are written or none.
	Insert(ctx context.Context, entries ...tree.Entry) error
	// Replace overwrites the intervals of existing entries. Either all are
	// written or none.
	Replace(ctx context.Context, entries ...tree.Entry) error
}

type Hierarchy struct {
	store   Store
	log     logr.Logger
	reg     prometheus.Registerer
	metrics *metrics
}

type Option func(*Hierarchy)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(r *Hierarchy) { r.log = l }
}

// WithRegisterer registers the hierarchy metrics with reg. Without it the
// metrics are kept but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Hierarchy) { r.reg = reg }
}

func New(store Store, opts ...Option) *Hierarchy {
	r := &Hierarchy{
		store: store,
		log:   logr.Discard(),
	}
	for _, o := range opts {
		o(r)
	}
	r.metrics = newMetrics(r.reg)
	return r
}

// Store returns the durable store.
func (r *Hierarchy) Store() Store { return r.store }

// Move relocates the subtree rooted at from so that its root lands on to.
// Every descendant keeps its position relative to the subtree root. The rows
// are fetched before any is rewritten and handed to the store as one batch.
func (r *Hierarchy) Move(ctx context.Context, from, to interval.Interval) (moved tree.Entries, err error) {
	start := time.Now()
	defer func() {
		r.metrics.observeMove(time.Since(start), len(moved), err)
	}()

	if from.SameBounds(to) {
		return nil, nil
	}
	if from.Contains(to) {
		return nil, fmt.Errorf("%w: from %s, to %s", ErrMoveIntoSubtree, from, to)
	}
	occupied, err := r.store.Select(ctx, relation.Is(to))
	if err != nil {
		return nil, err
	}
	if len(occupied) > 0 {
		return nil, fmt.Errorf("%w: %s by %s", ErrTargetOccupied, to, occupied[0].ID())
	}

	rel, err := interval.NewRelocation(from, to)
	if err != nil {
		return nil, fmt.Errorf("move %s to %s: %w", from, to, err)
	}

	rows, err := r.store.Select(ctx, relation.DescendantsOf(from, 0, true))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, from)
	}

	moved = make(tree.Entries, 0, len(rows))
	for _, e := range rows {
		iv, err := rel.Apply(e.Interval())
		if err != nil {
			return nil, fmt.Errorf("move entry %s: %w", e.ID(), err)
		}
		r.log.V(1).Info("relocate entry", "id", e.ID().String(), "from", e.Interval().String(), "to", iv.String())
		moved = append(moved, e.WithInterval(iv))
	}
	if err := r.store.Replace(ctx, moved...); err != nil {
		return nil, fmt.Errorf("move %s to %s: %w", from, to, err)
	}
	r.log.Info("moved subtree", "from", from.String(), "to", to.String(), "entries", len(moved))
	return moved, nil
}

// MoveUnder relocates the subtree rooted at from to become the next child of
// newParent, or the next root when newParent is nil.
func (r *Hierarchy) MoveUnder(ctx context.Context, from interval.Interval, newParent *interval.Interval) (tree.Entries, error) {
	to, err := r.nextPosition(ctx, newParent, nil)
	if err != nil {
		return nil, err
	}
	return r.Move(ctx, from, to)
}

// nextPosition returns the interval after the last child of parent, merging
// the durable store with pending entries.
func (r *Hierarchy) nextPosition(ctx context.Context, parent *interval.Interval, pending tree.Entry) (interval.Interval, error) {
	durable, err := r.store.LastChild(ctx, parent)
	if err != nil {
		return interval.Interval{}, err
	}
	var lastIv *interval.Interval
	if last := mergeLast(durable, pending); last != nil {
		iv := last.Interval()
		lastIv = &iv
	}
	pos, err := interval.PositionOf(parent, lastIv)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.ForPosition(parent, pos+1)
}

// mergeLast returns whichever of the durable and pending last children sits
// further right. Either may be nil.
func mergeLast(durable, pending tree.Entry) tree.Entry {
	switch {
	case durable == nil:
		return pending
	case pending == nil:
		return durable
	case durable.Interval().Less(pending.Interval()):
		return pending
	case pending.Interval().Less(durable.Interval()):
		return durable
	}
	return pending
}
