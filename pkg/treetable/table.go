// Package treetable is an in-memory table of tree entries addressed by id and
// queried by relationship expressions over their intervals.
package treetable

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/tree"
	"k8s.io/apimachinery/pkg/labels"
)

var (
	// ErrNotFound is returned when an id is not in the table.
	ErrNotFound = errors.New("entry not found")
	// ErrExists is returned when claiming an id that is already in the table.
	ErrExists = errors.New("entry already exists")
)

type Table interface {
	Get(id uuid.UUID) (tree.Entry, error)
	Has(id uuid.UUID) bool
	Count() int

	// Claim inserts entries. Either all are inserted or none.
	Claim(entries ...tree.Entry) error
	Update(e tree.Entry) error
	Release(id uuid.UUID) error
	// Replace overwrites existing entries. Either all are replaced or none.
	Replace(entries ...tree.Entry) error

	Iterate() *Iterator
	GetAll() tree.Entries
	Select(x relation.Expr) tree.Entries
	GetByLabel(selector labels.Selector) tree.Entries
	// LastChild returns the child of parent with the highest position, or the
	// last root when parent is nil. It returns nil when there is none.
	LastChild(parent *interval.Interval) tree.Entry
}

// ValidationFn runs before an entry is claimed, updated or replaced.
type ValidationFn func(e tree.Entry) error

// New returns a table loaded with initEntries. Entries must carry a valid
// interval; the validation function is not applied to them.
func New(initEntries tree.Entries, v ValidationFn) (Table, error) {
	r := &table{
		m:          new(sync.RWMutex),
		table:      map[uuid.UUID]tree.Entry{},
		validateFn: v,
	}

	var errm error
	for _, e := range initEntries {
		if err := r.add(e, true); err != nil {
			errm = errors.Join(errm, err)
		}
	}

	return r, errm
}

type table struct {
	m          *sync.RWMutex
	table      map[uuid.UUID]tree.Entry
	validateFn ValidationFn
}

func (r *table) validate(e tree.Entry, init bool) error {
	if e == nil {
		return fmt.Errorf("nil entry")
	}
	if err := e.Interval().Validate(); err != nil {
		return fmt.Errorf("entry %s: %w", e.ID(), err)
	}
	if r.validateFn != nil && !init {
		if err := r.validateFn(e); err != nil {
			return fmt.Errorf("entry %s: %w", e.ID(), err)
		}
	}
	return nil
}

func (r *table) Get(id uuid.UUID) (tree.Entry, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	e, ok := r.table[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

func (r *table) Has(id uuid.UUID) bool {
	r.m.RLock()
	defer r.m.RUnlock()

	_, ok := r.table[id]
	return ok
}

func (r *table) Count() int {
	r.m.RLock()
	defer r.m.RUnlock()

	return len(r.table)
}

func (r *table) Claim(entries ...tree.Entry) error {
	r.m.Lock()
	defer r.m.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if err := r.validate(e, false); err != nil {
			return err
		}
		if _, ok := seen[e.ID()]; ok {
			return fmt.Errorf("%w: %s claimed twice", ErrExists, e.ID())
		}
		seen[e.ID()] = struct{}{}
		if _, ok := r.table[e.ID()]; ok {
			return fmt.Errorf("%w: %s", ErrExists, e.ID())
		}
	}
	for _, e := range entries {
		r.table[e.ID()] = e
	}
	return nil
}

func (r *table) Update(e tree.Entry) error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.update(e)
}

func (r *table) Replace(entries ...tree.Entry) error {
	r.m.Lock()
	defer r.m.Unlock()

	for _, e := range entries {
		if err := r.validate(e, false); err != nil {
			return err
		}
		if _, ok := r.table[e.ID()]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, e.ID())
		}
	}
	for _, e := range entries {
		r.table[e.ID()] = e
	}
	return nil
}

func (r *table) Release(id uuid.UUID) error {
	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.table[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.table, id)
	return nil
}

func (r *table) Iterate() *Iterator {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.iterate(nil)
}

// iterate snapshots the matching entries in document order. Entries sharing
// a left bound are ordered by id.
func (r *table) iterate(match func(tree.Entry) bool) *Iterator {
	entries := make(tree.Entries, 0, len(r.table))
	for _, e := range r.table {
		if match == nil || match(e) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i int, j int) bool {
		if c := entries[i].Interval().Compare(entries[j].Interval()); c != 0 {
			return c < 0
		}
		return entries[i].ID().String() < entries[j].ID().String()
	})

	return &Iterator{current: -1, entries: entries}
}

func (r *table) GetAll() tree.Entries {
	return r.Iterate().All()
}

func (r *table) Select(x relation.Expr) tree.Entries {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.iterate(relation.On(tree.IntervalOf, x)).All()
}

func (r *table) GetByLabel(selector labels.Selector) tree.Entries {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.iterate(func(e tree.Entry) bool {
		return selector.Matches(e.Labels())
	}).All()
}

func (r *table) LastChild(parent *interval.Interval) tree.Entry {
	x := relation.RootEntries()
	if parent != nil {
		x = relation.ChildrenOf(*parent)
	}
	return r.Select(x).Last()
}

func (r *table) add(e tree.Entry, init bool) error {
	if err := r.validate(e, init); err != nil {
		return err
	}
	if _, ok := r.table[e.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrExists, e.ID())
	}
	r.table[e.ID()] = e
	return nil
}

func (r *table) update(e tree.Entry) error {
	if err := r.validate(e, false); err != nil {
		return err
	}
	if _, ok := r.table[e.ID()]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID())
	}
	r.table[e.ID()] = e
	return nil
}
