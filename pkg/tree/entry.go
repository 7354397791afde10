// Package tree defines the entries stored in a nested interval table.
package tree

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/interval"
	"k8s.io/apimachinery/pkg/labels"
)

// Entry is one tree node: a stable identity, its position encoded as an
// interval and an opaque labels payload.
type Entry interface {
	ID() uuid.UUID
	Interval() interval.Interval
	Labels() labels.Set
	// WithInterval returns a copy of the entry placed at iv.
	WithInterval(iv interval.Interval) Entry
	String() string
	Equal(e2 Entry) bool
}

type entry struct {
	id     uuid.UUID
	iv     interval.Interval
	labels labels.Set
}

func (r entry) ID() uuid.UUID               { return r.id }
func (r entry) Interval() interval.Interval { return r.iv }
func (r entry) Labels() labels.Set          { return r.labels }
func (r entry) String() string {
	return fmt.Sprintf("id: %s, interval: %s, labels: %s", r.id, r.iv, r.labels.String())
}
func (r entry) Equal(e2 Entry) bool {
	if e2 == nil {
		return false
	}
	if r.id == e2.ID() &&
		r.iv.Equal(e2.Interval()) &&
		r.labels.String() == e2.Labels().String() {
		return true
	}
	return false
}

func (r entry) WithInterval(iv interval.Interval) Entry {
	return entry{id: r.id, iv: iv, labels: r.labels}
}

// NewEntry returns an entry. The labels are copied.
func NewEntry(id uuid.UUID, iv interval.Interval, l labels.Set) Entry {
	var cp labels.Set
	if l != nil {
		cp = labels.Set{}
		for k, v := range l {
			cp[k] = v
		}
	}
	return entry{
		id:     id,
		iv:     iv,
		labels: cp,
	}
}

type Entries []Entry

// Sort orders the entries in document (pre-order) order, i.e. by left bound.
func (r Entries) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Interval().Less(r[j].Interval())
	})
}

// Intervals returns the interval of every entry, in order.
func (r Entries) Intervals() []interval.Interval {
	ivs := make([]interval.Interval, 0, len(r))
	for _, e := range r {
		ivs = append(ivs, e.Interval())
	}
	return ivs
}

// IDs returns the id of every entry, in order.
func (r Entries) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r))
	for _, e := range r {
		ids = append(ids, e.ID())
	}
	return ids
}

// Last returns the entry with the greatest left bound, or nil.
func (r Entries) Last() Entry {
	var last Entry
	for _, e := range r {
		if last == nil || last.Interval().Less(e.Interval()) {
			last = e
		}
	}
	return last
}

// IntervalOf returns the interval of e. It lets relation expressions be
// applied to entries with relation.On.
func IntervalOf(e Entry) interval.Interval { return e.Interval() }
