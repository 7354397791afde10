package treetable

import (
	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/tree"
)

// Iterator walks a snapshot of the table in document order.
type Iterator struct {
	current int
	entries tree.Entries
}

func (r *Iterator) Value() tree.Entry {
	return r.entries[r.current]
}

func (r *Iterator) ID() uuid.UUID {
	return r.entries[r.current].ID()
}

func (r *Iterator) Next() bool {
	r.current++
	return r.current < len(r.entries)
}

// All returns the remaining entries.
func (r *Iterator) All() tree.Entries {
	var entries tree.Entries
	for r.Next() {
		entries = append(entries, r.Value())
	}
	return entries
}
