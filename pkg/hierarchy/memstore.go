package hierarchy

import (
	"context"

	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/tree"
	"github.com/henderiw/nestedtable/pkg/treetable"
)

// MemoryStore serves a Store from an in-memory table.
type MemoryStore struct {
	table treetable.Table
}

func NewMemoryStore(t treetable.Table) *MemoryStore {
	return &MemoryStore{table: t}
}

// Table returns the backing table.
func (r *MemoryStore) Table() treetable.Table { return r.table }

func (r *MemoryStore) Select(ctx context.Context, x relation.Expr) (tree.Entries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.table.Select(x), nil
}

func (r *MemoryStore) LastChild(ctx context.Context, parent *interval.Interval) (tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.table.LastChild(parent), nil
}

func (r *MemoryStore) Insert(ctx context.Context, entries ...tree.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.table.Claim(entries...)
}

func (r *MemoryStore) Replace(ctx context.Context, entries ...tree.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.table.Replace(entries...)
}
