package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/henderiw/nestedtable/pkg/hierarchy"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/sqlstore"
	"github.com/henderiw/nestedtable/pkg/tree"
	"k8s.io/apimachinery/pkg/labels"
)

// app is a hierarchy over one SQLite table.
type app struct {
	log   logr.Logger
	store *sqlstore.Store
	h     *hierarchy.Hierarchy
}

func openApp(ctx context.Context, cfg Config, log logr.Logger) (*app, error) {
	opts := []sqlstore.Option{
		sqlstore.WithLogger(log.WithName("sqlstore")),
		sqlstore.WithTable(cfg.Table),
	}
	if fn := cfg.validation(); fn != nil {
		opts = append(opts, sqlstore.WithValidation(fn))
	}
	store, err := sqlstore.Open(ctx, cfg.Database, opts...)
	if err != nil {
		return nil, err
	}
	return &app{
		log:   log,
		store: store,
		h:     hierarchy.New(store, hierarchy.WithLogger(log.WithName("hierarchy"))),
	}, nil
}

func (r *app) Close() error {
	return r.store.Close()
}

// load appends nodes depth first in one session. Top level nodes become new
// roots.
func (r *app) load(ctx context.Context, nodes []Node) (tree.Entries, error) {
	s := r.h.Begin()
	var add func(parent tree.Entry, n Node) error
	add = func(parent tree.Entry, n Node) error {
		l := labels.Set{nameLabel: n.Name}
		for k, v := range n.Labels {
			l[k] = v
		}
		var e tree.Entry
		var err error
		if parent == nil {
			e, err = s.AddRoot(ctx, l)
		} else {
			e, err = s.AddChild(ctx, parent, l)
		}
		if err != nil {
			return fmt.Errorf("add %s: %w", n.Name, err)
		}
		for _, c := range n.Children {
			if err := add(e, c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range nodes {
		if err := add(nil, n); err != nil {
			s.Discard()
			return nil, err
		}
	}
	return s.Commit(ctx)
}

// byName returns the single entry labelled name.
func (r *app) byName(ctx context.Context, name string) (tree.Entry, error) {
	entries, err := r.store.GetByLabel(ctx, labels.SelectorFromSet(labels.Set{nameLabel: name}))
	if err != nil {
		return nil, err
	}
	switch len(entries) {
	case 0:
		return nil, fmt.Errorf("no entry named %q", name)
	case 1:
		return entries[0], nil
	default:
		return nil, fmt.Errorf("%d entries named %q", len(entries), name)
	}
}

// moveUnder makes name the last child of parent, or the last root when parent
// is empty.
func (r *app) moveUnder(ctx context.Context, name, parent string) (tree.Entries, error) {
	e, err := r.byName(ctx, name)
	if err != nil {
		return nil, err
	}
	var newParent *interval.Interval
	if parent != "" {
		p, err := r.byName(ctx, parent)
		if err != nil {
			return nil, err
		}
		iv := p.Interval()
		newParent = &iv
	}
	moved, err := r.h.MoveUnder(ctx, e.Interval(), newParent)
	if err != nil {
		return nil, err
	}
	r.log.Info("moved subtree", "name", name, "parent", parent, "entries", len(moved))
	return moved, nil
}

type queryFn func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error)

var queries = map[string]queryFn{
	"ancestors": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return h.Ancestors(ctx, iv, 0, false)
	},
	"descendants": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return h.Descendants(ctx, iv, 0, false)
	},
	"children": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return h.Children(ctx, iv)
	},
	"siblings": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return h.Siblings(ctx, iv, false)
	},
	"parent": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return asEntries(h.Parent(ctx, iv))
	},
	"next": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return asEntries(h.NextSibling(ctx, iv))
	},
	"first-child": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return asEntries(h.FirstChild(ctx, iv))
	},
	"last-child": func(ctx context.Context, h *hierarchy.Hierarchy, iv interval.Interval) (tree.Entries, error) {
		return asEntries(h.LastChild(ctx, iv))
	},
}

func asEntries(e tree.Entry, err error) (tree.Entries, error) {
	if err != nil || e == nil {
		return nil, err
	}
	return tree.Entries{e}, nil
}

func (r *app) query(ctx context.Context, kind, name string) (tree.Entries, error) {
	fn, ok := queries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown query %q", kind)
	}
	e, err := r.byName(ctx, name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, r.h, e.Interval())
}

// print writes every entry in document order, indented by depth and followed
// by its positions path.
func (r *app) print(ctx context.Context, w io.Writer) error {
	entries, err := r.store.Select(ctx, relation.True())
	if err != nil {
		return err
	}
	return printEntries(w, entries, true)
}

func printEntries(w io.Writer, entries tree.Entries, indent bool) error {
	for _, e := range entries {
		iv := e.Interval()
		path, err := interval.Path(iv)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.ID(), err)
		}
		steps := make([]string, 0, len(path))
		for _, p := range path {
			steps = append(steps, fmt.Sprint(p))
		}
		prefix := ""
		if indent {
			prefix = strings.Repeat("  ", int(iv.Depth-1))
		}
		if _, err := fmt.Fprintf(w, "%s%s %s\n", prefix, e.Labels()[nameLabel], strings.Join(steps, ".")); err != nil {
			return err
		}
	}
	return nil
}
