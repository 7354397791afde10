package hierarchy

import (
	"context"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/tree"
	"github.com/henderiw/nestedtable/pkg/treetable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/labels"
)

type node struct {
	name     string
	children []node
}

// fixture is
//
//	a
//	  p
//	    p1
//	    p2
//	      x1
//	        y1
//	      x2
//	    p3
//	  q
//	    q1
//	    q2
//	    q3
//	b
var fixture = []node{
	{name: "a", children: []node{
		{name: "p", children: []node{
			{name: "p1"},
			{name: "p2", children: []node{
				{name: "x1", children: []node{{name: "y1"}}},
				{name: "x2"},
			}},
			{name: "p3"},
		}},
		{name: "q", children: []node{{name: "q1"}, {name: "q2"}, {name: "q3"}}},
	}},
	{name: "b"},
}

func newTestHierarchy(t *testing.T, v treetable.ValidationFn, opts ...Option) (*Hierarchy, *MemoryStore) {
	t.Helper()
	table, err := treetable.New(nil, v)
	require.NoError(t, err)
	store := NewMemoryStore(table)
	return New(store, append([]Option{WithLogger(testr.New(t))}, opts...)...), store
}

// build adds nodes depth first in one session and commits it.
func build(t *testing.T, h *Hierarchy, nodes []node) map[string]tree.Entry {
	t.Helper()
	ctx := context.Background()
	s := h.Begin()
	byName := map[string]tree.Entry{}

	var add func(parent tree.Entry, n node)
	add = func(parent tree.Entry, n node) {
		var e tree.Entry
		var err error
		if parent == nil {
			e, err = s.AddRoot(ctx, labels.Set{"name": n.name})
		} else {
			e, err = s.AddChild(ctx, parent, labels.Set{"name": n.name})
		}
		require.NoError(t, err)
		byName[n.name] = e
		for _, c := range n.children {
			add(e, c)
		}
	}
	for _, n := range nodes {
		add(nil, n)
	}
	_, err := s.Commit(ctx)
	require.NoError(t, err)
	return byName
}

func nameOf(e tree.Entry) string {
	if e == nil {
		return ""
	}
	return e.Labels()["name"]
}

func namesOf(entries tree.Entries) []string {
	var names []string
	for _, e := range entries {
		names = append(names, nameOf(e))
	}
	return names
}

func current(t *testing.T, store *MemoryStore, e tree.Entry) tree.Entry {
	t.Helper()
	got, err := store.Table().Get(e.ID())
	require.NoError(t, err)
	return got
}

func mustPosition(t *testing.T, parent *interval.Interval, position int64) interval.Interval {
	t.Helper()
	iv, err := interval.ForPosition(parent, position)
	require.NoError(t, err)
	return iv
}

func TestBuildPositions(t *testing.T) {
	h, _ := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)

	cases := map[string][]int64{
		"a":  {1},
		"p":  {1, 1},
		"p2": {1, 1, 2},
		"y1": {1, 1, 2, 1, 1},
		"q3": {1, 2, 3},
		"b":  {2},
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := interval.Path(entries[name].Interval())
			require.NoError(t, err)
			assert.Equal(t, path, got)
			assert.Equal(t, int64(len(path)), entries[name].Interval().Depth)
		})
	}
}

// the 2nd child of p becomes the 4th child of its sibling q
func TestMoveToSiblingParent(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)
	p, q, p2 := entries["p"].Interval(), entries["q"].Interval(), entries["p2"].Interval()

	to := mustPosition(t, &q, 4)
	moved, err := h.Move(ctx, p2, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "x1", "y1", "x2"}, namesOf(moved))

	for _, name := range []string{"p2", "x1", "y1", "x2"} {
		got := current(t, store, entries[name])
		assert.False(t, got.Interval().SameBounds(entries[name].Interval()), "%s must move", name)
		assert.Equal(t, entries[name].Interval().Depth, got.Interval().Depth, "%s keeps its depth", name)
	}
	for _, name := range []string{"a", "p", "p1", "p3", "q", "q1", "q2", "q3", "b"} {
		assert.True(t, entries[name].Equal(current(t, store, entries[name])), "%s must not move", name)
	}

	children, err := h.Children(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3", "p2"}, namesOf(children))

	children, err = h.Children(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, namesOf(children))

	subtree, err := h.Descendants(ctx, to, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "y1", "x2"}, namesOf(subtree))
}

func TestMoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)
	b, p2 := entries["b"].Interval(), entries["p2"].Interval()

	// under b, which is shallower, then back
	to := mustPosition(t, &b, 1)
	_, err := h.Move(ctx, p2, to)
	require.NoError(t, err)
	assert.Equal(t, int64(4), current(t, store, entries["y1"]).Interval().Depth)

	_, err = h.Move(ctx, to, p2)
	require.NoError(t, err)

	for name, e := range entries {
		got := current(t, store, e)
		if diff := cmp.Diff(e.Interval(), got.Interval()); diff != "" {
			t.Errorf("%s: -want, +got:\n%s", name, diff)
		}
	}
}

func TestMoveUnder(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)

	// p2 becomes the 3rd root
	moved, err := h.MoveUnder(ctx, entries["p2"].Interval(), nil)
	require.NoError(t, err)
	assert.Len(t, moved, 4)

	root := current(t, store, entries["p2"]).Interval()
	assert.Equal(t, mustPosition(t, nil, 3), root)
	assert.Equal(t, int64(3), current(t, store, entries["y1"]).Interval().Depth)

	roots, err := h.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "p2"}, namesOf(roots))

	// p3 moves behind q3 under q
	q := entries["q"].Interval()
	_, err = h.MoveUnder(ctx, entries["p3"].Interval(), &q)
	require.NoError(t, err)
	assert.Equal(t, mustPosition(t, &q, 4), current(t, store, entries["p3"]).Interval())
}

func TestMoveErrors(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)
	p, q, p2 := entries["p"].Interval(), entries["q"].Interval(), entries["p2"].Interval()

	cases := map[string]struct {
		from        interval.Interval
		to          interval.Interval
		expectedErr error
	}{
		"IntoOwnSubtree": {from: p, to: mustPosition(t, &p2, 5), expectedErr: ErrMoveIntoSubtree},
		"IntoChildSlot":  {from: p, to: mustPosition(t, &p, 9), expectedErr: ErrMoveIntoSubtree},
		"Occupied":       {from: p2, to: entries["q1"].Interval(), expectedErr: ErrTargetOccupied},
		"NoSource":       {from: mustPosition(t, &q, 9), to: mustPosition(t, &q, 10), expectedErr: ErrSourceNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.Move(ctx, tc.from, tc.to)
			assert.ErrorIs(t, err, tc.expectedErr)
			for n, e := range entries {
				assert.True(t, e.Equal(current(t, store, e)), "%s must not move", n)
			}
		})
	}
}

func TestMoveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)

	// the same rows behind a table that rejects positions above 5
	table, err := treetable.New(store.Table().GetAll(), treetable.MaxFanOut(5))
	require.NoError(t, err)
	limited := NewMemoryStore(table)
	h = New(limited, WithLogger(testr.New(t)))

	q := entries["q"].Interval()
	_, err = h.Move(ctx, entries["p2"].Interval(), mustPosition(t, &q, 7))
	assert.ErrorIs(t, err, treetable.ErrLimitExceeded)
	for name, e := range entries {
		assert.True(t, e.Equal(current(t, limited, e)), "%s must not move", name)
	}
}

// under {1, 1000, 1000, 500} the relocation matrix is far larger than the
// intervals it produces
func TestMoveLargeBounds(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)
	at := func(path ...int64) interval.Interval {
		iv, err := interval.ForPath(append([]int64{1, 1000, 1000, 500}, path...))
		require.NoError(t, err)
		return iv
	}
	source := tree.NewEntry(uuid.New(), at(1), labels.Set{"name": "source"})
	child := tree.NewEntry(uuid.New(), at(1, 2), labels.Set{"name": "child"})
	sibling := tree.NewEntry(uuid.New(), at(2), labels.Set{"name": "sibling"})
	require.NoError(t, store.Table().Claim(source, child, sibling))

	moved, err := h.Move(ctx, at(1), at(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "child"}, namesOf(moved))
	assert.Equal(t, at(3), current(t, store, source).Interval())
	assert.Equal(t, at(3, 2), current(t, store, child).Interval())
	assert.True(t, sibling.Equal(current(t, store, sibling)))
}

func TestMoveSameBounds(t *testing.T) {
	h, _ := newTestHierarchy(t, nil)
	entries := build(t, h, fixture)
	moved, err := h.Move(context.Background(), entries["p2"].Interval(), entries["p2"].Interval())
	assert.NoError(t, err)
	assert.Empty(t, moved)
}

func TestMoveMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	h, _ := newTestHierarchy(t, nil, WithRegisterer(reg))
	entries := build(t, h, fixture)
	q := entries["q"].Interval()

	_, err := h.Move(ctx, entries["p2"].Interval(), mustPosition(t, &q, 4))
	require.NoError(t, err)
	_, err = h.Move(ctx, entries["p3"].Interval(), entries["q1"].Interval())
	require.Error(t, err)

	assert.Equal(t, float64(13), testutil.ToFloat64(h.metrics.added))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.commits.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.moves.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.moves.WithLabelValues(resultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "nestedtable_move_duration_seconds"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "nestedtable_move_entries"))
}
