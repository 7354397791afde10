package hierarchy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/tree"
	"github.com/henderiw/nestedtable/pkg/treetable"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/labels"
)

func TestSessionMergesPendingAndDurable(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)

	s := h.Begin()
	a, err := s.AddRoot(ctx, labels.Set{"name": "a"})
	require.NoError(t, err)
	b, err := s.AddRoot(ctx, labels.Set{"name": "b"})
	require.NoError(t, err)
	a1, err := s.AddChild(ctx, a, labels.Set{"name": "a1"})
	require.NoError(t, err)
	a2, err := s.AddChild(ctx, a, labels.Set{"name": "a2"})
	require.NoError(t, err)

	aIv := a.Interval()
	assert.Equal(t, mustPosition(t, nil, 1), a.Interval())
	assert.Equal(t, mustPosition(t, nil, 2), b.Interval())
	assert.Equal(t, mustPosition(t, &aIv, 1), a1.Interval())
	assert.Equal(t, mustPosition(t, &aIv, 2), a2.Interval())
	assert.Equal(t, []string{"a", "b", "a1", "a2"}, namesOf(s.Pending()))
	assert.Equal(t, 0, store.Table().Count())

	committed, err := s.Commit(ctx)
	require.NoError(t, err)
	assert.Len(t, committed, 4)
	assert.Empty(t, s.Pending())
	assert.Equal(t, 4, store.Table().Count())

	// durable a2 then pending a3
	s = h.Begin()
	a3, err := s.AddChild(ctx, a, labels.Set{"name": "a3"})
	require.NoError(t, err)
	a4, err := s.AddChild(ctx, a, labels.Set{"name": "a4"})
	require.NoError(t, err)
	c, err := s.AddRoot(ctx, labels.Set{"name": "c"})
	require.NoError(t, err)
	assert.Equal(t, mustPosition(t, &aIv, 3), a3.Interval())
	assert.Equal(t, mustPosition(t, &aIv, 4), a4.Interval())
	assert.Equal(t, mustPosition(t, nil, 3), c.Interval())

	_, err = s.Commit(ctx)
	require.NoError(t, err)
	children, err := h.Children(ctx, aIv)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, namesOf(children))
}

func TestSessionCommitFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, treetable.MaxDepth(1))

	s := h.Begin()
	root, err := s.AddRoot(ctx, labels.Set{"name": "root"})
	require.NoError(t, err)
	_, err = s.AddChild(ctx, root, labels.Set{"name": "child"})
	require.NoError(t, err)

	_, err = s.Commit(ctx)
	assert.ErrorIs(t, err, treetable.ErrLimitExceeded)
	assert.Len(t, s.Pending(), 2)
	assert.Equal(t, 0, store.Table().Count())
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.commits.WithLabelValues(resultError)))
}

func TestSessionDiscard(t *testing.T) {
	ctx := context.Background()
	h, store := newTestHierarchy(t, nil)

	s := h.Begin()
	_, err := s.AddRoot(ctx, labels.Set{"name": "a"})
	require.NoError(t, err)
	s.Discard()
	assert.Empty(t, s.Pending())

	committed, err := s.Commit(ctx)
	assert.NoError(t, err)
	assert.Empty(t, committed)
	assert.Equal(t, 0, store.Table().Count())

	b, err := s.AddRoot(ctx, labels.Set{"name": "b"})
	require.NoError(t, err)
	assert.Equal(t, mustPosition(t, nil, 1), b.Interval())
}

func TestSessionErrors(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHierarchy(t, nil)
	s := h.Begin()

	_, err := s.AddChild(ctx, nil, nil)
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.AddRoot(canceled, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeLast(t *testing.T) {
	first := tree.NewEntry(uuid.New(), interval.Interval{Nv: 1, Dv: 1, SNv: 2, SDv: 1, Depth: 1}, nil)
	second := tree.NewEntry(uuid.New(), interval.Interval{Nv: 2, Dv: 1, SNv: 3, SDv: 1, Depth: 1}, nil)
	twin := tree.NewEntry(uuid.New(), second.Interval(), nil)

	cases := map[string]struct {
		durable  tree.Entry
		pending  tree.Entry
		expected tree.Entry
	}{
		"None":         {},
		"DurableOnly":  {durable: first, expected: first},
		"PendingOnly":  {pending: first, expected: first},
		"DurableLater": {durable: second, pending: first, expected: second},
		"PendingLater": {durable: first, pending: second, expected: second},
		"SamePosition": {durable: second, pending: twin, expected: twin},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := mergeLast(tc.durable, tc.pending)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tc.expected.ID(), got.ID())
		})
	}
}
