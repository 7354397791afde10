package interval

import "fmt"

// Relocation maps the intervals of the subtree rooted at a source onto the
// subtree rooted at a target. The matrix is kept in arbitrary precision, so a
// relocation only fails when a relocated interval does not fit in int64.
type Relocation struct {
	source, target Interval
	m              bigMatrix
	depthDelta     int64
}

// NewRelocation returns the relocation from source to target, see
// RelocationMatrix.
func NewRelocation(source, target Interval) (*Relocation, error) {
	sourceParent, sourcePos, err := parentAndPosition(source)
	if err != nil {
		return nil, fmt.Errorf("relocation source: %w", err)
	}
	targetParent, targetPos, err := parentAndPosition(target)
	if err != nil {
		return nil, fmt.Errorf("relocation target: %w", err)
	}

	inv, err := Basis(sourceParent).big().inverse()
	if err != nil {
		return nil, err
	}
	c := &calc{}
	delta := c.sub(targetPos, sourcePos)
	depthDelta := c.sub(target.Depth, source.Depth)
	if err := c.err(); err != nil {
		return nil, err
	}
	return &Relocation{
		source:     source,
		target:     target,
		m:          Basis(targetParent).big().mul(Shift(delta).big()).mul(inv),
		depthDelta: depthDelta,
	}, nil
}

// Apply returns the relocated interval of iv, depth included. iv must lie in
// the source subtree.
func (r *Relocation) Apply(iv Interval) (Interval, error) {
	moved, err := r.m.apply(iv)
	if err != nil {
		return Interval{}, err
	}
	c := &calc{}
	moved.Depth = c.add(iv.Depth, r.depthDelta)
	if err := c.err(); err != nil {
		return Interval{}, fmt.Errorf("relocate depth of %s: %w", iv, err)
	}
	return moved, nil
}

// Matrix returns the relocation as an int64 matrix, or ErrOverflow when an
// entry does not fit.
func (r *Relocation) Matrix() (Matrix, error) {
	m, err := r.m.int64s()
	if err != nil {
		return Matrix{}, fmt.Errorf("relocation %s to %s: %w", r.source, r.target, err)
	}
	return m, nil
}

func (r *Relocation) String() string {
	return fmt.Sprintf("%s -> %s by %s", r.source, r.target, r.m)
}
