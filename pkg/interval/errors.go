package interval

import "errors"

var (
	// ErrInvalidPosition indicates a negative sibling position.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNotRoot indicates that a root position was asked for an interval that
	// does not identify a root.
	ErrNotRoot = errors.New("entry does not identify a root")

	// ErrNotChild indicates that an interval is not a direct child of the
	// given parent interval.
	ErrNotChild = errors.New("entry is not a child of parent")

	// ErrRootHasNoParent indicates that the parent of a root interval was requested.
	ErrRootHasNoParent = errors.New("root entry has no parent")

	// ErrInvalidInterval indicates bounds that violate nv/dv < snv/sdv or
	// have non-positive denominators.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrNotUnimodular indicates a matrix whose determinant is not +1 or -1.
	ErrNotUnimodular = errors.New("matrix is not unimodular")

	// ErrOverflow indicates that an interval computation does not fit in 64 bits.
	ErrOverflow = errors.New("integer overflow")
)
