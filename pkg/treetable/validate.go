package treetable

import (
	"errors"
	"fmt"

	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/tree"
)

// ErrLimitExceeded is returned by the capacity validators.
var ErrLimitExceeded = errors.New("tree limit exceeded")

// MaxDepth rejects entries deeper than depth. Roots have depth 1.
func MaxDepth(depth int64) ValidationFn {
	return func(e tree.Entry) error {
		if d := e.Interval().Depth; d > depth {
			return fmt.Errorf("%w: depth %d, max %d", ErrLimitExceeded, d, depth)
		}
		return nil
	}
}

// MaxFanOut rejects entries whose 1-based position under their parent, or
// among the roots, is above fanOut.
func MaxFanOut(fanOut int64) ValidationFn {
	return func(e tree.Entry) error {
		iv := e.Interval()
		var parent *interval.Interval
		if !iv.IsRoot() {
			p, err := interval.ParentOf(iv)
			if err != nil {
				return err
			}
			parent = &p
		}
		pos, err := interval.PositionOf(parent, &iv)
		if err != nil {
			return err
		}
		if pos > fanOut {
			return fmt.Errorf("%w: position %d, max %d", ErrLimitExceeded, pos, fanOut)
		}
		return nil
	}
}

// Validators runs every non-nil fn and joins their errors.
func Validators(fns ...ValidationFn) ValidationFn {
	return func(e tree.Entry) error {
		var errm error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(e); err != nil {
				errm = errors.Join(errm, err)
			}
		}
		return errm
	}
}
