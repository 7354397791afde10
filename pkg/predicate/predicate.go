// Package predicate composes boolean tests over arbitrary values.
//
// A Predicate defined over one type can be reused over any type that reaches
// it through an accessor, which is how tree relationship tests defined over
// intervals are applied to entries, and to entities that merely reference an
// entry.
package predicate

// Predicate reports whether a value satisfies a condition.
type Predicate[T any] func(v T) bool

// True matches everything.
func True[T any]() Predicate[T] {
	return func(T) bool { return true }
}

// False matches nothing. It is the identity for Or.
func False[T any]() Predicate[T] {
	return func(T) bool { return false }
}

// And matches when every predicate matches, evaluating left to right and
// stopping at the first mismatch. And() with no arguments matches everything.
func And[T any](ps ...Predicate[T]) Predicate[T] {
	switch len(ps) {
	case 0:
		return True[T]()
	case 1:
		return ps[0]
	}
	return func(v T) bool {
		for _, p := range ps {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches, evaluating left to right and
// stopping at the first match. Or() with no arguments matches nothing.
func Or[T any](ps ...Predicate[T]) Predicate[T] {
	switch len(ps) {
	case 0:
		return False[T]()
	case 1:
		return ps[0]
	}
	return func(v T) bool {
		for _, p := range ps {
			if p(v) {
				return true
			}
		}
		return false
	}
}

// Not negates p.
func Not[T any](p Predicate[T]) Predicate[T] {
	return func(v T) bool { return !p(v) }
}

// And returns p && o.
func (p Predicate[T]) And(o Predicate[T]) Predicate[T] { return And(p, o) }

// Or returns p || o.
func (p Predicate[T]) Or(o Predicate[T]) Predicate[T] { return Or(p, o) }

// Not returns !p.
func (p Predicate[T]) Not() Predicate[T] { return Not(p) }

// Navigate rewrites a predicate over F into a predicate over T that applies p
// to the field returned by accessor: Q(e) = P(accessor(e)).
func Navigate[T, F any](accessor func(T) F, p Predicate[F]) Predicate[T] {
	return func(v T) bool { return p(accessor(v)) }
}

// NavigateOptional is Navigate through a relation that may be absent, e.g. a
// city whose region has not been loaded. An absent field never matches.
func NavigateOptional[T, F any](accessor func(T) (F, bool), p Predicate[F]) Predicate[T] {
	return func(v T) bool {
		f, ok := accessor(v)
		if !ok {
			return false
		}
		return p(f)
	}
}

// Filter returns the values that match p, in their original order.
func Filter[T any](values []T, p Predicate[T]) []T {
	var matched []T
	for _, v := range values {
		if p(v) {
			matched = append(matched, v)
		}
	}
	return matched
}

// Any reports whether at least one value matches p.
func Any[T any](values []T, p Predicate[T]) bool {
	for _, v := range values {
		if p(v) {
			return true
		}
	}
	return false
}
