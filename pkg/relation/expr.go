package relation

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/predicate"
)

// Field is one stored column of an interval.
type Field int

const (
	Nv Field = iota
	Dv
	SNv
	SDv
	Depth
)

var fieldNames = [...]string{"nv", "dv", "snv", "sdv", "depth"}

func (f Field) String() string {
	if f < Nv || f > Depth {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

func (f Field) value(iv interval.Interval) int64 {
	switch f {
	case Nv:
		return iv.Nv
	case Dv:
		return iv.Dv
	case SNv:
		return iv.SNv
	case SDv:
		return iv.SDv
	case Depth:
		return iv.Depth
	}
	panic(fmt.Sprintf("relation: unknown field %d", int(f)))
}

// Term is Coef * Field.
type Term struct {
	Coef  int64
	Field Field
}

// Linear is a sum of terms plus a constant, evaluated with arbitrary
// precision so products of two int64 never wrap.
type Linear struct {
	Terms []Term
	Const int64
}

func (l Linear) eval(iv interval.Interval) *big.Int {
	sum := big.NewInt(l.Const)
	for _, t := range l.Terms {
		sum.Add(sum, new(big.Int).Mul(big.NewInt(t.Coef), big.NewInt(t.Field.value(iv))))
	}
	return sum
}

func (l Linear) String() string {
	var sb strings.Builder
	for i, t := range l.Terms {
		coef := t.Coef
		switch {
		case i > 0 && coef < 0:
			sb.WriteString(" - ")
			coef = -coef
		case i > 0:
			sb.WriteString(" + ")
		case coef < 0:
			sb.WriteString("-")
			coef = -coef
		}
		if coef != 1 {
			fmt.Fprintf(&sb, "%d*", coef)
		}
		sb.WriteString(t.Field.String())
	}
	switch {
	case len(l.Terms) == 0:
		fmt.Fprintf(&sb, "%d", l.Const)
	case l.Const > 0:
		fmt.Fprintf(&sb, " + %d", l.Const)
	case l.Const < 0:
		fmt.Fprintf(&sb, " - %d", -l.Const)
	}
	return sb.String()
}

// Op is a comparison operator.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

var opNames = [...]string{"=", "<>", "<", "<=", ">", ">="}

func (o Op) String() string {
	if o < Eq || o > Ge {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opNames[o]
}

func (o Op) holds(cmp int) bool {
	switch o {
	case Eq:
		return cmp == 0
	case Ne:
		return cmp != 0
	case Lt:
		return cmp < 0
	case Le:
		return cmp <= 0
	case Gt:
		return cmp > 0
	case Ge:
		return cmp >= 0
	}
	return false
}

// Expr is a boolean expression over the columns of one candidate interval r.
// Expressions are immutable; combining them returns new values.
type Expr interface {
	// Matches evaluates the expression against r.
	Matches(r interval.Interval) bool
	String() string
}

// CmpExpr compares two linear forms.
type CmpExpr struct {
	Left  Linear
	Op    Op
	Right Linear
}

func (e CmpExpr) Matches(r interval.Interval) bool {
	return e.Op.holds(e.Left.eval(r).Cmp(e.Right.eval(r)))
}

func (e CmpExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
}

// AndExpr is the conjunction of its operands.
type AndExpr struct {
	Exprs []Expr
}

func (e AndExpr) Matches(r interval.Interval) bool {
	for _, x := range e.Exprs {
		if !x.Matches(r) {
			return false
		}
	}
	return true
}

func (e AndExpr) String() string { return join(e.Exprs, " AND ") }

// OrExpr is the disjunction of its operands.
type OrExpr struct {
	Exprs []Expr
}

func (e OrExpr) Matches(r interval.Interval) bool {
	for _, x := range e.Exprs {
		if x.Matches(r) {
			return true
		}
	}
	return false
}

func (e OrExpr) String() string { return join(e.Exprs, " OR ") }

// NotExpr negates its operand.
type NotExpr struct {
	Expr Expr
}

func (e NotExpr) Matches(r interval.Interval) bool { return !e.Expr.Matches(r) }

func (e NotExpr) String() string { return fmt.Sprintf("NOT (%s)", e.Expr) }

// ConstExpr is a constant truth value.
type ConstExpr bool

func (e ConstExpr) Matches(interval.Interval) bool { return bool(e) }

func (e ConstExpr) String() string {
	if e {
		return "TRUE"
	}
	return "FALSE"
}

func join(exprs []Expr, sep string) string {
	parts := make([]string, 0, len(exprs))
	for _, x := range exprs {
		parts = append(parts, "("+x.String()+")")
	}
	return strings.Join(parts, sep)
}

// True matches every interval.
func True() Expr { return ConstExpr(true) }

// False matches no interval. It is the starting value when folding with Or.
func False() Expr { return ConstExpr(false) }

// And conjoins exprs. Nested conjunctions are flattened, TRUE operands are
// dropped and a FALSE operand collapses the result.
func And(exprs ...Expr) Expr {
	var out []Expr
	for _, x := range exprs {
		switch v := x.(type) {
		case ConstExpr:
			if !v {
				return False()
			}
		case AndExpr:
			out = append(out, v.Exprs...)
		default:
			out = append(out, x)
		}
	}
	switch len(out) {
	case 0:
		return True()
	case 1:
		return out[0]
	}
	return AndExpr{Exprs: out}
}

// Or disjoins exprs. Nested disjunctions are flattened, FALSE operands are
// dropped and a TRUE operand collapses the result.
func Or(exprs ...Expr) Expr {
	var out []Expr
	for _, x := range exprs {
		switch v := x.(type) {
		case ConstExpr:
			if v {
				return True()
			}
		case OrExpr:
			out = append(out, v.Exprs...)
		default:
			out = append(out, x)
		}
	}
	switch len(out) {
	case 0:
		return False()
	case 1:
		return out[0]
	}
	return OrExpr{Exprs: out}
}

// Not negates x.
func Not(x Expr) Expr {
	switch v := x.(type) {
	case ConstExpr:
		return ConstExpr(!v)
	case NotExpr:
		return v.Expr
	}
	return NotExpr{Expr: x}
}

// Predicate adapts x to an in-memory predicate over intervals.
func Predicate(x Expr) predicate.Predicate[interval.Interval] {
	return x.Matches
}

// On adapts x to a predicate over any value that exposes an interval, such as
// a stored entry or a domain object holding one.
func On[T any](accessor func(T) interval.Interval, x Expr) predicate.Predicate[T] {
	return predicate.Navigate(accessor, Predicate(x))
}

func field(f Field) Linear { return Linear{Terms: []Term{{Coef: 1, Field: f}}} }

func scaled(coef int64, f Field) Linear { return Linear{Terms: []Term{{Coef: coef, Field: f}}} }

func constant(v int64) Linear { return Linear{Const: v} }

// span is f1 - f2.
func span(f1, f2 Field) Linear {
	return Linear{Terms: []Term{{Coef: 1, Field: f1}, {Coef: -1, Field: f2}}}
}

func compare(l Linear, op Op, r Linear) Expr { return CmpExpr{Left: l, Op: op, Right: r} }
