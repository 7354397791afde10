package relation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedExpr is returned by ToSQL for Expr implementations defined
// outside this package.
var ErrUnsupportedExpr = errors.New("expression cannot be rendered to SQL")

// Placeholder selects how bind parameters are written.
type Placeholder int

const (
	// Question writes ?, as used by SQLite and MySQL.
	Question Placeholder = iota
	// Dollar writes $1, $2, ..., as used by PostgreSQL.
	Dollar
)

type sqlConfig struct {
	placeholder Placeholder
	columns     map[Field]string
	qualifier   string
}

// SQLOption configures ToSQL.
type SQLOption func(*sqlConfig)

// WithPlaceholder selects the bind parameter style.
func WithPlaceholder(p Placeholder) SQLOption {
	return func(c *sqlConfig) { c.placeholder = p }
}

// WithColumn maps field f to a column name other than its default.
func WithColumn(f Field, column string) SQLOption {
	return func(c *sqlConfig) { c.columns[f] = column }
}

// WithQualifier prefixes every column with qualifier and a dot, e.g. a table
// alias.
func WithQualifier(qualifier string) SQLOption {
	return func(c *sqlConfig) { c.qualifier = qualifier }
}

// ToSQL renders x as a SQL boolean expression suitable for a WHERE clause.
// Every integer that comes from the reference interval is a bind parameter,
// returned in order. Columns default to nv, dv, snv, sdv and depth.
func ToSQL(x Expr, opts ...SQLOption) (string, []any, error) {
	cfg := &sqlConfig{columns: map[Field]string{}}
	for _, o := range opts {
		o(cfg)
	}
	w := &sqlWriter{cfg: cfg}
	if err := w.expr(x); err != nil {
		return "", nil, err
	}
	return w.sb.String(), w.args, nil
}

type sqlWriter struct {
	cfg  *sqlConfig
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) bind(v int64) {
	w.args = append(w.args, v)
	if w.cfg.placeholder == Dollar {
		fmt.Fprintf(&w.sb, "$%d", len(w.args))
		return
	}
	w.sb.WriteString("?")
}

func (w *sqlWriter) column(f Field) {
	if w.cfg.qualifier != "" {
		w.sb.WriteString(w.cfg.qualifier)
		w.sb.WriteString(".")
	}
	if name, ok := w.cfg.columns[f]; ok {
		w.sb.WriteString(name)
		return
	}
	w.sb.WriteString(f.String())
}

func (w *sqlWriter) expr(x Expr) error {
	switch v := x.(type) {
	case CmpExpr:
		w.linear(v.Left)
		w.sb.WriteString(" ")
		w.sb.WriteString(v.Op.String())
		w.sb.WriteString(" ")
		w.linear(v.Right)
	case AndExpr:
		return w.list(v.Exprs, " AND ")
	case OrExpr:
		return w.list(v.Exprs, " OR ")
	case NotExpr:
		w.sb.WriteString("NOT (")
		if err := w.expr(v.Expr); err != nil {
			return err
		}
		w.sb.WriteString(")")
	case ConstExpr:
		if v {
			w.sb.WriteString("1 = 1")
		} else {
			w.sb.WriteString("1 = 0")
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedExpr, x)
	}
	return nil
}

func (w *sqlWriter) list(exprs []Expr, sep string) error {
	for i, x := range exprs {
		if i > 0 {
			w.sb.WriteString(sep)
		}
		w.sb.WriteString("(")
		if err := w.expr(x); err != nil {
			return err
		}
		w.sb.WriteString(")")
	}
	return nil
}

// linear writes coefficients of 1 and -1 inline and binds every other
// coefficient and the constant.
func (w *sqlWriter) linear(l Linear) {
	for i, t := range l.Terms {
		switch {
		case t.Coef == 1 && i > 0:
			w.sb.WriteString(" + ")
		case t.Coef == 1:
		case t.Coef == -1 && i > 0:
			w.sb.WriteString(" - ")
		case t.Coef == -1:
			w.sb.WriteString("-")
		default:
			if i > 0 {
				w.sb.WriteString(" + ")
			}
			w.bind(t.Coef)
			w.sb.WriteString(" * ")
		}
		w.column(t.Field)
	}
	switch {
	case len(l.Terms) == 0:
		w.bind(l.Const)
	case l.Const != 0:
		w.sb.WriteString(" + ")
		w.bind(l.Const)
	}
}
