// Package sqlstore keeps tree entries in a SQLite table and evaluates
// relation expressions inside the database.
//
// SQLite multiplies integers in 64 bits and silently falls back to floating
// point on overflow, where the cross products of adjacent siblings compare
// equal. The store therefore only holds intervals whose bounds are at most
// MaxBound, the square root of MaxInt64, so that every product fits.
//
// Bounds grow with both depth and position. With every entry at the last
// position of its parent (the worst case), the supported depth per fan-out is:
//
//	fan-out    2  3  5 10 20 50 100 200 1000 10000
//	depth     16 14 11  8  7  5   4   4    3     2
//
// Trees that only fill the leading positions go much deeper.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/henderiw/nestedtable/pkg/interval"
	"github.com/henderiw/nestedtable/pkg/relation"
	"github.com/henderiw/nestedtable/pkg/tree"
	"github.com/henderiw/nestedtable/pkg/treetable"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"

	_ "modernc.org/sqlite"
)

const (
	driverName   = "sqlite"
	defaultTable = "tree_entries"
	columns      = "id, nv, dv, snv, sdv, depth, labels"
)

// MaxBound is the largest nv, dv, snv or sdv the store accepts.
const MaxBound int64 = 3037000499

// ErrInvalidLabel is returned for labels that cannot be stored.
var ErrInvalidLabel = errors.New("invalid label")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a SQLite backed tree table.
type Store struct {
	db         *sql.DB
	table      string
	log        logr.Logger
	validateFn treetable.ValidationFn
}

type Option func(*Store)

func WithLogger(l logr.Logger) Option {
	return func(r *Store) { r.log = l }
}

// WithTable sets the table name. It defaults to tree_entries.
func WithTable(name string) Option {
	return func(r *Store) { r.table = name }
}

// WithValidation runs fn on every inserted or replaced entry, e.g.
// treetable.MaxDepth.
func WithValidation(fn treetable.ValidationFn) Option {
	return func(r *Store) { r.validateFn = fn }
}

// Open opens the database at dsn and creates the table if needed. Use
// ":memory:" for a private in-memory database.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	r := &Store{
		table: defaultTable,
		log:   logr.Discard(),
	}
	for _, o := range opts {
		o(r)
	}
	if !tableName.MatchString(r.table) {
		return nil, fmt.Errorf("invalid table name %q", r.table)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	r.db = db

	for _, stmt := range r.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	r.log.V(1).Info("opened store", "dsn", dsn, "table", r.table)
	return r, nil
}

func (r *Store) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			nv INTEGER NOT NULL,
			dv INTEGER NOT NULL,
			snv INTEGER NOT NULL,
			sdv INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			labels TEXT NOT NULL DEFAULT ''
		)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_dv_nv ON %s (dv, nv)`, r.table, r.table),
	}
}

func (r *Store) Close() error {
	return r.db.Close()
}

// DB returns the underlying connection pool.
func (r *Store) DB() *sql.DB { return r.db }

// Select returns the entries matching x in document order.
func (r *Store) Select(ctx context.Context, x relation.Expr) (tree.Entries, error) {
	where, args, err := r.where(x)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columns, r.table, where)
	r.log.V(1).Info("select", "query", query, "args", args)

	entries, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	entries.Sort()
	return entries, nil
}

// LastChild returns the child of parent with the highest position, or the last
// root for a nil parent. Within one parent nv grows with the position.
func (r *Store) LastChild(ctx context.Context, parent *interval.Interval) (tree.Entry, error) {
	x := relation.RootEntries()
	if parent != nil {
		x = relation.ChildrenOf(*parent)
	}
	where, args, err := r.where(x)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY nv DESC LIMIT 1", columns, r.table, where)

	entries, err := r.query(ctx, query, args...)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

// Get returns the entry with id.
func (r *Store) Get(ctx context.Context, id uuid.UUID) (tree.Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", columns, r.table)
	entries, err := r.query(ctx, query, id.String())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", treetable.ErrNotFound, id)
	}
	return entries[0], nil
}

// GetByLabel returns the entries whose labels match selector, in document
// order.
func (r *Store) GetByLabel(ctx context.Context, selector labels.Selector) (tree.Entries, error) {
	all, err := r.Select(ctx, relation.True())
	if err != nil {
		return nil, err
	}
	var entries tree.Entries
	for _, e := range all {
		if selector.Matches(e.Labels()) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Insert adds entries in one transaction. An id that already exists rolls
// back the whole batch.
func (r *Store) Insert(ctx context.Context, entries ...tree.Entry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		exists := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", r.table)
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)", r.table, columns)
		for _, e := range entries {
			if err := r.validate(e); err != nil {
				return err
			}
			var n int
			if err := tx.QueryRowContext(ctx, exists, e.ID().String()).Scan(&n); err != nil {
				return fmt.Errorf("check entry %s: %w", e.ID(), err)
			}
			if n > 0 {
				return fmt.Errorf("%w: %s", treetable.ErrExists, e.ID())
			}
			iv := e.Interval()
			if _, err := tx.ExecContext(ctx, insert,
				e.ID().String(), iv.Nv, iv.Dv, iv.SNv, iv.SDv, iv.Depth, e.Labels().String(),
			); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID(), err)
			}
		}
		r.log.Info("inserted entries", "entries", len(entries))
		return nil
	})
}

// Replace rewrites the intervals and labels of existing entries in one
// transaction. A missing id rolls back the whole batch.
func (r *Store) Replace(ctx context.Context, entries ...tree.Entry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		update := fmt.Sprintf("UPDATE %s SET nv = ?, dv = ?, snv = ?, sdv = ?, depth = ?, labels = ? WHERE id = ?", r.table)
		for _, e := range entries {
			if err := r.validate(e); err != nil {
				return err
			}
			iv := e.Interval()
			res, err := tx.ExecContext(ctx, update,
				iv.Nv, iv.Dv, iv.SNv, iv.SDv, iv.Depth, e.Labels().String(), e.ID().String(),
			)
			if err != nil {
				return fmt.Errorf("update entry %s: %w", e.ID(), err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update entry %s: %w", e.ID(), err)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", treetable.ErrNotFound, e.ID())
			}
		}
		r.log.Info("replaced entries", "entries", len(entries))
		return nil
	})
}

// Release deletes the entry with id.
func (r *Store) Release(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.table), id.String())
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", treetable.ErrNotFound, id)
	}
	return nil
}

// where renders x for SQLite. Every bound argument is multiplied with a
// column, so it must not exceed MaxBound either.
func (r *Store) where(x relation.Expr) (string, []any, error) {
	where, args, err := relation.ToSQL(x)
	if err != nil {
		return "", nil, err
	}
	for _, arg := range args {
		if v, ok := arg.(int64); ok && !inBound(v) {
			return "", nil, fmt.Errorf("%w: argument %d of %s exceeds %d", interval.ErrOverflow, v, x, MaxBound)
		}
	}
	return where, args, nil
}

func inBound(v int64) bool {
	return v <= MaxBound && v >= -MaxBound
}

func (r *Store) validate(e tree.Entry) error {
	if e == nil {
		return errors.New("nil entry")
	}
	iv := e.Interval()
	if err := iv.Validate(); err != nil {
		return fmt.Errorf("entry %s: %w", e.ID(), err)
	}
	for _, v := range []int64{iv.Nv, iv.Dv, iv.SNv, iv.SDv} {
		if !inBound(v) {
			return fmt.Errorf("entry %s: %w: %s has a bound above %d", e.ID(), interval.ErrOverflow, iv, MaxBound)
		}
	}
	for k, v := range e.Labels() {
		if errs := validation.IsQualifiedName(k); len(errs) > 0 {
			return fmt.Errorf("entry %s: %w: key %q: %s", e.ID(), ErrInvalidLabel, k, strings.Join(errs, "; "))
		}
		if errs := validation.IsValidLabelValue(v); len(errs) > 0 {
			return fmt.Errorf("entry %s: %w: %s=%q: %s", e.ID(), ErrInvalidLabel, k, v, strings.Join(errs, "; "))
		}
	}
	if r.validateFn != nil {
		if err := r.validateFn(e); err != nil {
			return fmt.Errorf("entry %s: %w", e.ID(), err)
		}
	}
	return nil
}

func (r *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Store) query(ctx context.Context, query string, args ...any) (tree.Entries, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries tree.Entries
	for rows.Next() {
		var (
			id, l string
			iv    interval.Interval
		)
		if err := rows.Scan(&id, &iv.Nv, &iv.Dv, &iv.SNv, &iv.SDv, &iv.Depth, &l); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("entry id %q: %w", id, err)
		}
		set, err := labels.ConvertSelectorToLabelsMap(l)
		if err != nil {
			return nil, fmt.Errorf("entry %s labels: %w", id, err)
		}
		entries = append(entries, tree.NewEntry(uid, iv, set))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
