// Package mock provides in-memory stand-ins for pool interfaces.
//
// Tests script the next result of each method ahead of calling code,
// and can inspect issued SQL afterwards.
package mock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
)

var ErrNotScripted = errors.New("mock: result is not scripted")

// Call is a record of an issued statement.
type Call struct {
	SQL  string
	Args []interface{}
}

type Pool struct {
	NextBegin struct {
		Tx  kpool.Tx
		Err error
	}
	Calls []Call
}

var _ kpool.Pool = &Pool{}

func NewPool() *Pool {
	return &Pool{}
}

func (p *Pool) Begin(ctx context.Context) (kpool.Tx, error) {
	if p.NextBegin.Tx == nil && p.NextBegin.Err == nil {
		return NewTx(), nil
	}
	return p.NextBegin.Tx, p.NextBegin.Err
}

func (p *Pool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (kpool.Tx, error) {
	return p.Begin(ctx)
}

func (p *Pool) Acquire(ctx context.Context) (kpool.Conn, error) {
	return nil, ErrNotScripted
}

func (p *Pool) AcquireAllIdle(ctx context.Context) []kpool.Conn {
	return nil
}

func (p *Pool) Config() *pgxpool.Config {
	return nil
}

func (p *Pool) Ping(ctx context.Context) error {
	return nil
}

// Tx is a scriptable kpool.Tx.
//
// Each On(pattern) entry answers statements whose SQL contains pattern.
// Statements with no matching entry get an ErrNotScripted.
type Tx struct {
	Calls      []Call
	Committed  bool
	RolledBack bool

	NextCommit   error
	NextRollback error

	scripted []*script
}

type script struct {
	pattern string
	rows    *Rows
	tag     pgconn.CommandTag
	err     error
}

var _ kpool.Tx = &Tx{}

func NewTx() *Tx {
	return &Tx{}
}

// On registers results for statements containing pattern.
func (tx *Tx) On(pattern string) *ScriptBuilder {
	s := &script{pattern: pattern, tag: pgconn.CommandTag("MOCK 1")}
	tx.scripted = append(tx.scripted, s)
	return &ScriptBuilder{s: s}
}

type ScriptBuilder struct {
	s *script
}

func (b *ScriptBuilder) Returns(rows *Rows) *ScriptBuilder {
	b.s.rows = rows
	return b
}

func (b *ScriptBuilder) Tag(tag string) *ScriptBuilder {
	b.s.tag = pgconn.CommandTag(tag)
	return b
}

func (b *ScriptBuilder) Fails(err error) *ScriptBuilder {
	b.s.err = err
	return b
}

func (tx *Tx) find(sql string) *script {
	for _, s := range tx.scripted {
		if contains(sql, s.pattern) {
			return s
		}
	}
	return nil
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func (tx *Tx) Begin(ctx context.Context) (kpool.Tx, error) {
	return tx, nil
}

func (tx *Tx) Commit(ctx context.Context) error {
	tx.Committed = true
	return tx.NextCommit
}

func (tx *Tx) Rollback(ctx context.Context) error {
	tx.RolledBack = true
	return tx.NextRollback
}

func (tx *Tx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	tx.Calls = append(tx.Calls, Call{SQL: sql, Args: arguments})
	if s := tx.find(sql); s != nil {
		return s.tag, s.err
	}
	return nil, ErrNotScripted
}

func (tx *Tx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	tx.Calls = append(tx.Calls, Call{SQL: sql, Args: args})
	if s := tx.find(sql); s != nil {
		if s.err != nil {
			return nil, s.err
		}
		if s.rows != nil {
			return s.rows, nil
		}
		return NewRows(), nil
	}
	return nil, ErrNotScripted
}

func (tx *Tx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	tx.Calls = append(tx.Calls, Call{SQL: sql, Args: args})
	if s := tx.find(sql); s != nil {
		if s.err != nil {
			return &Rows{err: s.err}
		}
		if s.rows != nil {
			return s.rows
		}
	}
	return &Rows{err: pgx.ErrNoRows}
}

func (tx *Tx) Conn() *pgx.Conn {
	return nil
}

// Rows is an in-memory pgx.Rows over scripted records.
type Rows struct {
	columns []string
	records [][]interface{}
	cursor  int
	err     error
	closed  bool
}

var _ pgx.Rows = &Rows{}
var _ pgx.Row = &Rows{}

func NewRows(columns ...string) *Rows {
	return &Rows{columns: columns, cursor: -1}
}

// Add appends one record. Values are assigned to scan targets as-is.
func (r *Rows) Add(values ...interface{}) *Rows {
	r.records = append(r.records, values)
	return r
}

func (r *Rows) Close() {
	r.closed = true
}

func (r *Rows) Err() error {
	return r.err
}

func (r *Rows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag("MOCK")
}

func (r *Rows) FieldDescriptions() []pgproto3.FieldDescription {
	fds := make([]pgproto3.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgproto3.FieldDescription{Name: []byte(c)}
	}
	return fds
}

func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	r.cursor += 1
	return r.cursor < len(r.records)
}

func (r *Rows) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}

	// allow pgx.Row usage: Scan without Next reads the first record.
	if r.cursor < 0 {
		if len(r.records) == 0 {
			return pgx.ErrNoRows
		}
		r.cursor = 0
	}
	if len(r.records) <= r.cursor {
		return pgx.ErrNoRows
	}

	record := r.records[r.cursor]
	for i, d := range dest {
		if len(record) <= i {
			break
		}
		if err := assign(d, record[i]); err != nil {
			return err
		}
	}
	return nil
}

func assign(dest interface{}, value interface{}) error {
	switch d := dest.(type) {
	case *string:
		v, ok := value.(string)
		if !ok {
			return errors.New("mock: column is not string")
		}
		*d = v
	case *int:
		v, ok := value.(int)
		if !ok {
			return errors.New("mock: column is not int")
		}
		*d = v
	case *int64:
		switch v := value.(type) {
		case int64:
			*d = v
		case int:
			*d = int64(v)
		default:
			return errors.New("mock: column is not int64")
		}
	case *bool:
		v, ok := value.(bool)
		if !ok {
			return errors.New("mock: column is not bool")
		}
		*d = v
	case *float64:
		switch v := value.(type) {
		case float64:
			*d = v
		case int:
			*d = float64(v)
		default:
			return errors.New("mock: column is not float64")
		}
	case *[]float64:
		v, ok := value.([]float64)
		if !ok {
			return errors.New("mock: column is not []float64")
		}
		*d = v
	case *time.Time:
		v, ok := value.(time.Time)
		if !ok {
			return errors.New("mock: column is not time.Time")
		}
		*d = v
	case *[]string:
		v, ok := value.([]string)
		if !ok {
			return errors.New("mock: column is not []string")
		}
		*d = v
	case *interface{}:
		*d = value
	default:
		return errors.New("mock: unsupported scan target")
	}
	return nil
}

func (r *Rows) Values() ([]interface{}, error) {
	if r.cursor < 0 || len(r.records) <= r.cursor {
		return nil, pgx.ErrNoRows
	}
	return r.records[r.cursor], nil
}

func (r *Rows) RawValues() [][]byte {
	return nil
}
