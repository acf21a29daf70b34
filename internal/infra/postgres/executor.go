package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrExecution wraps any database-side failure so callers can distinguish
// execution errors from validation errors.
var ErrExecution = errors.New("postgres: query execution failed")

// Querier is the subset of pgxpool.Pool the executor needs. Tests substitute
// a fake.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Result is the outcome of a successful query.
type Result struct {
	Columns  []string
	Rows     []map[string]any
	RowCount int
	Duration time.Duration
}

// Executor runs validated SELECT statements and database function calls
// against the ARGO database.
type Executor struct {
	db Querier
}

// NewExecutor wraps a Querier.
func NewExecutor(db Querier) *Executor {
	return &Executor{db: db}
}

// Query executes a SELECT statement and materializes every row as a
// column-name keyed map. The statement must already have passed validation;
// the executor does no SQL inspection of its own.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (*Result, error) {
	start := time.Now()
	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// CallFunction invokes a database function positionally, as
// SELECT * FROM name($1, $2, ...). The name must come from the tool
// registry, never from user input.
func (e *Executor) CallFunction(ctx context.Context, name string, args ...any) (*Result, error) {
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("SELECT * FROM %s(%s)", name, strings.Join(placeholders, ", "))
	return e.Query(ctx, sql, args...)
}

// collectRows drains rows into maps keyed by the result column names.
func collectRows(rows pgx.Rows) (*Result, error) {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	out := make([]map[string]any, 0, 16)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", ErrExecution, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	return &Result{
		Columns:  columns,
		Rows:     out,
		RowCount: len(out),
	}, nil
}
