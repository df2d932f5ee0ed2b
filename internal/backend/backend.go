// Package backend provides adapters that read raw observation rows from
// one of the supported storage systems: a SQLite file, a Parquet file, or
// a DynamoDB table. Adapters fetch and nothing else; converting rows into
// the canonical record shape is the ingest package's job.
package backend

import (
	"context"
	"errors"
	"time"
)

// TimeColumn is the timestamp column every backend must provide. SQLite
// and Parquet store it as Unix epoch numbers, DynamoDB as ISO-8601 strings.
const TimeColumn = "datetime_utc"

// Row is a single backend-native row: column name to raw value. Value
// types depend on the backend (numbers, strings, decimal.Decimal for
// DynamoDB number attributes).
type Row map[string]any

// ErrUnavailable marks transient connection or query failures. Callers
// absorb it and retry on the next refresh cycle.
var ErrUnavailable = errors.New("backend unavailable")

// Adapter is the read contract all backends implement.
//
// Fetch returns every row with datetime_utc strictly greater than since,
// or all rows when since is nil. A call either returns the complete result
// or an error, never a partial set, and has no side effects, so it is safe
// to repeat and to run concurrently.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, since *time.Time) ([]Row, error)
}

func unavailable(op string, err error) error {
	return &unavailableError{op: op, err: err}
}

type unavailableError struct {
	op  string
	err error
}

func (e *unavailableError) Error() string {
	return e.op + ": " + ErrUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Unwrap() []error { return []error{ErrUnavailable, e.err} }
