package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// ParquetAdapter reads a Parquet file whole and filters by the time
// predicate in memory, matching how the columnar file is written: append
// only, epoch-numbered datetime_utc column. The file is reopened on every
// Fetch so rows appended between cycles are visible.
type ParquetAdapter struct {
	path string
}

func NewParquet(path string) *ParquetAdapter {
	return &ParquetAdapter{path: path}
}

func (a *ParquetAdapter) Name() string { return "parquet" }

func (a *ParquetAdapter) Fetch(ctx context.Context, since *time.Time) ([]Row, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, unavailable("parquet open", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, unavailable("parquet stat", err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, unavailable("parquet read", err)
	}

	// Column names come from the file's own schema, so new measurement
	// columns appear without a code change.
	paths := pf.Schema().Columns()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
	}

	var out []Row
	for _, rg := range pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := a.readGroup(rg, names, since)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (a *ParquetAdapter) readGroup(rg parquet.RowGroup, names []string, since *time.Time) ([]Row, error) {
	rows := rg.Rows()
	defer rows.Close()

	var out []Row
	buf := make([]parquet.Row, 128)
	for {
		n, err := rows.ReadRows(buf)
		for _, prow := range buf[:n] {
			row := make(Row, len(names))
			for _, val := range prow {
				if val.IsNull() {
					continue
				}
				name := names[val.Column()]
				switch val.Kind() {
				case parquet.Boolean:
					row[name] = val.Boolean()
				case parquet.Int32:
					row[name] = int64(val.Int32())
				case parquet.Int64:
					row[name] = val.Int64()
				case parquet.Float:
					row[name] = float64(val.Float())
				case parquet.Double:
					row[name] = val.Double()
				case parquet.ByteArray, parquet.FixedLenByteArray:
					row[name] = string(val.ByteArray())
				}
			}
			if since == nil || afterEpoch(row[TimeColumn], *since) {
				out = append(out, row)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, unavailable("parquet rows", err)
		}
	}
}

// afterEpoch reports whether the raw epoch value is strictly newer than
// since. Values above 1e12 are treated as milliseconds.
func afterEpoch(v any, since time.Time) bool {
	var f float64
	switch n := v.(type) {
	case int64:
		f = float64(n)
	case float64:
		f = n
	case decimal.Decimal:
		f = n.InexactFloat64()
	default:
		return false
	}
	if f > 1e12 {
		f /= 1000
	}
	return f > float64(since.UnixNano())/1e9
}
