// Package ingest converts backend-native rows into canonical records:
// one UTC timestamp, optional coordinates, and a dynamic set of float64
// measurement fields.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blongworth/locness-dash/internal/backend"
	"github.com/blongworth/locness-dash/internal/log"
)

// Record is one normalized sensor observation. A measurement absent from
// Fields was null (or missing) in the source row.
type Record struct {
	Time      time.Time
	Latitude  *float64
	Longitude *float64
	Fields    map[string]float64
}

// Columns that are never measurements: synthetic identifiers and the
// partition/timestamp bookkeeping columns some backends add.
var reservedColumns = map[string]struct{}{
	"id":        {},
	"partition": {},
	"timestamp": {},
}

// Normalize converts raw rows to Records. Rows whose timestamp cannot be
// parsed are logged and dropped; non-numeric columns and reserved columns
// are dropped; missing optional columns simply stay absent. Output order
// follows input order and is not guaranteed sorted.
func Normalize(rows []backend.Row) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		ts, err := ParseTimestamp(row[backend.TimeColumn])
		if err != nil {
			log.Logger.Warnf("dropping record with bad timestamp %v: %v", row[backend.TimeColumn], err)
			continue
		}

		rec := Record{Time: ts, Fields: make(map[string]float64)}
		for name, v := range row {
			if name == backend.TimeColumn {
				continue
			}
			if _, reserved := reservedColumns[name]; reserved {
				continue
			}
			if v == nil {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			switch name {
			case "latitude":
				lat := f
				rec.Latitude = &lat
			case "longitude":
				lon := f
				rec.Longitude = &lon
			default:
				rec.Fields[name] = f
			}
		}
		out = append(out, rec)
	}
	return out
}

// isoLayouts are tried in order for string timestamps. DynamoDB writes
// RFC3339; the space-separated form shows up in CSV-derived files.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp converts any supported timestamp encoding (epoch
// seconds or milliseconds as a number, ISO-8601 as a string) into a UTC
// time. Epoch values above 1e12 are treated as milliseconds.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	case time.Time:
		return t.UTC(), nil
	case int:
		return epochTime(float64(t)), nil
	case int32:
		return epochTime(float64(t)), nil
	case int64:
		return epochTime(float64(t)), nil
	case float32:
		return epochTime(float64(t)), nil
	case float64:
		return epochTime(t), nil
	case decimal.Decimal:
		return epochTime(t.InexactFloat64()), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range isoLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochTime(f), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp string %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func epochTime(f float64) time.Time {
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
