// Package dataset owns the in-memory time-ordered table of normalized
// records, the incremental-fetch cursor, and the read-side view logic.
package dataset

import (
	"sort"
	"time"

	"github.com/blongworth/locness-dash/internal/ingest"
)

// Dataset is an immutable, timestamp-sorted table of records with unique
// timestamps. Mutation always builds a fresh Dataset; once published via
// the store it is never written again, so readers need no locking.
type Dataset struct {
	Records []ingest.Record
	fields  []string
}

func newDataset(records []ingest.Record) *Dataset {
	return &Dataset{
		Records: records,
		fields:  fieldCatalog(records),
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Fields returns the sorted names of the numeric measurement columns
// present anywhere in the table. Location and time columns are excluded.
func (d *Dataset) Fields() []string { return d.fields }

// Latest returns the newest record, or false when the table is empty.
func (d *Dataset) Latest() (ingest.Record, bool) {
	if len(d.Records) == 0 {
		return ingest.Record{}, false
	}
	return d.Records[len(d.Records)-1], true
}

// TimeRange returns the first and last timestamps, or false when empty.
func (d *Dataset) TimeRange() (start, end time.Time, ok bool) {
	if len(d.Records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return d.Records[0].Time, d.Records[len(d.Records)-1].Time, true
}

func fieldCatalog(records []ingest.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for name := range rec.Fields {
			seen[name] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for name := range seen {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// sortAndDedupe orders records by time ascending and collapses duplicate
// timestamps keeping the last-appended record, so re-delivered batches
// overwrite rather than duplicate. The input slice is sorted in place.
func sortAndDedupe(records []ingest.Record) []ingest.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})

	out := records[:0]
	for _, rec := range records {
		if n := len(out); n > 0 && out[n-1].Time.Equal(rec.Time) {
			out[n-1] = rec
			continue
		}
		out = append(out, rec)
	}
	return out
}
