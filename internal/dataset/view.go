package dataset

import (
	"sort"
	"time"

	"github.com/blongworth/locness-dash/internal/ingest"
)

// View returns a derived table for presentation: records within
// [start, end] inclusive, downsampled into resample-wide buckets when the
// requested interval is coarser than the data's median spacing. Requesting
// an interval at or finer than the median spacing returns the filtered
// rows untouched; fabricating points the source never produced would
// misrepresent sparse data. The input dataset is never mutated. An empty
// range yields an empty table, not an error.
func View(ds *Dataset, start, end time.Time, resample time.Duration) *Dataset {
	filtered := filterRange(ds.Records, start, end)
	if len(filtered) == 0 {
		return newDataset(nil)
	}
	if resample <= 0 || resample <= medianInterval(filtered) {
		return newDataset(filtered)
	}
	return newDataset(downsample(filtered, resample))
}

func filterRange(records []ingest.Record, start, end time.Time) []ingest.Record {
	if start.After(end) {
		return nil
	}
	// Records are sorted, so the window is a contiguous slice.
	lo := sort.Search(len(records), func(i int) bool {
		return !records[i].Time.Before(start)
	})
	hi := sort.Search(len(records), func(i int) bool {
		return records[i].Time.After(end)
	})
	if lo >= hi {
		return nil
	}
	return records[lo:hi]
}

// medianInterval is the median gap between consecutive samples. Zero when
// there are fewer than two records, which makes any positive resample
// interval count as coarser.
func medianInterval(records []ingest.Record) time.Duration {
	if len(records) < 2 {
		return 0
	}
	gaps := make([]time.Duration, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		gaps = append(gaps, records[i].Time.Sub(records[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

type bucket struct {
	start    time.Time
	sums     map[string]float64
	counts   map[string]int
	latSum   float64
	latCount int
	lonSum   float64
	lonCount int
}

// downsample groups records into fixed-width buckets aligned to the epoch
// and averages every numeric field per bucket. Bucket timestamps are the
// bucket start. Buckets with no records simply don't exist; gaps are
// preserved, not interpolated.
func downsample(records []ingest.Record, interval time.Duration) []ingest.Record {
	buckets := make(map[int64]*bucket)
	for _, rec := range records {
		bstart := rec.Time.Truncate(interval)
		key := bstart.UnixNano()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				start:  bstart,
				sums:   make(map[string]float64),
				counts: make(map[string]int),
			}
			buckets[key] = b
		}
		for name, v := range rec.Fields {
			b.sums[name] += v
			b.counts[name]++
		}
		if rec.Latitude != nil {
			b.latSum += *rec.Latitude
			b.latCount++
		}
		if rec.Longitude != nil {
			b.lonSum += *rec.Longitude
			b.lonCount++
		}
	}

	keys := make([]int64, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]ingest.Record, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		rec := ingest.Record{Time: b.start, Fields: make(map[string]float64, len(b.sums))}
		for name, sum := range b.sums {
			rec.Fields[name] = sum / float64(b.counts[name])
		}
		if b.latCount > 0 {
			lat := b.latSum / float64(b.latCount)
			rec.Latitude = &lat
		}
		if b.lonCount > 0 {
			lon := b.lonSum / float64(b.lonCount)
			rec.Longitude = &lon
		}
		out = append(out, rec)
	}
	return out
}
