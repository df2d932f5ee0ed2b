package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blongworth/locness-dash/internal/ingest"
)

// epoch-aligned base keeps bucket boundaries predictable.
const viewBase = int64(1700000000)

func secondlyRecords(n int, step int64) []ingest.Record {
	records := make([]ingest.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, rec(viewBase+int64(i)*step, map[string]float64{
			"temp": float64(i),
		}))
	}
	return records
}

func viewDataset(records []ingest.Record) *Dataset {
	return newDataset(sortAndDedupe(records))
}

func TestView_DownsampleAverages(t *testing.T) {
	// 100 one-second-spaced records, 10-second buckets: 10 buckets,
	// each the mean of its 10 constituents.
	ds := viewDataset(secondlyRecords(100, 1))
	start := time.Unix(viewBase, 0).UTC()
	end := time.Unix(viewBase+99, 0).UTC()

	view := View(ds, start, end, 10*time.Second)
	require.Equal(t, 10, view.Len())

	for i, rec := range view.Records {
		wantTime := time.Unix(viewBase+int64(i)*10, 0).UTC()
		assert.True(t, rec.Time.Equal(wantTime), "bucket %d time %v, want %v", i, rec.Time, wantTime)

		// Values 10i..10i+9 average to 10i+4.5.
		assert.InDelta(t, float64(i)*10+4.5, rec.Fields["temp"], 1e-9, "bucket %d", i)
	}
}

func TestView_NeverUpsamples(t *testing.T) {
	// Data spaced 60s apart; asking for 10s must return the rows
	// untouched rather than fabricate finer-grained points.
	ds := viewDataset(secondlyRecords(10, 60))
	start, end, ok := ds.TimeRange()
	require.True(t, ok)

	view := View(ds, start, end, 10*time.Second)
	assert.Equal(t, ds.Records, view.Records)
}

func TestView_ResampleEqualToSpacingIsPassthrough(t *testing.T) {
	ds := viewDataset(secondlyRecords(10, 10))
	start, end, _ := ds.TimeRange()

	view := View(ds, start, end, 10*time.Second)
	assert.Equal(t, ds.Records, view.Records)
}

func TestView_FilterInclusive(t *testing.T) {
	ds := viewDataset(secondlyRecords(10, 1))

	start := time.Unix(viewBase+2, 0).UTC()
	end := time.Unix(viewBase+5, 0).UTC()

	view := View(ds, start, end, 0)
	require.Equal(t, 4, view.Len())
	assert.True(t, view.Records[0].Time.Equal(start))
	assert.True(t, view.Records[3].Time.Equal(end))
}

func TestView_EmptyRanges(t *testing.T) {
	ds := viewDataset(secondlyRecords(10, 1))

	t.Run("inverted range", func(t *testing.T) {
		view := View(ds, time.Unix(viewBase+5, 0), time.Unix(viewBase+2, 0), time.Second)
		assert.Equal(t, 0, view.Len())
	})

	t.Run("range outside data", func(t *testing.T) {
		view := View(ds, time.Unix(viewBase+1000, 0), time.Unix(viewBase+2000, 0), time.Second)
		assert.Equal(t, 0, view.Len())
	})

	t.Run("empty dataset", func(t *testing.T) {
		view := View(newDataset(nil), time.Unix(viewBase, 0), time.Unix(viewBase+10, 0), time.Second)
		assert.Equal(t, 0, view.Len())
	})
}

func TestView_IrregularSpacingUsesMedian(t *testing.T) {
	// Mostly 1s spacing with one long gap: the median gap (1s) decides,
	// so a 5s request downsamples despite the outlier gap.
	records := secondlyRecords(20, 1)
	records = append(records, rec(viewBase+3600, map[string]float64{"temp": 99}))
	ds := viewDataset(records)
	start, end, _ := ds.TimeRange()

	view := View(ds, start, end, 5*time.Second)
	assert.Less(t, view.Len(), ds.Len())

	// The lone record after the gap survives as its own bucket.
	last := view.Records[view.Len()-1]
	assert.Equal(t, 99.0, last.Fields["temp"])
}

func TestView_DownsampleAveragesCoordinates(t *testing.T) {
	lat1, lat2 := 41.0, 43.0
	records := []ingest.Record{
		{Time: time.Unix(viewBase, 0).UTC(), Latitude: &lat1, Fields: map[string]float64{"temp": 1}},
		{Time: time.Unix(viewBase+1, 0).UTC(), Latitude: &lat2, Fields: map[string]float64{"temp": 3}},
		{Time: time.Unix(viewBase+2, 0).UTC(), Fields: map[string]float64{"temp": 5}},
	}
	ds := viewDataset(records)

	view := View(ds, time.Unix(viewBase, 0), time.Unix(viewBase+2, 0), 10*time.Second)
	require.Equal(t, 1, view.Len())

	bucket := view.Records[0]
	assert.InDelta(t, 3.0, bucket.Fields["temp"], 1e-9)
	require.NotNil(t, bucket.Latitude, "rows without a fix must not drag the average")
	assert.InDelta(t, 42.0, *bucket.Latitude, 1e-9)
	assert.Nil(t, bucket.Longitude)
}

func TestView_DoesNotMutateDataset(t *testing.T) {
	ds := viewDataset(secondlyRecords(50, 1))
	before := len(ds.Records)
	firstBefore := ds.Records[0].Fields["temp"]

	start, end, _ := ds.TimeRange()
	_ = View(ds, start, end, 10*time.Second)

	assert.Equal(t, before, len(ds.Records))
	assert.Equal(t, firstBefore, ds.Records[0].Fields["temp"])
}
