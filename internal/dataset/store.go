package dataset

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blongworth/locness-dash/internal/backend"
	"github.com/blongworth/locness-dash/internal/ingest"
	"github.com/blongworth/locness-dash/internal/log"
)

// Store holds the current Dataset and the last-seen-timestamp cursor.
// There is a single writer (the refresh scheduler); merges are serialized
// by mu and publish a fully built Dataset with one atomic pointer swap,
// so any number of readers can take snapshots without blocking the
// writer or ever observing a half-merged table.
type Store struct {
	adapter backend.Adapter

	mu        sync.Mutex // serializes writers; guards cursor and pending
	cursor    time.Time
	hasCursor bool
	pending   []ingest.Record
	refreshed time.Time

	current atomic.Pointer[Dataset]
}

func NewStore(adapter backend.Adapter) *Store {
	s := &Store{adapter: adapter}
	s.current.Store(newDataset(nil))
	return s
}

// Backend returns the name of the adapter feeding this store.
func (s *Store) Backend() string { return s.adapter.Name() }

// InitialLoad fetches the backend's full history, replaces the dataset
// wholesale, and seeds the cursor from the newest record (left unset when
// the backend is empty). Called once at startup.
func (s *Store) InitialLoad(ctx context.Context) error {
	rows, err := s.adapter.Fetch(ctx, nil)
	if err != nil {
		return err
	}
	records := sortAndDedupe(ingest.Normalize(rows))
	ds := newDataset(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := ds.Latest(); ok {
		s.cursor = last.Time
		s.hasCursor = true
	}
	s.refreshed = time.Now().UTC()
	s.current.Store(ds)

	log.Logger.Infof("initial load: %d records from %s", ds.Len(), s.adapter.Name())
	return nil
}

// Refresh fetches rows newer than the cursor, normalizes them, and merges
// them in. It returns the records it merged so the caller can decide
// whether anything changed. Backend errors propagate untouched; the
// dataset and cursor are left as they were.
func (s *Store) Refresh(ctx context.Context) ([]ingest.Record, error) {
	var since *time.Time
	s.mu.Lock()
	if s.hasCursor {
		c := s.cursor
		since = &c
	}
	s.mu.Unlock()

	rows, err := s.adapter.Fetch(ctx, since)
	if err != nil {
		return nil, err
	}
	records := ingest.Normalize(rows)
	s.Merge(records)
	return records, nil
}

// Merge appends new records into the dataset, keeping it sorted by time
// with unique timestamps (latest appended wins on a duplicate), and
// advances the cursor to the newest merged timestamp. The cursor never
// rewinds: late rows with timestamps at or before it still merge, they
// just don't move it. Empty input is a no-op.
func (s *Store) Merge(records []ingest.Record) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	merged := make([]ingest.Record, 0, len(cur.Records)+len(records))
	merged = append(merged, cur.Records...)
	merged = append(merged, records...)
	ds := newDataset(sortAndDedupe(merged))

	maxTime := records[0].Time
	for _, rec := range records[1:] {
		if rec.Time.After(maxTime) {
			maxTime = rec.Time
		}
	}
	if !s.hasCursor || maxTime.After(s.cursor) {
		s.cursor = maxTime
		s.hasCursor = true
	}

	s.pending = append(s.pending, records...)
	s.refreshed = time.Now().UTC()

	// Publish only after the new table is complete.
	s.current.Store(ds)
}

// Snapshot returns the current dataset. The returned value is immutable;
// concurrent merges publish new datasets and never touch old ones.
func (s *Store) Snapshot() *Dataset {
	return s.current.Load()
}

// GetNewData drains and returns the records merged since the previous
// call. The dashboard update path uses it to decide whether to redraw.
func (s *Store) GetNewData() []ingest.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Fields returns the current field catalog.
func (s *Store) Fields() []string {
	return s.current.Load().Fields()
}

// Cursor returns the last-seen timestamp, or false before any data has
// been ingested.
func (s *Store) Cursor() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.hasCursor
}

// LastRefresh returns when the store last completed a load or merge.
func (s *Store) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed
}
