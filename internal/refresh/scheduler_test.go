package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blongworth/locness-dash/internal/backend"
	"github.com/blongworth/locness-dash/internal/dataset"
)

type stubAdapter struct {
	mu   sync.Mutex
	rows []backend.Row
	err  error
}

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) Fetch(ctx context.Context, since *time.Time) ([]backend.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []backend.Row
	for _, row := range s.rows {
		if since != nil {
			epoch := row[backend.TimeColumn].(int64)
			if !time.Unix(epoch, 0).After(*since) {
				continue
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func TestRunCycle_MergesNewRecords(t *testing.T) {
	adapter := &stubAdapter{rows: []backend.Row{
		{backend.TimeColumn: int64(1700000000), "temp": 14.0},
	}}
	store := dataset.NewStore(adapter)
	require.NoError(t, store.InitialLoad(context.Background()))

	scheduler := New(store, time.Second)

	adapter.mu.Lock()
	adapter.rows = append(adapter.rows, backend.Row{backend.TimeColumn: int64(1700000060), "temp": 14.2})
	adapter.mu.Unlock()

	scheduler.RunCycle(context.Background())

	assert.Equal(t, 2, store.Snapshot().Len())
	cursor, ok := store.Cursor()
	require.True(t, ok)
	assert.True(t, cursor.Equal(time.Unix(1700000060, 0).UTC()))
}

func TestRunCycle_AbsorbsBackendUnavailable(t *testing.T) {
	adapter := &stubAdapter{rows: []backend.Row{
		{backend.TimeColumn: int64(1700000000), "temp": 14.0},
	}}
	store := dataset.NewStore(adapter)
	require.NoError(t, store.InitialLoad(context.Background()))

	adapter.mu.Lock()
	adapter.err = backend.ErrUnavailable
	adapter.mu.Unlock()

	scheduler := New(store, time.Second)

	// A failing backend must not panic or disturb the dataset; the loop
	// just tries again next cycle.
	scheduler.RunCycle(context.Background())
	scheduler.RunCycle(context.Background())

	assert.Equal(t, 1, store.Snapshot().Len())

	// Backend recovers; the following cycle catches up.
	adapter.mu.Lock()
	adapter.err = nil
	adapter.rows = append(adapter.rows, backend.Row{backend.TimeColumn: int64(1700000060), "temp": 14.2})
	adapter.mu.Unlock()

	scheduler.RunCycle(context.Background())
	assert.Equal(t, 2, store.Snapshot().Len())
}

func TestSchedulerStartStop(t *testing.T) {
	store := dataset.NewStore(&stubAdapter{})
	scheduler := New(store, time.Second)

	require.NoError(t, scheduler.Start())
	scheduler.Stop()
}
