// Package refresh runs the single background loop that keeps the dataset
// store current. Exactly one scheduler runs per process; running more
// than one is disallowed by the deployment contract (single worker) and
// is not guarded against here.
package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/blongworth/locness-dash/internal/backend"
	"github.com/blongworth/locness-dash/internal/dataset"
	"github.com/blongworth/locness-dash/internal/log"
)

// Scheduler periodically asks the store to refresh from its backend.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *dataset.Store
	interval  time.Duration
}

func New(store *dataset.Store, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// A slow backend call must delay the next cycle, never overlap it.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
	}
}

// Start schedules the refresh job and begins running it in the
// background.
func (s *Scheduler) Start() error {
	secs := int(s.interval.Seconds())
	if secs <= 0 {
		secs = 10
	}

	_, err := s.scheduler.Every(secs).Seconds().Do(func() {
		s.RunCycle(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Logger.Infof("refresh scheduler started, interval %ds", secs)
	return nil
}

// RunCycle performs one fetch-normalize-merge pass. Transient backend
// failures are logged and absorbed; the dataset simply stops advancing
// until the backend comes back.
func (s *Scheduler) RunCycle(ctx context.Context) {
	records, err := s.store.Refresh(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			log.Logger.Warnf("refresh: backend unavailable, retrying next cycle: %v", err)
			return
		}
		log.Logger.Errorf("refresh failed: %v", err)
		return
	}
	if len(records) > 0 {
		log.Logger.Infof("refresh: merged %d new records", len(records))
	} else {
		log.Logger.Debug("refresh: no new records")
	}
}

// Stop halts the loop cooperatively; an in-flight cycle finishes its
// merge before the scheduler returns.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	log.Logger.Info("refresh scheduler stopped")
}
