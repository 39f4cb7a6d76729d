package sync

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/store"
)

// Destination is the interface for a snapshot target (S3, git, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
	// Name identifies the destination in logs.
	Name() string
}

// Status reports the outcome of the most recent sync.
type Status struct {
	SnapshotID string    `json:"snapshot_id,omitempty"`
	At         time.Time `json:"at,omitempty"`
	Issues     int       `json:"issues"`
	Failed     int       `json:"failed_destinations"`
	Err        string    `json:"error,omitempty"`
}

// Scheduler runs periodic snapshot exports to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu   sync.Mutex
	last Status

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
	}
}

// Start begins periodic sync. It runs an initial sync immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current sync (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// LastStatus returns the outcome of the most recent sync.
func (s *Scheduler) LastStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports a snapshot and writes it to every destination.
func (s *Scheduler) SyncOnce(ctx context.Context) Status {
	at := s.now().UTC()
	status := Status{At: at}

	var buf bytes.Buffer
	sum, err := ExportJSONL(ctx, s.store, &buf, at)
	if err != nil {
		s.logger.Error("snapshot export failed", "err", err)
		status.Err = err.Error()
		s.record(status)
		return status
	}
	status.SnapshotID = sum.SnapshotID
	status.Issues = sum.Issues
	data := buf.Bytes()

	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			status.Failed++
			s.logger.Error("snapshot destination write failed",
				"destination", dest.Name(), "snapshot", sum.SnapshotID, "err", err)
		}
	}

	s.logger.Info("snapshot sync completed",
		"snapshot", sum.SnapshotID,
		"issues", sum.Issues,
		"destinations", len(s.destinations),
		"failed", status.Failed,
		"bytes", len(data))
	s.record(status)
	return status
}

func (s *Scheduler) record(st Status) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
}
