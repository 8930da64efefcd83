package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/repository"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
)

// Recorder writes execution results to the audit store off the hot path.
// A single consumer goroutine drains a bounded queue, so entries for one shop
// land in the order its schedules were attempted. Failed or dropped writes
// are logged and never surface to the caller.
type Recorder struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	queue  chan entry
	wg     sync.WaitGroup
}

type entry struct {
	runID  string
	result domain.ExecutionResult
}

func NewRecorder(repo repository.AuditRepository, logger *slog.Logger) *Recorder {
	r := &Recorder{
		repo:   repo,
		logger: logger.With("component", "audit"),
		queue:  make(chan entry, queueSize),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.repo.InsertResult(ctx, e.runID, &e.result); err != nil {
			r.logger.Warn("audit write failed", "schedule_id", e.result.ScheduleID, "error", err)
		}
		cancel()
	}
}

// Record enqueues one execution result. Never blocks: when the queue is full
// the entry is dropped with a warning.
func (r *Recorder) Record(runID string, result domain.ExecutionResult) {
	select {
	case r.queue <- entry{runID: runID, result: result}:
	default:
		r.logger.Warn("audit queue full, dropping entry", "schedule_id", result.ScheduleID)
	}
}

// RecordRun writes the run-level activity row off the caller's path. The
// write is tracked so Close waits for it; a shutdown right after a run must
// not lose the summary row.
func (r *Recorder) RecordRun(summary domain.RunSummary) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.repo.InsertRun(ctx, &summary); err != nil {
			r.logger.Warn("run audit write failed", "run_id", summary.RunID, "error", err)
		}
	}()
}

// Close stops accepting entries and waits for the queue to drain.
func (r *Recorder) Close() {
	close(r.queue)
	r.wg.Wait()
}
