package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orpheus-audio/narration-worker/internal/retry"
)

// ManagerConfig holds pool sizing and pipeline timing.
type ManagerConfig struct {
	Workers      int
	RetryPolicy  retry.Policy
	JobTimeout   time.Duration
	PollInterval time.Duration
}

// Manager owns a fixed-size pool of workers sharing one set of
// collaborators, supervises their lifecycle and coordinates shutdown.
type Manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	managerID string
	workers   []*Worker

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// StatusReport is the aggregate pool status served on demand.
type StatusReport struct {
	Workers    []SlotSnapshot `json:"workers"`
	Active     int            `json:"active"`
	JobsDone   uint64         `json:"jobs_done"`
	JobsFailed uint64         `json:"jobs_failed"`
}

// NewManager builds the pool. Every worker shares deps; each gets its own
// slot and credential.
func NewManager(cfg ManagerConfig, deps Deps, logger *slog.Logger) *Manager {
	managerID := uuid.NewString()[:8]

	workers := make([]*Worker, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		name := fmt.Sprintf("worker-%s-%d", managerID, i)
		workers = append(workers, newWorker(name, deps, cfg.RetryPolicy, cfg.JobTimeout, cfg.PollInterval, logger))
	}

	return &Manager{
		cfg:       cfg,
		logger:    logger,
		managerID: managerID,
		workers:   workers,
	}
}

// Start spawns the worker goroutines. They stop when Stop is called or
// ctx is canceled.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.logger.Info("Spawning worker pool",
		slog.Int("workers", len(m.workers)),
		slog.String("manager_id", m.managerID),
	)

	for _, w := range m.workers {
		m.wg.Add(1)
		go func(w *Worker) {
			defer m.wg.Done()
			w.run(runCtx)
		}(w)
	}
}

// Stop drains the pool: no worker begins fetching a new job, workers
// mid-pipeline finish their current narration, and anything still running
// after the drain budget is abandoned with its job left unreported.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping worker pool")
		if m.cancel != nil {
			m.cancel()
		}

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			m.logger.Info("Worker pool stopped")
		case <-time.After(m.cfg.JobTimeout):
			for _, w := range m.workers {
				if w.slot.busy() {
					snap := w.slot.Snapshot()
					m.logger.Warn("Worker exceeded drain budget, job left unreported",
						slog.String("worker", snap.Worker),
						slog.String("job_id", snap.JobID),
						slog.String("stage", string(snap.Stage)),
					)
				}
			}
		}
	})
}

// Status reports each worker's slot plus aggregate counters.
func (m *Manager) Status() StatusReport {
	report := StatusReport{
		Workers: make([]SlotSnapshot, 0, len(m.workers)),
	}

	for _, w := range m.workers {
		snap := w.slot.Snapshot()
		report.Workers = append(report.Workers, snap)
		report.JobsDone += snap.JobsDone
		report.JobsFailed += snap.JobsFailed
		if w.slot.busy() {
			report.Active++
		}
	}

	return report
}
