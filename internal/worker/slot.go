package worker

import (
	"sync"
	"time"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

// Slot is the observable per-worker state: current stage, current job,
// retry counter for the running stage, counters and last error. It exists
// for the lifetime of the worker loop and is reset at the start of each
// job iteration.
type Slot struct {
	mu sync.Mutex

	name         string
	stage        domain.Stage
	jobID        string
	attempt      int
	jobsDone     uint64
	jobsFailed   uint64
	lastError    string
	lastActivity time.Time
}

// SlotSnapshot is a point-in-time copy of a Slot, safe to serialize.
type SlotSnapshot struct {
	Worker       string       `json:"worker"`
	Stage        domain.Stage `json:"stage"`
	JobID        string       `json:"job_id,omitempty"`
	Attempt      int          `json:"attempt,omitempty"`
	JobsDone     uint64       `json:"jobs_done"`
	JobsFailed   uint64       `json:"jobs_failed"`
	LastError    string       `json:"last_error,omitempty"`
	LastActivity time.Time    `json:"last_activity"`
}

func newSlot(name string) *Slot {
	return &Slot{
		name:         name,
		stage:        domain.StageIdle,
		lastActivity: time.Now(),
	}
}

func (s *Slot) setStage(stage domain.Stage, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
	s.jobID = jobID
	s.attempt = 0
	s.lastActivity = time.Now()
}

func (s *Slot) setAttempt(attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt = attempt
	s.lastActivity = time.Now()
}

func (s *Slot) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
	s.lastActivity = time.Now()
}

func (s *Slot) jobDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobsDone++
	s.lastActivity = time.Now()
}

func (s *Slot) jobFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobsFailed++
	s.lastActivity = time.Now()
}

// Snapshot returns a copy of the slot state.
func (s *Slot) Snapshot() SlotSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SlotSnapshot{
		Worker:       s.name,
		Stage:        s.stage,
		JobID:        s.jobID,
		Attempt:      s.attempt,
		JobsDone:     s.jobsDone,
		JobsFailed:   s.jobsFailed,
		LastError:    s.lastError,
		LastActivity: s.lastActivity,
	}
}

func (s *Slot) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage != domain.StageIdle && s.stage != domain.StageFetching
}
