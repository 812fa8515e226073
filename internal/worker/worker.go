package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/orpheus-audio/narration-worker/internal/retry"
	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

// Worker runs one narration at a time through the pipeline. It owns its
// Credential and its current job's artifact; nothing it holds is shared
// with other workers.
type Worker struct {
	name   string
	deps   Deps
	slot   *Slot
	logger *slog.Logger

	policy       retry.Policy
	jobTimeout   time.Duration
	pollInterval time.Duration

	cred domain.Credential
}

func newWorker(name string, deps Deps, policy retry.Policy, jobTimeout, pollInterval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		name:         name,
		deps:         deps,
		slot:         newSlot(name),
		logger:       logger.With(slog.String("worker", name)),
		policy:       policy,
		jobTimeout:   jobTimeout,
		pollInterval: pollInterval,
	}
}

// run is the worker loop. It exits only on ctx cancellation; no job
// failure terminates it. A fatal authentication failure pauses the loop
// for the job timeout and tries again.
func (w *Worker) run(ctx context.Context) {
	w.logger.Info("Worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info("Worker stopping - context canceled")
			return
		}

		if !w.cred.Valid() {
			if !w.authenticate(ctx) {
				continue
			}
		}

		w.slot.setStage(domain.StageFetching, "")

		job, err := w.deps.API.FetchNextJob(ctx, w.cred)
		if err != nil {
			w.handleFetchError(ctx, err)
			continue
		}

		w.processJob(ctx, job)
		w.slot.setStage(domain.StageIdle, "")
	}
}

// authenticate runs the login+verify exchange under the retry policy.
// Returns false when the loop should re-check cancellation before
// continuing.
func (w *Worker) authenticate(ctx context.Context) bool {
	w.slot.setStage(domain.StageAuthenticating, "")

	var cred domain.Credential
	err := w.policy.Do(ctx, func(ctx context.Context) error {
		var loginErr error
		cred, loginErr = w.deps.API.Login(ctx)
		return loginErr
	})

	if err != nil {
		if ctx.Err() != nil {
			return false
		}

		w.slot.recordError(err)
		w.logger.Error("Authentication failed, pausing before retry",
			slog.String("error", err.Error()),
			slog.Duration("pause", w.jobTimeout),
		)
		sleepCtx(ctx, w.jobTimeout)
		return false
	}

	w.cred = cred
	return true
}

func (w *Worker) handleFetchError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoJobAvailable):
		// An empty queue is not an error; back off before polling again.
		w.slot.setStage(domain.StageIdle, "")
		sleepCtx(ctx, w.pollInterval)

	case errors.Is(err, domain.ErrUnauthorized):
		w.logger.Warn("Credential rejected, re-authenticating")
		w.cred = domain.Credential{}

	case ctx.Err() != nil:
		// Canceled mid-fetch; the loop exits on the next check.

	default:
		w.slot.recordError(err)
		w.logger.Error("Failed to fetch narration",
			slog.String("error", err.Error()),
		)
		sleepCtx(ctx, w.pollInterval)
	}
}

// processJob runs a claimed narration through synthesize, process, upload
// and report. The job is bounded by the worker timeout and shielded from
// shutdown cancellation: once claimed it finishes (or times out) so the
// remote job is never silently abandoned mid-upload.
func (w *Worker) processJob(parent context.Context, job *domain.NarrationJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.jobTimeout)
	defer cancel()

	w.logger.Info("Processing narration",
		slog.String("job_id", job.ID),
	)

	var artifact *domain.AudioArtifact
	defer func() {
		w.slot.setStage(domain.StageCleanup, job.ID)
		w.deps.Audio.Cleanup(artifact)
	}()

	voice := w.deps.Voices.Pick(job.Voice, job.Gender)

	var raw []byte
	err := w.retryStage(ctx, domain.StageSynthesizing, job.ID, func(ctx context.Context) error {
		var synthErr error
		raw, synthErr = w.deps.Synth.Synthesize(ctx, job.Text, voice)
		return synthErr
	})
	if err != nil {
		w.reportFailure(ctx, job, err)
		return
	}

	err = w.retryStage(ctx, domain.StageProcessingAudio, job.ID, func(ctx context.Context) error {
		var procErr error
		artifact, procErr = w.deps.Audio.Process(job.ID, raw)
		return procErr
	})
	if err != nil {
		w.reportFailure(ctx, job, err)
		return
	}

	var upload *domain.UploadResult
	err = w.retryStage(ctx, domain.StageUploading, job.ID, func(ctx context.Context) error {
		var uploadErr error
		upload, uploadErr = w.deps.Uploader.Upload(ctx, artifact, job.ID)
		return uploadErr
	})
	if err != nil {
		w.reportFailure(ctx, job, err)
		return
	}

	w.slot.setStage(domain.StageReporting, job.ID)
	w.report(ctx, job, domain.SuccessOutcome(upload, artifact.Duration))
	w.slot.jobDone()

	w.logger.Info("Narration completed",
		slog.String("job_id", job.ID),
		slog.String("url", upload.URL),
		slog.Float64("duration_seconds", artifact.Duration),
	)
}

// retryStage executes one pipeline stage under the retry policy, tracking
// the attempt counter on the slot and logging each failed attempt.
func (w *Worker) retryStage(ctx context.Context, stage domain.Stage, jobID string, op retry.Operation) error {
	w.slot.setStage(stage, jobID)

	attempt := 0
	err := w.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		w.slot.setAttempt(attempt)

		opErr := op(ctx)
		if opErr != nil {
			w.logger.Warn("Stage attempt failed",
				slog.String("stage", string(stage)),
				slog.String("job_id", jobID),
				slog.Int("attempt", attempt),
				slog.String("error", opErr.Error()),
			)
		}
		return opErr
	})

	if err != nil {
		w.slot.recordError(err)
	}
	return err
}

// reportFailure takes the FAILED_REPORTING branch: exactly one failure
// report for the claimed job, then the optional webhook notification.
func (w *Worker) reportFailure(ctx context.Context, job *domain.NarrationJob, stageErr error) {
	w.slot.setStage(domain.StageFailedReporting, job.ID)
	w.slot.jobFailed()

	reason := stageErr.Error()
	w.logger.Error("Narration failed",
		slog.String("job_id", job.ID),
		slog.String("reason", reason),
	)

	w.report(ctx, job, domain.FailureOutcome(reason))

	if w.deps.Notifier != nil {
		w.deps.Notifier.JobFailed(ctx, job.ID, reason)
	}
}

// report delivers the terminal outcome under the retry policy. A 401
// mid-report forces a re-login and counts as a transient failure. When
// retries exhaust the job is logged as orphaned; the worker moves on.
func (w *Worker) report(ctx context.Context, job *domain.NarrationJob, outcome domain.Outcome) {
	err := w.policy.Do(ctx, func(ctx context.Context) error {
		if !w.cred.Valid() {
			cred, loginErr := w.deps.API.Login(ctx)
			if loginErr != nil {
				return loginErr
			}
			w.cred = cred
		}

		reportErr := w.deps.API.ReportResult(ctx, w.cred, job.ID, outcome)
		if errors.Is(reportErr, domain.ErrUnauthorized) {
			w.cred = domain.Credential{}
			return domain.Retryable(reportErr)
		}
		return reportErr
	})

	if err != nil {
		w.slot.recordError(err)
		w.logger.Error("Report failed, narration left orphaned",
			slog.String("job_id", job.ID),
			slog.String("status", outcome.Status),
			slog.String("error", err.Error()),
		)
	}
}

// sleepCtx waits for d or until ctx is canceled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
