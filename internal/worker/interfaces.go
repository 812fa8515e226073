// Package worker implements the narration pipeline state machine and the
// fixed-size pool that runs it. Each worker independently cycles through
// authenticate, fetch, synthesize, process, upload, report, cleanup; one
// worker's failure never affects another.
package worker

import (
	"context"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

// JobAPI is the remote job API surface the pipeline depends on.
type JobAPI interface {
	Login(ctx context.Context) (domain.Credential, error)
	FetchNextJob(ctx context.Context, cred domain.Credential) (*domain.NarrationJob, error)
	ReportResult(ctx context.Context, cred domain.Credential, jobID string, outcome domain.Outcome) error
}

// Synthesizer turns text into raw audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// VoiceSelector resolves the voice for a job, once, before synthesis.
type VoiceSelector interface {
	Pick(requested, gender string) string
}

// AudioProcessor derives duration metadata and manages the local artifact.
type AudioProcessor interface {
	Process(jobID string, raw []byte) (*domain.AudioArtifact, error)
	Cleanup(artifact *domain.AudioArtifact)
}

// Uploader puts a finished artifact into object storage.
type Uploader interface {
	Upload(ctx context.Context, artifact *domain.AudioArtifact, jobID string) (*domain.UploadResult, error)
}

// FailureNotifier is told about a job's final failure. Best effort.
type FailureNotifier interface {
	JobFailed(ctx context.Context, jobID, reason string)
}

// Deps bundles the collaborators shared by every worker in the pool. The
// API, synthesizer and uploader must be safe for concurrent use.
type Deps struct {
	API      JobAPI
	Synth    Synthesizer
	Voices   VoiceSelector
	Audio    AudioProcessor
	Uploader Uploader
	Notifier FailureNotifier
}
