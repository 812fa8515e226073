package domain

import "time"

// NarrationJob is a pending narration claimed from the remote job API.
// It is read-only on the worker side; the server owns its lifecycle.
type NarrationJob struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Gender string `json:"gender"`
	Status string `json:"status"`
}

// Credential is the bearer token obtained by the login+verify exchange.
// Each worker owns its own Credential and discards it when the API
// answers 401.
type Credential struct {
	Token    string
	IssuedAt time.Time
}

// Valid reports whether the credential can be sent with an authenticated call.
func (c Credential) Valid() bool {
	return c.Token != ""
}

// AudioArtifact is the local WAV produced for one job. It never outlives
// the job: cleanup removes it at the end of the pipeline regardless of
// outcome.
type AudioArtifact struct {
	Path     string
	Size     int64
	Duration float64
	Encoding string
}

// UploadResult describes the hosted audio object after a successful upload.
type UploadResult struct {
	URL         string
	Size        int64
	ContentType string
}

// Report outcome statuses accepted by the job API.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Outcome is the terminal result reported for a claimed job. Exactly one
// Outcome is reported per job, success or failure.
type Outcome struct {
	Status   string  `json:"status"`
	AudioURL string  `json:"audio_file_url,omitempty"`
	Duration float64 `json:"audio_duration,omitempty"`
	Size     int64   `json:"audio_size,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// SuccessOutcome builds the report payload for a completed job.
func SuccessOutcome(upload *UploadResult, duration float64) Outcome {
	return Outcome{
		Status:   OutcomeSuccess,
		AudioURL: upload.URL,
		Duration: duration,
		Size:     upload.Size,
	}
}

// FailureOutcome builds the report payload for a job that failed a stage.
func FailureOutcome(reason string) Outcome {
	return Outcome{
		Status: OutcomeFailed,
		Reason: reason,
	}
}
