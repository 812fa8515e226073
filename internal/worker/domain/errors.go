package domain

import "errors"

var (
	// ErrNoJobAvailable is returned by a fetch when the remote queue is
	// empty. It is not a failure; the caller backs off and polls again.
	ErrNoJobAvailable = errors.New("no narration available for audio generation")

	// ErrUnauthorized is returned when the API rejects the cached
	// credential (401). The worker discards it and re-authenticates.
	ErrUnauthorized = errors.New("credential rejected by API")

	// ErrAuth is the base error for a failed login or verification exchange.
	ErrAuth = errors.New("authentication failed")

	// ErrSynthesis is the base error for a failed TTS call.
	ErrSynthesis = errors.New("speech synthesis failed")

	// ErrAudioProcessing is the base error for an unparsable or truncated
	// synthesis result.
	ErrAudioProcessing = errors.New("audio processing failed")

	// ErrUpload is the base error for a failed object storage upload.
	ErrUpload = errors.New("audio upload failed")

	// ErrAPIUpdate is the base error for a failed result report. When its
	// retries exhaust the job is logged as orphaned, never crashed on.
	ErrAPIUpdate = errors.New("result report failed")
)

// RetryableError marks a transient failure eligible for bounded retry.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// FatalError marks a failure where retrying is pointless or unsafe. The
// retry policy aborts immediately without consuming remaining attempts.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as transient. Returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Fatal wraps err as non-transient. Returns nil for a nil err.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsRetryable reports whether err is marked transient.
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// IsFatal reports whether err is marked non-transient.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
