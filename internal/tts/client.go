// Package tts implements the client for the Orpheus-compatible speech
// synthesis service and the voice selection rules.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

const (
	apiSpeech = "/v1/audio/speech"

	modelOrpheus   = "orpheus"
	responseFormat = "wav"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// speechRequest is the JSON payload of the synthesis endpoint.
type speechRequest struct {
	Input          string  `json:"input"`
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// Client calls the TTS service. Safe for concurrent use by every worker
// in the pool; each call is bounded by the configured timeout.
type Client struct {
	baseURL    string
	speed      float64
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a synthesis client. timeout bounds each synthesis
// call; it comes from ORPHEUS_API_TIMEOUT.
func NewClient(baseURL string, speed float64, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) *Client {
	if speed <= 0 {
		speed = 1.0
	}

	return &Client{
		baseURL:    baseURL,
		speed:      speed,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Synthesize turns text into raw WAV bytes using the given voice. Timeouts
// and 5xx answers are retryable; a malformed request (4xx) is fatal for
// the job.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, domain.Fatal(fmt.Errorf("%w: empty text", domain.ErrSynthesis))
	}

	body, err := json.Marshal(speechRequest{
		Input:          text,
		Model:          modelOrpheus,
		Voice:          voice,
		ResponseFormat: responseFormat,
		Speed:          c.speed,
	})
	if err != nil {
		return nil, domain.Fatal(fmt.Errorf("%w: %v", domain.ErrSynthesis, err))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+apiSpeech, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Fatal(fmt.Errorf("%w: %v", domain.ErrSynthesis, err))
	}
	req.Header.Set(headerContentType, contentTypeJSON)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Covers network failures and the call timeout, both transient.
		return nil, domain.Retryable(fmt.Errorf("%w: %v", domain.ErrSynthesis, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		stageErr := fmt.Errorf("%w: status %d: %s", domain.ErrSynthesis, resp.StatusCode, detail)

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, domain.Retryable(stageErr)
		}
		return nil, domain.Fatal(stageErr)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("%w: reading audio: %v", domain.ErrSynthesis, err))
	}

	if len(audio) == 0 {
		return nil, domain.Retryable(fmt.Errorf("%w: received empty audio", domain.ErrSynthesis))
	}

	c.logger.Info("Speech synthesized",
		slog.String("voice", voice),
		slog.Int("bytes", len(audio)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return audio, nil
}
