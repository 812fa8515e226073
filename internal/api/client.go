// Package api implements the client for the remote narration job API:
// the login+verify exchange, pending-job retrieval, and result reporting.
// The remote API is the single source of truth for job claiming; this
// client never holds more than the one job a call returned.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

// API endpoints and headers.
const (
	pathLogin     = "/twin/auth/login/"
	pathVerify    = "/twin/auth/verify/"
	pathNextJob   = "/twin/narrations/audio/"
	pathReportFmt = "/twin/narrations/%s/audio/"

	headerAPIKey      = "X-API-Key"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Client talks to the remote job API. The embedded *http.Client is shared
// across all workers and is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a job API client. httpClient is shared by every worker
// in the pool; pass one with the desired overall timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login performs the login+verification exchange and returns a bearer
// Credential. Invalid credentials or a failed verification are fatal;
// transient network failures and 5xx answers are retryable.
func (c *Client) Login(ctx context.Context) (domain.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathLogin, http.NoBody)
	if err != nil {
		return domain.Credential{}, domain.Fatal(fmt.Errorf("%w: %v", domain.ErrAuth, err))
	}
	req.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Credential{}, domain.Retryable(fmt.Errorf("%w: %v", domain.ErrAuth, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Credential{}, classifyAuthStatus(resp)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return domain.Credential{}, domain.Fatal(fmt.Errorf("%w: malformed login response: %v", domain.ErrAuth, err))
	}

	if login.Token == "" {
		return domain.Credential{}, domain.Fatal(fmt.Errorf("%w: login response missing token", domain.ErrAuth))
	}

	cred := domain.Credential{Token: login.Token, IssuedAt: time.Now()}

	if err := c.verify(ctx, cred); err != nil {
		return domain.Credential{}, err
	}

	c.logger.Info("Authenticated against job API")

	return cred, nil
}

// verify confirms the issued token before it is used for job traffic.
func (c *Client) verify(ctx context.Context, cred domain.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathVerify, http.NoBody)
	if err != nil {
		return domain.Fatal(fmt.Errorf("%w: %v", domain.ErrAuth, err))
	}
	setAuth(req, cred)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Retryable(fmt.Errorf("%w: verification: %v", domain.ErrAuth, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyAuthStatus(resp)
	}

	return nil
}

// FetchNextJob retrieves the next pending narration. A 404 means the queue
// is empty and maps to domain.ErrNoJobAvailable; the caller backs off
// before polling again. A 401 maps to domain.ErrUnauthorized so the worker
// discards its credential and re-authenticates.
func (c *Client) FetchNextJob(ctx context.Context, cred domain.Credential) (*domain.NarrationJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathNextJob, http.NoBody)
	if err != nil {
		return nil, domain.Fatal(err)
	}
	setAuth(req, cred)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Retryable(fmt.Errorf("fetch narration: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNoJobAvailable
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrUnauthorized
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, domain.Retryable(fmt.Errorf("fetch narration: status %d: %s", resp.StatusCode, readBody(resp.Body)))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.Fatal(fmt.Errorf("fetch narration: status %d: %s", resp.StatusCode, readBody(resp.Body)))
	}

	var job domain.NarrationJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, domain.Fatal(fmt.Errorf("malformed narration payload: %w", err))
	}

	if _, err := uuid.Parse(job.ID); err != nil {
		return nil, domain.Fatal(fmt.Errorf("invalid narration id %q: %w", job.ID, err))
	}

	c.logger.Info("Narration retrieved",
		slog.String("job_id", job.ID),
		slog.Int("text_length", len(job.Text)),
	)

	return &job, nil
}

// ReportResult posts the terminal outcome for a claimed job. It must be
// called exactly once per job; transient failures are retryable
// APIUpdateErrors and the caller logs the job as orphaned on exhaustion.
func (c *Client) ReportResult(ctx context.Context, cred domain.Credential, jobID string, outcome domain.Outcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return domain.Fatal(fmt.Errorf("%w: %v", domain.ErrAPIUpdate, err))
	}

	url := c.baseURL + fmt.Sprintf(pathReportFmt, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Fatal(fmt.Errorf("%w: %v", domain.ErrAPIUpdate, err))
	}
	setAuth(req, cred)
	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Retryable(fmt.Errorf("%w: %v", domain.ErrAPIUpdate, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case resp.StatusCode >= http.StatusInternalServerError:
		return domain.Retryable(fmt.Errorf("%w: status %d: %s", domain.ErrAPIUpdate, resp.StatusCode, readBody(resp.Body)))
	case resp.StatusCode != http.StatusOK:
		return domain.Fatal(fmt.Errorf("%w: status %d: %s", domain.ErrAPIUpdate, resp.StatusCode, readBody(resp.Body)))
	}

	c.logger.Info("Narration result reported",
		slog.String("job_id", jobID),
		slog.String("status", outcome.Status),
	)

	return nil
}

func setAuth(req *http.Request, cred domain.Credential) {
	req.Header.Set("Authorization", "Bearer "+cred.Token)
}

// classifyAuthStatus maps a non-OK auth response: 5xx transient, anything
// else a fatal AuthError.
func classifyAuthStatus(resp *http.Response) error {
	body := readBody(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.Retryable(fmt.Errorf("%w: status %d: %s", domain.ErrAuth, resp.StatusCode, body))
	}
	return domain.Fatal(fmt.Errorf("%w: status %d: %s", domain.ErrAuth, resp.StatusCode, body))
}

// readBody drains a response body for error messages, capped so a huge
// error page cannot blow up a log line.
func readBody(r io.Reader) string {
	const maxErrBody = 2048

	data, err := io.ReadAll(io.LimitReader(r, maxErrBody))
	if err != nil {
		return ""
	}
	return string(data)
}
