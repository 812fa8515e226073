// Package notify posts terminal job failures to an optional Discord
// webhook. Notification failures are logged and never affect the pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// DiscordNotifier sends a message per finally-failed job. A zero webhook
// URL disables it.
type DiscordNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDiscordNotifier creates a notifier for the given webhook URL.
func NewDiscordNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *DiscordNotifier) Enabled() bool {
	return n.webhookURL != ""
}

type webhookPayload struct {
	Content string `json:"content"`
}

// JobFailed posts the final failure of a job. Best effort: errors are
// logged, not returned up the pipeline.
func (n *DiscordNotifier) JobFailed(ctx context.Context, jobID, reason string) {
	if !n.Enabled() {
		return
	}

	body, err := json.Marshal(webhookPayload{
		Content: fmt.Sprintf("Narration job %s failed: %s", jobID, reason),
	})
	if err != nil {
		n.logger.Warn("Failed to build webhook payload",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("Failed to build webhook request",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("Webhook notification failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		n.logger.Warn("Webhook notification rejected",
			slog.String("job_id", jobID),
			slog.Int("status", resp.StatusCode),
		)
		return
	}

	n.logger.Debug("Webhook notification sent",
		slog.String("job_id", jobID),
	)
}
