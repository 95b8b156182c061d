package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// AlertWebhook delivers operator alerts to a Slack-compatible webhook.
type AlertWebhook interface {
	Post(ctx context.Context, message string, severity domain.AlertSeverity) error
}

type alertWebhook struct {
	log        *logger.Logger
	httpClient *http.Client
	url        string
}

// NewAlertWebhook returns a webhook poster, or nil when no URL is configured.
func NewAlertWebhook(log *logger.Logger, url string) AlertWebhook {
	if url == "" {
		return nil
	}
	return &alertWebhook{
		log:        log.With("service", "AlertWebhook"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
	}
}

var severityEmoji = map[domain.AlertSeverity]string{
	domain.SeverityInfo:     ":information_source:",
	domain.SeverityWarning:  ":warning:",
	domain.SeverityCritical: ":rotating_light:",
}

func (w *alertWebhook) Post(ctx context.Context, message string, severity domain.AlertSeverity) error {
	payload, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("%s [%s] %s", severityEmoji[severity], severity, message),
	})
	if err != nil {
		return err
	}

	operation := func() (struct{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if reqErr != nil {
			return struct{}{}, backoff.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := w.httpClient.Do(req)
		if doErr != nil {
			return struct{}{}, doErr
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return struct{}{}, fmt.Errorf("webhook status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return struct{}{}, backoff.Permanent(fmt.Errorf("webhook status %d", resp.StatusCode))
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(4),
	)
	if err != nil {
		w.log.Error("alert delivery failed", "severity", severity, "error", err)
		return err
	}
	return nil
}
