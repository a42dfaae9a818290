package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SlackNotifier posts plain-text messages to an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

func NewSlackNotifier(webhookURL string, log *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

// Notify never fails the caller; problems are logged.
func (s *SlackNotifier) Notify(ctx context.Context, text string) {
	// A broken webhook must not take down the request that triggered it.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Slack panic recovered", zap.Any("panic", r))
		}
	}()

	if s.webhookURL == "" {
		s.log.Debug("Slack skipped: SLACK_WEBHOOK_URL not set")
		return
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		s.log.Error("Error marshaling Slack payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		s.log.Error("Error building Slack request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("Error sending Slack request", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.log.Warn("Slack API error", zap.Int("status", resp.StatusCode))
		return
	}
	s.log.Debug("Slack notification sent")
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string) {}

func commitmentNotice(email string, amount float64, tier string, tokens float64) string {
	return fmt.Sprintf("💰 New presale commitment\n\nEmail: %s\nAmount: $%.2f\nTier: %s\nEst. tokens: %s",
		email, amount, tier, FormatTokens(tokens))
}

func contactNotice(name, email, subject string) string {
	return fmt.Sprintf("📬 New contact message\n\nFrom: %s <%s>\nSubject: %s", name, email, subject)
}
