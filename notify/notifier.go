// Package notify carries scheduler notifications out of the transition path.
// Delivery is fire-and-forget: a failed notice is logged and never rolls back
// a publish decision.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/sirupsen/logrus"
)

// LogSink writes notices to the application log. It is the default sink when
// no webhook is configured.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) NotifyScheduledContent(_ context.Context, n domain.ScheduledContentNotice) error {
	logrus.WithFields(logrus.Fields{
		"schedule_id":  n.ScheduleID,
		"content_type": n.ContentType,
		"content_id":   n.ContentID,
		"action":       n.Action,
		"when":         n.When,
		"actor":        n.Actor,
	}).Infof("[NOTIFY] %s", n.Message)
	return nil
}

// WebhookSink POSTs each notice as JSON to a configured URL. Failures are
// returned to the caller, which logs and suppresses them.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) NotifyScheduledContent(ctx context.Context, n domain.ScheduledContentNotice) error {
	payload := map[string]any{
		"schedule_id":  n.ScheduleID,
		"content_type": string(n.ContentType),
		"content_id":   n.ContentID,
		"action":       string(n.Action),
		"when":         n.When.UTC().Format(time.RFC3339),
		"actor":        n.Actor,
		"message":      n.Message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s responded %d", s.url, resp.StatusCode)
	}
	return nil
}

// Fanout delivers a notice to every sink, logging and suppressing failures.
type Fanout struct {
	sinks []domain.NotificationSink
}

func NewFanout(sinks ...domain.NotificationSink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) NotifyScheduledContent(ctx context.Context, n domain.ScheduledContentNotice) error {
	for _, sink := range f.sinks {
		if err := sink.NotifyScheduledContent(ctx, n); err != nil {
			logrus.WithError(err).Warnf("[NOTIFY] Sink delivery failed for schedule %s", n.ScheduleID)
		}
	}
	return nil
}
