package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contentops/scheduler/notify"
	"github.com/contentops/scheduler/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotice() domain.ScheduledContentNotice {
	return domain.ScheduledContentNotice{
		ScheduleID:  "sched-1",
		ContentType: domain.ContentTypeBanner,
		ContentID:   "banner-1",
		Action:      domain.NotificationActionPublished,
		When:        time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC),
		Message:     "banner banner-1 published",
	}
}

func TestWebhookSinkDeliversJSON(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := notify.NewWebhookSink(server.URL)
	require.NoError(t, sink.NotifyScheduledContent(context.Background(), sampleNotice()))

	assert.Equal(t, "sched-1", received["schedule_id"])
	assert.Equal(t, "banner", received["content_type"])
	assert.Equal(t, "published", received["action"])
	assert.Equal(t, "2026-06-10T12:00:00Z", received["when"])
}

func TestWebhookSinkReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := notify.NewWebhookSink(server.URL)
	err := sink.NotifyScheduledContent(context.Background(), sampleNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type flakySink struct {
	calls int
	fail  bool
}

func (s *flakySink) NotifyScheduledContent(context.Context, domain.ScheduledContentNotice) error {
	s.calls++
	if s.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func TestFanoutSuppressesSinkFailures(t *testing.T) {
	bad := &flakySink{fail: true}
	good := &flakySink{}

	fanout := notify.NewFanout(bad, good)
	require.NoError(t, fanout.NotifyScheduledContent(context.Background(), sampleNotice()))

	// The failing sink never blocks the one after it.
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
}
