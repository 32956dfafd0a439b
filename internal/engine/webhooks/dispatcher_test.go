package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubhook/internal/engine/hooks"
	"pubhook/internal/engine/settings"
	"pubhook/internal/platform/config"
)

type mapStore map[string]string

func (s mapStore) Get(ctx context.Context, name string) (string, error) {
	return s[name], nil
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, name string) (string, error) {
	return "", errors.New("no such table: options")
}

func newTestDispatcher(t *testing.T, store settings.Store, overrides config.OverridesConfig) (*Dispatcher, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	resolver := settings.NewResolver(store, settings.NewOverrides(overrides))
	d := NewDispatcher(resolver, config.DispatchConfig{}, metrics)

	httpmock.ActivateNonDefault(d.Client())
	t.Cleanup(httpmock.DeactivateAndReset)
	return d, metrics
}

type captured struct {
	header http.Header
	body   []byte
}

func registerCapture(t *testing.T, url string, status int, into *[]captured) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodPost, url, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		*into = append(*into, captured{header: req.Header.Clone(), body: body})
		return httpmock.NewStringResponse(status, ""), nil
	})
}

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		store     mapStore
		overrides config.OverridesConfig
		status    string
		wantURL   string
		wantToken string
		want      Outcome
	}{
		{
			name:   "Draft Is Ignored",
			store:  mapStore{settings.OptionWebhookAddress: "https://api.github.com/repos/a/b/dispatches", settings.OptionWebhookToken: "tok"},
			status: "draft",
			want:   OutcomeSkippedStatus,
		},
		{
			name:   "Publish Is Case Sensitive",
			store:  mapStore{settings.OptionWebhookAddress: "https://x/y", settings.OptionWebhookToken: "tok"},
			status: "Publish",
			want:   OutcomeSkippedStatus,
		},
		{
			name:      "Publish With Stored Settings",
			store:     mapStore{settings.OptionWebhookAddress: "https://x/y", settings.OptionWebhookToken: "tok"},
			status:    "publish",
			wantURL:   "https://x/y",
			wantToken: "tok",
			want:      OutcomeSent,
		},
		{
			name:   "Publish Without Configuration",
			store:  mapStore{settings.OptionWebhookAddress: "", settings.OptionWebhookToken: ""},
			status: "publish",
			want:   OutcomeSkippedUnconfigured,
		},
		{
			name:      "Publish With Overrides",
			store:     mapStore{},
			overrides: config.OverridesConfig{API: "https://o/p", Token: "otok"},
			status:    "publish",
			wantURL:   "https://o/p",
			wantToken: "otok",
			want:      OutcomeSent,
		},
		{
			name:      "Stored Settings Win",
			store:     mapStore{settings.OptionWebhookAddress: "https://x/y", settings.OptionWebhookToken: "tok"},
			overrides: config.OverridesConfig{API: "https://o/p", Token: "otok"},
			status:    "publish",
			wantURL:   "https://x/y",
			wantToken: "tok",
			want:      OutcomeSent,
		},
		{
			name:      "Partial Overrides",
			store:     mapStore{settings.OptionWebhookToken: "tok"},
			overrides: config.OverridesConfig{API: "https://o/p"},
			status:    "publish",
			want:      OutcomeSkippedUnconfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t, tt.store, tt.overrides)

			var calls []captured
			registerCapture(t, "https://x/y", http.StatusNoContent, &calls)
			registerCapture(t, "https://o/p", http.StatusNoContent, &calls)
			registerCapture(t, "https://api.github.com/repos/a/b/dispatches", http.StatusNoContent, &calls)

			got := d.Dispatch(context.Background(), hooks.SavePost, hooks.SaveEvent{ID: "42", Status: tt.status})
			assert.Equal(t, tt.want, got)

			if tt.wantURL == "" {
				assert.Equal(t, 0, httpmock.GetTotalCallCount())
				return
			}

			assert.Equal(t, 1, httpmock.GetTotalCallCount())
			assert.Equal(t, 1, httpmock.GetCallCountInfo()["POST "+tt.wantURL])
			require.Len(t, calls, 1)

			h := calls[0].header
			assert.Equal(t, "application/json; charset=utf-8", h.Get("Content-Type"))
			assert.Equal(t, "application/vnd.github.everest-preview+json", h.Get("Accept"))
			assert.Equal(t, "token "+tt.wantToken, h.Get("Authorization"))
			assert.JSONEq(t, `{"event_type": "Publish posts from WordPress"}`, string(calls[0].body))
		})
	}
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	store := mapStore{settings.OptionWebhookAddress: "https://x/y", settings.OptionWebhookToken: "tok"}

	t.Run("Non 2xx", func(t *testing.T) {
		d, metrics := newTestDispatcher(t, store, config.OverridesConfig{})
		httpmock.RegisterResponder(http.MethodPost, "https://x/y", httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"Bad credentials"}`))

		got := d.Dispatch(context.Background(), hooks.SavePost, hooks.SaveEvent{ID: "1", Status: "publish"})
		assert.Equal(t, OutcomeRejected, got)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.dispatches.WithLabelValues(string(OutcomeRejected))))
	})

	t.Run("Transport Error", func(t *testing.T) {
		d, metrics := newTestDispatcher(t, store, config.OverridesConfig{})
		httpmock.RegisterResponder(http.MethodPost, "https://x/y", httpmock.NewErrorResponder(errors.New("connection refused")))

		got := d.Dispatch(context.Background(), hooks.SavePost, hooks.SaveEvent{ID: "1", Status: "publish"})
		assert.Equal(t, OutcomeFailed, got)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.dispatches.WithLabelValues(string(OutcomeFailed))))
	})
}

func TestDispatcher_StoreErrorUsesOverrides(t *testing.T) {
	d, _ := newTestDispatcher(t, failingStore{}, config.OverridesConfig{API: "https://o/p", Token: "otok"})
	httpmock.RegisterResponder(http.MethodPost, "https://o/p", httpmock.NewStringResponder(http.StatusNoContent, ""))

	got := d.Dispatch(context.Background(), hooks.SavePage, hooks.SaveEvent{ID: "1", Status: "publish"})
	assert.Equal(t, OutcomeSent, got)
}

func TestDispatcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	store := mapStore{settings.OptionWebhookAddress: server.URL, settings.OptionWebhookToken: "tok"}
	resolver := settings.NewResolver(store, settings.Overrides{})
	d := NewDispatcher(resolver, config.DispatchConfig{Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	got := d.Dispatch(context.Background(), hooks.SavePost, hooks.SaveEvent{ID: "1", Status: "publish"})
	assert.Equal(t, OutcomeFailed, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDispatcher_CancelledCallerStillSends(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		assert.Equal(t, "Publish posts from WordPress", payload["event_type"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := mapStore{settings.OptionWebhookAddress: server.URL, settings.OptionWebhookToken: "tok"}
	d := NewDispatcher(settings.NewResolver(store, settings.Overrides{}), config.DispatchConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := d.Dispatch(ctx, hooks.SavePost, hooks.SaveEvent{ID: "1", Status: "publish"})
	assert.Equal(t, OutcomeSent, got)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDispatcher_Register(t *testing.T) {
	store := mapStore{settings.OptionWebhookAddress: "https://x/y", settings.OptionWebhookToken: "tok"}
	d, metrics := newTestDispatcher(t, store, config.OverridesConfig{})
	httpmock.RegisterResponder(http.MethodPost, "https://x/y", httpmock.NewStringResponder(http.StatusNoContent, ""))

	registry := hooks.NewRegistry()
	require.NoError(t, d.Register(registry))

	for _, trigger := range []hooks.Trigger{hooks.SavePost, hooks.SavePage, hooks.ACFSavePost} {
		assert.Equal(t, 1, registry.Count(trigger), string(trigger))
		require.NoError(t, registry.Fire(context.Background(), trigger, hooks.SaveEvent{ID: "9", Status: "publish"}))
	}
	require.NoError(t, registry.Fire(context.Background(), hooks.SavePost, hooks.SaveEvent{ID: "9", Status: "draft"}))

	assert.Equal(t, 3, httpmock.GetTotalCallCount())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.dispatches.WithLabelValues(string(OutcomeSent))))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.dispatches.WithLabelValues(string(OutcomeSkippedStatus))))
}
