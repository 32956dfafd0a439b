package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pubhook/internal/engine/hooks"
	"pubhook/internal/engine/settings"
	"pubhook/internal/platform/config"
)

const (
	StatusPublish = "publish"

	ContentType     = "application/json; charset=utf-8"
	DefaultAccept   = "application/vnd.github.everest-preview+json"
	DefaultEvent    = "Publish posts from WordPress"
	DefaultTimeout  = 5 * time.Second
	acfSavePriority = 20
)

type dispatchPayload struct {
	EventType string `json:"event_type"`
}

type Dispatcher struct {
	resolver  *settings.Resolver
	client    *http.Client
	eventType string
	accept    string
	metrics   *Metrics
}

func NewDispatcher(resolver *settings.Resolver, cfg config.DispatchConfig, metrics *Metrics) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	eventType := cfg.EventType
	if eventType == "" {
		eventType = DefaultEvent
	}
	accept := cfg.Accept
	if accept == "" {
		accept = DefaultAccept
	}

	return &Dispatcher{
		resolver:  resolver,
		client:    &http.Client{Timeout: timeout},
		eventType: eventType,
		accept:    accept,
		metrics:   metrics,
	}
}

// Client exposes the outbound HTTP client so tests can swap its transport.
func (d *Dispatcher) Client() *http.Client {
	return d.client
}

// Register binds the dispatcher to every content-save trigger.
func (d *Dispatcher) Register(registry *hooks.Registry) error {
	bindings := []struct {
		trigger  hooks.Trigger
		priority int
	}{
		{hooks.SavePost, hooks.DefaultPriority},
		{hooks.SavePage, hooks.DefaultPriority},
		{hooks.ACFSavePost, acfSavePriority},
	}

	for _, b := range bindings {
		if err := registry.Subscribe(b.trigger, b.priority, d.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle adapts Dispatch to hooks.Handler.
func (d *Dispatcher) Handle(ctx context.Context, trigger hooks.Trigger, event hooks.SaveEvent) {
	d.Dispatch(ctx, trigger, event)
}

// Dispatch sends at most one repository-dispatch request for a published item.
// Failures are logged and never returned; the outcome is reported for metrics
// and tests.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger hooks.Trigger, event hooks.SaveEvent) Outcome {
	logger := log.With().
		Str("trigger", string(trigger)).
		Str("post_id", event.ID).
		Str("status", event.Status).
		Logger()

	if event.Status != StatusPublish {
		logger.Debug().Msg("skipping dispatch, item not published")
		d.metrics.observe(OutcomeSkippedStatus)
		return OutcomeSkippedStatus
	}

	dest, ok, err := d.resolver.Resolve(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read webhook settings")
	}
	if !ok {
		logger.Debug().Msg("skipping dispatch, webhook not configured")
		d.metrics.observe(OutcomeSkippedUnconfigured)
		return OutcomeSkippedUnconfigured
	}

	outcome := d.send(ctx, logger, dest)
	d.metrics.observe(outcome)
	return outcome
}

func (d *Dispatcher) send(ctx context.Context, logger zerolog.Logger, dest settings.Destination) Outcome {
	deliveryID := uuid.NewString()
	logger = logger.With().Str("delivery_id", deliveryID).Logger()

	payload, err := json.Marshal(dispatchPayload{EventType: d.eventType})
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode dispatch payload")
		return OutcomeFailed
	}

	// The save path may be torn down before we finish; the client timeout bounds
	// the call instead.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, dest.URL, bytes.NewReader(payload))
	if err != nil {
		logger.Error().Err(err).Msg("failed to build dispatch request")
		return OutcomeFailed
	}

	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", d.accept)
	req.Header.Set("Authorization", "token "+dest.Token)

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)
	d.metrics.observeDuration(elapsed.Seconds())

	if err != nil {
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("dispatch request failed")
		return OutcomeFailed
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn().Int("status_code", resp.StatusCode).Dur("elapsed", elapsed).Msg("dispatch rejected")
		return OutcomeRejected
	}

	logger.Info().Int("status_code", resp.StatusCode).Dur("elapsed", elapsed).Msg("dispatch sent")
	return OutcomeSent
}
