// Package notify delivers alerts to notification channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/user/linkalert/internal/logger"
	"github.com/user/linkalert/internal/metrics"
	"github.com/user/linkalert/internal/model"
)

// Channel is a notification transport. Implementations must respect the
// context deadline and return an error describing the transport failure.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipients []string, subject, body string, priority model.Priority) error
}

// Registry resolves channels by name. Channel identifiers are an open set:
// unknown names are skipped with a warning, never a fatal error.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds a channel under its own name.
func (r *Registry) Register(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Name()] = ch
}

// Lookup returns the channel registered under name.
func (r *Registry) Lookup(name string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns the registered channel names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}

// Alert is one formatted alert ready for dispatch.
type Alert struct {
	Rule       model.AlertRule
	SensorID   string
	SensorName string
	Status     string
	Message    string
	Subject    string
	Body       string
}

// Dispatcher fans an alert out to every channel listed on its rule.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher with a per-channel send timeout.
func NewDispatcher(registry *Registry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
		log:      logger.WithComponent("dispatcher"),
		now:      time.Now,
	}
}

// Dispatch sends the alert to each of the rule's channels concurrently.
// A failure on one channel never prevents attempting the others; the
// record's OverallSuccess is true iff at least one channel succeeded, and
// ErrorSummary tags each failure by channel name so operators can tell
// the per-channel root causes apart.
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) model.AlertFiringRecord {
	attempted := make([]Channel, 0, len(a.Rule.Channels))
	for _, name := range a.Rule.Channels {
		ch, ok := d.registry.Lookup(name)
		if !ok {
			d.log.Warn().
				Str("channel", name).
				Str("rule_id", a.Rule.ID).
				Msg("unknown notification channel, skipping")
			continue
		}
		attempted = append(attempted, ch)
	}

	outcomes := make([]model.NotificationOutcome, len(attempted))

	var wg sync.WaitGroup
	for i, ch := range attempted {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			outcomes[i] = d.send(ctx, ch, a)
		}(i, ch)
	}
	wg.Wait()

	rec := model.AlertFiringRecord{
		ID:         uuid.NewString(),
		RuleID:     a.Rule.ID,
		SensorID:   a.SensorID,
		SensorName: a.SensorName,
		Status:     a.Status,
		Message:    a.Subject,
		Recipients: a.Rule.Recipients,
		Timestamp:  d.now(),
	}

	var failures []string
	for _, out := range outcomes {
		if out.Success {
			rec.ChannelsSucceeded = append(rec.ChannelsSucceeded, out.Channel)
			rec.OverallSuccess = true
		} else {
			failures = append(failures, fmt.Sprintf("%s: %s", out.Channel, out.Err))
		}
	}
	if len(failures) > 0 {
		rec.ErrorSummary = strings.Join(failures, "; ")
	}

	return rec
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, a Alert) model.NotificationOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := ch.Send(sendCtx, a.Rule.Recipients, a.Subject, a.Body, a.Rule.Priority)
	metrics.ChannelSendDuration.WithLabelValues(ch.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ChannelSendsTotal.WithLabelValues(ch.Name(), "failed").Inc()
		d.log.Error().
			Err(err).
			Str("channel", ch.Name()).
			Str("rule_id", a.Rule.ID).
			Msg("notification send failed")
		return model.NotificationOutcome{Channel: ch.Name(), Err: err.Error()}
	}

	metrics.ChannelSendsTotal.WithLabelValues(ch.Name(), "success").Inc()
	return model.NotificationOutcome{Channel: ch.Name(), Success: true}
}
