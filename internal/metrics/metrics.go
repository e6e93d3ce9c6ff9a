package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll cycle metrics
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkalert_poll_cycles_total",
			Help: "Total number of poll cycles run",
		},
		[]string{"result"}, // result: ok, fetch_failed
	)

	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkalert_poll_cycle_duration_seconds",
			Help:    "Time taken to run one poll cycle",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SnapshotsObserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkalert_snapshots_observed_total",
			Help: "Total number of sensor snapshots observed",
		},
	)

	TransitionsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkalert_status_transitions_total",
			Help: "Total number of status transitions detected",
		},
	)

	// Alert metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkalert_alerts_fired_total",
			Help: "Total number of alerts dispatched",
		},
		[]string{"condition", "priority"},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkalert_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by cooldown",
		},
	)

	ParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkalert_traffic_parse_failures_total",
			Help: "Total number of sensor values that failed numeric parsing",
		},
	)

	// Channel metrics
	ChannelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkalert_channel_sends_total",
			Help: "Total number of notification sends per channel",
		},
		[]string{"channel", "status"}, // status: success, failed
	)

	ChannelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkalert_channel_send_duration_seconds",
			Help:    "Time taken to send one notification",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	// Source health metrics
	SourceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linkalert_source_up",
			Help: "Whether the monitoring source is reachable (1 up, 0 down)",
		},
		[]string{"source"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkalert_source_failures_total",
			Help: "Total number of failed poll attempts per source",
		},
		[]string{"source"},
	)

	// State store metrics
	StateEntriesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkalert_state_entries_swept_total",
			Help: "Total number of stale state entries evicted",
		},
	)
)
