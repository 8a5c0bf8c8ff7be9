package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the lease module. All methods
// are safe on a nil receiver so services can run without metrics in tests.
type Metrics struct {
	Commands           *prometheus.CounterVec
	CommandRetries     *prometheus.CounterVec
	SweepCycles        *prometheus.CounterVec
	SweepEvictions     prometheus.Counter
	SweepFailures      prometheus.Counter
	SweepDuration      prometheus.Histogram
	LastSweep          prometheus.Gauge
	ActivityEvents     *prometheus.CounterVec
	ActivityInFlight   prometheus.Gauge
	OccupantSeenWrites prometheus.Counter
}

// New creates and registers the lease metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leasehold_commands_total",
			Help: "Lease commands executed, by command and outcome",
		}, []string{"command", "outcome"}),
		CommandRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leasehold_command_conflict_retries_total",
			Help: "Optimistic concurrency retries, by command",
		}, []string{"command"}),
		SweepCycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leasehold_eviction_sweeps_total",
			Help: "Eviction sweep cycles, by result",
		}, []string{"result"}),
		SweepEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "leasehold_eviction_sweep_evictions_total",
			Help: "Leases evicted by the scheduler",
		}),
		SweepFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "leasehold_eviction_sweep_failures_total",
			Help: "Per-property failures during eviction sweeps",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "leasehold_eviction_sweep_duration_seconds",
			Help:    "Duration of eviction sweep cycles",
			Buckets: prometheus.DefBuckets,
		}),
		LastSweep: f.NewGauge(prometheus.GaugeOpts{
			Name: "leasehold_eviction_last_sweep_timestamp_seconds",
			Help: "Unix time of the last completed eviction sweep",
		}),
		ActivityEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leasehold_activity_events_total",
			Help: "Area-entry events processed, by outcome",
		}, []string{"outcome"}),
		ActivityInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "leasehold_activity_in_flight",
			Help: "Area-entry events currently being handled",
		}),
		OccupantSeenWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "leasehold_occupant_seen_writes_total",
			Help: "Last-seen updates written to leases",
		}),
	}
}

func (m *Metrics) IncCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) IncRetry(command string) {
	if m == nil {
		return
	}
	m.CommandRetries.WithLabelValues(command).Inc()
}

// ObserveSweep records a finished cycle.
func (m *Metrics) ObserveSweep(result string, evicted, failed int, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.SweepCycles.WithLabelValues(result).Inc()
	m.SweepEvictions.Add(float64(evicted))
	m.SweepFailures.Add(float64(failed))
	m.SweepDuration.Observe(duration.Seconds())
	m.LastSweep.Set(float64(finishedAt.Unix()))
}

func (m *Metrics) IncActivity(outcome string) {
	if m == nil {
		return
	}
	m.ActivityEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddInFlight(delta float64) {
	if m == nil {
		return
	}
	m.ActivityInFlight.Add(delta)
}

func (m *Metrics) IncOccupantSeenWrite() {
	if m == nil {
		return
	}
	m.OccupantSeenWrites.Inc()
}
