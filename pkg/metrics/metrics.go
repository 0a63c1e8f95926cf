package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Compliance loop
	ChecksTotal       *prometheus.CounterVec
	AlertsRaised      *prometheus.CounterVec
	AlertsUnread      prometheus.Gauge
	ComplianceRate    prometheus.Gauge
	MissStreak        prometheus.Gauge
	NextDoseTimestamp prometheus.Gauge

	// Scheduler
	SchedulerTicks    prometheus.Counter
	SchedulerRollover prometheus.Counter
	CheckLatency      prometheus.Histogram

	// Catalog storage
	CatalogOperations *prometheus.CounterVec
	CatalogSize       prometheus.Gauge

	// Notification fan-out
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg falls back to the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "checks_total",
			Help:      "Total number of dose checks by outcome",
		}, []string{"outcome"}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "alerts_raised_total",
			Help:      "Total number of alerts raised by tier",
		}, []string{"tier"}),
		AlertsUnread: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "alerts_unread",
			Help:      "Current number of unacknowledged alerts",
		}),
		ComplianceRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "rate_percent",
			Help:      "Share of Taken events in the compliance history",
		}),
		MissStreak: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "miss_streak",
			Help:      "Current number of consecutive missed doses",
		}),
		NextDoseTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compliance",
			Name:      "next_dose_timestamp_seconds",
			Help:      "Unix time of the next scheduled dose",
		}),

		SchedulerTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of scheduler wake-ups",
		}),
		SchedulerRollover: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "rollovers_total",
			Help:      "Total number of explicit day-rollover recomputations",
		}),
		CheckLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "check_duration_seconds",
			Help:      "Time spent running a dose check",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),

		CatalogOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "operations_total",
			Help:      "Total number of catalog operations",
		}, []string{"operation", "status"}),
		CatalogSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "medications",
			Help:      "Current number of medications in the catalog",
		}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "sent_total",
			Help:      "Total number of alert notifications by channel and status",
		}, []string{"channel", "status"}),
	}
}

// New builds metrics on a private registry, which keeps tests isolated.
func New(namespace string) (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewMetrics(namespace, reg), reg
}
