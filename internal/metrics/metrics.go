package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds the engine's counters. It satisfies the admission
// recorder and the scanner's notification recorder.
type Collectors struct {
	admissions        *prometheus.CounterVec
	admissionDuration prometheus.Histogram
	notifications     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_admissions_total",
			Help: "admission attempts by outcome",
		}, []string{"outcome"}),
		admissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_admission_duration_seconds",
			Help:    "time spent in the admission transaction",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_notifications_total",
			Help: "match starting notifications by publish result",
		}, []string{"result"}),
	}
	reg.MustRegister(c.admissions, c.admissionDuration, c.notifications)
	return c
}

func (c *Collectors) ObserveAdmission(outcome string, elapsed time.Duration) {
	c.admissions.WithLabelValues(outcome).Inc()
	c.admissionDuration.Observe(elapsed.Seconds())
}

func (c *Collectors) ObserveNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}
