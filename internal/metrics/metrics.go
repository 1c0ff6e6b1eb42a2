// Package metrics defines the Prometheus instruments for archive analysis
// and ticket processing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Archive outcomes.
const (
	OutcomeDiagnosed = "diagnosed"
	OutcomeNoIssue   = "no_issue"
	OutcomeCorrupted = "corrupted"
)

// Ticket outcomes.
const (
	TicketResolved = "resolved"
	TicketSkipped  = "skipped"
	TicketFailed   = "failed"
)

// Metrics holds the classifier's Prometheus metrics.
type Metrics struct {
	ArchivesTotal *prometheus.CounterVec // archives analyzed, by outcome
	TagsTotal     *prometheus.CounterVec // diagnosis tags emitted, by tag
	TicketsTotal  *prometheus.CounterVec // tickets handled, by outcome
	PassDuration  prometheus.Histogram   // wall time of one pipeline pass
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ArchivesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logclassifier_archives_total",
			Help: "Archives analyzed, by outcome",
		}, []string{"outcome"}),
		TagsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logclassifier_tags_total",
			Help: "Diagnosis tags emitted, by tag",
		}, []string{"tag"}),
		TicketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logclassifier_tickets_total",
			Help: "Tickets handled by the pipeline, by outcome",
		}, []string{"outcome"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logclassifier_pass_duration_seconds",
			Help:    "Duration of one ticket processing pass",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(m.ArchivesTotal, m.TagsTotal, m.TicketsTotal, m.PassDuration)
	return m
}

// ObserveArchive records one analyzed archive. Safe on a nil receiver.
func (m *Metrics) ObserveArchive(outcome string, tags []string) {
	if m == nil {
		return
	}
	m.ArchivesTotal.WithLabelValues(outcome).Inc()
	for _, t := range tags {
		m.TagsTotal.WithLabelValues(t).Inc()
	}
}

// ObserveTicket records one handled ticket. Safe on a nil receiver.
func (m *Metrics) ObserveTicket(outcome string) {
	if m == nil {
		return
	}
	m.TicketsTotal.WithLabelValues(outcome).Inc()
}

// ObservePass records the duration of a pipeline pass in seconds. Safe on a nil receiver.
func (m *Metrics) ObservePass(seconds float64) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(seconds)
}
