package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	Registrations    prometheus.Counter
	OTPVerifications *prometheus.CounterVec
	OTPResends       *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	SectionUpdates   *prometheus.CounterVec
	Submissions      prometheus.Counter
	DocumentUploads  *prometheus.CounterVec
	ActiveWorkspaces prometheus.Gauge
	EventsPublished  *prometheus.CounterVec
	EndpointLatency  *prometheus.HistogramVec
	RevocationChecks prometheus.Histogram
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "admission_registrations_total",
			Help: "Candidates registered",
		}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}),
		OTPResends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_otp_resends_total",
			Help: "OTP resend requests by outcome",
		}, []string{"outcome"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		SectionUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_section_updates_total",
			Help: "Section merges by section",
		}, []string{"section"}),
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "admission_submissions_total",
			Help: "Applications submitted",
		}),
		DocumentUploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_document_uploads_total",
			Help: "Document uploads by outcome",
		}, []string{"outcome"}),
		ActiveWorkspaces: f.NewGauge(prometheus.GaugeOpts{
			Name: "admission_active_workspaces",
			Help: "Open candidate workspaces",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_events_published_total",
			Help: "Domain events handed to sinks by outcome",
		}, []string{"outcome"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admission_endpoint_latency_seconds",
			Help:    "HTTP handler latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RevocationChecks: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "admission_token_revocation_check_duration_ms",
			Help:    "Latency of token revocation checks in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}

// ObserveLatency records the duration of a request for route.
func (m *Metrics) ObserveLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(route).Observe(seconds)
}
