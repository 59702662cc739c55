package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the license and privilege modules.
// Tracks lifecycle transition counts and critical path durations.
type Metrics struct {
	LicensesCreated      prometheus.Counter
	LicensesVerified     *prometheus.CounterVec
	DesignationsCreated  prometheus.Counter
	ApplicationsByStatus *prometheus.CounterVec
	PrivilegesIssued     prometheus.Counter
	DesignateDuration    prometheus.Histogram
	DetermineDuration    prometheus.Histogram
}

// New creates a Metrics instance with all lifecycle metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		LicensesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensure_licenses_created_total",
			Help: "Total number of licenses registered by practitioners",
		}),
		LicensesVerified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_licenses_verified_total",
			Help: "Total number of license verification transitions by resulting status",
		}, []string{"status"}),
		DesignationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensure_designations_created_total",
			Help: "Total number of qualifying license designations created",
		}),
		ApplicationsByStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_applications_transitions_total",
			Help: "Total number of privilege application status transitions",
		}, []string{"status"}),
		PrivilegesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "licensure_privileges_issued_total",
			Help: "Total number of privileges issued on approved applications",
		}),
		DesignateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensure_designate_duration_seconds",
			Help:    "Duration of qualifying designation operations (archive + create path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DetermineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensure_determine_duration_seconds",
			Help:    "Duration of application determination operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveDesignate records the duration of a Designate operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveDesignate(start time.Time) {
	m.DesignateDuration.Observe(time.Since(start).Seconds())
}

// ObserveDetermine records the duration of a Determine operation.
func (m *Metrics) ObserveDetermine(start time.Time) {
	m.DetermineDuration.Observe(time.Since(start).Seconds())
}

// IncrementApplicationStatus records an application status transition.
func (m *Metrics) IncrementApplicationStatus(status string) {
	m.ApplicationsByStatus.WithLabelValues(status).Inc()
}

// IncrementLicenseVerified records a verification transition.
func (m *Metrics) IncrementLicenseVerified(status string) {
	m.LicensesVerified.WithLabelValues(status).Inc()
}
