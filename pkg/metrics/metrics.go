// Package metrics counts session activity with Prometheus collectors and
// writes them in the node-exporter textfile format.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/therapy"
)

// Recorder is a therapy.Observer backed by a private registry.
type Recorder struct {
	registry        *prometheus.Registry
	movements       *prometheus.CounterVec
	faults          *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
}

var _ therapy.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exo",
			Name:      "movements_total",
			Help:      "Therapy movements executed, by joint, movement and acceptance.",
		}, []string{"joint", "movement", "accepted"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exo",
			Name:      "actuator_faults_total",
			Help:      "Movements rejected because an actuator faulted.",
		}, []string{"joint"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exo",
			Name:      "sessions_total",
			Help:      "Completed therapy sessions, by level.",
		}, []string{"level"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exo",
			Name:      "session_duration_seconds",
			Help:      "Wall time of completed therapy sessions.",
			Buckets:   []float64{15, 30, 60, 120, 240, 480},
		}, []string{"level"}),
	}
	r.registry.MustRegister(r.movements, r.faults, r.sessions, r.sessionDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// MovementCompleted implements therapy.Observer.
func (r *Recorder) MovementCompleted(p therapy.Progress) {
	o := p.Outcome
	r.movements.WithLabelValues(o.Joint.String(), o.Movement.String(), strconv.FormatBool(o.Accepted)).Inc()
	if o.Reason == joint.ReasonActuatorFault {
		r.faults.WithLabelValues(o.Joint.String()).Inc()
	}
}

// SessionCompleted implements therapy.Observer.
func (r *Recorder) SessionCompleted(rec therapy.Record) {
	r.sessions.WithLabelValues(rec.Level.String()).Inc()
	r.sessionDuration.WithLabelValues(rec.Level.String()).Observe(rec.DurationSeconds())
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
