package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnavshah/orientation-scheduler/pkg/models"
)

// Recorder records scheduling runs in Prometheus metrics.
type Recorder struct {
	runs        *prometheus.CounterVec
	assignments prometheus.Counter
	duration    *prometheus.HistogramVec
	avgStaffing prometheus.Gauge
	critical    prometheus.Gauge
	unassigned  prometheus.Gauge
	fairness    prometheus.Gauge
	gatherer    prometheus.Gatherer
}

// NewRecorder registers the collectors on the default Prometheus registerer.
func NewRecorder() (*Recorder, error) {
	return NewRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewRecorderWithRegistry registers the collectors on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewRecorderWithRegistry(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Total number of scheduling runs",
		}, []string{"source", "outcome"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_assignments_total",
			Help: "Total number of leader assignments produced",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Wall time of a scheduling run",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		avgStaffing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_avg_staffing_percentage",
			Help: "Average staffing percentage of the last run",
		}),
		critical: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_critically_understaffed_events",
			Help: "Events below 50% staffing in the last run",
		}),
		unassigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_unassigned_leaders",
			Help: "Leaders without any assignment in the last run",
		}),
		fairness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_last_fairness_score",
			Help: "Workload fairness score of the last run",
		}),
	}

	var err error
	if r.runs, err = register(reg, r.runs); err != nil {
		return nil, err
	}
	if r.assignments, err = register(reg, r.assignments); err != nil {
		return nil, err
	}
	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, err
	}
	for _, g := range []*prometheus.Gauge{&r.avgStaffing, &r.critical, &r.unassigned, &r.fairness} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		r.gatherer = g
	} else {
		r.gatherer = prometheus.DefaultGatherer
	}
	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveRun records a successful run from source ("api", "cli").
func (r *Recorder) ObserveRun(source string, res *models.Result, elapsed time.Duration) {
	if r == nil || res == nil {
		return
	}
	r.runs.WithLabelValues(source, "success").Inc()
	r.duration.WithLabelValues(source).Observe(elapsed.Seconds())

	n := 0
	for _, list := range res.LeaderAssignments {
		n += len(list)
	}
	r.assignments.Add(float64(n))

	sum := res.SchedulingSummary
	r.avgStaffing.Set(sum.StaffingMetrics.AvgStaffingPercentage)
	r.critical.Set(float64(len(sum.CriticallyUnderstaffedEvents)))
	r.unassigned.Set(float64(len(sum.UnassignedLeaders)))
	r.fairness.Set(sum.FairnessScore)
}

// ObserveFailure records a run rejected by validation or I/O.
func (r *Recorder) ObserveFailure(source string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(source, "error").Inc()
}

// Handler serves the registry the recorder was built on.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
