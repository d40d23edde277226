package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facebot", Subsystem: "job", Name: "runs_total",
		Help: "Background job runs",
	}, []string{"job"})

	jobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facebot", Subsystem: "job", Name: "errors_total",
		Help: "Background job errors (including recovered panics)",
	}, []string{"job"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facebot", Subsystem: "job", Name: "duration_seconds",
		Help:    "Background job duration",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(jobRuns, jobErrors, jobDuration)
}
