package wordpress

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cmsRequestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpgateway_cms_requests_total",
		Help: "The number of WordPress REST calls per operation and outcome",
	}, []string{"operation", "outcome"})

	cmsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wpgateway_cms_request_duration_seconds",
		Help:    "WordPress REST call latency per operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

func observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	cmsRequestCounter.WithLabelValues(op, outcome).Inc()
	cmsRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
