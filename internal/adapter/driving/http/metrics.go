package httphandler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpResponses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wpgateway_http_responses_total",
	Help: "HTTP responses by status code",
}, []string{"status_code"})
