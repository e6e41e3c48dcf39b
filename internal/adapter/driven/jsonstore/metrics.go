package jsonstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeSaveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpgateway_connection_store_save_failures_total",
		Help: "The number of failed connection store writes per document",
	}, []string{"document"})

	connectionsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpgateway_connections_added_total",
		Help: "The number of connections created per kind",
	}, []string{"kind"})
)
