package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yatra_store_operations_total",
			Help: "Total number of store operations by outcome",
		},
		[]string{"operation", "status"},
	)

	storeReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yatra_store_reconnects_total",
			Help: "Number of reconnect attempts against the backing database",
		},
	)

	storeRecoveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yatra_store_recoveries_total",
			Help: "Number of times a corrupt database file was deleted and recreated",
		},
	)
)
