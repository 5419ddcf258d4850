package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var completionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "yatra_completions_total",
		Help: "Total number of completion provider calls by outcome",
	},
	[]string{"provider", "status"},
)
