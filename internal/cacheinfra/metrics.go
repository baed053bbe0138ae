package cacheinfra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kronos_query_cache_hits_total",
		Help: "Reads served from a fresh cache entry.",
	})
	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kronos_query_cache_misses_total",
		Help: "Reads that called the remote service.",
	})
	fetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kronos_query_cache_fetch_errors_total",
		Help: "Reads that ended with an error.",
	})
	invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kronos_query_cache_invalidations_total",
		Help: "Invalidation requests by scope (key, prefix, all).",
	}, []string{"scope"})
)
