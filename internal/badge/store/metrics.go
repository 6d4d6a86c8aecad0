package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecoci_badge_cache_hits_total",
		Help: "Latest-measurement reads served from the Redis cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecoci_badge_cache_misses_total",
		Help: "Latest-measurement reads that fell through to Postgres.",
	})
)
