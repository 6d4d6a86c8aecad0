package badge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	badgeRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecoci_badge_renders_total",
		Help: "Badges rendered, by resulting color.",
	}, []string{"color"})

	measurementIngests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecoci_measurement_ingests_total",
		Help: "Measurement runs accepted via the ingest endpoint.",
	})
)
