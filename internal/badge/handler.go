// Package badge serves SVG CO2 badges for org/repo pairs from the
// latest stored measurement, plus the ingest endpoint CI pipelines
// submit their runs to.
package badge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/perschulte/ecoci/internal/badge/store"
	"github.com/perschulte/ecoci/pkg/measure"
)

// MeasurementSource reads the newest run for a repository.
type MeasurementSource interface {
	LatestMeasurement(ctx context.Context, org, repo string) (*store.MeasurementRun, error)
}

// MeasurementSink accepts new measurement runs.
type MeasurementSink interface {
	InsertMeasurement(ctx context.Context, run *store.MeasurementRun) error
}

// Server holds the badge service handlers.
type Server struct {
	src      MeasurementSource
	sink     MeasurementSink
	renderer *Renderer
	version  string
	log      zerolog.Logger
}

func NewServer(src MeasurementSource, sink MeasurementSink, version string, log zerolog.Logger) *Server {
	return &Server{
		src:      src,
		sink:     sink,
		renderer: NewRenderer(),
		version:  version,
		log:      log,
	}
}

// Router wires all routes onto a fresh gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/badge/:org/:repo", s.handleBadge)
	r.POST("/api/v1/measurements", s.handleIngest)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
	})
}

// handleBadge serves GET /badge/{org}/{repo}.svg. A repository without
// measurements renders the gray "no data" badge, never a 404.
func (s *Server) handleBadge(c *gin.Context) {
	org := c.Param("org")
	repoFile := c.Param("repo")

	repo, ok := strings.CutSuffix(repoFile, ".svg")
	if !ok || org == "" || repo == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "badge not found"})
		return
	}

	data := Data{Org: org, Repo: repo}
	run, err := s.src.LatestMeasurement(c.Request.Context(), org, repo)
	if err != nil {
		s.log.Error().Err(err).Str("org", org).Str("repo", repo).
			Msg("latest measurement lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if run != nil {
		data.CO2Kg = &run.CO2Kg
		data.LastUpdated = run.CreatedAt
	}

	svg, err := s.renderer.Render(data)
	if err != nil {
		s.log.Error().Err(err).Msg("badge render failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	badgeRenders.WithLabelValues(data.Color()).Inc()

	c.Header("Cache-Control", "max-age=3600")
	c.Header("ETag", fmt.Sprintf("%q", data.ETag()))
	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}

type ingestRequest struct {
	Org       string  `json:"org" binding:"required"`
	Repo      string  `json:"repo" binding:"required"`
	EnergyKWh float64 `json:"energy_kwh"`
	CO2Kg     float64 `json:"co2_kg"`
	DurationS float64 `json:"duration_s"`
}

// handleIngest accepts POST /api/v1/measurements. The payload passes
// through the same non-negativity validation as the measurement core.
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := measure.NewResult(req.EnergyKWh, req.CO2Kg, req.DurationS); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := &store.MeasurementRun{
		Org:       req.Org,
		Repo:      req.Repo,
		EnergyKWh: req.EnergyKWh,
		CO2Kg:     req.CO2Kg,
		DurationS: req.DurationS,
	}
	if err := s.sink.InsertMeasurement(c.Request.Context(), run); err != nil {
		s.log.Error().Err(err).Str("org", req.Org).Str("repo", req.Repo).
			Msg("measurement insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	measurementIngests.Inc()

	c.JSON(http.StatusCreated, run)
}
