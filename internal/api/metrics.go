package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteselect_scores_total",
		Help: "Location scoring requests by business type and outcome.",
	}, []string{"type", "outcome"})

	scoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "siteselect_score_duration_seconds",
		Help:    "Time to score one location, provider queries included.",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"type"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "siteselect_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
)

// Score outcomes.
const (
	outcomeOK     = "ok"
	outcomeNoData = "no_data"
	outcomeError  = "error"
)
