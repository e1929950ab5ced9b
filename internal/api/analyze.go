package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/Siteselect/internal/geo"
	"github.com/MikeSquared-Agency/Siteselect/internal/hermes"
	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

// Scorer is the scoring engine as seen by the transport.
type Scorer interface {
	Score(ctx context.Context, pt scoring.Point, radius float64, typeID string) (*scoring.Breakdown, error)
	Rank(ctx context.Context, points []scoring.Point, radius float64, typeID string, parallelism int) ([]scoring.Ranked, error)
}

// Defaults fills in omitted request fields and bounds accepted radii.
type Defaults struct {
	Type        string
	Radius      float64
	MaxRadius   float64
	BatchLimit  int
	Parallelism int
}

type AnalyzeHandler struct {
	scorer   Scorer
	profiles ProfileSource
	events   *hermes.Publisher
	defaults Defaults
	logger   *slog.Logger
}

func NewAnalyzeHandler(s Scorer, profiles ProfileSource, events *hermes.Publisher, d Defaults, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{scorer: s, profiles: profiles, events: events, defaults: d, logger: logger}
}

type analyzeRequest struct {
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Type   string   `json:"type"`
	Radius *float64 `json:"radius"`
}

type batchRequest struct {
	Points []struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"points"`
	Type   string   `json:"type"`
	Radius *float64 `json:"radius"`
}

type batchResponse struct {
	Type    string           `json:"type"`
	Radius  float64          `json:"radius"`
	Results []scoring.Ranked `json:"results"`
}

// Analyze scores a single location.
// POST /api/v1/analyze
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}

	pt, err := validatePoint(req.Lat, req.Lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	typeID, radius, err := h.resolve(req.Type, req.Radius)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	start := time.Now()
	b, err := h.scorer.Score(r.Context(), pt, radius, typeID)
	requestID := chiMiddleware.GetReqID(r.Context())
	if err != nil {
		label := h.typeLabel(typeID)
		h.observe(label, start, nil, err)
		h.events.LocationFailed(r.Context(), requestID, label, pt, radius, err)
		h.writeScoringError(w, err)
		return
	}
	h.observe(b.TypeID, start, b, nil)
	h.events.LocationScored(r.Context(), requestID, b)

	writeJSON(w, http.StatusOK, b)
}

// AnalyzeBatch scores several candidate locations and returns them best first.
// POST /api/v1/analyze/batch
func (h *AnalyzeHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if len(req.Points) == 0 {
		writeError(w, http.StatusBadRequest, "points must not be empty", "")
		return
	}
	if h.defaults.BatchLimit > 0 && len(req.Points) > h.defaults.BatchLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d points per batch", h.defaults.BatchLimit), "")
		return
	}

	points := make([]scoring.Point, len(req.Points))
	for i, p := range req.Points {
		pt, err := validatePoint(p.Lat, p.Lon)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("points[%d]: %v", i, err), "")
			return
		}
		points[i] = pt
	}
	typeID, radius, err := h.resolve(req.Type, req.Radius)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	start := time.Now()
	ranked, err := h.scorer.Rank(r.Context(), points, radius, typeID, h.defaults.Parallelism)
	if err != nil {
		h.observe(h.typeLabel(typeID), start, nil, err)
		h.writeScoringError(w, err)
		return
	}
	for _, rk := range ranked {
		scoresTotal.WithLabelValues(rk.Breakdown.TypeID, outcome(rk.Breakdown)).Inc()
	}
	h.events.BatchRanked(r.Context(), chiMiddleware.GetReqID(r.Context()), ranked[0].Breakdown.TypeID, radius, ranked)

	writeJSON(w, http.StatusOK, batchResponse{Type: ranked[0].Breakdown.TypeID, Radius: radius, Results: ranked})
}

func (h *AnalyzeHandler) resolve(typeID string, radius *float64) (string, float64, error) {
	if typeID == "" {
		typeID = h.defaults.Type
	}
	rad := h.defaults.Radius
	if radius != nil {
		rad = *radius
	}
	if math.IsNaN(rad) || rad <= 0 {
		return "", 0, fmt.Errorf("radius must be positive")
	}
	if h.defaults.MaxRadius > 0 && rad > h.defaults.MaxRadius {
		return "", 0, fmt.Errorf("radius must not exceed %g", h.defaults.MaxRadius)
	}
	return typeID, rad, nil
}

func validatePoint(lat, lon *float64) (scoring.Point, error) {
	if lat == nil || lon == nil {
		return scoring.Point{}, errors.New("lat and lon are required")
	}
	if math.IsNaN(*lat) || *lat < -90 || *lat > 90 {
		return scoring.Point{}, fmt.Errorf("lat %v outside [-90, 90]", *lat)
	}
	if math.IsNaN(*lon) || *lon < -180 || *lon > 180 {
		return scoring.Point{}, fmt.Errorf("lon %v outside [-180, 180]", *lon)
	}
	return scoring.Point{Lat: *lat, Lon: *lon}, nil
}

// typeLabel resolves typeID to its canonical id for metric labels and event
// subjects, so aliases share one series. Unresolved ids become "unknown".
func (h *AnalyzeHandler) typeLabel(typeID string) string {
	p, err := h.profiles.Get(typeID)
	if err != nil {
		return "unknown"
	}
	return p.TypeID()
}

func (h *AnalyzeHandler) observe(typeID string, start time.Time, b *scoring.Breakdown, err error) {
	scoreDuration.WithLabelValues(typeID).Observe(time.Since(start).Seconds())
	if err != nil {
		scoresTotal.WithLabelValues(typeID, outcomeError).Inc()
		return
	}
	scoresTotal.WithLabelValues(typeID, outcome(b)).Inc()
}

func outcome(b *scoring.Breakdown) string {
	if b.NoData {
		return outcomeNoData
	}
	return outcomeOK
}

func (h *AnalyzeHandler) writeScoringError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	var stage string
	var se *scoring.StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}
	if status >= 500 {
		h.logger.Error("scoring failed", "status", status, "stage", stage, "error", err)
	}
	writeError(w, status, err.Error(), stage)
}

// statusFor maps scoring failures to HTTP statuses. Provider failures never
// turn into a successful response.
func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, geo.ErrInvalidRadius), errors.Is(err, geo.ErrOutOfDomain):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scoring.ErrIncompleteAggregate):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
