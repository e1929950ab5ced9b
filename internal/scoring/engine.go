package scoring

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AggregateProvider computes raw spatial aggregates around a point. It must
// return a value for every requested metric (0 when it cannot compute one) and
// is responsible for rejecting invalid radii and out-of-domain points.
type AggregateProvider interface {
	FetchAggregates(ctx context.Context, pt Point, radius float64, metrics []profile.Metric) (map[profile.Metric]float64, error)
}

// ProfileSource resolves a business type to its profile.
type ProfileSource interface {
	Get(typeID string) (*profile.Profile, error)
}

// Stage is a step in the per-request scoring state machine.
type Stage string

const (
	StageReceived          Stage = "received"
	StageProfileResolved   Stage = "profile_resolved"
	StageAggregatesFetched Stage = "aggregates_fetched"
	StageNormalized        Stage = "normalized"
	StageAggregated        Stage = "aggregated"
	StageDone              Stage = "done"
	StageErrored           Stage = "errored"
)

// Breakdown is the scoring output for one location, detailed enough to
// explain the result.
type Breakdown struct {
	TypeID string  `json:"type"`
	Point  Point   `json:"point"`
	Radius float64 `json:"radius"`
	// Score is RawScore rounded to one decimal place.
	Score      float64         `json:"score"`
	RawScore   float64         `json:"raw_score"`
	NoData     bool            `json:"no_data"`
	Categories []CategoryScore `json:"categories"`
}

// Category returns the score of category c.
func (b *Breakdown) Category(c profile.Category) (CategoryScore, bool) {
	for _, cs := range b.Categories {
		if cs.Category == c {
			return cs, true
		}
	}
	return CategoryScore{}, false
}

// Contribution returns the normalized contribution of sub-metric m.
func (b *Breakdown) Contribution(m profile.Metric) (float64, bool) {
	for _, cs := range b.Categories {
		for _, ms := range cs.Metrics {
			if ms.Metric == m {
				return ms.Contribution, ms.Included
			}
		}
	}
	return 0, false
}

// Engine scores locations. It holds no mutable state; any number of Score
// calls may run concurrently.
type Engine struct {
	profiles ProfileSource
	provider AggregateProvider
	logger   *slog.Logger
}

// NewEngine creates an Engine over a profile source and an aggregate provider.
func NewEngine(profiles ProfileSource, provider AggregateProvider, logger *slog.Logger) *Engine {
	return &Engine{
		profiles: profiles,
		provider: provider,
		logger:   logger,
	}
}

// Score evaluates how suitable pt is for typeID within radius metres.
//
// The engine does not validate pt or radius; the transport layer and the
// provider own those bounds. Provider errors are returned wrapped in a
// *StageError and never retried.
func (e *Engine) Score(ctx context.Context, pt Point, radius float64, typeID string) (*Breakdown, error) {
	stage := StageReceived
	fail := func(err error) (*Breakdown, error) {
		e.logger.Warn("scoring failed", "type", typeID, "stage", stage, "next", StageErrored, "error", err)
		return nil, &StageError{Stage: stage, Err: err}
	}

	p, err := e.profiles.Get(typeID)
	if err != nil {
		return fail(err)
	}
	stage = e.advance(typeID, StageProfileResolved)

	metrics := p.TargetedMetrics()
	raw := map[profile.Metric]float64{}
	if len(metrics) > 0 {
		raw, err = e.provider.FetchAggregates(ctx, pt, radius, metrics)
		if err != nil {
			return fail(err)
		}
		var missing []profile.Metric
		for _, m := range metrics {
			if _, ok := raw[m]; !ok {
				missing = append(missing, m)
			}
		}
		if len(missing) > 0 {
			return fail(&IncompleteAggregateError{TypeID: p.TypeID(), Missing: missing})
		}
	}
	stage = e.advance(typeID, StageAggregatesFetched)

	// Normalization happens per sub-metric inside the roll-up.
	stage = e.advance(typeID, StageNormalized)
	rollup := Aggregate(p, raw)
	stage = e.advance(typeID, StageAggregated)

	b := &Breakdown{
		TypeID:     p.TypeID(),
		Point:      pt,
		Radius:     radius,
		Score:      RoundScore(rollup.Score),
		RawScore:   rollup.Score,
		NoData:     rollup.NoData,
		Categories: rollup.Categories,
	}
	e.advance(typeID, StageDone)
	return b, nil
}

func (e *Engine) advance(typeID string, next Stage) Stage {
	e.logger.Debug("scoring stage", "type", typeID, "stage", next)
	return next
}
