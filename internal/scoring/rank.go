package scoring

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Ranked pairs a candidate's position in the input with its breakdown.
type Ranked struct {
	Index     int        `json:"index"`
	Breakdown *Breakdown `json:"breakdown"`
}

// Rank scores every candidate point for typeID and returns them ordered by
// score, best first; equal scores keep input order. At most parallelism
// points are scored at once. Any failure fails the whole batch.
func (e *Engine) Rank(ctx context.Context, points []Point, radius float64, typeID string, parallelism int) ([]Ranked, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	out := make([]Ranked, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, pt := range points {
		g.Go(func() error {
			b, err := e.Score(gctx, pt, radius, typeID)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", i, err)
			}
			out[i] = Ranked{Index: i, Breakdown: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Breakdown.RawScore > out[b].Breakdown.RawScore
	})
	return out, nil
}
