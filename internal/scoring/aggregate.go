package scoring

import "github.com/MikeSquared-Agency/Siteselect/internal/profile"

// MaxScore is the upper bound of the final score range.
const MaxScore = 100.0

// MetricScore captures one sub-metric's contribution to its category.
type MetricScore struct {
	Metric       profile.Metric `json:"metric"`
	Raw          float64        `json:"raw"`
	Target       float64        `json:"target"`
	Weight       float64        `json:"weight"`
	Contribution float64        `json:"contribution"`
	Included     bool           `json:"included"`
}

// CategoryScore is the weighted average of a main category's included
// sub-metrics. Included reports whether the category takes part in the final
// average.
type CategoryScore struct {
	Category profile.Category `json:"category"`
	Weight   float64          `json:"weight"`
	Score    float64          `json:"score"`
	Included bool             `json:"included"`
	Metrics  []MetricScore    `json:"metrics"`
}

// Rollup is the result of the two-level weighted average.
type Rollup struct {
	Categories []CategoryScore
	// Score is the unrounded final score in [0, MaxScore].
	Score float64
	// NoData is set when no category is included, either for lack of weighted
	// sub-metrics or of main weight, in which case Score is 0.
	NoData bool
}

// Aggregate rolls raw aggregates up through p's sub-metric and main-category
// weights. raw must hold a value for every metric in p.TargetedMetrics();
// values for other metrics are reported but never scored.
//
// A category whose included sub-metrics carry zero total weight is excluded
// from the final average rather than scored as 0.
func Aggregate(p *profile.Profile, raw map[profile.Metric]float64) Rollup {
	var r Rollup
	var num, den float64

	for _, c := range profile.Categories() {
		cs := CategoryScore{Category: c, Weight: p.MainWeight(c)}

		var cNum, cDen float64
		for _, m := range p.WeightedMetrics(c) {
			w, _ := p.SubWeight(m)
			ms := MetricScore{Metric: m, Raw: raw[m], Weight: w}
			if target, ok := p.Target(m); ok {
				ms.Target = target
				ms.Contribution, ms.Included = Normalize(raw[m], target)
			}
			if ms.Included {
				cNum += w * ms.Contribution
				cDen += w
			}
			cs.Metrics = append(cs.Metrics, ms)
		}

		if cDen > 0 {
			cs.Score = clamp(cNum/cDen, 0, 1)
			// A category with no main weight cannot move the final average.
			if cs.Weight > 0 {
				cs.Included = true
				num += cs.Weight * cs.Score
				den += cs.Weight
			}
		}
		r.Categories = append(r.Categories, cs)
	}

	if den == 0 {
		r.NoData = true
		return r
	}
	r.Score = clamp(num/den, 0, 1) * MaxScore
	return r
}
