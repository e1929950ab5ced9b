package profile

import (
	"math"
	"strings"
)

// Definition is the declarative, unvalidated form of a profile as it appears
// in the profile table.
type Definition struct {
	Type    string             `yaml:"type" json:"type"`
	Name    string             `yaml:"name" json:"name"`
	Aliases []string           `yaml:"aliases" json:"aliases,omitempty"`
	Main    map[string]float64 `yaml:"main" json:"main"`
	Subs    map[string]float64 `yaml:"subs" json:"subs"`
	Targets map[string]float64 `yaml:"targets" json:"targets"`
}

// Profile is the validated weight/target configuration for one business type.
// It is immutable; accessors return copies.
type Profile struct {
	typeID      string
	name        string
	aliases     []string
	mainWeights map[Category]float64
	subWeights  map[Metric]float64
	targets     map[Metric]float64
}

// New validates def and builds an immutable Profile from it.
func New(def Definition) (*Profile, error) {
	id := strings.TrimSpace(def.Type)
	if id == "" {
		return nil, invalid(def.Type, "type", "must not be empty")
	}

	p := &Profile{
		typeID:      id,
		name:        def.Name,
		mainWeights: make(map[Category]float64, len(def.Main)),
		subWeights:  make(map[Metric]float64, len(def.Subs)),
		targets:     make(map[Metric]float64, len(def.Targets)),
	}
	if p.name == "" {
		p.name = id
	}

	for _, a := range def.Aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, invalid(id, "aliases", "alias must not be empty")
		}
		p.aliases = append(p.aliases, a)
	}

	for k, w := range def.Main {
		c := Category(k)
		if !c.Valid() {
			return nil, invalid(id, "main."+k, "unknown main category")
		}
		if err := checkWeight(id, "main."+k, w); err != nil {
			return nil, err
		}
		p.mainWeights[c] = w
	}
	for _, c := range Categories() {
		if _, ok := p.mainWeights[c]; !ok {
			return nil, invalid(id, "main."+string(c), "missing main category weight")
		}
	}

	for k, w := range def.Subs {
		m := Metric(k)
		if _, ok := m.Category(); !ok {
			return nil, invalid(id, "subs."+k, "sub-metric does not belong to a known main category")
		}
		if err := checkWeight(id, "subs."+k, w); err != nil {
			return nil, err
		}
		p.subWeights[m] = w
	}

	for k, t := range def.Targets {
		m := Metric(k)
		if _, ok := p.subWeights[m]; !ok {
			return nil, invalid(id, "targets."+k, "target references a sub-metric absent from subs")
		}
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return nil, invalid(id, "targets."+k, "target must be a finite non-negative number, got %v", t)
		}
		p.targets[m] = t
	}

	return p, nil
}

func checkWeight(profile, field string, w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return invalid(profile, field, "weight must be a finite non-negative number, got %v", w)
	}
	return nil
}

// TypeID returns the canonical business type identifier.
func (p *Profile) TypeID() string { return p.typeID }

// Name returns the display name.
func (p *Profile) Name() string { return p.name }

// Aliases returns the alternative identifiers resolving to this profile.
func (p *Profile) Aliases() []string {
	return append([]string(nil), p.aliases...)
}

// MainWeight returns the weight of category c.
func (p *Profile) MainWeight(c Category) float64 { return p.mainWeights[c] }

// SubWeight returns the weight of sub-metric m; ok is false when m is not weighted.
func (p *Profile) SubWeight(m Metric) (w float64, ok bool) {
	w, ok = p.subWeights[m]
	return w, ok
}

// Target returns the saturation value of m. ok is false when m has no target
// or a zero target; such a sub-metric does not participate in scoring.
func (p *Profile) Target(m Metric) (t float64, ok bool) {
	t, ok = p.targets[m]
	if !ok || t <= 0 {
		return 0, false
	}
	return t, true
}

// TargetedMetrics returns the sub-metrics that participate in scoring, sorted
// by id. These are exactly the metrics requested from a spatial provider.
func (p *Profile) TargetedMetrics() []Metric {
	out := make([]Metric, 0, len(p.targets))
	for m := range p.targets {
		if _, ok := p.Target(m); ok {
			out = append(out, m)
		}
	}
	sortMetrics(out)
	return out
}

// WeightedMetrics returns every weighted sub-metric of category c, sorted by id,
// whether or not it has a target.
func (p *Profile) WeightedMetrics(c Category) []Metric {
	var out []Metric
	for m := range p.subWeights {
		if mc, _ := m.Category(); mc == c {
			out = append(out, m)
		}
	}
	sortMetrics(out)
	return out
}

// Definition returns the declarative form of p.
func (p *Profile) Definition() Definition {
	def := Definition{
		Type:    p.typeID,
		Name:    p.name,
		Aliases: p.Aliases(),
		Main:    make(map[string]float64, len(p.mainWeights)),
		Subs:    make(map[string]float64, len(p.subWeights)),
		Targets: make(map[string]float64, len(p.targets)),
	}
	for c, w := range p.mainWeights {
		def.Main[string(c)] = w
	}
	for m, w := range p.subWeights {
		def.Subs[string(m)] = w
	}
	for m, t := range p.targets {
		def.Targets[string(m)] = t
	}
	return def
}
