package profile

import "sort"

// Category is one of the four fixed top-level scoring dimensions.
type Category string

const (
	Competition Category = "competition"
	Public      Category = "public"
	Residents   Category = "residents"
	Transport   Category = "transport"
)

// Categories returns the closed category set in presentation order.
func Categories() []Category {
	return []Category{Competition, Public, Residents, Transport}
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	switch c {
	case Competition, Public, Residents, Transport:
		return true
	}
	return false
}

// Metric identifies a sub-metric such as the count of nearby transit stops.
type Metric string

const (
	CompCafe   Metric = "comp_cafe"
	CompRest   Metric = "comp_rest"
	CompBar    Metric = "comp_bar"
	PubUni     Metric = "pub_uni"
	PubMall    Metric = "pub_mall"
	PubShop    Metric = "pub_shop"
	PubSchool  Metric = "pub_school"
	PubSport   Metric = "pub_sport"
	ResHousing Metric = "res_housing"
	TransStop  Metric = "trans_stop"
	TransPark  Metric = "trans_park"
)

// metricCategory is the fixed sub-metric to category assignment.
var metricCategory = map[Metric]Category{
	CompCafe:   Competition,
	CompRest:   Competition,
	CompBar:    Competition,
	PubUni:     Public,
	PubMall:    Public,
	PubShop:    Public,
	PubSchool:  Public,
	PubSport:   Public,
	ResHousing: Residents,
	TransStop:  Transport,
	TransPark:  Transport,
}

// Category returns the main category m belongs to. ok is false for unknown metrics.
func (m Metric) Category() (Category, bool) {
	c, ok := metricCategory[m]
	return c, ok
}

// Metrics returns every known sub-metric, sorted by id.
func Metrics() []Metric {
	out := make([]Metric, 0, len(metricCategory))
	for m := range metricCategory {
		out = append(out, m)
	}
	sortMetrics(out)
	return out
}

func sortMetrics(ms []Metric) {
	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })
}
