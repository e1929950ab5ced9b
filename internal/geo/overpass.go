package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/serjvanilla/go-overpass"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

// DefaultOverpassURL is the public Overpass API interpreter.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// OverpassQuerier runs a raw Overpass QL query.
type OverpassQuerier interface {
	Query(query string) (overpass.Result, error)
}

// NewOverpassClient returns a querier for endpoint allowing at most
// parallel requests in flight.
func NewOverpassClient(endpoint string, parallel int, timeout time.Duration) OverpassQuerier {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	client := overpass.NewWithSettings(endpoint, parallel, &http.Client{Timeout: timeout})
	return &client
}

// tagRule matches an OSM element when tag key has one of values (any value
// when values is empty) and none of exclude.
type tagRule struct {
	key     string
	values  []string
	exclude []string
}

func (r tagRule) match(tags map[string]string) bool {
	v, ok := tags[r.key]
	if !ok {
		return false
	}
	for _, x := range r.exclude {
		if v == x {
			return false
		}
	}
	if len(r.values) == 0 {
		return true
	}
	for _, x := range r.values {
		if v == x {
			return true
		}
	}
	return false
}

func (r tagRule) selector() string {
	var b strings.Builder
	switch len(r.values) {
	case 0:
		fmt.Fprintf(&b, `["%s"]`, r.key)
	case 1:
		fmt.Fprintf(&b, `["%s"="%s"]`, r.key, r.values[0])
	default:
		fmt.Fprintf(&b, `["%s"~"^(%s)$"]`, r.key, strings.Join(r.values, "|"))
	}
	for _, x := range r.exclude {
		fmt.Fprintf(&b, `["%s"!="%s"]`, r.key, x)
	}
	return b.String()
}

// osmRules classifies OSM elements into sub-metrics. res_housing has no
// OSM equivalent.
var osmRules = map[profile.Metric][]tagRule{
	profile.CompCafe:  {{key: "amenity", values: []string{"cafe"}}},
	profile.CompRest:  {{key: "amenity", values: []string{"restaurant", "fast_food"}}},
	profile.CompBar:   {{key: "amenity", values: []string{"bar", "pub"}}},
	profile.PubUni:    {{key: "amenity", values: []string{"university", "college"}}},
	profile.PubMall:   {{key: "shop", values: []string{"mall"}}},
	profile.PubShop:   {{key: "shop", exclude: []string{"mall"}}},
	profile.PubSchool: {{key: "amenity", values: []string{"school"}}},
	profile.PubSport:  {{key: "leisure", values: []string{"sports_centre", "fitness_centre", "stadium"}}},
	profile.TransStop: {{key: "highway", values: []string{"bus_stop"}}, {key: "railway", values: []string{"tram_stop", "station", "halt"}}},
	profile.TransPark: {{key: "amenity", values: []string{"parking"}}},
}

// Overpass computes aggregates from live OpenStreetMap data. Parking area is
// approximated from way bounding boxes.
type Overpass struct {
	client  OverpassQuerier
	domain  Domain
	timeout time.Duration
	logger  *slog.Logger
}

// NewOverpass creates a provider over client. timeout bounds the server-side
// query time.
func NewOverpass(client OverpassQuerier, domain Domain, timeout time.Duration, logger *slog.Logger) *Overpass {
	return &Overpass{client: client, domain: domain, timeout: timeout, logger: logger}
}

// FetchAggregates issues a single around: query covering every requested
// metric and classifies the returned elements.
func (o *Overpass) FetchAggregates(ctx context.Context, pt scoring.Point, radius float64, metrics []profile.Metric) (map[profile.Metric]float64, error) {
	if err := o.domain.Validate(pt, radius); err != nil {
		return nil, err
	}

	out := make(map[profile.Metric]float64, len(metrics))
	var wanted []profile.Metric
	for _, m := range metrics {
		out[m] = 0
		if _, ok := osmRules[m]; ok {
			wanted = append(wanted, m)
		} else {
			o.logger.Debug("metric not derivable from OSM, reporting 0", "metric", m)
		}
	}
	if len(wanted) == 0 {
		return out, nil
	}

	res, err := o.run(ctx, BuildOverpassQuery(pt, radius, wanted, o.timeout))
	if err != nil {
		return nil, err
	}

	for _, n := range res.Nodes {
		if len(n.Tags) == 0 || Distance(pt, scoring.Point{Lat: n.Lat, Lon: n.Lon}) > radius {
			continue
		}
		for _, m := range classify(n.Tags, wanted) {
			if m != profile.TransPark {
				out[m]++
			}
		}
	}
	for _, w := range res.Ways {
		if len(w.Tags) == 0 || w.Bounds == nil {
			continue
		}
		center := scoring.Point{
			Lat: (w.Bounds.Min.Lat + w.Bounds.Max.Lat) / 2,
			Lon: (w.Bounds.Min.Lon + w.Bounds.Max.Lon) / 2,
		}
		if Distance(pt, center) > radius {
			continue
		}
		for _, m := range classify(w.Tags, wanted) {
			if m == profile.TransPark {
				out[m] += boxArea(w.Bounds.Min.Lat, w.Bounds.Min.Lon, w.Bounds.Max.Lat, w.Bounds.Max.Lon)
			} else {
				out[m]++
			}
		}
	}
	return out, nil
}

func (o *Overpass) run(ctx context.Context, query string) (overpass.Result, error) {
	if err := ctx.Err(); err != nil {
		return overpass.Result{}, eris.Wrap(err, "geo: overpass")
	}

	type reply struct {
		res overpass.Result
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		res, err := o.client.Query(query)
		ch <- reply{res, err}
	}()

	select {
	case <-ctx.Done():
		return overpass.Result{}, eris.Wrap(ctx.Err(), "geo: overpass")
	case r := <-ch:
		if r.err != nil {
			return overpass.Result{}, eris.Wrap(r.err, "geo: overpass query")
		}
		return r.res, nil
	}
}

func classify(tags map[string]string, metrics []profile.Metric) []profile.Metric {
	var hits []profile.Metric
	for _, m := range metrics {
		for _, r := range osmRules[m] {
			if r.match(tags) {
				hits = append(hits, m)
				break
			}
		}
	}
	return hits
}

// BuildOverpassQuery returns an Overpass QL query selecting nodes and ways
// matching metrics within radius metres of pt.
func BuildOverpassQuery(pt scoring.Point, radius float64, metrics []profile.Metric, timeout time.Duration) string {
	var b strings.Builder
	b.WriteString("[out:json]")
	if secs := int(timeout.Seconds()); secs > 0 {
		fmt.Fprintf(&b, "[timeout:%d]", secs)
	}
	b.WriteString(";\n(\n")
	around := fmt.Sprintf("(around:%g,%g,%g)", radius, pt.Lat, pt.Lon)
	for _, m := range metrics {
		for _, r := range osmRules[m] {
			sel := r.selector()
			fmt.Fprintf(&b, "  node%s%s;\n", sel, around)
			fmt.Fprintf(&b, "  way%s%s;\n", sel, around)
		}
	}
	b.WriteString(");\nout body bb qt;\n")
	return b.String()
}
