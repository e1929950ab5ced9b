// Package geo provides the spatial aggregate providers that feed the scoring
// engine, and the point/radius bounds they enforce.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

// EarthRadius is the mean Earth radius in metres.
const EarthRadius = 6371008.8

var (
	// ErrInvalidRadius is returned for a radius that is not positive or exceeds the limit.
	ErrInvalidRadius = errors.New("invalid radius")
	// ErrOutOfDomain is returned for a point outside the area the data covers.
	ErrOutOfDomain = errors.New("point outside supported domain")
)

// RejectionError describes why a provider refused a request before querying.
type RejectionError struct {
	Kind   error
	Detail string
}

func (e *RejectionError) Error() string { return fmt.Sprintf("geo: %v: %s", e.Kind, e.Detail) }

func (e *RejectionError) Unwrap() error { return e.Kind }

// Domain is the bounding box a provider's data covers, plus the largest
// radius it accepts.
type Domain struct {
	MinLat    float64 `yaml:"min_lat"`
	MaxLat    float64 `yaml:"max_lat"`
	MinLon    float64 `yaml:"min_lon"`
	MaxLon    float64 `yaml:"max_lon"`
	MaxRadius float64 `yaml:"max_radius"`
}

// Poland is the extent of the PUWG-1992 (EPSG:2180) projection.
var Poland = Domain{
	MinLat:    49.0,
	MaxLat:    54.9,
	MinLon:    14.1,
	MaxLon:    24.2,
	MaxRadius: 5000,
}

// Validate rejects radii outside (0, MaxRadius] and points outside the box.
// A zero MaxRadius means no upper limit.
func (d Domain) Validate(pt scoring.Point, radius float64) error {
	if math.IsNaN(radius) || radius <= 0 || math.IsInf(radius, 0) {
		return &RejectionError{Kind: ErrInvalidRadius, Detail: fmt.Sprintf("radius %v must be positive", radius)}
	}
	if d.MaxRadius > 0 && radius > d.MaxRadius {
		return &RejectionError{Kind: ErrInvalidRadius, Detail: fmt.Sprintf("radius %v exceeds %v", radius, d.MaxRadius)}
	}
	if !s2.LatLngFromDegrees(pt.Lat, pt.Lon).IsValid() {
		return &RejectionError{Kind: ErrOutOfDomain, Detail: fmt.Sprintf("(%v, %v) is not a valid coordinate", pt.Lat, pt.Lon)}
	}
	if pt.Lat < d.MinLat || pt.Lat > d.MaxLat || pt.Lon < d.MinLon || pt.Lon > d.MaxLon {
		return &RejectionError{Kind: ErrOutOfDomain, Detail: fmt.Sprintf("(%v, %v) outside [%v..%v]x[%v..%v]",
			pt.Lat, pt.Lon, d.MinLat, d.MaxLat, d.MinLon, d.MaxLon)}
	}
	return nil
}

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b scoring.Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * EarthRadius
}

// boxArea approximates the area in m² of a small lat/lon box using an
// equirectangular projection at its mid latitude.
func boxArea(minLat, minLon, maxLat, maxLon float64) float64 {
	if maxLat <= minLat || maxLon <= minLon {
		return 0
	}
	midLat := (minLat + maxLat) / 2 * math.Pi / 180
	h := (maxLat - minLat) * math.Pi / 180 * EarthRadius
	w := (maxLon - minLon) * math.Pi / 180 * EarthRadius * math.Cos(midLat)
	return h * w
}
