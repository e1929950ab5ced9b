package geo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
	"github.com/MikeSquared-Agency/Siteselect/internal/store"
)

// poiCategories maps sub-metrics counted from the poi table to its category column.
var poiCategories = map[profile.Metric]string{
	profile.CompCafe:  "cafe",
	profile.CompRest:  "restaurant",
	profile.CompBar:   "bar",
	profile.PubUni:    "university",
	profile.PubMall:   "mall",
	profile.PubShop:   "shop",
	profile.PubSchool: "school",
	profile.PubSport:  "sport",
}

// PostGISConfig configures a PostGIS provider.
type PostGISConfig struct {
	Schema      string
	SRID        int
	Parallelism int
	Domain      Domain
}

// PostGIS computes aggregates with spatial SQL against a PostGIS database
// whose geometries are stored in a projected, metre-based SRID.
//
// Queries take the point as EWKB in $1, the data SRID in $2 and the radius
// in metres in $3.
type PostGIS struct {
	pool   store.Pool
	cfg    PostGISConfig
	logger *slog.Logger

	poiSQL     string
	housingSQL string
	stopsSQL   string
	parkingSQL string
}

// NewPostGIS creates a provider over pool.
func NewPostGIS(pool store.Pool, cfg PostGISConfig, logger *slog.Logger) (*PostGIS, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if !store.ValidIdent(cfg.Schema) {
		return nil, eris.Errorf("geo: invalid schema name %q", cfg.Schema)
	}
	if cfg.SRID == 0 {
		cfg.SRID = 2180
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	const pt = `ST_Transform(ST_GeomFromEWKB($1), $2)`
	s := cfg.Schema
	return &PostGIS{
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		poiSQL: fmt.Sprintf(
			`SELECT count(*)::float8 FROM %s.poi WHERE category = $4 AND ST_DWithin(geom, %s, $3)`, s, pt),
		housingSQL: fmt.Sprintf(
			`SELECT COALESCE(sum(residents), 0)::float8 FROM %s.population WHERE ST_DWithin(geom, %s, $3)`, s, pt),
		stopsSQL: fmt.Sprintf(
			`SELECT count(*)::float8 FROM %s.transport_stops WHERE ST_DWithin(geom, %s, $3)`, s, pt),
		parkingSQL: fmt.Sprintf(
			`SELECT COALESCE(sum(ST_Area(ST_Intersection(geom, ST_Buffer(%s, $3)))), 0)::float8 FROM %s.parking WHERE ST_DWithin(geom, %s, $3)`,
			pt, s, pt),
	}, nil
}

// FetchAggregates runs one query per requested metric, at most
// Parallelism at a time. Any failing query fails the whole fetch.
func (p *PostGIS) FetchAggregates(ctx context.Context, pt scoring.Point, radius float64, metrics []profile.Metric) (map[profile.Metric]float64, error) {
	if err := p.cfg.Domain.Validate(pt, radius); err != nil {
		return nil, err
	}

	point, err := EncodePoint(pt)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(metrics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)

	for i, m := range metrics {
		sql, args, ok := p.query(m, point, radius)
		if !ok {
			p.logger.Debug("no query for metric, reporting 0", "metric", m)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.pool.QueryRow(gctx, sql, args...).Scan(&values[i]); err != nil {
				return eris.Wrapf(err, "geo: query %s", m)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[profile.Metric]float64, len(metrics))
	for i, m := range metrics {
		out[m] = values[i]
	}
	return out, nil
}

func (p *PostGIS) query(m profile.Metric, point []byte, radius float64) (string, []any, bool) {
	args := []any{point, p.cfg.SRID, radius}
	if cat, ok := poiCategories[m]; ok {
		return p.poiSQL, append(args, cat), true
	}
	switch m {
	case profile.ResHousing:
		return p.housingSQL, args, true
	case profile.TransStop:
		return p.stopsSQL, args, true
	case profile.TransPark:
		return p.parkingSQL, args, true
	}
	return "", nil, false
}

// EncodePoint encodes pt as little-endian EWKB with SRID 4326.
func EncodePoint(pt scoring.Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{pt.Lon, pt.Lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}
