package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/Siteselect/internal/config"
	"github.com/MikeSquared-Agency/Siteselect/internal/geo"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
	"github.com/MikeSquared-Agency/Siteselect/internal/store"
)

// backend is a configured aggregate provider plus its lifecycle hooks. ready
// is nil when the provider has nothing to probe.
type backend struct {
	provider scoring.AggregateProvider
	ready    func(ctx context.Context) error
	close    func()
}

func domainFromConfig(g config.GeoConfig) geo.Domain {
	return geo.Domain{
		MinLat:    g.MinLat,
		MaxLat:    g.MaxLat,
		MinLon:    g.MinLon,
		MaxLon:    g.MaxLon,
		MaxRadius: g.MaxRadius,
	}
}

func newBackend(ctx context.Context, c *config.Config, logger *slog.Logger) (*backend, error) {
	domain := domainFromConfig(c.Geo)

	switch c.Provider.Kind {
	case config.ProviderOverpass:
		timeout := c.OverpassTimeout()
		// The HTTP client gets headroom over the server-side query timeout.
		client := geo.NewOverpassClient(c.Overpass.URL, c.Provider.Parallelism, timeout+5*time.Second)
		logger.Info("using overpass provider", "url", c.Overpass.URL)
		return &backend{
			provider: geo.NewOverpass(client, domain, timeout, logger),
			close:    func() {},
		}, nil

	default:
		if c.Database.URL == "" {
			return nil, errors.New("postgis provider requires database.url")
		}
		pool, err := store.Connect(ctx, c.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := store.CheckSchema(ctx, pool, c.PostGIS.Schema); err != nil {
			logger.Warn("spatial schema check failed", "schema", c.PostGIS.Schema, "error", err)
		}
		p, err := geo.NewPostGIS(pool, geo.PostGISConfig{
			Schema:      c.PostGIS.Schema,
			SRID:        c.PostGIS.SRID,
			Parallelism: c.Provider.Parallelism,
			Domain:      domain,
		}, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to database", "schema", c.PostGIS.Schema)
		return &backend{provider: p, ready: pool.Ping, close: pool.Close}, nil
	}
}
