package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Siteselect/internal/config"
	"github.com/MikeSquared-Agency/Siteselect/internal/geo"
	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "score", "profiles", "events"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "siteselect", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, name := range []string{"point", "type", "radius", "format"} {
		require.NotNil(t, scoreCmd.Flags().Lookup(name), "score command should have --%s flag", name)
	}
	assert.Equal(t, "json", scoreCmd.Flags().Lookup("format").DefValue)
}

func TestProfilesCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range profilesCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["validate"])
}

func TestEventsCommand_DefaultSubject(t *testing.T) {
	flag := eventsCmd.Flags().Lookup("subject")
	require.NotNil(t, flag)
	assert.Equal(t, "siteselect.>", flag.DefValue)
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    scoring.Point
		wantErr bool
	}{
		{in: "52.2297,21.0122", want: scoring.Point{Lat: 52.2297, Lon: 21.0122}},
		{in: " 50.06 , 19.94 ", want: scoring.Point{Lat: 50.06, Lon: 19.94}},
		{in: "52.2297", wantErr: true},
		{in: "abc,21", wantErr: true},
		{in: "52,xyz", wantErr: true},
		{in: "95,21", wantErr: true},
		{in: "52,181", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePoints_Empty(t *testing.T) {
	_, err := parsePoints(nil)
	assert.Error(t, err)
}

func TestDomainFromConfig(t *testing.T) {
	d := domainFromConfig(config.GeoConfig{MinLat: 49, MaxLat: 54.9, MinLon: 14.1, MaxLon: 24.2, MaxRadius: 5000})
	assert.Equal(t, geo.Poland, d)
}

func TestNewBackend_PostGISRequiresDatabaseURL(t *testing.T) {
	c := &config.Config{Provider: config.ProviderConfig{Kind: config.ProviderPostGIS}}
	_, err := newBackend(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "database.url")
}

func TestNewBackend_Overpass(t *testing.T) {
	c := &config.Config{
		Provider: config.ProviderConfig{Kind: config.ProviderOverpass, Parallelism: 2},
		Overpass: config.OverpassConfig{URL: "http://127.0.0.1:1/api/interpreter", TimeoutMs: 1000},
	}
	be, err := newBackend(context.Background(), c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer be.close()

	assert.IsType(t, &geo.Overpass{}, be.provider)
	assert.Nil(t, be.ready)
}

func TestProfilesList(t *testing.T) {
	out, err := execute(t, "profiles", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "TYPE")
	for _, typ := range []string{"cafe", "restaurant", "shop", "gym", "bar"} {
		assert.Contains(t, out, typ)
	}
}

func TestProfilesValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`profiles:
  - type: kiosk
    name: Kiosk
    main: {competition: 0, public: 1, residents: 0, transport: 0}
    subs: {pub_shop: 1}
    targets: {pub_shop: 3}
`), 0o644))

	out, err := execute(t, "profiles", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 profiles ok (kiosk)")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`profiles:
  - type: kiosk
    name: Kiosk
    main: {public: -1}
`), 0o644))

	_, err = execute(t, "profiles", "validate", bad)
	assert.Error(t, err)

	misspelled := filepath.Join(dir, "misspelled.yaml")
	require.NoError(t, os.WriteFile(misspelled, []byte(`profiles:
  - type: kiosk
    main: {competition: 0, public: 1, residents: 0, transport: 0}
    subs: {pub_shop: 1}
    target: {pub_shop: 3}
`), 0o644))

	_, err = execute(t, "profiles", "validate", misspelled)
	assert.ErrorContains(t, err, "target")
}

func TestFormatBreakdown(t *testing.T) {
	b := &scoring.Breakdown{
		TypeID: "cafe",
		Point:  scoring.Point{Lat: 52.2297, Lon: 21.0122},
		Radius: 500,
		Score:  62.5,
		Categories: []scoring.CategoryScore{
			{
				Category: profile.Transport,
				Weight:   2,
				Score:    0.5,
				Included: true,
				Metrics: []scoring.MetricScore{
					{Metric: profile.TransStop, Raw: 3, Target: 6, Weight: 4, Contribution: 0.5, Included: true},
				},
			},
		},
	}

	var buf bytes.Buffer
	formatBreakdown(&buf, b)
	out := buf.String()

	assert.Contains(t, out, "Score:  62.5")
	assert.Contains(t, out, "transport")
	assert.Contains(t, out, "trans_stop")
	assert.Contains(t, out, "0.500")
}

func TestFormatRanking(t *testing.T) {
	ranked := []scoring.Ranked{
		{Index: 1, Breakdown: &scoring.Breakdown{Point: scoring.Point{Lat: 52, Lon: 21}, Score: 80}},
		{Index: 0, Breakdown: &scoring.Breakdown{Point: scoring.Point{Lat: 50, Lon: 19}, NoData: true}},
	}

	var buf bytes.Buffer
	formatRanking(&buf, ranked)
	out := buf.String()

	assert.Contains(t, out, "80.0")
	assert.Contains(t, out, "no data")
}
