package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one or more candidate locations",
	Long: "Scores a location for a business type. Passing --point more than once ranks the candidates, best first.\n" +
		"Example: siteselect score --type cafe --point 52.2297,21.0122 --point 52.4064,16.9252",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rawPoints, _ := cmd.Flags().GetStringArray("point")
		typeID, _ := cmd.Flags().GetString("type")
		radius, _ := cmd.Flags().GetFloat64("radius")
		format, _ := cmd.Flags().GetString("format")

		points, err := parsePoints(rawPoints)
		if err != nil {
			return err
		}
		if typeID == "" {
			typeID = cfg.API.DefaultType
		}
		if radius == 0 {
			radius = cfg.API.DefaultRadius
		}

		profiles, err := profile.LoadFile(cfg.Profiles.Path)
		if err != nil {
			return eris.Wrap(err, "load profiles")
		}
		be, err := newBackend(ctx, cfg, logger)
		if err != nil {
			return eris.Wrap(err, "aggregate provider")
		}
		defer be.close()

		engine := scoring.NewEngine(profiles, be.provider, logger)
		out := cmd.OutOrStdout()

		if len(points) == 1 {
			b, err := engine.Score(ctx, points[0], radius, typeID)
			if err != nil {
				return eris.Wrap(err, "score")
			}
			if format == "table" {
				formatBreakdown(out, b)
				return nil
			}
			return writeIndented(out, b)
		}

		ranked, err := engine.Rank(ctx, points, radius, typeID, cfg.Provider.Parallelism)
		if err != nil {
			return eris.Wrap(err, "rank")
		}
		if format == "table" {
			formatRanking(out, ranked)
			return nil
		}
		return writeIndented(out, ranked)
	},
}

func init() {
	scoreCmd.Flags().StringArray("point", nil, "candidate location as lat,lon (repeatable)")
	scoreCmd.Flags().String("type", "", "business type id or alias (default from config)")
	scoreCmd.Flags().Float64("radius", 0, "analysis radius in metres (default from config)")
	scoreCmd.Flags().String("format", "json", "output format: json or table")
	_ = scoreCmd.MarkFlagRequired("point")
	rootCmd.AddCommand(scoreCmd)
}

// parsePoint reads a "lat,lon" pair.
func parsePoint(s string) (scoring.Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return scoring.Point{}, eris.Errorf("point %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return scoring.Point{}, eris.Wrapf(err, "point %q: latitude", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return scoring.Point{}, eris.Wrapf(err, "point %q: longitude", s)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return scoring.Point{}, eris.Errorf("point %q: coordinates out of range", s)
	}
	return scoring.Point{Lat: lat, Lon: lon}, nil
}

func parsePoints(raw []string) ([]scoring.Point, error) {
	if len(raw) == 0 {
		return nil, eris.New("at least one --point is required")
	}
	out := make([]scoring.Point, len(raw))
	for i, s := range raw {
		pt, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		out[i] = pt
	}
	return out, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatBreakdown(w io.Writer, b *scoring.Breakdown) {
	fmt.Fprintf(w, "Type:   %s\n", b.TypeID)
	fmt.Fprintf(w, "Point:  %.5f, %.5f\n", b.Point.Lat, b.Point.Lon)
	fmt.Fprintf(w, "Radius: %g m\n", b.Radius)
	if b.NoData {
		fmt.Fprintf(w, "Score:  %.1f (no data)\n\n", b.Score)
	} else {
		fmt.Fprintf(w, "Score:  %.1f\n\n", b.Score)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tWEIGHT\tSCORE\tMETRIC\tRAW\tTARGET\tCONTRIB")
	for _, cs := range b.Categories {
		if !cs.Included && len(cs.Metrics) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t\t\t\t\n", cs.Category, cs.Weight, included(cs.Included, cs.Score))
		for _, ms := range cs.Metrics {
			fmt.Fprintf(tw, "\t\t\t%s\t%g\t%g\t%s\n", ms.Metric, ms.Raw, ms.Target, included(ms.Included, ms.Contribution))
		}
	}
	tw.Flush()
}

func formatRanking(w io.Writer, ranked []scoring.Ranked) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tINPUT\tLAT\tLON\tSCORE")
	for i, r := range ranked {
		score := fmt.Sprintf("%.1f", r.Breakdown.Score)
		if r.Breakdown.NoData {
			score = "no data"
		}
		fmt.Fprintf(tw, "%d\t%d\t%.5f\t%.5f\t%s\n", i+1, r.Index, r.Breakdown.Point.Lat, r.Breakdown.Point.Lon, score)
	}
	tw.Flush()
}

func included(ok bool, v float64) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
