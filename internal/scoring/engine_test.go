package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider answers from a fixed table and records what it was asked for.
type fakeProvider struct {
	values map[profile.Metric]float64
	omit   map[profile.Metric]bool
	err    error

	calls     atomic.Int32
	mu        sync.Mutex
	requested []profile.Metric
}

func (f *fakeProvider) FetchAggregates(_ context.Context, _ Point, _ float64, metrics []profile.Metric) (map[profile.Metric]float64, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requested = append([]profile.Metric(nil), metrics...)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[profile.Metric]float64, len(metrics))
	for _, m := range metrics {
		if f.omit[m] {
			continue
		}
		out[m] = f.values[m]
	}
	return out, nil
}

var krakow = Point{Lat: 50.061, Lon: 19.944}

func newTestEngine(t *testing.T, provider AggregateProvider, defs ...profile.Definition) *Engine {
	t.Helper()
	var src ProfileSource
	if len(defs) == 0 {
		src = defaultStore(t)
	} else {
		s, err := profile.NewStore(defs)
		if err != nil {
			t.Fatal(err)
		}
		src = s
	}
	return NewEngine(src, provider, discardLogger())
}

func TestScoreCafeAtTargets(t *testing.T) {
	provider := &fakeProvider{values: map[profile.Metric]float64{
		profile.CompCafe: 4, profile.PubUni: 2, profile.ResHousing: 5000, profile.TransStop: 6,
	}}
	e := newTestEngine(t, provider, singleMetricCafe())

	b, err := e.Score(context.Background(), krakow, 500, "cafe")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if b.Score != 100.0 {
		t.Errorf("expected 100.0, got %f", b.Score)
	}
	for _, c := range profile.Categories() {
		cs, ok := b.Category(c)
		if !ok || cs.Score != 1.0 {
			t.Errorf("category %s: expected 1.0, got %+v", c, cs)
		}
	}
	if b.TypeID != "cafe" || b.Radius != 500 || b.Point != krakow {
		t.Errorf("request echo mismatch: %+v", b)
	}
}

func TestScoreCafeAllZero(t *testing.T) {
	provider := &fakeProvider{values: map[profile.Metric]float64{}}
	e := newTestEngine(t, provider)

	b, err := e.Score(context.Background(), krakow, 500, "cafe")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if b.Score != 0.0 {
		t.Errorf("expected 0.0, got %f", b.Score)
	}
	if b.NoData {
		t.Error("all-zero aggregates are not a no-data outcome")
	}
}

func TestScoreRequestsTargetedMetricsOnly(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestEngine(t, provider)

	if _, err := e.Score(context.Background(), krakow, 500, "shop"); err != nil {
		t.Fatal(err)
	}
	want := []profile.Metric{
		profile.CompBar, profile.CompCafe, profile.CompRest,
		profile.PubSchool, profile.ResHousing, profile.TransPark,
	}
	if !reflect.DeepEqual(provider.requested, want) {
		t.Errorf("requested %v, want %v", provider.requested, want)
	}
}

func TestScoreAliasReportsCanonicalType(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{})
	b, err := e.Score(context.Background(), krakow, 500, "kawiarnia")
	if err != nil {
		t.Fatal(err)
	}
	if b.TypeID != "cafe" {
		t.Errorf("expected canonical type cafe, got %s", b.TypeID)
	}
}

func TestScoreUnknownType(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestEngine(t, provider)

	b, err := e.Score(context.Background(), krakow, 500, "unknown")
	if b != nil {
		t.Error("expected nil breakdown")
	}
	var ute *profile.UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected *profile.UnknownTypeError, got %v", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageReceived {
		t.Errorf("expected failure after %s, got %v", StageReceived, err)
	}
	if provider.calls.Load() != 0 {
		t.Error("provider must not be called for an unknown type")
	}
}

func TestScoreIncompleteAggregate(t *testing.T) {
	provider := &fakeProvider{
		values: map[profile.Metric]float64{profile.CompCafe: 4, profile.PubUni: 2, profile.ResHousing: 5000},
		omit:   map[profile.Metric]bool{profile.TransStop: true},
	}
	e := newTestEngine(t, provider, singleMetricCafe())

	b, err := e.Score(context.Background(), krakow, 500, "cafe")
	if b != nil {
		t.Fatal("no partial score may be returned")
	}
	var iae *IncompleteAggregateError
	if !errors.As(err, &iae) {
		t.Fatalf("expected *IncompleteAggregateError, got %v", err)
	}
	if len(iae.Missing) != 1 || iae.Missing[0] != profile.TransStop {
		t.Errorf("expected missing [trans_stop], got %v", iae.Missing)
	}
	if !errors.Is(err, ErrIncompleteAggregate) {
		t.Error("expected errors.Is(err, ErrIncompleteAggregate)")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageProfileResolved {
		t.Errorf("expected failure after %s, got %v", StageProfileResolved, err)
	}
}

func TestScoreProviderErrorPropagates(t *testing.T) {
	dbDown := errors.New("connection refused")
	provider := &fakeProvider{err: dbDown}
	e := newTestEngine(t, provider)

	b, err := e.Score(context.Background(), krakow, 500, "cafe")
	if b != nil {
		t.Error("provider failure must not produce a score")
	}
	if !errors.Is(err, dbDown) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("expected exactly one provider call (no retries), got %d", provider.calls.Load())
	}
}

func TestScoreNoUsableMetrics(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestEngine(t, provider, profile.Definition{
		Type: "empty",
		Main: map[string]float64{"competition": 1, "public": 1, "residents": 1, "transport": 1},
		Subs: map[string]float64{"trans_stop": 1},
	})

	b, err := e.Score(context.Background(), krakow, 500, "empty")
	if err != nil {
		t.Fatalf("no-data must not be an error: %v", err)
	}
	if !b.NoData || b.Score != 0 {
		t.Errorf("expected no-data sentinel, got noData=%v score=%f", b.NoData, b.Score)
	}
	if provider.calls.Load() != 0 {
		t.Error("provider should not be called when nothing is targeted")
	}
}

func TestScoreIdempotent(t *testing.T) {
	provider := &fakeProvider{values: map[profile.Metric]float64{
		profile.CompCafe: 1, profile.PubShop: 7, profile.ResHousing: 1234, profile.TransStop: 2, profile.TransPark: 900,
	}}
	e := newTestEngine(t, provider)

	a, err := e.Score(context.Background(), krakow, 750, "restaurant")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Score(context.Background(), krakow, 750, "restaurant")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated scoring diverged:\n%+v\n%+v", a, b)
	}
}

func TestScoreRounding(t *testing.T) {
	provider := &fakeProvider{values: map[profile.Metric]float64{profile.TransStop: 1}}
	e := newTestEngine(t, provider, profile.Definition{
		Type:    "kiosk",
		Main:    map[string]float64{"competition": 1, "public": 1, "residents": 1, "transport": 1},
		Subs:    map[string]float64{"trans_stop": 1},
		Targets: map[string]float64{"trans_stop": 3},
	})

	b, err := e.Score(context.Background(), krakow, 500, "kiosk")
	if err != nil {
		t.Fatal(err)
	}
	if b.Score != 33.3 {
		t.Errorf("expected 33.3, got %v", b.Score)
	}
	if b.RawScore <= 33.33 || b.RawScore >= 33.34 {
		t.Errorf("raw score should be unrounded, got %v", b.RawScore)
	}
	if c, ok := b.Contribution(profile.TransStop); !ok || c <= 0.333 || c >= 0.334 {
		t.Errorf("unexpected trans_stop contribution %v (ok=%v)", c, ok)
	}
}

func TestScoreConcurrent(t *testing.T) {
	provider := &fakeProvider{values: map[profile.Metric]float64{
		profile.CompBar: 3, profile.PubUni: 4, profile.ResHousing: 2500, profile.TransStop: 5,
	}}
	e := newTestEngine(t, provider)

	want, err := e.Score(context.Background(), krakow, 500, "bar")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Score(context.Background(), krakow, 500, "bar")
			if err != nil {
				errs <- err
				return
			}
			if got.RawScore != want.RawScore {
				errs <- errors.New("concurrent score diverged")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRankOrdersByScore(t *testing.T) {
	// The provider's answer depends on the point, so each candidate differs.
	provider := pointProvider{
		{Lat: 1}: 1,
		{Lat: 2}: 6,
		{Lat: 3}: 3,
		{Lat: 4}: 6,
	}
	e := newTestEngine(t, provider, profile.Definition{
		Type:    "kiosk",
		Main:    map[string]float64{"competition": 1, "public": 1, "residents": 1, "transport": 1},
		Subs:    map[string]float64{"trans_stop": 1},
		Targets: map[string]float64{"trans_stop": 6},
	})

	points := []Point{{Lat: 1}, {Lat: 2}, {Lat: 3}, {Lat: 4}}
	ranked, err := e.Rank(context.Background(), points, 500, "kiosk", 2)
	if err != nil {
		t.Fatal(err)
	}
	order := make([]int, len(ranked))
	for i, r := range ranked {
		order[i] = r.Index
	}
	if !reflect.DeepEqual(order, []int{1, 3, 2, 0}) {
		t.Errorf("unexpected order %v", order)
	}
	if ranked[0].Breakdown.Score != 100 {
		t.Errorf("expected top score 100, got %v", ranked[0].Breakdown.Score)
	}
}

func TestRankFailsWholeBatch(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{err: errors.New("timeout")})
	ranked, err := e.Rank(context.Background(), []Point{krakow, krakow}, 500, "cafe", 4)
	if err == nil {
		t.Fatal("expected error")
	}
	if ranked != nil {
		t.Error("expected no partial ranking")
	}
}

// pointProvider reports a trans_stop count keyed by point.
type pointProvider map[Point]float64

func (p pointProvider) FetchAggregates(_ context.Context, pt Point, _ float64, metrics []profile.Metric) (map[profile.Metric]float64, error) {
	out := make(map[profile.Metric]float64, len(metrics))
	for _, m := range metrics {
		out[m] = 0
	}
	out[profile.TransStop] = p[pt]
	return out, nil
}
