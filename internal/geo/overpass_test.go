package geo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/serjvanilla/go-overpass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
)

type fakeQuerier struct {
	result  overpass.Result
	err     error
	block   chan struct{}
	queries []string
}

func (f *fakeQuerier) Query(q string) (overpass.Result, error) {
	f.queries = append(f.queries, q)
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func node(id int64, lat, lon float64, tags map[string]string) *overpass.Node {
	return &overpass.Node{Meta: overpass.Meta{ID: id, Tags: tags}, Lat: lat, Lon: lon}
}

func way(id int64, minLat, minLon, maxLat, maxLon float64, tags map[string]string) *overpass.Way {
	return &overpass.Way{
		Meta: overpass.Meta{ID: id, Tags: tags},
		Bounds: &overpass.Box{
			Min: overpass.Point{Lat: minLat, Lon: minLon},
			Max: overpass.Point{Lat: maxLat, Lon: maxLon},
		},
	}
}

func TestOverpassClassifiesElements(t *testing.T) {
	q := &fakeQuerier{result: overpass.Result{
		Nodes: map[int64]*overpass.Node{
			1: node(1, 50.0612, 19.9441, map[string]string{"amenity": "cafe"}),
			2: node(2, 50.0615, 19.9445, map[string]string{"amenity": "cafe"}),
			3: node(3, 50.0608, 19.9438, map[string]string{"amenity": "fast_food"}),
			4: node(4, 50.0611, 19.9440, map[string]string{"highway": "bus_stop"}),
			5: node(5, 50.0613, 19.9439, map[string]string{"railway": "tram_stop"}),
			// way member without tags
			6: node(6, 50.0610, 19.9440, nil),
			// about 1.1 km north, outside the radius
			7: node(7, 50.0710, 19.9440, map[string]string{"amenity": "cafe"}),
			8: node(8, 50.0609, 19.9442, map[string]string{"shop": "mall"}),
			9: node(9, 50.0609, 19.9443, map[string]string{"shop": "bakery"}),
		},
		Ways: map[int64]*overpass.Way{
			10: way(10, 50.0600, 19.9430, 50.0610, 19.9440, map[string]string{"amenity": "parking"}),
			11: way(11, 50.0612, 19.9442, 50.0614, 19.9446, map[string]string{"amenity": "university"}),
		},
	}}

	o := NewOverpass(q, Poland, 25*time.Second, discardLogger())
	metrics := []profile.Metric{
		profile.CompCafe, profile.CompRest, profile.PubUni, profile.PubMall, profile.PubShop,
		profile.ResHousing, profile.TransStop, profile.TransPark,
	}
	got, err := o.FetchAggregates(context.Background(), krakow, 500, metrics)
	require.NoError(t, err)

	assert.Equal(t, 2.0, got[profile.CompCafe])
	assert.Equal(t, 1.0, got[profile.CompRest])
	assert.Equal(t, 1.0, got[profile.PubUni])
	assert.Equal(t, 1.0, got[profile.PubMall])
	assert.Equal(t, 1.0, got[profile.PubShop])
	assert.Equal(t, 2.0, got[profile.TransStop])
	assert.Equal(t, 0.0, got[profile.ResHousing])
	assert.InDelta(t, boxArea(50.0600, 19.9430, 50.0610, 19.9440), got[profile.TransPark], 1e-6)
	assert.Len(t, got, len(metrics))
	require.Len(t, q.queries, 1)
}

func TestOverpassOnlyHousingSkipsQuery(t *testing.T) {
	q := &fakeQuerier{}
	o := NewOverpass(q, Poland, 0, discardLogger())

	got, err := o.FetchAggregates(context.Background(), krakow, 500, []profile.Metric{profile.ResHousing})
	require.NoError(t, err)
	assert.Equal(t, map[profile.Metric]float64{profile.ResHousing: 0}, got)
	assert.Empty(t, q.queries)
}

func TestOverpassQueryError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("429 Too Many Requests")}
	o := NewOverpass(q, Poland, 0, discardLogger())

	got, err := o.FetchAggregates(context.Background(), krakow, 500, []profile.Metric{profile.CompCafe})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "429")
}

func TestOverpassRejectsOutOfDomain(t *testing.T) {
	q := &fakeQuerier{}
	o := NewOverpass(q, Poland, 0, discardLogger())

	_, err := o.FetchAggregates(context.Background(), krakow, 9000, []profile.Metric{profile.CompCafe})
	assert.ErrorIs(t, err, ErrInvalidRadius)
	assert.Empty(t, q.queries)
}

func TestOverpassHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &fakeQuerier{}
	o := NewOverpass(q, Poland, 0, discardLogger())
	_, err := o.FetchAggregates(ctx, krakow, 500, []profile.Metric{profile.CompCafe})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, q.queries)

	block := make(chan struct{})
	defer close(block)
	q = &fakeQuerier{block: block}
	o = NewOverpass(q, Poland, 0, discardLogger())
	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = o.FetchAggregates(ctx, krakow, 500, []profile.Metric{profile.CompCafe})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildOverpassQuery(t *testing.T) {
	q := BuildOverpassQuery(krakow, 500, []profile.Metric{profile.CompRest, profile.PubShop}, 25*time.Second)

	assert.True(t, strings.HasPrefix(q, "[out:json][timeout:25];"))
	assert.Contains(t, q, `node["amenity"~"^(restaurant|fast_food)$"](around:500,50.061,19.944);`)
	assert.Contains(t, q, `way["shop"]["shop"!="mall"](around:500,50.061,19.944);`)
	assert.Contains(t, q, "out body bb qt;")
}
