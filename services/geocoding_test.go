package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ciclus/rd-dashboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeoServer(t *testing.T, hits *int32) (*GeoClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "rd-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/search":
			q := r.URL.Query()
			assert.Equal(t, "br", q.Get("countrycodes"))
			assert.Equal(t, "5", q.Get("limit"))
			assert.Equal(t, "1", q.Get("addressdetails"))
			w.Write([]byte(`[{"lat":"-22.9","lon":"-43.2","display_name":"Rua da Glória, Glória, Rio de Janeiro",
				"address":{"road":"Rua da Glória","suburb":"Glória"}}]`))
		case r.URL.Path == "/reverse":
			if r.URL.Query().Get("lat") == "0" {
				w.Write([]byte(`{"display_name":"Oceano","address":{}}`))
				return
			}
			w.Write([]byte(`{"display_name":"Rua do Catete, Catete","address":{"road":"Rua do Catete","neighbourhood":"Catete"}}`))
		case r.URL.Path == "/interpreter":
			data := r.URL.Query().Get("data")
			assert.Contains(t, data, `way["highway"]["name"](around:500,`)
			w.Write([]byte(`{"elements":[
				{"tags":{"name":"Rua do Catete","highway":"primary"}},
				{"tags":{"name":"Rua Bento Lisboa","highway":"secondary"}},
				{"tags":{"name":"Elevado Perimetral","highway":"motorway"}},
				{"tags":{"name":"Rua Andrade Pertence","highway":"residential"}},
				{"tags":{"name":"Rua Bento Lisboa","highway":"secondary"}},
				{"tags":{"highway":"service"}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	g := NewGeoClient(config.Geocoding{
		NominatimURL: srv.URL + "/",
		OverpassURL:  srv.URL + "/interpreter",
		UserAgent:    "rd-test",
	})
	return g, srv
}

func TestGeoSearch(t *testing.T) {
	var hits int32
	g, _ := newGeoServer(t, &hits)

	out, err := g.Search(context.Background(), "Rua da Glória")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Rua da Glória", out[0].Street)
	assert.Equal(t, "Glória", out[0].Neighborhood)
	assert.InDelta(t, -22.9, out[0].Lat, 1e-9)

	short, err := g.Search(context.Background(), "Rua")
	assert.NoError(t, err)
	assert.Empty(t, short)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGeoReverse(t *testing.T) {
	var hits int32
	g, _ := newGeoServer(t, &hits)

	addr, err := g.Reverse(context.Background(), -22.92, -43.17)
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "Rua do Catete", addr.Street)
	assert.Equal(t, "Catete", addr.Neighborhood)

	none, err := g.Reverse(context.Background(), 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestGeoNearbyStreets(t *testing.T) {
	var hits int32
	g, _ := newGeoServer(t, &hits)

	names, err := g.NearbyStreets(context.Background(), -22.92, -43.17, "rua do catete")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rua Andrade Pertence", "Rua Bento Lisboa"}, names)
}

func TestNearbyStreetNamesCap(t *testing.T) {
	elements := make([]overpassElement, 0, 40)
	for i := 0; i < 40; i++ {
		elements = append(elements, overpassElement{Tags: map[string]string{
			"name":    "Rua " + strings.Repeat("a", i+1),
			"highway": "residential",
		}})
	}
	assert.Len(t, nearbyStreetNames(elements, ""), MaxNearbyStreets)
}

func TestGeoErrorsAreReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGeoClient(config.Geocoding{NominatimURL: srv.URL, OverpassURL: srv.URL, SearchTimeout: time.Second})
	_, err := g.Search(context.Background(), "Avenida Brasil")
	assert.Error(t, err)
	_, err = g.NearbyStreets(context.Background(), 1, 1, "")
	assert.Error(t, err)
}
