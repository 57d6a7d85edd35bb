package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ciclus/rd-dashboard/config"
	"github.com/ciclus/rd-dashboard/utils"
)

// MinSearchLength is the shortest query sent to forward search.
const MinSearchLength = 4

// MaxNearbyStreets caps the nearby street list.
const MaxNearbyStreets = 30

type AddressSuggestion struct {
	DisplayName  string  `json:"displayName"`
	Street       string  `json:"street"`
	Neighborhood string  `json:"neighborhood"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

type ReverseAddress struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	Full         string `json:"full"`
}

// Geocoder is the set of third-party lookups used while filling a report.
// Every call is a single best-effort attempt.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]AddressSuggestion, error)
	Reverse(ctx context.Context, lat, lng float64) (*ReverseAddress, error)
	NearbyStreets(ctx context.Context, lat, lng float64, current string) ([]string, error)
}

// GeoClient talks to Nominatim and Overpass.
type GeoClient struct {
	nominatimURL string
	overpassURL  string
	userAgent    string
	radius       int

	searchTimeout   time.Duration
	reverseTimeout  time.Duration
	overpassTimeout time.Duration

	httpClient *http.Client
}

func NewGeoClient(cfg config.Geocoding) *GeoClient {
	radius := cfg.NearbyRadiusM
	if radius <= 0 {
		radius = 500
	}
	return &GeoClient{
		nominatimURL:    strings.TrimRight(cfg.NominatimURL, "/"),
		overpassURL:     cfg.OverpassURL,
		userAgent:       cfg.UserAgent,
		radius:          radius,
		searchTimeout:   orDefault(cfg.SearchTimeout, 10*time.Second),
		reverseTimeout:  orDefault(cfg.ReverseTimeout, 10*time.Second),
		overpassTimeout: orDefault(cfg.OverpassTimeout, 25*time.Second),
		httpClient:      &http.Client{},
	}
}

type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Search returns up to five Brazilian address candidates. Queries shorter
// than MinSearchLength return no candidates without a lookup.
func (g *GeoClient) Search(ctx context.Context, query string) ([]AddressSuggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return nil, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "br")
	params.Set("limit", "5")

	var places []nominatimPlace
	if err := g.getJSON(ctx, g.searchTimeout, g.nominatimURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, fmt.Errorf("address search: %w", err)
	}

	out := make([]AddressSuggestion, 0, len(places))
	for _, p := range places {
		lat, _ := strconv.ParseFloat(p.Lat, 64)
		lng, _ := strconv.ParseFloat(p.Lon, 64)
		out = append(out, AddressSuggestion{
			DisplayName:  p.DisplayName,
			Street:       firstNonEmpty(p.Address, "road", "pedestrian", "street"),
			Neighborhood: firstNonEmpty(p.Address, "suburb", "neighbourhood", "city_district"),
			Lat:          lat,
			Lng:          lng,
		})
	}
	return out, nil
}

// Reverse resolves a coordinate to street and neighborhood. A coordinate
// with neither yields nil and no error.
func (g *GeoClient) Reverse(ctx context.Context, lat, lng float64) (*ReverseAddress, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("addressdetails", "1")

	var place nominatimPlace
	if err := g.getJSON(ctx, g.reverseTimeout, g.nominatimURL+"/reverse?"+params.Encode(), &place); err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}

	street := firstNonEmpty(place.Address, "road", "street", "pedestrian", "path", "living_street", "residential", "highway")
	hood := firstNonEmpty(place.Address, "suburb", "neighbourhood", "city_district", "quarter", "district",
		"hamlet", "village", "town", "city")
	if street == "" && hood == "" {
		return nil, nil
	}
	return &ReverseAddress{Street: street, Neighborhood: hood, Full: place.DisplayName}, nil
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Tags map[string]string `json:"tags"`
}

// NearbyStreets lists named roads around a coordinate.
func (g *GeoClient) NearbyStreets(ctx context.Context, lat, lng float64, current string) ([]string, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];(way["highway"]["name"](around:%d,%s,%s););out tags;`,
		g.radius, strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))

	var resp overpassResponse
	if err := g.getJSON(ctx, g.overpassTimeout, g.overpassURL+"?data="+url.QueryEscape(query), &resp); err != nil {
		return nil, fmt.Errorf("nearby streets: %w", err)
	}
	return nearbyStreetNames(resp.Elements, current), nil
}

// nearbyStreetNames drops motorways, trunks and names containing the current
// street, then sorts and caps the list.
func nearbyStreetNames(elements []overpassElement, current string) []string {
	current = strings.ToLower(strings.TrimSpace(current))
	seen := make(map[string]struct{})
	names := make([]string, 0)

	for _, el := range elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		if t := el.Tags["highway"]; t == "motorway" || t == "trunk" {
			continue
		}
		if current != "" && strings.Contains(strings.ToLower(name), current) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	if len(names) > MaxNearbyStreets {
		names = names[:MaxNearbyStreets]
	}
	return names
}

func (g *GeoClient) getJSON(ctx context.Context, timeout time.Duration, rawURL string, dst interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		utils.InfoLogger.Warnf("geocoding request failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
