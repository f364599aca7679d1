package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/manzanit0/smartcity/pkg/geo"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "smartcity/1.0"
)

type NominatimClient struct {
	h         *http.Client
	baseURL   string
	userAgent string
}

var _ Client = (*NominatimClient)(nil)

// NewNominatimClient talks to a Nominatim instance. An empty baseURL or
// userAgent falls back to the public instance and the default agent.
func NewNominatimClient(h *http.Client, baseURL, userAgent string) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &NominatimClient{
		h:         h,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Lat and Lon are pointers so a result without them is told apart from (0, 0).
type searchResult struct {
	Lat         *flexFloat `json:"lat"`
	Lon         *flexFloat `json:"lon"`
	DisplayName string    `json:"display_name"`
}

// reverseResult also decodes {"error": "Unable to geocode"}, which comes back
// with an empty address.
type reverseResult struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
	} `json:"address"`
}

// flexFloat accepts both "25.74" and 25.74. Nominatim sends strings but some
// proxies in front of it re-encode them as numbers.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse coordinate %s: %w", string(b), err)
	}

	*f = flexFloat(v)
	return nil
}

func (c *NominatimClient) Geocode(ctx context.Context, query string) (geo.Coordinate, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return geo.Coordinate{}, err
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, "/search", params, &results); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, err)
	}

	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, ErrNotFound)
	}

	first := results[0]
	if first.Lat == nil || first.Lon == nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: result has no coordinates: %w", q, ErrLookupFailed)
	}

	coord, err := geo.NewCoordinate(float64(*first.Lat), float64(*first.Lon))
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	return coord, nil
}

func (c *NominatimClient) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (string, error) {
	if err := checkCoordinate(coord); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	params.Set("accept-language", "en")

	var result reverseResult
	if err := c.get(ctx, "/reverse", params, &result); err != nil {
		return "", fmt.Errorf("reverse geocode %s: %w", coord, err)
	}

	name := firstNonEmpty(result.Address.City, result.Address.Town, result.Address.Village, result.Address.County)
	if name == "" {
		return "", fmt.Errorf("reverse geocode %s: %w", coord, ErrNotFound)
	}

	return name, nil
}

func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %s: %w", err.Error(), ErrLookupFailed)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.h.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %s: %w", err.Error(), ErrLookupFailed)
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("unexpected status %d: %s: %w", res.StatusCode, strings.TrimSpace(string(body)), ErrLookupFailed)
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %s: %w", err.Error(), ErrLookupFailed)
	}

	return nil
}
