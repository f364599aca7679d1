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

	geocoding "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/osm"

	"github.com/manzanit0/smartcity/pkg/geo"
)

// NewOpenstreetmapClient speaks Nominatim through geo-golang's endpoint and
// response types. Requests go out on h, so timeouts and logging are the
// caller's. An empty baseURL targets the public instance.
func NewOpenstreetmapClient(h *http.Client, baseURL, userAgent string) *oc {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &oc{
		h:         h,
		userAgent: userAgent,
		endpoint:  osmEndpoint(strings.TrimRight(baseURL, "/") + "/"),
		parser:    func() geocoding.ResponseParser { return &osmResponse{} },
	}
}

type oc struct {
	h         *http.Client
	userAgent string
	endpoint  geocoding.EndpointBuilder
	parser    geocoding.ResponseParserFactory
}

var _ Client = (*oc)(nil)

type osmEndpoint string

var _ geocoding.EndpointBuilder = osmEndpoint("")

func (b osmEndpoint) GeocodeURL(address string) string {
	return string(b) + "search?format=json&limit=1&q=" + address
}

func (b osmEndpoint) ReverseGeocodeURL(l geocoding.Location) string {
	return string(b) + "reverse?format=jsonv2&accept-language=en&lat=" +
		strconv.FormatFloat(l.Lat, 'f', -1, 64) + "&lon=" + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// osmResponse is one search result or a reverse lookup. Unlike geo-golang's
// own parser it keeps the county, which it needs as the last fallback.
type osmResponse struct {
	Lat   *flexFloat  `json:"lat"`
	Lon   *flexFloat  `json:"lon"`
	Error string      `json:"error"`
	Addr  osm.Address `json:"address"`
}

var _ geocoding.ResponseParser = (*osmResponse)(nil)

func (r *osmResponse) Location() (*geocoding.Location, error) {
	if r.Error != "" {
		return nil, nil
	}

	if r.Lat == nil || r.Lon == nil {
		return nil, fmt.Errorf("result has no coordinates")
	}

	return &geocoding.Location{Lat: float64(*r.Lat), Lng: float64(*r.Lon)}, nil
}

// Address sets City to the first of city, town and village. Hamlets are left
// out so the county wins over them.
func (r *osmResponse) Address() (*geocoding.Address, error) {
	if r.Error != "" {
		return nil, nil
	}

	return &geocoding.Address{
		City:        firstNonEmpty(r.Addr.City, r.Addr.Town, r.Addr.Village),
		County:      r.Addr.County,
		State:       r.Addr.State,
		Country:     r.Addr.Country,
		CountryCode: strings.ToUpper(r.Addr.CountryCode),
	}, nil
}

func (c *oc) Geocode(ctx context.Context, query string) (geo.Coordinate, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return geo.Coordinate{}, err
	}

	var results []json.RawMessage
	if err := c.get(ctx, c.endpoint.GeocodeURL(url.QueryEscape(q)), &results); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, err)
	}

	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, ErrNotFound)
	}

	p := c.parser()
	if err := json.Unmarshal(results[0], p); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: decode result: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	location, err := p.Location()
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	if location == nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, ErrNotFound)
	}

	coord, err := geo.NewCoordinate(location.Lat, location.Lng)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	return coord, nil
}

func (c *oc) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (string, error) {
	if err := checkCoordinate(coord); err != nil {
		return "", err
	}

	p := c.parser()
	endpoint := c.endpoint.ReverseGeocodeURL(geocoding.Location{Lat: coord.Latitude, Lng: coord.Longitude})
	if err := c.get(ctx, endpoint, p); err != nil {
		return "", fmt.Errorf("reverse geocode %s: %w", coord, err)
	}

	address, err := p.Address()
	if err != nil {
		return "", fmt.Errorf("reverse geocode %s: %s: %w", coord, err.Error(), ErrLookupFailed)
	}

	if address == nil {
		return "", fmt.Errorf("reverse geocode %s: %w", coord, ErrNotFound)
	}

	name := firstNonEmpty(address.City, address.County)
	if name == "" {
		return "", fmt.Errorf("reverse geocode %s: %w", coord, ErrNotFound)
	}

	return name, nil
}

func (c *oc) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
