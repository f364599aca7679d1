package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/manzanit0/smartcity/pkg/geo"
)

const DefaultPositionstackURL = "http://api.positionstack.com"

func NewPositionStackClient(h *http.Client, apiKey, baseURL string) (*psc, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing positionstack access key")
	}

	if baseURL == "" {
		baseURL = DefaultPositionstackURL
	}

	return &psc{h: h, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

type psc struct {
	h       *http.Client
	apiKey  string
	baseURL string
}

var _ Client = (*psc)(nil)

type positionstackResponse struct {
	Data []positionstackData `json:"data"`
}

type positionstackData struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string  `json:"name"`
	Locality  string  `json:"locality"`
	County    string  `json:"county"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
}

func (c *psc) Geocode(ctx context.Context, query string) (geo.Coordinate, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return geo.Coordinate{}, err
	}

	d, err := c.fetch(ctx, "/v1/forward", q)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, err)
	}

	if len(d.Data) == 0 {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, ErrNotFound)
	}

	first := d.Data[0]
	if first.Latitude == nil || first.Longitude == nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: result has no coordinates: %w", q, ErrLookupFailed)
	}

	coord, err := geo.NewCoordinate(*first.Latitude, *first.Longitude)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	return coord, nil
}

func (c *psc) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (string, error) {
	if err := checkCoordinate(coord); err != nil {
		return "", err
	}

	q := strconv.FormatFloat(coord.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(coord.Longitude, 'f', -1, 64)

	d, err := c.fetch(ctx, "/v1/reverse", q)
	if err != nil {
		return "", fmt.Errorf("reverse geocode %s: %w", coord, err)
	}

	for _, r := range d.Data {
		if name := firstNonEmpty(r.Locality, r.County); name != "" {
			return name, nil
		}
	}

	return "", fmt.Errorf("reverse geocode %s: %w", coord, ErrNotFound)
}

func (c *psc) fetch(ctx context.Context, path, query string) (*positionstackResponse, error) {
	params := url.Values{}
	params.Set("access_key", c.apiKey)
	params.Set("query", query)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %s: %w", err.Error(), ErrLookupFailed)
	}

	res, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %s: %w", err.Error(), ErrLookupFailed)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %w", res.StatusCode, ErrLookupFailed)
	}

	var d positionstackResponse
	if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode response: %s: %w", err.Error(), ErrLookupFailed)
	}

	return &d, nil
}
