package geocode

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"googlemaps.github.io/maps"

	"github.com/manzanit0/smartcity/pkg/geo"
)

type googleMapsClient struct {
	maps *maps.Client
}

var _ Client = (*googleMapsClient)(nil)

// NewGoogleMapsClient geocodes through the Google Maps Geocoding API. baseURL
// is optional and mostly useful for tests.
func NewGoogleMapsClient(h *http.Client, apiKey, baseURL string) (*googleMapsClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing google maps api key")
	}

	opts := []maps.ClientOption{maps.WithAPIKey(apiKey), maps.WithHTTPClient(h)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}

	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create google maps client: %w", err)
	}

	return &googleMapsClient{maps: c}, nil
}

func (c *googleMapsClient) Geocode(ctx context.Context, query string) (geo.Coordinate, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return geo.Coordinate{}, err
	}

	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{Address: q, Language: "en"})
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", q, ErrNotFound)
	}

	loc := results[0].Geometry.Location
	coord, err := geo.NewCoordinate(loc.Lat, loc.Lng)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %s: %w", q, err.Error(), ErrLookupFailed)
	}

	return coord, nil
}

func (c *googleMapsClient) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (string, error) {
	if err := checkCoordinate(coord); err != nil {
		return "", err
	}

	results, err := c.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: coord.Latitude, Lng: coord.Longitude},
		Language: "en",
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode %s: %s: %w", coord, err.Error(), ErrLookupFailed)
	}

	for _, r := range results {
		if name := localityName(r.AddressComponents); name != "" {
			return name, nil
		}
	}

	return "", fmt.Errorf("reverse geocode %s: %w", coord, ErrNotFound)
}

// localityName mirrors the city > town > village > county preference using
// Google's component types.
func localityName(components []maps.AddressComponent) string {
	byType := func(t string) string {
		for _, c := range components {
			if slices.Contains(c.Types, t) {
				return c.LongName
			}
		}
		return ""
	}

	return firstNonEmpty(
		byType("locality"),
		byType("postal_town"),
		byType("sublocality"),
		byType("administrative_area_level_2"),
	)
}
