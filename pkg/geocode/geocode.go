package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/manzanit0/smartcity/pkg/geo"
)

var (
	// ErrInvalidInput is returned before any request is made when the query
	// is empty or the coordinate is out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLookupFailed covers transport errors, unexpected statuses and
	// unparseable responses.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrNotFound means the provider answered but knows no such place.
	// It wraps ErrLookupFailed.
	ErrNotFound = fmt.Errorf("place not found: %w", ErrLookupFailed)
)

type Client interface {
	Geocode(ctx context.Context, query string) (geo.Coordinate, error)
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error)
}

// Providers lists the names accepted by New.
var Providers = []string{"nominatim", "openstreetmap", "googlemaps", "positionstack"}

type Config struct {
	Provider         string
	BaseURL          string
	UserAgent        string
	GoogleMapsAPIKey string
	PositionstackKey string
}

// New builds the client for cfg.Provider. An empty provider means nominatim.
func New(h *http.Client, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "nominatim":
		return NewNominatimClient(h, cfg.BaseURL, cfg.UserAgent), nil
	case "openstreetmap":
		return NewOpenstreetmapClient(h, cfg.BaseURL, cfg.UserAgent), nil
	case "googlemaps":
		c, err := NewGoogleMapsClient(h, cfg.GoogleMapsAPIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "positionstack":
		c, err := NewPositionStackClient(h, cfg.PositionstackKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown geocoder provider %q, expected one of %s", cfg.Provider, strings.Join(Providers, ", "))
	}
}

func normalizeQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", fmt.Errorf("empty place query: %w", ErrInvalidInput)
	}

	return q, nil
}

func checkCoordinate(c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
	}

	return nil
}

// firstNonEmpty returns the first non-blank value, used to pick the most
// specific locality a provider returned.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}

	return ""
}
