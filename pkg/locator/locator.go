// package locator ties geocoding and the distance engine together: it
// resolves place names and ranks the station dataset around them.
package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/geocode"
	"github.com/manzanit0/smartcity/pkg/stations"
	"github.com/manzanit0/smartcity/pkg/weather"
)

// ErrWeatherDisabled is returned by the weather lookups when the service was
// built without a weather client.
var ErrWeatherDisabled = errors.New("weather is not configured")

var (
	// Rangpur is the default user location.
	Rangpur = geo.NamedLocation{Name: "Rangpur", Coordinate: geo.Coordinate{Latitude: 25.7439, Longitude: 89.2510}}

	BegumRokeyaUniversity = geo.NamedLocation{Name: "Begum Rokeya University", Coordinate: geo.Coordinate{Latitude: 25.7629, Longitude: 89.2498}}
)

// Trip is the distance between two geocoded places.
type Trip struct {
	From       geo.NamedLocation `json:"from"`
	To         geo.NamedLocation `json:"to"`
	DistanceKm float64           `json:"distance_km"`
}

type Service struct {
	geocoder geocode.Client
	stations stations.Source
	weather  weather.Client
}

type Option func(*Service)

func WithWeather(w weather.Client) Option {
	return func(s *Service) {
		s.weather = w
	}
}

func NewService(g geocode.Client, s stations.Source, opts ...Option) *Service {
	svc := &Service{geocoder: g, stations: s}
	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// Distance geocodes both places and returns how far apart they are.
func (s *Service) Distance(ctx context.Context, from, to string) (*Trip, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, fmt.Errorf("both places are required: %w", geocode.ErrInvalidInput)
	}

	a, err := s.geocoder.Geocode(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("resolve origin: %w", err)
	}

	b, err := s.geocoder.Geocode(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	trip := &Trip{
		From:       geo.NamedLocation{Name: from, Coordinate: a},
		To:         geo.NamedLocation{Name: to, Coordinate: b},
		DistanceKm: geo.HaversineDistanceKm(a, b),
	}

	slog.InfoContext(ctx, "computed distance", "from", from, "to", to, "distance_km", trip.DistanceKm)

	return trip, nil
}

// NearestStations ranks every station around ref. A limit of zero or less
// returns all of them.
func (s *Service) NearestStations(ctx context.Context, ref geo.Coordinate, limit int) ([]geo.DistanceResult, error) {
	return s.nearest(ctx, ref, func(locs []geo.NamedLocation) []geo.DistanceResult {
		return geo.RankByDistance(ref, locs)
	}, limit)
}

// StationsWithin is NearestStations restricted to maxKm around ref.
func (s *Service) StationsWithin(ctx context.Context, ref geo.Coordinate, maxKm float64, limit int) ([]geo.DistanceResult, error) {
	return s.nearest(ctx, ref, func(locs []geo.NamedLocation) []geo.DistanceResult {
		return geo.WithinRadius(ref, locs, maxKm)
	}, limit)
}

// NearestStationsTo geocodes place and ranks the stations around it.
func (s *Service) NearestStationsTo(ctx context.Context, place string, limit int) (geo.Coordinate, []geo.DistanceResult, error) {
	ref, err := s.geocoder.Geocode(ctx, place)
	if err != nil {
		return geo.Coordinate{}, nil, fmt.Errorf("resolve reference: %w", err)
	}

	ranked, err := s.NearestStations(ctx, ref, limit)
	if err != nil {
		return geo.Coordinate{}, nil, err
	}

	return ref, ranked, nil
}

func (s *Service) Geocode(ctx context.Context, place string) (geo.Coordinate, error) {
	return s.geocoder.Geocode(ctx, place)
}

// Describe returns the locality name of c.
func (s *Service) Describe(ctx context.Context, c geo.Coordinate) (string, error) {
	name, err := s.geocoder.ReverseGeocode(ctx, c)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			slog.InfoContext(ctx, "no locality for coordinate", "coordinate", c.String())
		}
		return "", err
	}

	return name, nil
}

// Weather geocodes place and returns its current conditions.
func (s *Service) Weather(ctx context.Context, place string) (*weather.Conditions, error) {
	if s.weather == nil {
		return nil, ErrWeatherDisabled
	}

	c, err := s.geocoder.Geocode(ctx, place)
	if err != nil {
		return nil, fmt.Errorf("resolve place: %w", err)
	}

	return s.WeatherAt(ctx, c)
}

func (s *Service) WeatherAt(ctx context.Context, c geo.Coordinate) (*weather.Conditions, error) {
	if s.weather == nil {
		return nil, ErrWeatherDisabled
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), geocode.ErrInvalidInput)
	}

	conditions, err := s.weather.CurrentConditions(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("current weather at %s: %w", c, err)
	}

	slog.InfoContext(ctx, "fetched current weather", "coordinate", c.String(), "condition", conditions.Condition)
	return conditions, nil
}

func (s *Service) nearest(ctx context.Context, ref geo.Coordinate, rank func([]geo.NamedLocation) []geo.DistanceResult, limit int) ([]geo.DistanceResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), geocode.ErrInvalidInput)
	}

	locs, err := s.stations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	ranked := rank(locs)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	slog.DebugContext(ctx, "ranked stations", "reference", ref.String(), "cell", ref.CellID(), "total", len(locs), "returned", len(ranked))

	return ranked, nil
}
