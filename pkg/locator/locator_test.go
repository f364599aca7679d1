package locator_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/geocode"
	"github.com/manzanit0/smartcity/pkg/locator"
	"github.com/manzanit0/smartcity/pkg/weather"
)

type fakeGeocoder struct {
	places map[string]geo.Coordinate
	names  map[geo.Coordinate]string
	err    error
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (geo.Coordinate, error) {
	if f.err != nil {
		return geo.Coordinate{}, f.err
	}

	if query == "" {
		return geo.Coordinate{}, geocode.ErrInvalidInput
	}

	c, ok := f.places[query]
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", query, geocode.ErrNotFound)
	}

	return c, nil
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, c geo.Coordinate) (string, error) {
	name, ok := f.names[c]
	if !ok {
		return "", geocode.ErrNotFound
	}

	return name, nil
}

type fakeSource struct {
	locs []geo.NamedLocation
	err  error
}

func (f fakeSource) List(context.Context) ([]geo.NamedLocation, error) {
	return f.locs, f.err
}

var (
	dhaka   = geo.Coordinate{Latitude: 23.8103, Longitude: 90.4125}
	gc      = &fakeGeocoder{
		places: map[string]geo.Coordinate{
			"Rangpur":                 locator.Rangpur.Coordinate,
			"Begum Rokeya University": locator.BegumRokeyaUniversity.Coordinate,
			"Dhaka":                   dhaka,
		},
		names: map[geo.Coordinate]string{
			locator.Rangpur.Coordinate: "Rangpur",
		},
	}
	dataset = fakeSource{locs: []geo.NamedLocation{
		{Name: "dhaka", Coordinate: dhaka},
		{Name: "university", Coordinate: locator.BegumRokeyaUniversity.Coordinate},
		{Name: "centre", Coordinate: locator.Rangpur.Coordinate},
	}}
)

func TestDistance(t *testing.T) {
	testCases := []struct {
		desc    string
		from    string
		to      string
		want    float64
		wantErr error
	}{
		{
			desc: "the university is about two kilometers from the centre",
			from: "Begum Rokeya University",
			to:   "Rangpur",
			want: 2.12,
		},
		{
			desc: "surrounding whitespace is ignored",
			from: "  Rangpur ",
			to:   "Rangpur",
			want: 0,
		},
		{
			desc:    "an empty origin is invalid",
			from:    "",
			to:      "Rangpur",
			wantErr: geocode.ErrInvalidInput,
		},
		{
			desc:    "an empty destination is invalid",
			from:    "Rangpur",
			to:      "   ",
			wantErr: geocode.ErrInvalidInput,
		},
		{
			desc:    "an unknown place is not found",
			from:    "Rangpur",
			to:      "Atlantis",
			wantErr: geocode.ErrNotFound,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			svc := locator.NewService(gc, dataset)

			trip, err := svc.Distance(context.Background(), tC.from, tC.to)
			if tC.wantErr != nil {
				if !errors.Is(err, tC.wantErr) {
					t.Fatalf("expected %v, got %v", tC.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if math.Abs(trip.DistanceKm-tC.want) > 0.1 {
				t.Errorf("got %f km, want %f km", trip.DistanceKm, tC.want)
			}
		})
	}
}

func TestNearestStations(t *testing.T) {
	testCases := []struct {
		desc  string
		limit int
		names []string
	}{
		{desc: "no limit returns everything", limit: 0, names: []string{"centre", "university", "dhaka"}},
		{desc: "a negative limit returns everything", limit: -3, names: []string{"centre", "university", "dhaka"}},
		{desc: "the limit keeps the closest", limit: 2, names: []string{"centre", "university"}},
		{desc: "a limit above the dataset size is fine", limit: 10, names: []string{"centre", "university", "dhaka"}},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			svc := locator.NewService(gc, dataset)

			got, err := svc.NearestStations(context.Background(), locator.Rangpur.Coordinate, tC.limit)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if len(got) != len(tC.names) {
				t.Fatalf("got %d stations, want %d", len(got), len(tC.names))
			}

			for i := range got {
				if got[i].Location.Name != tC.names[i] {
					t.Errorf("position %d: got %s, want %s", i, got[i].Location.Name, tC.names[i])
				}
			}
		})
	}
}

func TestNearestStations_Errors(t *testing.T) {
	t.Run("an invalid reference is rejected", func(t *testing.T) {
		svc := locator.NewService(gc, dataset)

		_, err := svc.NearestStations(context.Background(), geo.Coordinate{Latitude: -100}, 0)
		if !errors.Is(err, geocode.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("dataset errors are propagated", func(t *testing.T) {
		boom := errors.New("boom")
		svc := locator.NewService(gc, fakeSource{err: boom})

		_, err := svc.NearestStations(context.Background(), locator.Rangpur.Coordinate, 0)
		if !errors.Is(err, boom) {
			t.Fatalf("expected the dataset error, got %v", err)
		}
	})

	t.Run("an empty dataset is not an error", func(t *testing.T) {
		svc := locator.NewService(gc, fakeSource{})

		got, err := svc.NearestStations(context.Background(), locator.Rangpur.Coordinate, 0)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}

		if len(got) != 0 {
			t.Errorf("expected no stations, got %d", len(got))
		}
	})
}

func TestStationsWithin(t *testing.T) {
	svc := locator.NewService(gc, dataset)

	got, err := svc.StationsWithin(context.Background(), locator.Rangpur.Coordinate, 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(got) != 2 {
		t.Fatalf("expected the two Rangpur stations, got %d", len(got))
	}

	got, err = svc.StationsWithin(context.Background(), locator.Rangpur.Coordinate, 500, 1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(got) != 1 || got[0].Location.Name != "centre" {
		t.Errorf("expected only the closest station, got %+v", got)
	}
}

func TestNearestStationsTo(t *testing.T) {
	svc := locator.NewService(gc, dataset)

	ref, got, err := svc.NearestStationsTo(context.Background(), "Dhaka", 1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if ref != dhaka {
		t.Errorf("got reference %v, want %v", ref, dhaka)
	}

	if len(got) != 1 || got[0].Location.Name != "dhaka" || got[0].DistanceKm != 0 {
		t.Errorf("unexpected ranking %+v", got)
	}

	_, _, err = svc.NearestStationsTo(context.Background(), "Atlantis", 1)
	if !errors.Is(err, geocode.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	svc := locator.NewService(gc, dataset)

	name, err := svc.Describe(context.Background(), locator.Rangpur.Coordinate)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if name != "Rangpur" {
		t.Errorf("got %q, want Rangpur", name)
	}

	_, err = svc.Describe(context.Background(), dhaka)
	if !errors.Is(err, geocode.ErrLookupFailed) {
		t.Errorf("expected a failed lookup, got %v", err)
	}
}

type fakeWeather struct {
	seen []geo.Coordinate
	err  error
}

func (f *fakeWeather) CurrentConditions(_ context.Context, c geo.Coordinate) (*weather.Conditions, error) {
	f.seen = append(f.seen, c)
	if f.err != nil {
		return nil, f.err
	}

	return &weather.Conditions{Coordinate: c, Location: "Rangpur (BD)", Condition: "clear", Temperature: 31}, nil
}

func TestWeather(t *testing.T) {
	testCases := []struct {
		desc      string
		place     string
		weather   *fakeWeather
		disabled  bool
		wantErr   error
		wantCalls int
	}{
		{
			desc:      "conditions are looked up at the geocoded place",
			place:     "Begum Rokeya University",
			weather:   &fakeWeather{},
			wantCalls: 1,
		},
		{
			desc:     "without a weather client the lookup is disabled",
			place:    "Rangpur",
			disabled: true,
			wantErr:  locator.ErrWeatherDisabled,
		},
		{
			desc:    "an unknown place never reaches the weather provider",
			place:   "Atlantis",
			weather: &fakeWeather{},
			wantErr: geocode.ErrNotFound,
		},
		{
			desc:      "provider failures are passed through",
			place:     "Rangpur",
			weather:   &fakeWeather{err: fmt.Errorf("unexpected status 401: %w", weather.ErrUnavailable)},
			wantErr:   weather.ErrUnavailable,
			wantCalls: 1,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			var opts []locator.Option
			if !tC.disabled {
				opts = append(opts, locator.WithWeather(tC.weather))
			}

			svc := locator.NewService(gc, dataset, opts...)

			got, err := svc.Weather(context.Background(), tC.place)
			if tC.weather != nil && len(tC.weather.seen) != tC.wantCalls {
				t.Errorf("got %d weather calls, want %d", len(tC.weather.seen), tC.wantCalls)
			}

			if tC.wantErr != nil {
				if !errors.Is(err, tC.wantErr) {
					t.Fatalf("expected %v, got %v", tC.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if got.Coordinate != locator.BegumRokeyaUniversity.Coordinate {
				t.Errorf("got conditions at %v, want %v", got.Coordinate, locator.BegumRokeyaUniversity.Coordinate)
			}
		})
	}
}

func TestWeatherAt_InvalidCoordinate(t *testing.T) {
	w := &fakeWeather{}
	svc := locator.NewService(gc, dataset, locator.WithWeather(w))

	_, err := svc.WeatherAt(context.Background(), geo.Coordinate{Latitude: 0, Longitude: 181})
	if !errors.Is(err, geocode.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if len(w.seen) != 0 {
		t.Errorf("expected no weather calls, got %d", len(w.seen))
	}
}
