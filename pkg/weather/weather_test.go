package weather_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/weather"
)

const rangpurWeather = `{
  "coord": {"lon": 89.251, "lat": 25.7439},
  "weather": [{"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}],
  "main": {"temp": 29.5, "feels_like": 34.1, "temp_min": 29.5, "temp_max": 29.5, "humidity": 79},
  "wind": {"speed": 3.2, "deg": 140},
  "dt": 1760860800,
  "sys": {"country": "BD"},
  "name": "Rangpur",
  "cod": 200
}`

func TestCurrentConditions(t *testing.T) {
	testCases := []struct {
		desc    string
		status  int
		body    string
		coord   geo.Coordinate
		want    *weather.Conditions
		wantErr bool
	}{
		{
			desc:   "current conditions are mapped",
			status: http.StatusOK,
			body:   rangpurWeather,
			coord:  geo.Coordinate{Latitude: 25.7439, Longitude: 89.251},
			want: &weather.Conditions{
				Coordinate:  geo.Coordinate{Latitude: 25.7439, Longitude: 89.251},
				Location:    "Rangpur (BD)",
				Condition:   "rain",
				Description: "moderate rain",
				Temperature: 29.5,
				FeelsLike:   34.1,
				Humidity:    79,
				WindSpeed:   3.2,
				ObservedAt:  time.Unix(1760860800, 0).UTC(),
			},
		},
		{
			desc:    "an invalid key is unavailable",
			status:  http.StatusUnauthorized,
			body:    `{"cod":401,"message":"Invalid API key"}`,
			coord:   geo.Coordinate{Latitude: 25.7439, Longitude: 89.251},
			wantErr: true,
		},
		{
			desc:    "a response without weather is unavailable",
			status:  http.StatusOK,
			body:    `{"weather":[],"name":"Rangpur"}`,
			coord:   geo.Coordinate{Latitude: 25.7439, Longitude: 89.251},
			wantErr: true,
		},
		{
			desc:    "a malformed body is unavailable",
			status:  http.StatusOK,
			body:    `{"weather":`,
			coord:   geo.Coordinate{Latitude: 25.7439, Longitude: 89.251},
			wantErr: true,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			var lastQuery map[string][]string
			var lastPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				lastPath = r.URL.Path
				lastQuery = r.URL.Query()
				w.WriteHeader(tC.status)
				_, _ = w.Write([]byte(tC.body))
			}))
			defer srv.Close()

			c, err := weather.NewOpenWeatherMapClient(srv.Client(), "secret", srv.URL)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			got, err := c.CurrentConditions(context.Background(), tC.coord)
			if tC.wantErr {
				if !errors.Is(err, weather.ErrUnavailable) {
					t.Fatalf("expected ErrUnavailable, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if *got != *tC.want {
				t.Errorf("got %+v, want %+v", *got, *tC.want)
			}

			if lastPath != "/data/2.5/weather" {
				t.Errorf("unexpected path %s", lastPath)
			}

			for key, want := range map[string]string{"lat": "25.7439", "lon": "89.251", "units": "metric", "appid": "secret"} {
				if got := lastQuery[key]; len(got) != 1 || got[0] != want {
					t.Errorf("query param %s: got %v, want %s", key, got, want)
				}
			}
		})
	}
}

func TestCurrentConditions_InvalidCoordinate(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c, err := weather.NewOpenWeatherMapClient(srv.Client(), "secret", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	_, err = c.CurrentConditions(context.Background(), geo.Coordinate{Latitude: 100, Longitude: 0})
	if !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}

	if calls != 0 {
		t.Errorf("expected no requests, got %d", calls)
	}
}

func TestNewOpenWeatherMapClient(t *testing.T) {
	if _, err := weather.NewOpenWeatherMapClient(http.DefaultClient, "", ""); err == nil {
		t.Error("expected an error without an api key")
	}
}

func TestCondition(t *testing.T) {
	testCases := []struct {
		desc string
		code int
		want string
	}{
		{desc: "thunderstorm", code: 211, want: "thunderstorm"},
		{desc: "drizzle", code: 301, want: "drizzle"},
		{desc: "rain", code: 502, want: "rain"},
		{desc: "snow", code: 600, want: "snow"},
		{desc: "mist", code: 701, want: "atmosphere"},
		{desc: "clear sky", code: 800, want: "clear"},
		{desc: "few clouds", code: 801, want: "clouds"},
		{desc: "unknown code", code: 42, want: ""},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			if got := weather.Condition(tC.code); got != tC.want {
				t.Errorf("got %q, want %q", got, tC.want)
			}
		})
	}
}
