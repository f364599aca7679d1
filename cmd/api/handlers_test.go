package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/manzanit0/smartcity/pkg/alert"
	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/geocode"
	"github.com/manzanit0/smartcity/pkg/locator"
	"github.com/manzanit0/smartcity/pkg/stations"
	"github.com/manzanit0/smartcity/pkg/weather"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGeocoder struct{}

func (fakeGeocoder) Geocode(_ context.Context, query string) (geo.Coordinate, error) {
	switch strings.TrimSpace(query) {
	case "":
		return geo.Coordinate{}, fmt.Errorf("empty place query: %w", geocode.ErrInvalidInput)
	case "Rangpur":
		return locator.Rangpur.Coordinate, nil
	case "Begum Rokeya University":
		return locator.BegumRokeyaUniversity.Coordinate, nil
	case "Offline":
		return geo.Coordinate{}, fmt.Errorf("execute request: timeout: %w", geocode.ErrLookupFailed)
	default:
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", query, geocode.ErrNotFound)
	}
}

func (fakeGeocoder) ReverseGeocode(_ context.Context, c geo.Coordinate) (string, error) {
	if c == locator.Rangpur.Coordinate {
		return "Rangpur", nil
	}

	return "", geocode.ErrNotFound
}

type fakeWeather struct{}

func (fakeWeather) CurrentConditions(_ context.Context, c geo.Coordinate) (*weather.Conditions, error) {
	if c == locator.BegumRokeyaUniversity.Coordinate {
		return nil, fmt.Errorf("unexpected status 429: %w", weather.ErrUnavailable)
	}

	return &weather.Conditions{Coordinate: c, Location: "Rangpur (BD)", Condition: "clear", Description: "clear sky", Temperature: 31.2}, nil
}

func newTestRouter(opts ...locator.Option) *gin.Engine {
	svc := locator.NewService(fakeGeocoder{}, stations.Embedded(), opts...)
	return newRouter(svc, alert.NewLogNotifier())
}

func get(t *testing.T, r http.Handler, target string) (int, map[string]any) {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal response: %s", err.Error())
		}
	}

	return w.Code, body
}

func TestRoutes_Status(t *testing.T) {
	testCases := []struct {
		desc   string
		target string
		status int
	}{
		{desc: "ping", target: "/ping", status: http.StatusOK},
		{desc: "geocode a known place", target: "/v1/geocode?q=Rangpur", status: http.StatusOK},
		{desc: "geocode without query", target: "/v1/geocode", status: http.StatusBadRequest},
		{desc: "geocode an unknown place", target: "/v1/geocode?q=Atlantis", status: http.StatusNotFound},
		{desc: "geocode while the provider is down", target: "/v1/geocode?q=Offline", status: http.StatusBadGateway},
		{desc: "reverse a known coordinate", target: "/v1/reverse?lat=25.7439&lon=89.251", status: http.StatusOK},
		{desc: "reverse a non numeric latitude", target: "/v1/reverse?lat=north&lon=89.251", status: http.StatusBadRequest},
		{desc: "reverse an out of range longitude", target: "/v1/reverse?lat=25&lon=200", status: http.StatusBadRequest},
		{desc: "reverse an unknown coordinate", target: "/v1/reverse?lat=1&lon=1", status: http.StatusNotFound},
		{desc: "distance without destination", target: "/v1/distance?from=Rangpur", status: http.StatusBadRequest},
		{desc: "nearest stations with a bad limit", target: "/v1/stations/nearest?lat=25.7&lon=89.2&limit=ten", status: http.StatusBadRequest},
		{desc: "nearest stations with a bad radius", target: "/v1/stations/nearest?lat=25.7&lon=89.2&radius_km=-2", status: http.StatusBadRequest},
		{desc: "nearest stations with half a coordinate", target: "/v1/stations/nearest?lat=25.7", status: http.StatusBadRequest},
		{desc: "nearest stations to an unknown place", target: "/v1/stations/nearest?q=Atlantis", status: http.StatusNotFound},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			status, body := get(t, newTestRouter(), tC.target)
			if status != tC.status {
				t.Errorf("got status %d, want %d: %v", status, tC.status, body)
			}
		})
	}
}

func TestDistanceRoute(t *testing.T) {
	status, body := get(t, newTestRouter(), "/v1/distance?from=Begum+Rokeya+University&to=Rangpur")
	if status != http.StatusOK {
		t.Fatalf("got status %d: %v", status, body)
	}

	km, ok := body["distance_km"].(float64)
	if !ok {
		t.Fatalf("missing distance_km in %v", body)
	}

	if math.Abs(km-2.12) > 0.1 {
		t.Errorf("got %f km, want about 2.12", km)
	}
}

func TestNearestStationsRoute(t *testing.T) {
	testCases := []struct {
		desc   string
		target string
		count  int
	}{
		{desc: "the limit is honoured", target: "/v1/stations/nearest?lat=25.7439&lon=89.251&limit=3", count: 3},
		{desc: "a place can be the reference", target: "/v1/stations/nearest?q=Rangpur&limit=1", count: 1},
		{desc: "a zero radius filters everything out", target: "/v1/stations/nearest?lat=0&lon=0&radius_km=0", count: 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			status, body := get(t, newTestRouter(), tC.target)
			if status != http.StatusOK {
				t.Fatalf("got status %d: %v", status, body)
			}

			list, ok := body["stations"].([]any)
			if !ok {
				t.Fatalf("missing stations in %v", body)
			}

			if len(list) != tC.count {
				t.Fatalf("got %d stations, want %d", len(list), tC.count)
			}

			prev := -1.0
			for _, s := range list {
				d := s.(map[string]any)["distance_km"].(float64)
				if d < prev {
					t.Errorf("stations are not sorted: %v", list)
				}
				prev = d
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}

	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected the default collectors to be exposed")
	}
}

func TestWeatherRoute(t *testing.T) {
	testCases := []struct {
		desc      string
		target    string
		disabled  bool
		status    int
		condition string
	}{
		{desc: "weather at a place", target: "/v1/weather?q=Rangpur", status: http.StatusOK, condition: "clear"},
		{desc: "weather at a coordinate", target: "/v1/weather?lat=25.7439&lon=89.251", status: http.StatusOK, condition: "clear"},
		{desc: "weather without a query", target: "/v1/weather", status: http.StatusBadRequest},
		{desc: "weather at an out of range coordinate", target: "/v1/weather?lat=91&lon=0", status: http.StatusBadRequest},
		{desc: "weather at an unknown place", target: "/v1/weather?q=Atlantis", status: http.StatusNotFound},
		{desc: "weather while the provider is down", target: "/v1/weather?q=Begum+Rokeya+University", status: http.StatusBadGateway},
		{desc: "weather when it is not configured", target: "/v1/weather?q=Rangpur", disabled: true, status: http.StatusServiceUnavailable},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			var opts []locator.Option
			if !tC.disabled {
				opts = append(opts, locator.WithWeather(fakeWeather{}))
			}

			status, body := get(t, newTestRouter(opts...), tC.target)
			if status != tC.status {
				t.Fatalf("got status %d, want %d: %v", status, tC.status, body)
			}

			if tC.condition != "" && body["condition"] != tC.condition {
				t.Errorf("got condition %v, want %s", body["condition"], tC.condition)
			}
		})
	}
}
