package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/geocode"
)

var (
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geocoder_requests_total",
		Help: "Number of geocoder lookups by operation and outcome (ok, invalid_input, not_found, failed)",
	}, []string{"provider", "operation", "outcome"})

	GeocodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocoder_request_duration_seconds",
		Help:    "Latency of geocoder lookups that reached the provider",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "operation"})
)

var (
	StationsRanked = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stations_ranked_count",
		Help:    "Number of stations returned by a nearest stations query",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	}, []string{"reference"})
)

func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, geocode.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, geocode.ErrNotFound):
		return "not_found"
	default:
		return "failed"
	}
}

type instrumented struct {
	next     geocode.Client
	provider string
}

var _ geocode.Client = (*instrumented)(nil)

// InstrumentGeocoder counts and times every lookup made through next.
func InstrumentGeocoder(next geocode.Client, provider string) geocode.Client {
	return &instrumented{next: next, provider: provider}
}

func (i *instrumented) Geocode(ctx context.Context, query string) (coord geo.Coordinate, err error) {
	defer i.observe("geocode", time.Now())(&err)
	return i.next.Geocode(ctx, query)
}

func (i *instrumented) ReverseGeocode(ctx context.Context, c geo.Coordinate) (name string, err error) {
	defer i.observe("reverse_geocode", time.Now())(&err)
	return i.next.ReverseGeocode(ctx, c)
}

func (i *instrumented) observe(operation string, t0 time.Time) func(*error) {
	return func(errp *error) {
		outcome := Outcome(*errp)
		GeocodeRequests.WithLabelValues(i.provider, operation, outcome).Inc()

		// Invalid input never leaves the process, so it has no latency.
		if outcome != "invalid_input" {
			GeocodeDuration.WithLabelValues(i.provider, operation).Observe(time.Since(t0).Seconds())
		}
	}
}
