package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/manzanit0/smartcity/cmd/locate/msg"
	"github.com/manzanit0/smartcity/pkg/env"
	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/geocode"
	"github.com/manzanit0/smartcity/pkg/locator"
	"github.com/manzanit0/smartcity/pkg/logger"
)

const ServiceName = "locate"

const usage = `usage:
  locate distance <from> <to>
  locate stations [-near place | -lat n -lon n] [-limit n] [-radius km]
  locate reverse <lat> <lon>
  locate weather <place>
`

func init() {
	env.Load()
	logger.InitGlobalSlog(ServiceName)
}

func main() {
	geocoder, err := env.NewGeocoder()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	source, closeSource, err := env.NewStationSource()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var opts []locator.Option
	w, ok, err := env.NewWeather()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if ok {
		opts = append(opts, locator.WithWeather(w))
	}

	svc := locator.NewService(geocoder, source, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	code := run(ctx, svc, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	closeSource()
	os.Exit(code)
}

func run(ctx context.Context, svc *locator.Service, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var out string
	var err error

	switch args[0] {
	case "distance":
		out, err = distance(ctx, svc, args[1:])
	case "stations":
		out, err = nearestStations(ctx, svc, args[1:], stderr)
	case "reverse":
		out, err = reverse(ctx, svc, args[1:])
	case "weather":
		out, err = currentWeather(ctx, svc, args[1:])
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if errors.Is(err, geocode.ErrInvalidInput) {
			return 2
		}
		return 1
	}

	fmt.Fprintln(stdout, out)
	return 0
}

func distance(ctx context.Context, svc *locator.Service, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("distance needs a <from> and a <to> place: %w", geocode.ErrInvalidInput)
	}

	trip, err := svc.Distance(ctx, args[0], args[1])
	if err != nil {
		return "", err
	}

	return msg.NewTripTable(trip), nil
}

func nearestStations(ctx context.Context, svc *locator.Service, args []string, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet("stations", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: locate stations [flags]")
		fs.PrintDefaults()
	}
	near := fs.String("near", "", "place to search around")
	lat := fs.Float64("lat", locator.Rangpur.Coordinate.Latitude, "reference latitude")
	lon := fs.Float64("lon", locator.Rangpur.Coordinate.Longitude, "reference longitude")
	limit := fs.Int("limit", 0, "maximum number of stations, 0 for all")
	radius := fs.Float64("radius", -1, "only stations within this many km, negative for no limit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", err.Error(), geocode.ErrInvalidInput)
	}

	ref := geo.Coordinate{Latitude: *lat, Longitude: *lon}
	if *near != "" {
		c, err := svc.Geocode(ctx, *near)
		if err != nil {
			return "", err
		}
		ref = c
	}

	var ranked []geo.DistanceResult
	var err error
	if *radius >= 0 {
		ranked, err = svc.StationsWithin(ctx, ref, *radius, *limit)
	} else {
		ranked, err = svc.NearestStations(ctx, ref, *limit)
	}
	if err != nil {
		return "", err
	}

	return msg.NewStationsTable(ref, ranked, msg.WithPosition(), msg.WithPhone(), msg.WithCoordinates()), nil
}

func reverse(ctx context.Context, svc *locator.Service, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("reverse needs a <lat> and a <lon>: %w", geocode.ErrInvalidInput)
	}

	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "", fmt.Errorf("lat must be a number: %w", geocode.ErrInvalidInput)
	}

	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "", fmt.Errorf("lon must be a number: %w", geocode.ErrInvalidInput)
	}

	return svc.Describe(ctx, geo.Coordinate{Latitude: lat, Longitude: lon})
}

func currentWeather(ctx context.Context, svc *locator.Service, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("weather needs a <place>: %w", geocode.ErrInvalidInput)
	}

	conditions, err := svc.Weather(ctx, args[0])
	if err != nil {
		return "", err
	}

	return msg.NewWeatherTable(args[0], conditions), nil
}
