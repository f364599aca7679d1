// package env contains simple getters for the abstractions every binary
// builds from environment variables. A .env file in the working directory is
// loaded first when present.
package env

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/joho/godotenv"

	"github.com/manzanit0/smartcity/pkg/alert"
	"github.com/manzanit0/smartcity/pkg/geocode"
	"github.com/manzanit0/smartcity/pkg/stations"
	"github.com/manzanit0/smartcity/pkg/weather"
	"github.com/manzanit0/smartcity/pkg/whttp"
)

// Load reads .env into the environment. Variables already set win.
func Load() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
}

func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func Port() string {
	return Get("PORT", "8080")
}

// Environment is the deployment name reported with alerts.
func Environment() string {
	return Get("APP_ENV", "development")
}

func GeocoderTimeout() (time.Duration, error) {
	raw := Get("GEOCODER_TIMEOUT", whttp.DefaultTimeout.String())

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse GEOCODER_TIMEOUT as duration: %s", err.Error())
	}

	if d <= 0 {
		return 0, fmt.Errorf("GEOCODER_TIMEOUT must be positive, got %s", raw)
	}

	return d, nil
}

func GeocoderConfig() (geocode.Config, error) {
	cfg := geocode.Config{
		Provider:         Get("GEOCODER_PROVIDER", "nominatim"),
		BaseURL:          os.Getenv("GEOCODER_BASE_URL"),
		UserAgent:        Get("GEOCODER_USER_AGENT", geocode.DefaultUserAgent),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		PositionstackKey: os.Getenv("POSITIONSTACK_ACCESS_KEY"),
	}

	if cfg.Provider == "googlemaps" && cfg.GoogleMapsAPIKey == "" {
		return geocode.Config{}, fmt.Errorf("missing GOOGLE_MAPS_API_KEY environment variable. Please check your environment.")
	}

	if cfg.Provider == "positionstack" && cfg.PositionstackKey == "" {
		return geocode.Config{}, fmt.Errorf("missing POSITIONSTACK_ACCESS_KEY environment variable. Please check your environment.")
	}

	return cfg, nil
}

// NewGeocoder builds the configured geocoder on top of a logging HTTP client.
func NewGeocoder() (geocode.Client, error) {
	cfg, err := GeocoderConfig()
	if err != nil {
		return nil, err
	}

	timeout, err := GeocoderTimeout()
	if err != nil {
		return nil, err
	}

	return geocode.New(whttp.NewLoggingClient(timeout), cfg)
}

// NewWeather builds the OpenWeatherMap client. ok is false when
// OPENWEATHERMAP_API_KEY is unset and weather lookups stay disabled.
func NewWeather() (w weather.Client, ok bool, err error) {
	apiKey := os.Getenv("OPENWEATHERMAP_API_KEY")
	if apiKey == "" {
		return nil, false, nil
	}

	timeout, err := GeocoderTimeout()
	if err != nil {
		return nil, false, err
	}

	c, err := weather.NewOpenWeatherMapClient(whttp.NewLoggingClient(timeout), apiKey, os.Getenv("OPENWEATHERMAP_BASE_URL"))
	if err != nil {
		return nil, false, err
	}

	return c, true, nil
}

// NewNotifier reports to sentry when SENTRY_DSN is set and only logs
// otherwise. The returned func flushes pending events.
func NewNotifier(version string) (alert.Notifier, func(), error) {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return alert.NewLogNotifier(), func() {}, nil
	}

	n, err := alert.NewSentryNotifier(dsn, Environment(), version)
	if err != nil {
		return nil, nil, err
	}

	return n, n.Flush, nil
}

// NewStationSource reads the fire_stations table when DATABASE_URL is set,
// the STATIONS_FILE otherwise, and falls back to the bundled dataset. The
// returned func releases the database connection, if any.
func NewStationSource() (stations.Source, func(), error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open db conn: %w", err)
		}

		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("unable to ping database: %w", err)
		}

		slog.Info("connected to the database successfully")

		closer := func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing db connection", "error", err.Error())
			}
		}

		return stations.NewPgSource(db), closer, nil
	}

	if path := os.Getenv("STATIONS_FILE"); path != "" {
		return stations.NewFileSource(path), func() {}, nil
	}

	return stations.Embedded(), func() {}, nil
}
