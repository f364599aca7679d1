package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/manzanit0/smartcity/pkg/env"
	"github.com/manzanit0/smartcity/pkg/locator"
	"github.com/manzanit0/smartcity/pkg/logger"
	"github.com/manzanit0/smartcity/pkg/metrics"
)

const ServiceName = "api"

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func init() {
	env.Load()
	logger.InitGlobalSlog(ServiceName)
}

func main() {
	notifier, flush, err := env.NewNotifier(Version)
	if err != nil {
		panic(err)
	}
	defer flush()

	geocoder, err := env.NewGeocoder()
	if err != nil {
		panic(err)
	}

	source, closeSource, err := env.NewStationSource()
	if err != nil {
		panic(err)
	}
	defer closeSource()

	var opts []locator.Option
	w, ok, err := env.NewWeather()
	if err != nil {
		panic(err)
	}
	if ok {
		opts = append(opts, locator.WithWeather(w))
	} else {
		slog.Info("OPENWEATHERMAP_API_KEY not set, weather lookups are disabled")
	}

	provider := env.Get("GEOCODER_PROVIDER", "nominatim")
	svc := locator.NewService(metrics.InstrumentGeocoder(geocoder, provider), source, opts...)

	r := newRouter(svc, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := env.Port()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		slog.Info(fmt.Sprintf("serving HTTP on :%s", port), "geocoder", provider)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server shutdown abruptly", "error", err.Error())
		} else {
			slog.Info("server shutdown gracefully")
		}

		stop()
	}()

	// Listen for OS interrupt
	<-ctx.Done()
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err.Error())
	}

	slog.Info("server exited")
}
