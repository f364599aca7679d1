package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manzanit0/smartcity/pkg/alert"
	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/geocode"
	"github.com/manzanit0/smartcity/pkg/locator"
	"github.com/manzanit0/smartcity/pkg/metrics"
	"github.com/manzanit0/smartcity/pkg/middleware"
	"github.com/manzanit0/smartcity/pkg/weather"
)

const maxLimit = 100

func newRouter(svc *locator.Service, notifier alert.Notifier) *gin.Engine {
	r := gin.New()
	r.Use(middleware.TraceID())
	r.Use(middleware.Recovery(notifier))
	r.Use(middleware.Logger(false))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handlers{svc: svc, notifier: notifier}
	v1 := r.Group("/v1")
	v1.GET("/geocode", h.geocode)
	v1.GET("/reverse", h.reverse)
	v1.GET("/distance", h.distance)
	v1.GET("/stations/nearest", h.nearestStations)
	v1.GET("/weather", h.weather)

	return r
}

type handlers struct {
	svc      *locator.Service
	notifier alert.Notifier
}

type coordinateResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type stationResponse struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	DistanceKm  float64 `json:"distance_km"`
}

func (h *handlers) geocode(c *gin.Context) {
	query := c.Query("q")

	coord, err := h.svc.Geocode(c.Request.Context(), query)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, coordinateResponse(coord))
}

func (h *handlers) reverse(c *gin.Context) {
	coord, err := coordinateFromQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	name, err := h.svc.Describe(c.Request.Context(), coord)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (h *handlers) distance(c *gin.Context) {
	trip, err := h.svc.Distance(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":        gin.H{"name": trip.From.Name, "latitude": trip.From.Coordinate.Latitude, "longitude": trip.From.Coordinate.Longitude},
		"to":          gin.H{"name": trip.To.Name, "latitude": trip.To.Coordinate.Latitude, "longitude": trip.To.Coordinate.Longitude},
		"distance_km": trip.DistanceKm,
	})
}

// nearestStations ranks stations around ?lat=&lon= or, without them, around
// the place in ?q=. ?radius_km= drops stations farther than that.
func (h *handlers) nearestStations(c *gin.Context) {
	ctx := c.Request.Context()

	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	reference := "coordinate"
	var ref geo.Coordinate
	if c.Query("lat") == "" && c.Query("lon") == "" {
		reference = "place"
		ref, err = h.svc.Geocode(ctx, c.Query("q"))
	} else {
		ref, err = coordinateFromQuery(c)
	}

	if err != nil {
		h.fail(c, err)
		return
	}

	var ranked []geo.DistanceResult
	if raw := c.Query("radius_km"); raw != "" {
		radius, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || radius < 0 {
			h.fail(c, fmt.Errorf("radius_km must be a non-negative number: %w", geocode.ErrInvalidInput))
			return
		}
		ranked, err = h.svc.StationsWithin(ctx, ref, radius, limit)
	} else {
		ranked, err = h.svc.NearestStations(ctx, ref, limit)
	}

	if err != nil {
		h.fail(c, err)
		return
	}

	metrics.StationsRanked.WithLabelValues(reference).Observe(float64(len(ranked)))

	out := make([]stationResponse, len(ranked))
	for i, r := range ranked {
		out[i] = stationResponse{
			Name:        r.Location.Name,
			Latitude:    r.Location.Coordinate.Latitude,
			Longitude:   r.Location.Coordinate.Longitude,
			PhoneNumber: r.Location.PhoneNumber,
			DistanceKm:  r.DistanceKm,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reference": coordinateResponse(ref),
		"stations":  out,
	})
}

// weather reports current conditions at ?lat=&lon= or at the place in ?q=.
func (h *handlers) weather(c *gin.Context) {
	ctx := c.Request.Context()

	var conditions *weather.Conditions
	var err error
	if c.Query("lat") == "" && c.Query("lon") == "" {
		conditions, err = h.svc.Weather(ctx, c.Query("q"))
	} else {
		var coord geo.Coordinate
		coord, err = coordinateFromQuery(c)
		if err == nil {
			conditions, err = h.svc.WeatherAt(ctx, coord)
		}
	}

	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, conditions)
}

func (h *handlers) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, geocode.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, geocode.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, locator.ErrWeatherDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, geocode.ErrLookupFailed), errors.Is(err, weather.ErrUnavailable):
		h.notifier.Error(c.Request.Context(), err, map[string]string{"route": c.FullPath()})
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "unexpected error", "error", err.Error())
		h.notifier.Error(c.Request.Context(), err, map[string]string{"route": c.FullPath()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func coordinateFromQuery(c *gin.Context) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("lat must be a number: %w", geocode.ErrInvalidInput)
	}

	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("lon must be a number: %w", geocode.ErrInvalidInput)
	}

	coord, err := geo.NewCoordinate(lat, lon)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%s: %w", err.Error(), geocode.ErrInvalidInput)
	}

	return coord, nil
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, geocode.ErrInvalidInput)
	}

	return v, nil
}
