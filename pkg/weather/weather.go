package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/manzanit0/smartcity/pkg/geo"
)

const DefaultOpenWeatherMapURL = "https://api.openweathermap.org"

// ErrUnavailable wraps every failure to obtain conditions from the provider.
var ErrUnavailable = errors.New("weather unavailable")

type Client interface {
	CurrentConditions(ctx context.Context, c geo.Coordinate) (*Conditions, error)
}

type Conditions struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	Location    string         `json:"location"`
	Condition   string         `json:"condition"`
	Description string         `json:"description"`
	Temperature float64        `json:"temperature_c"`
	FeelsLike   float64        `json:"feels_like_c"`
	Humidity    int            `json:"humidity"`
	WindSpeed   float64        `json:"wind_speed_ms"`
	ObservedAt  time.Time      `json:"observed_at"`
}

func NewOpenWeatherMapClient(h *http.Client, apiKey, baseURL string) (*owm, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing openweathermap api key")
	}

	if baseURL == "" {
		baseURL = DefaultOpenWeatherMapURL
	}

	return &owm{h: h, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

type owm struct {
	h       *http.Client
	apiKey  string
	baseURL string
}

var _ Client = (*owm)(nil)

type currentWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	DateTimeTS int64 `json:"dt"`
}

func (c *owm) CurrentConditions(ctx context.Context, coord geo.Coordinate) (*Conditions, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	params.Set("units", "metric")
	params.Set("lang", "en")
	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %s: %w", err.Error(), ErrUnavailable)
	}

	res, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %s: %w", err.Error(), ErrUnavailable)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s: %w", res.StatusCode, strings.TrimSpace(string(body)), ErrUnavailable)
	}

	var d currentWeatherResponse
	if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode response: %s: %w", err.Error(), ErrUnavailable)
	}

	if len(d.Weather) == 0 {
		return nil, fmt.Errorf("response has no weather: %w", ErrUnavailable)
	}

	location := d.Name
	if d.Sys.Country != "" && location != "" {
		location = fmt.Sprintf("%s (%s)", d.Name, d.Sys.Country)
	}

	return &Conditions{
		Coordinate:  coord,
		Location:    location,
		Condition:   Condition(d.Weather[0].ID),
		Description: d.Weather[0].Description,
		Temperature: d.Main.Temp,
		FeelsLike:   d.Main.FeelsLike,
		Humidity:    d.Main.Humidity,
		WindSpeed:   d.Wind.Speed,
		ObservedAt:  time.Unix(d.DateTimeTS, 0).UTC(),
	}, nil
}

// Condition groups an OpenWeatherMap condition code.
// See https://openweathermap.org/weather-conditions
func Condition(code int) string {
	switch {
	case code >= 200 && code <= 299:
		return "thunderstorm"
	case code >= 300 && code <= 399:
		return "drizzle"
	case code >= 500 && code <= 599:
		return "rain"
	case code >= 600 && code <= 699:
		return "snow"
	case code >= 700 && code <= 799:
		return "atmosphere"
	case code == 800:
		return "clear"
	case code >= 801 && code <= 899:
		return "clouds"
	default:
		return ""
	}
}
