package msg

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/manzanit0/smartcity/pkg/geo"
	"github.com/manzanit0/smartcity/pkg/locator"
	"github.com/manzanit0/smartcity/pkg/weather"
)

const MsgNoStations = "No fire station found"

type tableOptions struct {
	withPhone       bool
	withPosition    bool
	withCoordinates bool
}

type TableOption func(*tableOptions)

func WithPhone() TableOption {
	return func(config *tableOptions) {
		config.withPhone = true
	}
}

func WithCoordinates() TableOption {
	return func(config *tableOptions) {
		config.withCoordinates = true
	}
}

// WithPosition numbers the rows starting at 1.
func WithPosition() TableOption {
	return func(config *tableOptions) {
		config.withPosition = true
	}
}

func FormatKm(km float64) string {
	return fmt.Sprintf("%.2f km", km)
}

// NewStationsTable renders ranked stations around ref.
func NewStationsTable(ref geo.Coordinate, results []geo.DistanceResult, opts ...TableOption) string {
	if len(results) == 0 {
		return MsgNoStations
	}

	options := tableOptions{}
	for _, f := range opts {
		f(&options)
	}

	header := []string{"Name", "Distance"}
	if options.withPosition {
		header = append([]string{"#"}, header...)
	}
	if options.withCoordinates {
		header = append(header, "Location (Lat, Lon)")
	}
	if options.withPhone {
		header = append(header, "Phone")
	}

	b := bytes.NewBuffer([]byte{})
	table := tablewriter.NewWriter(b)
	table.SetHeader(header)

	for i, r := range results {
		row := []string{r.Location.Name, FormatKm(r.DistanceKm)}
		if options.withPosition {
			row = append([]string{strconv.Itoa(i + 1)}, row...)
		}
		if options.withCoordinates {
			row = append(row, r.Location.Coordinate.String())
		}
		if options.withPhone {
			row = append(row, r.Location.PhoneNumber)
		}

		table.Append(row)
	}

	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()

	return fmt.Sprintf("Fire stations near %s\n%s", ref, b.String())
}

// NewTripTable renders the distance between two places.
func NewTripTable(trip *locator.Trip) string {
	b := bytes.NewBuffer([]byte{})
	table := tablewriter.NewWriter(b)
	table.SetHeader([]string{"", "Place", "Location (Lat, Lon)"})
	table.Append([]string{"From", trip.From.Name, trip.From.Coordinate.String()})
	table.Append([]string{"To", trip.To.Name, trip.To.Coordinate.String()})
	table.SetFooter([]string{"", "Distance", FormatKm(trip.DistanceKm)})
	table.SetAutoFormatHeaders(false)
	table.Render()

	return b.String()
}

// NewWeatherTable renders the current conditions at place.
func NewWeatherTable(place string, w *weather.Conditions) string {
	location := w.Location
	if location == "" {
		location = place
	}

	b := bytes.NewBuffer([]byte{})
	table := tablewriter.NewWriter(b)
	table.SetHeader([]string{"Condition", "Temperature", "Feels like", "Humidity", "Wind"})
	table.Append([]string{
		w.Description,
		fmt.Sprintf("%.1f°C", w.Temperature),
		fmt.Sprintf("%.1f°C", w.FeelsLike),
		fmt.Sprintf("%d%%", w.Humidity),
		fmt.Sprintf("%.1f m/s", w.WindSpeed),
	})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()

	return fmt.Sprintf("Weather in %s (%s)\n%s", location, w.Coordinate, b.String())
}
