// package geo contains the pure distance engine: coordinates, haversine
// distances and ranking of named locations around a reference point.
package geo

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean radius of the Earth used for every distance in
// this package.
const EarthRadiusKm = 6371.0

// s2Level is the S2 cell level used to tag locations, ~7-10 km cells.
const s2Level = 10

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate builds a Coordinate making sure latitude is within [-90, 90]
// and longitude within [-180, 180].
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}

	return c, nil
}

func (c Coordinate) Validate() error {
	// NaN fails both comparisons, so check it the other way round.
	if !(c.Latitude >= -90 && c.Latitude <= 90) {
		return fmt.Errorf("latitude %v out of range: %w", c.Latitude, ErrInvalidCoordinate)
	}

	if !(c.Longitude >= -180 && c.Longitude <= 180) {
		return fmt.Errorf("longitude %v out of range: %w", c.Longitude, ErrInvalidCoordinate)
	}

	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}

func (c Coordinate) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}

// CellID returns the S2 cell that contains the coordinate at a ~10km
// resolution. Locations sharing a cell are neighbours.
func (c Coordinate) CellID() string {
	cellID := s2.CellIDFromLatLng(c.latLng()).Parent(s2Level)
	return fmt.Sprintf("s2_%d", uint64(cellID))
}

type NamedLocation struct {
	Name        string     `json:"name"`
	Coordinate  Coordinate `json:"coordinate"`
	PhoneNumber string     `json:"phone_number,omitempty"`
}

type DistanceResult struct {
	Location   NamedLocation `json:"location"`
	DistanceKm float64       `json:"distance_km"`
}

// HaversineDistanceKm returns the great-circle distance between a and b in
// kilometers. s2's angular distance is computed with the haversine formula.
func HaversineDistanceKm(a, b Coordinate) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusKm
}

// RankByDistance pairs every location with its distance to ref and sorts the
// result ascending. Locations at the same distance keep their input order.
func RankByDistance(ref Coordinate, locs []NamedLocation) []DistanceResult {
	results := make([]DistanceResult, 0, len(locs))
	for _, l := range locs {
		results = append(results, DistanceResult{
			Location:   l,
			DistanceKm: HaversineDistanceKm(ref, l.Coordinate),
		})
	}

	slices.SortStableFunc(results, func(a, b DistanceResult) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return 0
		}
	})

	return results
}

// WithinRadius is RankByDistance restricted to the locations no farther than
// maxKm from ref.
func WithinRadius(ref Coordinate, locs []NamedLocation, maxKm float64) []DistanceResult {
	ranked := RankByDistance(ref, locs)

	i, _ := slices.BinarySearchFunc(ranked, maxKm, func(r DistanceResult, target float64) int {
		if r.DistanceKm <= target {
			return -1
		}
		return 1
	})

	return ranked[:i]
}
