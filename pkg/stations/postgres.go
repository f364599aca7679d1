package stations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/manzanit0/smartcity/pkg/geo"
)

type dbStation struct {
	ID   int64   `db:"id"`
	Name *string `db:"name"`

	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`

	PhoneNumber *string `db:"phone_number"`
}

type pgSource struct {
	db *sqlx.DB
}

var _ Source = (*pgSource)(nil)

// NewPgSource reads stations from the fire_stations table. It never writes.
func NewPgSource(db *sql.DB) *pgSource {
	return &pgSource{db: sqlx.NewDb(db, "postgres")}
}

func (s *pgSource) List(ctx context.Context) ([]geo.NamedLocation, error) {
	var rows []dbStation

	query := `
	SELECT id, name, latitude, longitude, phone_number
	FROM fire_stations
	ORDER BY id;`

	err := s.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, fmt.Errorf("select fire_stations: %w", err)
	}

	locs := make([]geo.NamedLocation, 0, len(rows))
	for _, r := range rows {
		loc, ok := r.Map()
		if !ok {
			slog.WarnContext(ctx, "skipping station without a name or valid coordinates", "station_id", r.ID)
			continue
		}

		locs = append(locs, loc)
	}

	return locs, nil
}

// Map converts the row into a location. ok is false when the row has no
// name or no usable coordinate.
func (r dbStation) Map() (geo.NamedLocation, bool) {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return geo.NamedLocation{}, false
	}

	if r.Latitude == nil || r.Longitude == nil {
		return geo.NamedLocation{}, false
	}

	coord, err := geo.NewCoordinate(*r.Latitude, *r.Longitude)
	if err != nil {
		return geo.NamedLocation{}, false
	}

	loc := geo.NamedLocation{Name: *r.Name, Coordinate: coord}
	if r.PhoneNumber != nil {
		loc.PhoneNumber = *r.PhoneNumber
	}

	return loc, true
}
