// package stations loads the fire station dataset the locator ranks. The
// dataset is read-only: it comes from a JSON file, the copy bundled with the
// binary, or a postgres table maintained elsewhere.
package stations

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manzanit0/smartcity/pkg/geo"
)

//go:embed rangpur_firestations.json
var rangpurStations []byte

type Source interface {
	List(ctx context.Context) ([]geo.NamedLocation, error)
}

type jsonStation struct {
	Name        string   `json:"name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	PhoneNumber string   `json:"phoneNumber"`
}

type FileSource struct {
	path string
	data []byte
}

var _ Source = (*FileSource)(nil)

// NewFileSource reads path on every List call so edits are picked up without
// a restart.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Embedded returns the Rangpur dataset bundled with the binary. Its
// coordinates are approximate and it carries no phone numbers; use
// STATIONS_FILE or DATABASE_URL for verified station data.
func Embedded() *FileSource {
	return &FileSource{path: "rangpur_firestations.json", data: rangpurStations}
}

func (s *FileSource) List(_ context.Context) ([]geo.NamedLocation, error) {
	if s.data != nil {
		return Parse(bytes.NewReader(s.data))
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	locs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	return locs, nil
}

// Parse decodes a JSON array of {name, latitude, longitude, phoneNumber}
// records. Any record without a name or with a missing or out of range
// coordinate fails the whole dataset.
func Parse(r io.Reader) ([]geo.NamedLocation, error) {
	var raw []jsonStation
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}

	locs := make([]geo.NamedLocation, 0, len(raw))
	for i, st := range raw {
		if strings.TrimSpace(st.Name) == "" {
			return nil, fmt.Errorf("station %d: missing name", i)
		}

		if st.Latitude == nil || st.Longitude == nil {
			return nil, fmt.Errorf("station %d (%s): missing coordinates", i, st.Name)
		}

		coord, err := geo.NewCoordinate(*st.Latitude, *st.Longitude)
		if err != nil {
			return nil, fmt.Errorf("station %d (%s): %w", i, st.Name, err)
		}

		locs = append(locs, geo.NamedLocation{
			Name:        st.Name,
			Coordinate:  coord,
			PhoneNumber: st.PhoneNumber,
		})
	}

	return locs, nil
}
