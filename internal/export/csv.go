package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	t "github.com/evanhutnik/routerisk-service/internal/types"
)

var header = []string{"Segment", "Place", "lat", "lon", "temp", "wind", "desc", "risk", "status"}

// WriteCSV writes one row per record, in record order, after a header row.
func WriteCSV(w io.Writer, records []t.RouteRiskRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.SegmentIndex),
			r.PlaceName,
			formatFloat(r.Point.Latitude),
			formatFloat(r.Point.Longitude),
			formatFloat(r.Snapshot.TemperatureC),
			formatFloat(r.Snapshot.WindSpeedKmh),
			r.Snapshot.Description,
			r.Risk.String(),
			r.SafetyStatus.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.SegmentIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename mirrors route_weather_<from>_<to>.csv with spaces replaced.
func Filename(origin, destination string) string {
	return strings.ReplaceAll(fmt.Sprintf("route_weather_%s_%s.csv", origin, destination), " ", "_")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
