package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	records := []types.RouteRiskRecord{
		{
			SegmentIndex: 1,
			PlaceName:    "Hyderabad, Telangana",
			Point:        types.GeoPoint{Latitude: 17.385, Longitude: 78.4867},
			Snapshot:     types.WeatherSnapshot{TemperatureC: 29.5, WindSpeedKmh: 12.6, Description: "Clear sky"},
			Risk:         types.Low,
			SafetyStatus: types.Safe,
		},
		{
			SegmentIndex: 2,
			PlaceName:    "Kurnool",
			Point:        types.GeoPoint{Latitude: 15.8281, Longitude: 78.0373},
			Snapshot:     types.WeatherSnapshot{TemperatureC: 27, WindSpeedKmh: 30, Description: "Light rain"},
			Risk:         types.Medium,
			SafetyStatus: types.NotSafe,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"1", "Hyderabad, Telangana", "17.385", "78.4867", "29.5", "12.6", "Clear sky", "Low", "Safe"}, rows[1])
	assert.Equal(t, []string{"2", "Kurnool", "15.8281", "78.0373", "27", "30", "Light rain", "Medium", "Not Safe"}, rows[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Segment,Place,lat,lon,temp,wind,desc,risk,status\n", buf.String())
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "route_weather_New_York_Boston.csv", Filename("New York", "Boston"))
}
