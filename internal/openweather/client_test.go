package openweather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evanhutnik/routerisk-service/internal/common"
	"github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ow-test-key"

var point = types.GeoPoint{Latitude: 15.8281, Longitude: 78.0373}

func testClient(baseUrl string) *Client {
	return New(
		ApiKeyOption(testKey),
		BaseUrlOption(baseUrl),
		RetryOption(common.Retry{Attempts: 2, InitialInterval: time.Millisecond}),
	)
}

func TestCurrent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "15.8281", r.URL.Query().Get("lat"))
		assert.Equal(t, "78.0373", r.URL.Query().Get("lon"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"main":{"temp":31.5},"wind":{"speed":10},"weather":[{"id":500,"main":"Rain","description":"light RAIN"}]}`))
	}))
	defer srv.Close()

	s, err := testClient(srv.URL).Current(context.Background(), point)
	require.NoError(t, err)
	assert.Equal(t, 31.5, s.TemperatureC)
	assert.InDelta(t, 36.0, s.WindSpeedKmh, 1e-9)
	assert.Equal(t, "Light rain", s.Description)
}

func TestCurrent_NoConditions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":1},"wind":{"speed":1},"weather":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), point)
	assert.Error(t, err)
}

func TestCurrent_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), point)
	var statusErr *common.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestForecast_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "16", r.URL.Query().Get("cnt"))
		items := make([]string, 3)
		for i := range items {
			items[i] = fmt.Sprintf(`{"dt":%d,"main":{"temp":%d}}`, 1700000000+i*10800, 20+i)
		}
		_, _ = w.Write([]byte(`{"list":[` + strings.Join(items, ",") + `]}`))
	}))
	defer srv.Close()

	entries, err := testClient(srv.URL).Forecast(context.Background(), point)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), entries[0].Time)
	assert.Equal(t, 20.0, entries[0].TemperatureC)
	assert.Equal(t, 22.0, entries[2].TemperatureC)
	assert.True(t, entries[1].Time.After(entries[0].Time))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Clear sky", capitalize("clear sky"))
	assert.Equal(t, "Overcast clouds", capitalize("OVERCAST CLOUDS"))
	assert.Equal(t, "", capitalize(""))
}
