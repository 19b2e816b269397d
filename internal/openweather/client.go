package openweather

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
	"unicode"
	"unicode/utf8"

	"github.com/evanhutnik/routerisk-service/internal/common"
	t "github.com/evanhutnik/routerisk-service/internal/types"
)

// ForecastCount is the number of 3-hourly entries requested from the forecast endpoint.
const ForecastCount = 16

const msToKmh = 3.6

type CurrentResponse struct {
	Main       Main         `json:"main"`
	Wind       Wind         `json:"wind"`
	Conditions []Conditions `json:"weather"`
}

type ForecastResponse struct {
	List []ForecastItem `json:"list"`
}

type ForecastItem struct {
	Time int64 `json:"dt"`
	Main Main  `json:"main"`
}

type Main struct {
	Temp float64 `json:"temp"`
}

// Wind speed is metres per second with units=metric.
type Wind struct {
	Speed float64 `json:"speed"`
}

type Conditions struct {
	Id          int
	Main        string
	Description string
}

type ClientOption func(*Client)

type Client struct {
	apiKey  string
	baseUrl string
	http    *http.Client
	retry   common.Retry
}

func ApiKeyOption(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func BaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.baseUrl = strings.TrimRight(baseUrl, "/")
	}
}

func HttpClientOption(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func RetryOption(r common.Retry) ClientOption {
	return func(c *Client) {
		c.retry = r
	}
}

func New(opts ...ClientOption) *Client {
	c := &Client{http: http.DefaultClient, retry: common.DefaultRetry}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		panic("Missing apikey in openweather client")
	}
	if c.baseUrl == "" {
		panic("Missing baseUrl in openweather client")
	}
	return c
}

// Current returns the instantaneous conditions at point.
func (c *Client) Current(ctx context.Context, point t.GeoPoint) (t.WeatherSnapshot, error) {
	var respObj CurrentResponse
	if err := c.get(ctx, "weather", point, nil, &respObj); err != nil {
		return t.WeatherSnapshot{}, err
	}
	if len(respObj.Conditions) == 0 {
		return t.WeatherSnapshot{}, errors.New("openweather response has no weather conditions")
	}
	return t.WeatherSnapshot{
		TemperatureC: respObj.Main.Temp,
		WindSpeedKmh: respObj.Wind.Speed * msToKmh,
		Description:  capitalize(respObj.Conditions[0].Description),
	}, nil
}

// Forecast returns the short-range temperature series at point in source order.
func (c *Client) Forecast(ctx context.Context, point t.GeoPoint) ([]t.ForecastEntry, error) {
	var respObj ForecastResponse
	extra := url.Values{"cnt": {strconv.Itoa(ForecastCount)}}
	if err := c.get(ctx, "forecast", point, extra, &respObj); err != nil {
		return nil, err
	}
	entries := make([]t.ForecastEntry, 0, len(respObj.List))
	for _, item := range respObj.List {
		entries = append(entries, t.ForecastEntry{
			Time:         time.Unix(item.Time, 0).UTC(),
			TemperatureC: item.Main.Temp,
		})
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, endpoint string, point t.GeoPoint, extra url.Values, out any) error {
	reqUrl := fmt.Sprintf("%v/%v", c.baseUrl, endpoint)
	req, err := url.Parse(reqUrl)
	if err != nil {
		return fmt.Errorf("failed to parse baseUrl %s: %w", c.baseUrl, err)
	}

	q := req.Query()
	q.Add("appid", c.apiKey)
	q.Add("lat", strconv.FormatFloat(point.Latitude, 'f', -1, 64))
	q.Add("lon", strconv.FormatFloat(point.Longitude, 'f', -1, 64))
	q.Add("units", "metric")
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	req.RawQuery = q.Encode()

	ctxReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	if err != nil {
		return fmt.Errorf("create openweather request: %w", err)
	}
	resp, err := common.GetWithRetry(c.http, ctxReq, "openweather", c.retry)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading body of response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error unmarshalling response from openweather: %w", err)
	}
	return nil
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
