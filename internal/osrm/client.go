package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/evanhutnik/routerisk-service/internal/common"
	t "github.com/evanhutnik/routerisk-service/internal/types"
)

var ErrRouteUnavailable = errors.New("route unavailable")

type Response struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []Route `json:"routes"`
}

type Route struct {
	Geometry Geometry `json:"geometry"`
	Duration float64  `json:"duration"`
	Distance float64  `json:"distance"`
}

// Geometry is GeoJSON LineString; coordinates are [lon, lat].
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

type ClientOption func(*Client)

type Client struct {
	baseUrl string
	http    *http.Client
	retry   common.Retry
}

func BaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.baseUrl = baseUrl
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

	if c.baseUrl == "" {
		panic("Missing baseUrl in osrm client")
	}
	return c
}

// Route fetches the full driving geometry between origin and destination.
func (c *Client) Route(ctx context.Context, origin, destination t.GeoPoint) (t.RouteSummary, error) {
	reqUrl := fmt.Sprintf("%v/%f,%f;%f,%f", c.baseUrl, origin.Longitude, origin.Latitude, destination.Longitude, destination.Latitude)
	req, err := url.Parse(reqUrl)
	if err != nil {
		return t.RouteSummary{}, fmt.Errorf("failed to parse osrm url %s: %w", reqUrl, err)
	}

	q := req.Query()
	q.Add("overview", "full")
	q.Add("geometries", "geojson")
	q.Add("steps", "false")
	req.RawQuery = q.Encode()

	ctxReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	if err != nil {
		return t.RouteSummary{}, fmt.Errorf("create osrm request: %w", err)
	}
	resp, err := common.GetWithRetry(c.http, ctxReq, "osrm", c.retry)
	if err != nil {
		var statusErr *common.StatusError
		if errors.As(err, &statusErr) && !statusErr.Transient() {
			return t.RouteSummary{}, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
		}
		return t.RouteSummary{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return t.RouteSummary{}, fmt.Errorf("error reading osrm response body: %w", err)
	}

	var respObj Response
	if err := json.Unmarshal(body, &respObj); err != nil {
		return t.RouteSummary{}, fmt.Errorf("error unmarshalling response from osrm: %w", err)
	}
	if respObj.Code != "Ok" || len(respObj.Routes) == 0 {
		return t.RouteSummary{}, fmt.Errorf("%w: osrm code %q %s", ErrRouteUnavailable, respObj.Code, respObj.Message)
	}

	route := respObj.Routes[0]
	geometry := geometryFromOSRM(route.Geometry.Coordinates)
	if len(geometry) == 0 {
		return t.RouteSummary{}, fmt.Errorf("%w: empty geometry", ErrRouteUnavailable)
	}
	return t.RouteSummary{
		Geometry:        geometry,
		TotalDistanceKm: route.Distance / 1000,
	}, nil
}

func geometryFromOSRM(coords [][]float64) t.RouteGeometry {
	geometry := make(t.RouteGeometry, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		geometry = append(geometry, t.GeoPoint{Latitude: c[1], Longitude: c[0]})
	}
	return geometry
}
