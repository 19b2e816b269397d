package positionstack

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

var (
	ErrNotFound = errors.New("location not found")
	ErrUnknown  = errors.New("no place name for coordinates")
)

type ClientOption func(*Client)

func ApiKeyOption(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
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

type Client struct {
	apiKey  string
	baseUrl string
	http    *http.Client
	retry   common.Retry
}

func New(opts ...ClientOption) *Client {
	c := &Client{http: http.DefaultClient, retry: common.DefaultRetry}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		panic("Missing apikey in positionStack client")
	}
	if c.baseUrl == "" {
		panic("Missing baseUrl in positionStack client")
	}
	return c
}

// Resolve forward geocodes a place name. ErrNotFound is returned when positionstack has no match.
func (c *Client) Resolve(ctx context.Context, place string) (t.GeoPoint, error) {
	loc, err := c.query(ctx, "forward", place)
	if err != nil {
		return t.GeoPoint{}, err
	}
	if loc == nil {
		return t.GeoPoint{}, fmt.Errorf("%w: %q", ErrNotFound, place)
	}
	return t.GeoPoint{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}

// Reverse returns a human-readable name for point, preferring the locality.
func (c *Client) Reverse(ctx context.Context, point t.GeoPoint) (string, error) {
	loc, err := c.query(ctx, "reverse", fmt.Sprintf("%v,%v", point.Latitude, point.Longitude))
	if err != nil {
		return "", err
	}
	if loc == nil {
		return "", ErrUnknown
	}
	switch {
	case loc.Locality != "":
		return loc.Locality, nil
	case loc.Label != "":
		return loc.Label, nil
	case loc.Name != "":
		return loc.Name, nil
	}
	return "", ErrUnknown
}

func (c *Client) query(ctx context.Context, endpoint, query string) (*location, error) {
	req, err := url.Parse(fmt.Sprintf("%v/%v", c.baseUrl, endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to parse positionstack baseUrl %s: %w", c.baseUrl, err)
	}

	q := req.Query()
	q.Add("access_key", c.apiKey)
	q.Add("query", query)
	q.Add("limit", "1")
	req.RawQuery = q.Encode()

	ctxReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create positionstack request: %w", err)
	}
	resp, err := common.GetWithRetry(c.http, ctxReq, "positionstack", c.retry)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading positionstack response body: %w", err)
	}

	var respObj response
	if err := json.Unmarshal(body, &respObj); err != nil {
		return nil, fmt.Errorf("error unmarshalling response from positionstack: %w", err)
	}
	if len(respObj.Data) == 0 {
		return nil, nil
	}
	return &respObj.Data[0], nil
}
