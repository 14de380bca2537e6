// Package bus implements the Singapore bus tools: arrivals at a stop from the
// LTA DataMall API, and the stops nearest to a coordinate.
package bus

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-go-golems/jiminy/pkg/helpers"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "http://datamall2.mytransport.sg/ltaodataservice"

type NextBus struct {
	EstimatedArrival string `json:"EstimatedArrival"`
	Load             string `json:"Load"`
	Type             string `json:"Type"`
}

type Service struct {
	ServiceNo string  `json:"ServiceNo"`
	Operator  string  `json:"Operator"`
	NextBus   NextBus `json:"NextBus"`
	NextBus2  NextBus `json:"NextBus2"`
	NextBus3  NextBus `json:"NextBus3"`
}

type Arrivals struct {
	BusStopCode string    `json:"BusStopCode"`
	Services    []Service `json:"Services"`
}

// Client queries LTA DataMall.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey string, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: helpers.NewHTTPClient(timeout)}
}

// Arrivals returns the next buses at stopCode, for one service or all of them.
func (c *Client) Arrivals(ctx context.Context, stopCode string, serviceNo string) (*Arrivals, error) {
	if c.apiKey == "" {
		return nil, errors.New("no LTA DataMall API key configured")
	}
	q := url.Values{}
	q.Set("BusStopCode", stopCode)
	if serviceNo != "" {
		q.Set("ServiceNo", serviceNo)
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/BusArrivalv2?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("AccountKey", c.apiKey)
	req.Header.Set("accept", "application/json")

	ret := &Arrivals{}
	if err := helpers.DoJSON(ctx, c.http, req, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
