package entsoe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"energy-surplus/internal/observability/metrics"
	timeseries "energy-surplus/internal/timeseries/domain"
)

const (
	DocumentLoad       = "A65"
	DocumentGeneration = "A75"
	processRealised    = "A16"
	periodLayout       = "200601021504"

	LoadChunk       = 365 * 24 * time.Hour
	GenerationChunk = 24 * time.Hour
)

var (
	ErrEmptyBaseURL  = errors.New("entsoe: empty base url")
	ErrEmptyToken    = errors.New("entsoe: empty security token")
	ErrInvalidWindow = errors.New("entsoe: end must be after start")
	ErrHTTPStatus    = errors.New("entsoe: unexpected http status")
)

// Client is a minimal ENTSO-E transparency platform client.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit throttles requests to rps with the given burst. rps <= 0
// disables throttling.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a client.
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if token == "" {
		return nil, ErrEmptyToken
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchLoad downloads the realised total load of an area.
func (c *Client) FetchLoad(ctx context.Context, area string, start, end time.Time) ([]Point, error) {
	windows, err := Chunks(start, end, LoadChunk)
	if err != nil {
		return nil, err
	}
	var out []Point
	for _, w := range windows {
		params := c.params(DocumentLoad, w)
		params.Set("outBiddingZone_Domain", area)
		body, err := c.get(ctx, DocumentLoad, area, params)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		points, err := ParseLoadDocument(bytes.NewReader(body))
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, points...)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// FetchGeneration downloads the realised generation of an area per
// production type.
func (c *Client) FetchGeneration(ctx context.Context, area string, start, end time.Time) (map[timeseries.EnergyType][]Point, error) {
	windows, err := Chunks(start, end, GenerationChunk)
	if err != nil {
		return nil, err
	}
	out := make(map[timeseries.EnergyType][]Point)
	for _, w := range windows {
		params := c.params(DocumentGeneration, w)
		params.Set("in_Domain", area)
		params.Set("outBiddingZone_Domain", area)
		body, err := c.get(ctx, DocumentGeneration, area, params)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		byType, err := ParseGenerationDocument(bytes.NewReader(body))
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for psrType, points := range byType {
			out[psrType] = append(out[psrType], points...)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// Window is a half-open request interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Chunks splits [start, end) into windows of at most size.
func Chunks(start, end time.Time, size time.Duration) ([]Window, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}
	if size <= 0 {
		return []Window{{Start: start, End: end}}, nil
	}
	var out []Window
	for cursor := start; cursor.Before(end); {
		next := cursor.Add(size)
		if next.After(end) {
			next = end
		}
		out = append(out, Window{Start: cursor, End: next})
		cursor = next
	}
	return out, nil
}

func (c *Client) params(document string, w Window) url.Values {
	params := url.Values{}
	params.Set("securityToken", c.token)
	params.Set("documentType", document)
	params.Set("processType", processRealised)
	params.Set("periodStart", w.Start.UTC().Format(periodLayout))
	params.Set("periodEnd", w.End.UTC().Format(periodLayout))
	return params
}

func (c *Client) get(ctx context.Context, document, area string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	started := time.Now()
	body, err := c.do(ctx, params)
	result := metrics.ResultSuccess
	switch {
	case errors.Is(err, ErrNoData):
		result = metrics.ResultSkipped
	case err != nil:
		result = metrics.ResultError
	}
	metrics.ObserveFetch(document, result, time.Since(started))
	c.logf("event=entsoe_fetch document=%s area=%s period_start=%s period_end=%s result=%s",
		document, area, params.Get("periodStart"), params.Get("periodEnd"), result)
	return body, err
}

func (c *Client) do(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if root, rootErr := rootElement(body); rootErr == nil && root == acknowledgementRoot {
		_, ackErr := decodeDocument(bytes.NewReader(body))
		return nil, ackErr
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}
	return body, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
