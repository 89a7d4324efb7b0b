// Package geoip holds the IP geolocation providers: the ip-api.com JSON
// API, an offline MaxMind database and a fallback chain of both.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
)

const (
	SourceIPAPI = "ipapi"
	ipapiFields = "status,message,country,countryCode,regionName,city,lat,lon,isp,query"
)

var ErrLookupFailed = errors.New("geoip: lookup failed")

// LookupError carries the provider's reason for refusing an address.
type LookupError struct {
	IP      string
	Message string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("geoip: lookup %s failed: %s", e.IP, e.Message)
}

// Is makes errors.Is(err, ErrLookupFailed) match.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailed
}

// RetryError is returned when every attempt against the API failed.
type RetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *RetryError) Error() string {
	msg := "geoip: fetch " + e.URL + " failed after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *RetryError) Unwrap() error { return e.LastError }

// APIConfig tunes the ip-api client.
type APIConfig struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// DefaultAPIConfig matches the free ip-api.com tier.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:           "http://ip-api.com",
		RequestsPerMinute: 45,
		Timeout:           5 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
	}
}

type ipapiResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	Query       string  `json:"query"`
}

// APIClient implements ports.Geolocator against an ip-api.com compatible
// endpoint. Requests are throttled client side and retried on 429 and 5xx.
type APIClient struct {
	cfg     APIConfig
	client  *fasthttp.Client
	limiter *rate.Limiter
}

// NewAPIClient creates a new APIClient.
func NewAPIClient(cfg APIConfig) *APIClient {
	def := DefaultAPIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	return &APIClient{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:                "globetrace/1.0",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
}

// Locate looks ip up.
func (c *APIClient) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	start := time.Now()
	loc, err := c.locate(ctx, ip)
	metrics.GeoLookupDuration.WithLabelValues(SourceIPAPI).Observe(time.Since(start).Seconds())
	metrics.GeoLookups.WithLabelValues(SourceIPAPI, resultLabel(err)).Inc()
	return loc, err
}

func (c *APIClient) locate(ctx context.Context, ip string) (*domain.Location, error) {
	u := c.cfg.BaseURL + "/json/" + url.PathEscape(ip) + "?fields=" + ipapiFields

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var r ipapiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("geoip: decode response for %s: %w", ip, err)
	}
	if r.Status != "success" {
		msg := r.Message
		if msg == "" {
			msg = "status " + strconv.Quote(r.Status)
		}
		return nil, &LookupError{IP: ip, Message: msg}
	}

	if r.Query == "" {
		r.Query = ip
	}
	return &domain.Location{
		IP:          r.Query,
		Lon:         r.Lon,
		Lat:         r.Lat,
		City:        r.City,
		Region:      r.RegionName,
		Country:     r.Country,
		CountryCode: r.CountryCode,
		ISP:         r.ISP,
		Source:      SourceIPAPI,
	}, nil
}

func (c *APIClient) get(ctx context.Context, u string) ([]byte, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("geoip: rate limiter: %w", err)
		}

		status, body, retryAfter, err := c.do(ctx, u)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			lastErr = err
		case status >= 200 && status < 300:
			return body, nil
		case !isRetryableStatus(status):
			return nil, &RetryError{URL: u, Attempts: attempt + 1, LastStatus: status}
		default:
			lastStatus = status
		}

		if attempt == c.cfg.MaxRetries {
			break
		}

		wait := c.backoff(attempt)
		if retryAfter > 0 {
			wait = retryAfter
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &RetryError{URL: u, Attempts: c.cfg.MaxRetries + 1, LastStatus: lastStatus, LastError: lastErr}
}

type doResult struct {
	status     int
	body       []byte
	retryAfter time.Duration
	err        error
}

// do sends one request. It returns as soon as ctx is done; the request in
// flight then finishes on its own within the client timeout.
func (c *APIClient) do(ctx context.Context, u string) (status int, body []byte, retryAfter time.Duration, err error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, 0, err
	}
	timeout := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, 0, context.DeadlineExceeded
	}

	done := make(chan doResult, 1)
	go func() { done <- c.doTimeout(u, timeout) }()

	select {
	case <-ctx.Done():
		return 0, nil, 0, ctx.Err()
	case r := <-done:
		return r.status, r.body, r.retryAfter, r.err
	}
}

func (c *APIClient) doTimeout(u string, timeout time.Duration) doResult {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return doResult{err: err}
	}

	var retryAfter time.Duration
	// ip-api reports the seconds until its window resets in X-Ttl.
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		for _, h := range []string{"Retry-After", "X-Ttl"} {
			if s, err := strconv.Atoi(string(resp.Header.Peek(h))); err == nil && s > 0 {
				retryAfter = time.Duration(s) * time.Second
				break
			}
		}
	}

	return doResult{
		status:     resp.StatusCode(),
		body:       append([]byte(nil), resp.Body()...),
		retryAfter: retryAfter,
	}
}

func (c *APIClient) backoff(attempt int) time.Duration {
	d := float64(c.cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	d = math.Min(d, float64(c.cfg.MaxBackoff))
	return time.Duration(d + rand.Float64()*0.25*d)
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusTooManyRequests || (status >= 500 && status < 600)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLookupFailed), errors.Is(err, ErrNoLocation):
		return "not_found"
	default:
		return "error"
	}
}
