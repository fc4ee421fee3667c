package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Element is one raw tagged geometry element from the Overpass response.
// Ways and relations carry their coordinate in Center.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *Center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Center is the representative coordinate of a way or relation.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassResponse struct {
	Elements []Element `json:"elements"`
}

// overloadStatus reports whether a mirror signaled overload, which makes the
// query eligible for failover to the next mirror.
func overloadStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// Client queries an ordered list of Overpass mirrors with per-call timeouts
// and failover on overload or network failure.
type Client struct {
	endpoints []string
	client    *http.Client
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NewClient builds a client over the given mirror base URLs. The limiter
// paces courtesy retries against free mirrors; a nil http.Client gets a
// default with no client-level timeout (per-call contexts bound each call).
func NewClient(endpoints []string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoints: endpoints,
		client:    httpClient,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:       log,
	}
}

// Fetch posts the query to each mirror in order until one answers. The given
// timeout bounds each individual call; ctx aborts everything, including calls
// not yet started.
func (c *Client) Fetch(ctx context.Context, query string, timeout time.Duration) ([]Element, error) {
	var lastErr error

	for i, endpoint := range c.endpoints {
		if err := ctx.Err(); err != nil {
			// Cancelled or past deadline: do not start further mirrors.
			if lastErr != nil {
				return nil, fmt.Errorf("aborted after %d mirror(s): %w", i, lastErr)
			}
			return nil, err
		}

		// Courtesy pacing on retries, skipped when the deadline is close.
		if i > 0 {
			if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > 2*time.Second {
				if err := c.limiter.Wait(ctx); err != nil {
					return nil, err
				}
			}
		}

		elements, err := c.fetchOne(ctx, endpoint, query, timeout)
		if err == nil {
			return elements, nil
		}

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return nil, err
		}

		c.log.Warn("overpass mirror failed, trying next",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no overpass endpoints configured")
	}
	return nil, fmt.Errorf("all overpass mirrors failed: %w", lastErr)
}

func (c *Client) fetchOne(ctx context.Context, endpoint, query string, timeout time.Duration) ([]Element, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		// Network or timeout error: eligible for the next mirror.
		return nil, &retryableError{err: fmt.Errorf("overpass call failed: %w", err)}
	}
	defer resp.Body.Close()

	if overloadStatus(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return nil, &retryableError{err: fmt.Errorf("overpass mirror overloaded: status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &retryableError{err: fmt.Errorf("failed to decode overpass response: %w", err)}
	}

	return decoded.Elements, nil
}

// retryableError marks failures that should fail over to the next mirror.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }
