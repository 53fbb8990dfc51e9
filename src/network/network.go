package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/models"
)

const userAgent = "orderbook-observer/1.0"

// HTTPClient performs REST calls against the exchange with bounded retries.
type HTTPClient struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHTTPClient(cfg *models.MConfig, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
			Timeout:   time.Duration(cfg.Feed.RequestTimeoutSeconds) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request, retrying transport errors, 429 and 5xx answers
// with a doubling delay. Other non-200 answers fail immediately.
func (c *HTTPClient) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	maxRetries := c.Config.Feed.MaxRetries
	backoff := helpers.Backoff{Base: 500 * time.Millisecond, Max: 5 * time.Second}
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 && !helpers.Sleep(ctx, backoff.Next()) {
			return nil, ctx.Err()
		}

		body, retry, err := c.do(ctx, finalURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
	}

	return nil, &helpers.NetworkError{ObserverError: helpers.ObserverError{Message: "GET " + finalURL, Cause: lastErr}}
}

// -----------------------------------------------------------------------------

func (c *HTTPClient) do(ctx context.Context, finalURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("bad status: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
