// Package store is a client for the game server management API that records
// instance lifecycle events, player sessions and chat.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client is a rate limited store API client
type Client struct {
	httpClient    *http.Client
	apiKey        string
	baseURL       string
	requestTicker *time.Ticker
	requestChan   chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
}

// APIError is a non 2xx answer from the store
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store request failed with status %d", e.Status)
	}
	return fmt.Sprintf("store request failed (%d): %s", e.Status, e.Message)
}

// New creates a store client. A requestsPerMinute of zero or less disables
// rate limiting.
func New(apiKey, baseURL string, timeout time.Duration, requestsPerMinute int) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		done:       make(chan struct{}),
	}

	if requestsPerMinute > 0 {
		interval := time.Minute / time.Duration(requestsPerMinute)
		client.requestTicker = time.NewTicker(interval)

		// One token up front so the first request does not wait a full interval
		client.requestChan = make(chan struct{}, 1)
		client.requestChan <- struct{}{}

		go client.refill(client.requestTicker)

		log.Info().
			Int("requests_per_minute", requestsPerMinute).
			Dur("request_interval", interval).
			Str("base_url", client.baseURL).
			Msg("Initializing store client")
	} else {
		log.Info().
			Str("base_url", client.baseURL).
			Msg("Initializing store client without rate limit")
	}

	return client
}

func (c *Client) refill(ticker *time.Ticker) {
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			select {
			case c.requestChan <- struct{}{}:
				log.Trace().Msg("Added token to store request channel")
			default:
			}
		}
	}
}

// Close stops the rate limiter
func (c *Client) Close() {
	if c.requestTicker == nil {
		return
	}
	c.closeOnce.Do(func() {
		log.Info().Msg("Shutting down store client")
		c.requestTicker.Stop()
		close(c.done)
	})
}

func (c *Client) wait(ctx context.Context, requestID string) error {
	if c.requestChan == nil {
		return nil
	}

	waitStart := time.Now()
	select {
	case <-c.requestChan:
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Debug().
		Str("request_id", requestID).
		Dur("wait_duration", time.Since(waitStart)).
		Msg("Acquired rate limit token")
	return nil
}

// get issues a GET against endpoint and returns the raw body
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	requestID := uuid.NewString()
	startTime := time.Now()

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if err := c.wait(ctx, requestID); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	execStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().
			Str("request_id", requestID).
			Err(err).
			Str("url", target).
			Dur("exec_duration", time.Since(execStart)).
			Msg("Error executing store request")
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		log.Error().
			Str("request_id", requestID).
			Err(apiErr).
			Str("url", target).
			Int("status_code", resp.StatusCode).
			Dur("total_duration", time.Since(startTime)).
			Msg("Store returned error response")
		return nil, apiErr
	}

	log.Debug().
		Str("request_id", requestID).
		Str("endpoint", endpoint).
		Int("status_code", resp.StatusCode).
		Int("response_size", len(respBody)).
		Dur("exec_duration", time.Since(execStart)).
		Dur("total_duration", time.Since(startTime)).
		Msg("Store request completed")

	return respBody, nil
}

func parseAPIError(statusCode int, respBody []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(respBody, &errResp); err == nil {
		if errResp.Error != "" {
			return APIError{Status: statusCode, Message: errResp.Error}
		}
		if errResp.Message != "" {
			return APIError{Status: statusCode, Message: errResp.Message}
		}
	}

	return APIError{Status: statusCode, Message: strings.TrimSpace(string(respBody))}
}
