package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rivalry/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout and an optional bearer token.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: config.BaseURL,
		token:   config.Token,
	}
}

// sportPath returns the API prefix for sport.
func sportPath(s Sport) string {
	return "/api/v1/sports/" + url.PathEscape(s.Slug)
}

// Get performs a GET request and decodes a JSON answer into out when non-nil.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) (int, error) {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) (int, error) {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// submitSeason posts one season's matches concurrently.
func submitSeason(ctx context.Context, config *Config, client *HTTPClient, sport Sport, matches []MatchRequest, stats *Stats) {
	var (
		successful int64
		duplicate  int64
		failed     int64
	)

	jobs := make(chan MatchRequest, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				switch submitSingleMatch(ctx, client, sport, m) {
				case "success":
					atomic.AddInt64(&successful, 1)
				case "duplicate":
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, m := range matches {
			select {
			case <-ctx.Done():
				return
			case jobs <- m:
			}
		}
	}()
	wg.Wait()

	stats.MatchesSubmitted += int(successful + duplicate + failed)
	stats.MatchesSuccessful += int(successful)
	stats.MatchesDuplicate += int(duplicate)
	stats.MatchesFailed += int(failed)

	if config.Verbose {
		logger.Get().Info(ctx, "season submitted",
			logger.String("sport", sport.Name),
			logger.Int("successful", int(successful)),
			logger.Int("duplicate", int(duplicate)),
			logger.Int("failed", int(failed)),
		)
	}
}

// submitSingleMatch submits a single match and returns the result.
func submitSingleMatch(ctx context.Context, client *HTTPClient, sport Sport, m MatchRequest) string {
	var ack RecordResponse
	status, err := client.Post(ctx, sportPath(sport)+"/matches", m, &ack)
	if err != nil {
		logger.Get().Debug(ctx, "match submission failed", logger.String("id", m.ID), logger.Error(err))
		return "failed"
	}
	switch status {
	case StatusCreated:
		return "success"
	case StatusOK:
		if ack.Duplicate {
			return "duplicate"
		}
		return "success"
	default:
		return "failed"
	}
}

// waitFor polls check until it succeeds or the deadline passes.
func waitFor(ctx context.Context, timeout time.Duration, check func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if check() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
