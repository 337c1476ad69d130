// Package httpclient is the client side of the job API used by the CLI.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/http/dto"
)

// Client talks to a running server and retries transport failures and
// 503/429 answers with a linear backoff.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retries    int
	retryBase  time.Duration
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultClientTimeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retries:    constants.DefaultRetryCount,
		retryBase:  constants.DefaultRetryBase,
	}
}

// Do executes an HTTP request with retries. Requests with a body must be
// rewindable through GetBody.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req.WithContext(ctx))
		var wait time.Duration
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
			wait = parseRetryAfter(resp)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server busy (status %d)", resp.StatusCode)
		default:
			return resp, nil
		}

		if attempt == c.retries-1 {
			break
		}
		if backoff := time.Duration(attempt+1) * c.retryBase; backoff > wait {
			wait = backoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// Status fetches every job keyed by id.
func (c *Client) Status(ctx context.Context) (map[string]dto.JobResponse, error) {
	var jobs map[string]dto.JobResponse
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Job fetches a single job.
func (c *Client) Job(ctx context.Context, id string) (dto.JobResponse, error) {
	var job dto.JobResponse
	err := c.doJSON(ctx, http.MethodGet, "/status/"+id, nil, &job)
	return job, err
}

// Submit queues an album directory for processing.
func (c *Client) Submit(ctx context.Context, path string) (dto.ProcessResponse, error) {
	var resp dto.ProcessResponse
	err := c.doJSON(ctx, http.MethodPost, "/process", dto.ProcessRequest{Path: path}, &resp)
	return resp, err
}

// Log fetches a job's log text.
func (c *Client) Log(ctx context.Context, id string) (string, error) {
	var resp dto.LogResponse
	if err := c.doJSON(ctx, http.MethodGet, "/log/"+id, nil, &resp); err != nil {
		return "", err
	}
	return resp.Log, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("query server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr dto.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
