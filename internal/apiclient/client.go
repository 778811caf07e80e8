// Package apiclient talks to the remote keystroke registration and
// identification service. Requests are one-shot: there is no retry or
// backoff, failures surface directly to the caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"keyprint/internal/payload"
)

const defaultTimeout = 15 * time.Second

// Client is a thin HTTP client for the backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a client for the given base URL, e.g.
// "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// RegisterResult is the backend's response to a registration request.
type RegisterResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SamplesCount int    `json:"samples_count"`
}

// Match is one candidate user returned by identification.
type Match struct {
	Username      string  `json:"username"`
	Similarity    float64 `json:"similarity"`
	MaxSimilarity float64 `json:"max_similarity"`
	MinSimilarity float64 `json:"min_similarity"`
	SamplesCount  int     `json:"samples_count"`
	Confidence    float64 `json:"confidence"`
}

// IdentifyResult is the backend's response to an identification request.
type IdentifyResult struct {
	Success bool    `json:"success"`
	Matches []Match `json:"matches"`
	Message string  `json:"message"`
}

// UserSummary is one entry in the user listing.
type UserSummary struct {
	Username     string `json:"username"`
	SamplesCount int    `json:"samples_count"`
	CreatedAt    string `json:"created_at"`
	LastUpdated  string `json:"last_updated"`
}

// UsersResult is the backend's user listing response.
type UsersResult struct {
	Success bool          `json:"success"`
	Users   []UserSummary `json:"users"`
	Total   int           `json:"total"`
}

// ServiceStats summarizes the backend's stored data.
type ServiceStats struct {
	TotalUsers        int     `json:"total_users"`
	TotalSamples      int     `json:"total_samples"`
	AvgSamplesPerUser float64 `json:"avg_samples_per_user"`
}

// HealthResult is the backend's health check response.
type HealthResult struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Register submits a sample under a username.
func (c *Client) Register(ctx context.Context, sample payload.Sample) (RegisterResult, error) {
	if sample.Username == "" {
		return RegisterResult{}, fmt.Errorf("register requires a username")
	}
	var out RegisterResult
	if err := c.post(ctx, "/api/register", sample, &out); err != nil {
		return RegisterResult{}, err
	}
	return out, nil
}

// Identify submits an anonymous sample and returns the closest users.
func (c *Client) Identify(ctx context.Context, sample payload.Sample) (IdentifyResult, error) {
	sample.Username = ""
	var out IdentifyResult
	if err := c.post(ctx, "/api/identify", sample, &out); err != nil {
		return IdentifyResult{}, err
	}
	return out, nil
}

// Users lists registered users.
func (c *Client) Users(ctx context.Context) (UsersResult, error) {
	var out UsersResult
	if err := c.get(ctx, "/api/users", &out); err != nil {
		return UsersResult{}, err
	}
	return out, nil
}

// Stats fetches backend-wide statistics.
func (c *Client) Stats(ctx context.Context) (ServiceStats, error) {
	var out struct {
		Success bool         `json:"success"`
		Stats   ServiceStats `json:"stats"`
	}
	if err := c.get(ctx, "/api/stats", &out); err != nil {
		return ServiceStats{}, err
	}
	return out.Stats, nil
}

// Health checks the backend's health endpoint.
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	var out HealthResult
	if err := c.get(ctx, "/api/health", &out); err != nil {
		return HealthResult{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, sample payload.Sample, out any) error {
	body, err := sample.Marshal()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if jerr := json.Unmarshal(data, &apiErr); jerr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s returned %d: %s", req.URL.Path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s returned %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// UserPath builds the detail path for a username.
func UserPath(username string) string {
	return "/api/user/" + url.PathEscape(username)
}

// UserDetail fetches averaged features and per-sample history for one
// user. The feature payload is backend-defined; it is returned as raw
// JSON for display.
func (c *Client) UserDetail(ctx context.Context, username string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+UserPath(username), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	var out struct {
		Success bool            `json:"success"`
		User    json.RawMessage `json:"user"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
