// Package pipeline is an HTTP client for the ledgerbook pipeline and public
// report endpoints. Schedulers use it to publish reports without a user login.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ledgerbook/internal/models"
)

// Client communicates with a running ledgerbook API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// StatusError is returned for responses with an unexpected status code.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// NewClient creates a pipeline client. apiKey may be empty for the public endpoints.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// PublishReport freezes the current totals into a new published report.
func (c *Client) PublishReport(ctx context.Context) (*models.PublishedReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/pipeline/reports/publish", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	report, err := c.doReport(req, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("publishing report: %w", err)
	}
	return report, nil
}

// LatestReport fetches the most recent published report.
func (c *Client) LatestReport(ctx context.Context) (*models.PublishedReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/reports/published", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	report, err := c.doReport(req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("fetching published report: %w", err)
	}
	return report, nil
}

func (c *Client) doReport(req *http.Request, wantStatus int) (*models.PublishedReport, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		return nil, decodeStatusError(resp)
	}

	var result struct {
		Report *models.PublishedReport `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Report == nil {
		return nil, fmt.Errorf("decoding response: missing report")
	}
	return result.Report, nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && json.Unmarshal(raw, &body) == nil {
		statusErr.Code = body.Error.Code
		statusErr.Message = body.Error.Message
	}
	return statusErr
}
