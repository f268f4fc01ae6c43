// Package remote implements the backend reporter that talks to the
// remote test-management service over HTTP.
package remote

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

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const defaultRequestTimeout = 30 * time.Second

// Config holds the settings for the remote backend.
type Config struct {
	BaseURL  string        // Service API base URL, e.g. "https://api.example.com"
	Token    string        // Bearer token for authentication
	Project  string        // Project code the run belongs to
	RunID    string        // Pre-existing run to attach to, if any
	RunTitle string        // Title for a newly created run
	Timeout  time.Duration // Per-request timeout (default 30s)
}

// Validate checks that the config is sufficient to construct a client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("remote reporter requires a base URL")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if c.Project == "" {
		return fmt.Errorf("remote reporter requires a project code")
	}
	if c.Token == "" {
		return fmt.Errorf("remote reporter requires an API token")
	}
	return nil
}

// Client is a thin HTTP client over the test-management service API.
type Client struct {
	baseURL string
	token   string
	project string
	http    *http.Client
	tracer  trace.Tracer
	log     log.Logger
}

// NewClient creates a client for the service API.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		project: cfg.Project,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("remote reporter"),
		log:     logger,
	}, nil
}

type createRunRequest struct {
	Title string `json:"title"`
}

type createRunResponse struct {
	Result struct {
		ID string `json:"id"`
	} `json:"result"`
}

// CreateRun creates a new run in the project and returns its identifier.
func (c *Client) CreateRun(ctx context.Context, title string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "create run")
	defer span.End()

	var resp createRunResponse
	path := fmt.Sprintf("/v1/projects/%s/runs", url.PathEscape(c.project))
	if err := c.doJSON(ctx, http.MethodPost, path, createRunRequest{Title: title}, &resp); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	if resp.Result.ID == "" {
		return "", fmt.Errorf("service returned an empty run id")
	}
	c.log.Debug("Created remote run", "project", c.project, "run_id", resp.Result.ID)
	return resp.Result.ID, nil
}

type attachmentPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Path        string `json:"path,omitempty"`
	Content     []byte `json:"content,omitempty"`
}

type resultPayload struct {
	ID          string              `json:"id,omitempty"`
	Signature   string              `json:"signature,omitempty"`
	Title       string              `json:"title"`
	Status      string              `json:"status"`
	Message     string              `json:"message,omitempty"`
	DurationMs  int64               `json:"duration_ms"`
	StartTime   *time.Time          `json:"start_time,omitempty"`
	Fields      map[string]string   `json:"fields,omitempty"`
	Params      map[string]string   `json:"params,omitempty"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
	Stdout      string              `json:"stdout,omitempty"`
}

type addResultsRequest struct {
	Results []resultPayload `json:"results"`
}

// AddResults uploads a batch of results to an existing run.
func (c *Client) AddResults(ctx context.Context, runID string, results []*types.TestResult) error {
	ctx, span := c.tracer.Start(ctx, "add results")
	defer span.End()

	req := addResultsRequest{Results: make([]resultPayload, 0, len(results))}
	for _, r := range results {
		req.Results = append(req.Results, toPayload(r))
	}
	path := fmt.Sprintf("/v1/projects/%s/runs/%s/results", url.PathEscape(c.project), url.PathEscape(runID))
	if err := c.doJSON(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("failed to upload %d results to run %s: %w", len(results), runID, err)
	}
	return nil
}

// CompleteRun marks a run finished on the service.
func (c *Client) CompleteRun(ctx context.Context, runID string) error {
	ctx, span := c.tracer.Start(ctx, "complete run")
	defer span.End()

	path := fmt.Sprintf("/v1/projects/%s/runs/%s/complete", url.PathEscape(c.project), url.PathEscape(runID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	return nil
}

// toPayload converts a result into its wire form. Captured output is
// stripped of ANSI escape sequences so the service stores clean text.
func toPayload(r *types.TestResult) resultPayload {
	p := resultPayload{
		ID:         r.ID,
		Signature:  r.Signature,
		Title:      r.Title,
		Status:     string(r.Status),
		Message:    r.Message,
		DurationMs: r.Duration.Milliseconds(),
		Fields:     r.Fields,
		Params:     r.Params,
	}
	if !r.StartTime.IsZero() {
		t := r.StartTime
		p.StartTime = &t
	}
	if r.Stdout != "" {
		p.Stdout = stripansi.Strip(r.Stdout)
	}
	for _, a := range r.Attachments {
		p.Attachments = append(p.Attachments, attachmentPayload{
			Name:        a.Name,
			ContentType: a.ContentType,
			Path:        a.Path,
			Content:     a.Content,
		})
	}
	return p
}

// doJSON performs one JSON request/response round trip against the API.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}
