package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/flowboard/internal/events"
	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/server"
)

// HTTPClient implements DashboardClient using the flowboard HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Views ---

func (c *HTTPClient) ActiveWork(ctx context.Context, req *ActiveWorkRequest) (*server.ActiveWorkResponse, error) {
	q := scopeValues(req.Scope)
	if req.Query != "" {
		q.Set("q", req.Query)
	}
	if req.Strict {
		q.Set("strict", "true")
	}
	if req.View != "" {
		q.Set("view", req.View)
	}
	var resp server.ActiveWorkResponse
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/v1/active-work", q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Completed(ctx context.Context, scope Scope, weeks int) (*server.CompletedResponse, error) {
	q := scopeValues(scope)
	if weeks > 0 {
		q.Set("weeks", strconv.Itoa(weeks))
	}
	var resp server.CompletedResponse
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/v1/completed", q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ValidateQuery(ctx context.Context, scope Scope, query string) (*server.ValidateResponse, error) {
	q := scopeValues(scope)
	q.Set("q", query)
	var resp server.ValidateResponse
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/v1/search/validate", q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Issues ---

func (c *HTTPClient) ImportIssues(ctx context.Context, scope Scope, issues json.RawMessage) (*server.ImportResponse, error) {
	var resp server.ImportResponse
	if err := c.doJSON(ctx, http.MethodPost, withQuery("/v1/issues", scopeValues(scope)), issues, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Profiles(ctx context.Context) ([]model.ProfileQuery, error) {
	var resp struct {
		Profiles []model.ProfileQuery `json:"profiles"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/profiles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// --- Settings ---

func (c *HTTPClient) GetSettings(ctx context.Context) (*model.AppSettings, error) {
	var s model.AppSettings
	if err := c.doJSON(ctx, http.MethodGet, "/v1/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) UpdateSettings(ctx context.Context, settings model.AppSettings) (*model.AppSettings, error) {
	var s model.AppSettings
	if err := c.doJSON(ctx, http.MethodPut, "/v1/settings", settings, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// --- Saved views ---

func (c *HTTPClient) ListViews(ctx context.Context) ([]server.View, error) {
	var resp struct {
		Views []server.View `json:"views"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/views", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Views, nil
}

func (c *HTTPClient) GetView(ctx context.Context, name string) (*server.View, error) {
	var v server.View
	if err := c.doJSON(ctx, http.MethodGet, "/v1/views/"+url.PathEscape(name), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) SaveView(ctx context.Context, name, query string) (*server.View, error) {
	body := map[string]string{"query": query}
	var v server.View
	if err := c.doJSON(ctx, http.MethodPut, "/v1/views/"+url.PathEscape(name), body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) DeleteView(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/views/"+url.PathEscape(name), nil, nil)
}

// --- Events ---

// Events reads the server-sent event stream and calls fn for every event
// until ctx is done or the server closes the stream.
func (c *HTTPClient) Events(ctx context.Context, topics []string, fn func(*events.Envelope)) error {
	q := url.Values{}
	if len(topics) > 0 {
		q.Set("topics", strings.Join(topics, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+withQuery("/v1/events/stream", q), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	var (
		topic string
		data  []byte
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != nil {
				if env, err := events.DecodeEnvelope(data); err != nil {
					slog.Warn("skipping malformed event", "topic", topic, "err", err)
				} else {
					fn(env)
				}
			}
			topic, data = "", nil
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	return nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func scopeValues(scope Scope) url.Values {
	q := url.Values{}
	if scope.ProfileID != "" {
		q.Set("profile", scope.ProfileID)
	}
	if scope.QueryID != "" {
		q.Set("query_id", scope.QueryID)
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func apiError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// doJSON sends a JSON request and decodes a JSON response into result.
// A json.RawMessage body is sent as is.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, ok := body.(json.RawMessage)
		if !ok {
			var err error
			if data, err = json.Marshal(body); err != nil {
				return fmt.Errorf("marshaling request body: %w", err)
			}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
