// Package upstream is the JSON-over-HTTP plumbing shared by the clients of
// third-party APIs: the governance listing API, the collaboration board, the
// document service and the vector store.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/govsync/internal/common"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 5 * time.Minute

// APIError is a non-2xx response from an upstream API.
type APIError struct {
	StatusCode int
	Message    string
	Op         string
}

func (e *APIError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// Client issues requests against one base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
	query      url.Values
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.httpClient.Timeout = d
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(client *Client) {
		client.header.Set(key, value)
	}
}

// WithBearer authenticates every request with a bearer token.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithQuery adds a query parameter sent on every request. Empty values are
// skipped.
func WithQuery(key, value string) Option {
	return func(client *Client) {
		if value != "" {
			client.query.Set(key, value)
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		header:     http.Header{},
		query:      url.Values{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs GET path?query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	body, err := c.GetBytes(ctx, op, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %w", op, common.ErrUpstream, err)
	}
	return nil
}

// GetBytes performs GET path?query and returns the raw body.
func (c *Client) GetBytes(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, op)
}

// PostJSON sends in as a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, op, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := c.newRequest(ctx, op, http.MethodPost, path, nil, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %w", op, common.ErrUpstream, err)
	}
	return nil
}

// PostFile uploads content as a multipart form with the given extra fields
// and decodes the JSON response into out.
func (c *Client) PostFile(ctx context.Context, op, path, field, filename string, content []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("%s: write field: %w", op, err)
		}
	}
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("%s: create form file: %w", op, err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("%s: write form file: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: close form: %w", op, err)
	}

	req, err := c.newRequest(ctx, op, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %w", op, common.ErrUpstream, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, op, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid URL: %w", op, common.ErrUpstream, err)
	}
	q := u.Query()
	for k, vs := range c.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: create request: %w", op, common.ErrUpstream, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req. Transport failures and non-2xx responses are wrapped with
// common.ErrUpstream; the latter also carry an *APIError.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, common.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: read response: %w", op, common.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w", common.ErrUpstream, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Op:         op,
		})
	}
	return body, nil
}
