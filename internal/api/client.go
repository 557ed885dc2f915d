// Package api is the HTTP client of the remote todo collection resource.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

const (
	mediaType = "application/json"

	// RequestIDHeader carries a per-request uuid, echoed by the mock server.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// UpdateMethod selects how completion changes are sent to the server.
type UpdateMethod string

const (
	UpdatePatch UpdateMethod = "patch" // {"completed": b}
	UpdatePut   UpdateMethod = "put"   // full record with the new flag
)

// ParseUpdateMethod accepts "patch" or "put" in any case.
func ParseUpdateMethod(s string) (UpdateMethod, error) {
	switch UpdateMethod(strings.ToLower(strings.TrimSpace(s))) {
	case UpdatePatch, "":
		return UpdatePatch, nil
	case UpdatePut:
		return UpdatePut, nil
	}
	return "", fmt.Errorf("unknown update method %q (want patch or put)", s)
}

// StatusError reports a non-2xx response. All codes are treated alike.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to a collection resource rooted at a base URL, e.g.
// https://example.com/api (requests go to /api/todos).
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	update  UpdateMethod
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUpdateMethod picks PATCH or PUT for completion changes.
func WithUpdateMethod(m UpdateMethod) Option {
	return func(c *Client) {
		if m != "" {
			c.update = m
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New validates baseURL and builds a Client.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q: want http(s)://host[/path]", baseURL)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{},
		update:  UpdatePatch,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// List reads the full collection in server order.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	data, err := c.do(ctx, http.MethodGet, "/todos", nil)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	todos := []model.Todo{}
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil, fmt.Errorf("list todos: decode: %w", err)
	}
	return todos, nil
}

type createRequest struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Create submits a new, not yet completed todo.
func (c *Client) Create(ctx context.Context, text string) (model.Todo, error) {
	data, err := c.do(ctx, http.MethodPost, "/todos", createRequest{Text: text})
	if err != nil {
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return c.decodeTodo(data), nil
}

// SetCompleted changes the completion flag of t on the server. With PUT the
// rest of the record is sent unchanged.
func (c *Client) SetCompleted(ctx context.Context, t model.Todo, completed bool) (model.Todo, error) {
	path := "/todos/" + strconv.Itoa(t.ID)

	var (
		method string
		body   any
	)
	switch c.update {
	case UpdatePut:
		method = http.MethodPut
		t.Completed = completed
		body = t
	default:
		method = http.MethodPatch
		body = map[string]bool{"completed": completed}
	}

	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return model.Todo{}, fmt.Errorf("update todo %d: %w", t.ID, err)
	}
	return c.decodeTodo(data), nil
}

// Delete removes a todo by id.
func (c *Client) Delete(ctx context.Context, id int) error {
	if _, err := c.do(ctx, http.MethodDelete, "/todos/"+strconv.Itoa(id), nil); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return nil
}

// decodeTodo parses a mutation response. Callers re-fetch the list anyway,
// so an empty or odd body is not an error.
func (c *Client) decodeTodo(data []byte) model.Todo {
	var t model.Todo
	if len(bytes.TrimSpace(data)) == 0 {
		return t
	}
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.Debug("ignoring undecodable response body", "err", err)
	}
	return t
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", mediaType)
	req.Header.Set(RequestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", mediaType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}
