package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// HTTPDoer abstracts the HTTP client so tests can swap the transport
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client forwards requests to one external HTTP API and returns its JSON
// body unchanged. It performs no retries.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	headers    http.Header
	logger     *log.Logger
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    make(http.Header),
	}
}

// SetLogger sets the logger for debug output
func (c *Client) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// SetHeader adds a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the {success, error} wrapper the mail and orchestrator
// APIs put around every payload
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     any
	headers  http.Header
	envelope bool
}

// Forward sends a request and returns the raw JSON response body
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.send(ctx, request{
		op:     "forward " + method + " " + path,
		method: method,
		path:   path,
		query:  query,
		body:   body,
	})
}

// call sends a request and decodes the body into out (when non-nil)
func (c *Client) call(ctx context.Context, r request, out any) error {
	raw, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: r.op, Kind: KindParse, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, r request) (json.RawMessage, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range r.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: r.op, Kind: KindTransport, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &Error{Op: r.op, Kind: KindStatus, Status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Error != "" {
			e.Message = env.Error
		}
		if c.logger != nil {
			c.logger.Printf("backend: %v", e)
		}
		return nil, e
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, &Error{Op: r.op, Kind: KindParse, Status: resp.StatusCode, Message: "response is not JSON"}
	}

	if r.envelope {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &Error{Op: r.op, Kind: KindParse, Status: resp.StatusCode, Err: err}
		}
		if env.Success != nil && !*env.Success {
			return nil, &Error{Op: r.op, Kind: KindUnsuccessful, Status: resp.StatusCode, Message: env.Error}
		}
	}

	return json.RawMessage(data), nil
}

func decodeInto(op string, raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return &Error{Op: op, Kind: KindParse, Message: "empty response"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Kind: KindParse, Err: err}
	}
	return nil
}
