// Package http provides the outgoing HTTP transport used to reach
// remote data services, plus the admin surface in the admin subpackage.
package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/ports"
)

// Client sends call requests to remote HTTP services.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
	headers    map[string]string

	mu   sync.RWMutex
	cred call.Credential
}

// ClientConfig configures the transport client.
type ClientConfig struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	MaxBodyBytes    int64
	UserAgent       string
	// Headers are added to every outgoing request.
	Headers map[string]string
}

// NewClient creates a new transport client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}

	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 50 << 20 // 50MB limit
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "datagate"
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		userAgent:  userAgent,
		maxBody:    maxBody,
		headers:    cfg.Headers,
	}
}

// SetCredential installs the default credential applied to requests
// that do not carry their own.
func (c *Client) SetCredential(cred call.Credential) {
	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()
}

func (c *Client) defaultCredential() call.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred
}

// Do performs one exchange with the remote service. Connection failures
// and non-2xx statuses both come back as *ports.TransportError.
func (c *Client) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	target, err := buildURL(req)
	if err != nil {
		return ports.Response{}, &ports.TransportError{URL: req.URL, Err: err}
	}

	body, hasBody := encodeBody(req.Body)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return ports.Response{}, &ports.TransportError{URL: target, Err: err}
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "*/*")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if hasBody && req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	if auth := c.authHeader(req.Credential); auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.Response{}, &ports.TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return ports.Response{}, &ports.TransportError{URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.Response{}, &ports.TransportError{
			Status: resp.StatusCode,
			URL:    target,
			Body:   respBody,
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return ports.Response{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    respBody,
	}, nil
}

// authHeader picks the request credential over the client default.
func (c *Client) authHeader(override *call.Credential) string {
	if override != nil {
		if v := override.HeaderValue(); v != "" {
			return v
		}
	}
	return c.defaultCredential().HeaderValue()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// buildURL appends the query string to the resolved URL. A raw query
// override wins over the parameter map; an existing query on the URL
// itself is kept and extended.
func buildURL(req ports.Request) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", err
	}

	extra := req.RawQuery
	if extra == "" && req.Query != nil {
		extra = encodeQuery(req.Query)
	}
	if extra != "" {
		if u.RawQuery != "" {
			u.RawQuery = u.RawQuery + "&" + extra
		} else {
			u.RawQuery = extra
		}
	}
	return u.String(), nil
}

// encodeQuery renders parameters in sorted key order so URLs are stable
// across calls.
func encodeQuery(params call.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, call.Stringify(params[k]))
	}
	return values.Encode()
}

// encodeBody turns the abstract body value into a reader. Byte slices
// and strings pass through untouched; anything else is rendered the
// same way call parameters are.
func encodeBody(v any) (io.Reader, bool) {
	switch b := v.(type) {
	case nil:
		return nil, false
	case []byte:
		if len(b) == 0 {
			return nil, false
		}
		return strings.NewReader(string(b)), true
	case string:
		if b == "" {
			return nil, false
		}
		return strings.NewReader(b), true
	default:
		s := call.Stringify(v)
		if s == "" {
			return nil, false
		}
		return strings.NewReader(s), true
	}
}

// Ensure interface compliance.
var _ ports.Transport = (*Client)(nil)
var _ ports.CredentialCarrier = (*Client)(nil)
