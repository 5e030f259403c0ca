// Package http implements the retrying HTTP transport used by the API requestor.
package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ten99policy/ten99policy-go/internal/constants"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Logger interface for the HTTP layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// TokenProvider supplies the default credential for requests that carry none.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed key.
type StaticToken string

// GetToken implements TokenProvider.
func (t StaticToken) GetToken(ctx context.Context) (string, error) {
	return string(t), nil
}

// Request is one HTTP call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
	// APIKey overrides the token provider for this request.
	APIKey string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// APIKey is the credential the request was sent with.
	APIKey string
	// Cached is set when the body was served from the response cache.
	Cached bool
}

// StreamResponse is an HTTP response whose body is still open.
type StreamResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser
	APIKey     string
}

// Client sends requests to the API with retries, authentication headers and
// optional response caching.
type Client struct {
	baseURL       string
	tokenProvider TokenProvider
	httpClient    *retryablehttp.Client
	logger        Logger
	debug         bool
	userAgent     string
	cache         policy.Cache
	cacheTTL      time.Duration
	indexMutex    sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = &leveledLogger{logger: logger}
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig sets the retry count and backoff bounds.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = retryWaitMin
		c.httpClient.RetryWaitMax = retryWaitMax
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying standard client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithCache enables the GET response cache.
func WithCache(cache policy.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewClient creates a new HTTP client for baseURL.
func NewClient(baseURL string, tokenProvider TokenProvider, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		tokenProvider: tokenProvider,
		httpClient:    retryClient,
		userAgent:     constants.DefaultUserAgent,
		cacheTTL:      constants.DefaultCacheTTL,
	}

	retryClient.RequestLogHook = client.logRetry

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and reads the whole response. Responses with an error status
// are returned together with a *policy.ResponseError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	apiKey, err := c.resolveKey(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && req.Method == http.MethodGet {
		return c.doCached(ctx, req, apiKey)
	}

	resp, err := c.do(ctx, req, apiKey, nil)
	if err != nil {
		return resp, err
	}

	if c.cache != nil {
		c.invalidate(ctx, req.Path)
	}

	return resp, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// DoStream sends req and returns the response without reading its body.
// The caller must close the body. Error statuses are read, closed and
// returned as a *policy.ResponseError.
func (c *Client) DoStream(ctx context.Context, req *Request) (*StreamResponse, error) {
	apiKey, err := c.resolveKey(ctx, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, req, apiKey, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if httpResp.StatusCode >= constants.HTTPStatusBadRequest {
		defer func() { _ = httpResp.Body.Close() }()

		body, _ := io.ReadAll(httpResp.Body)

		return nil, policy.ParseResponseError(httpResp.StatusCode, body)
	}

	return &StreamResponse{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       httpResp.Body,
		APIKey:     apiKey,
	}, nil
}

func (c *Client) doCached(ctx context.Context, req *Request, apiKey string) (*Response, error) {
	key := c.cacheKey(req.Path, req.Query, apiKey)

	entry, err := c.cache.Get(ctx, key)
	if err == nil {
		return &Response{StatusCode: http.StatusOK, Headers: entry.Headers.Clone(), Body: entry.Data, APIKey: apiKey, Cached: true}, nil
	}

	extra := map[string]string{}
	if entry != nil && entry.ETag != "" {
		extra[constants.HeaderIfNoneMatch] = entry.ETag
	}

	resp, err := c.do(ctx, req, apiKey, extra)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusNotModified && entry != nil {
		headers := entry.Headers.Clone()
		if headers == nil {
			headers = http.Header{}
		}

		for name, values := range resp.Headers {
			headers[name] = values
		}

		entry.Headers = headers
		entry.ExpiresAt = time.Now().Add(c.cacheTTL)

		if etag := resp.Headers.Get(constants.HeaderETag); etag != "" {
			entry.ETag = etag
		}

		_ = c.cache.Set(ctx, key, entry)

		return &Response{StatusCode: http.StatusOK, Headers: headers.Clone(), Body: entry.Data, APIKey: apiKey, Cached: true}, nil
	}

	_ = c.cache.Set(ctx, key, &policy.CacheEntry{
		Data:      resp.Body,
		Headers:   resp.Headers.Clone(),
		ETag:      resp.Headers.Get(constants.HeaderETag),
		ExpiresAt: time.Now().Add(c.cacheTTL),
	})
	c.rememberKey(ctx, req.Path, key)

	return resp, nil
}

// rememberKey adds key to the index of cached responses for path.
func (c *Client) rememberKey(ctx context.Context, path, key string) {
	c.indexMutex.Lock()
	defer c.indexMutex.Unlock()

	indexKey := c.indexKey(path)
	keys := c.indexedKeys(ctx, indexKey)

	for _, existing := range keys {
		if existing == key {
			return
		}
	}

	data, err := json.Marshal(append(keys, key))
	if err != nil {
		return
	}

	_ = c.cache.Set(ctx, indexKey, &policy.CacheEntry{Data: data})
}

// invalidate drops every cached response for path and its ancestors,
// whatever their query string or credential. A write to an instance path
// thereby also drops the pages of its collection.
func (c *Client) invalidate(ctx context.Context, path string) {
	c.indexMutex.Lock()
	defer c.indexMutex.Unlock()

	for current := strings.TrimSuffix(path, "/"); current != ""; current = parentPath(current) {
		indexKey := c.indexKey(current)

		for _, key := range c.indexedKeys(ctx, indexKey) {
			_ = c.cache.Delete(ctx, key)
		}

		_ = c.cache.Delete(ctx, indexKey)
	}
}

func (c *Client) indexedKeys(ctx context.Context, indexKey string) []string {
	entry, err := c.cache.Get(ctx, indexKey)
	if err != nil && !errors.Is(err, policy.ErrCacheEntryExpired) {
		return nil
	}

	if entry == nil {
		return nil
	}

	var keys []string

	_ = json.Unmarshal(entry.Data, &keys)

	return keys
}

func (c *Client) indexKey(path string) string {
	return "index " + c.baseURL + path
}

func parentPath(path string) string {
	index := strings.LastIndex(path, "/")
	if index <= 0 {
		return ""
	}

	return path[:index]
}

func (c *Client) do(ctx context.Context, req *Request, apiKey string, extraHeaders map[string]string) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req, apiKey, extraHeaders)
	if err != nil {
		return nil, err
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    httpReq.URL.String(),
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":     httpResp.StatusCode,
			"request_id": httpResp.Header.Get("Request-Id"),
			"bytes":      len(body),
		})
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		APIKey:     apiKey,
	}

	if httpResp.StatusCode >= constants.HTTPStatusBadRequest {
		return resp, policy.ParseResponseError(httpResp.StatusCode, body)
	}

	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req *Request, apiKey string, extraHeaders map[string]string) (*retryablehttp.Request, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body interface{}

	if req.Body != nil {
		data, err := policy.MarshalPayload(req.Body)
		if err != nil {
			return nil, err
		}

		body = bytes.NewReader(data)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)

	if req.Body != nil {
		httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	if apiKey != "" {
		httpReq.Header.Set(constants.HeaderAuthorization, "Bearer "+apiKey)
	}

	if req.Method == http.MethodPost {
		httpReq.Header.Set(constants.HeaderIdempotencyKey, uuid.NewString())
	}

	for key, value := range extraHeaders {
		httpReq.Header.Set(key, value)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func (c *Client) resolveKey(ctx context.Context, req *Request) (string, error) {
	if req.APIKey != "" {
		return req.APIKey, nil
	}

	if c.tokenProvider == nil {
		return "", nil
	}

	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("getting API key: %w", err)
	}

	return token, nil
}

// cacheKey identifies a GET response. The credential is hashed so that keys
// never carry secrets.
func (c *Client) cacheKey(path string, query url.Values, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))

	key := http.MethodGet + " " + c.baseURL + path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}

	return key + " " + hex.EncodeToString(sum[:8])
}

func (c *Client) logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 || c.logger == nil {
		return
	}

	c.logger.Warn("Retrying request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt,
	})
}

// leveledLogger forwards retryablehttp warnings and errors to Logger.
type leveledLogger struct {
	logger Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
