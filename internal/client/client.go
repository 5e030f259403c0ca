package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ten99policy/ten99policy-go/internal/constants"
	policyhttp "github.com/ten99policy/ten99policy-go/internal/http"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// Static errors for err113 compliance.
var (
	ErrAPIKeyRequired = errors.New("no API key provided, set it on the object or in the client config")
)

// Requestor implements policy.Requestor on top of the retrying HTTP client.
type Requestor struct {
	httpClient  *policyhttp.Client
	cache       policy.Cache
	apiKey      string
	apiVersion  string
	environment string
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *policy.Config, cache policy.Cache) []policyhttp.Option {
	var httpOpts []policyhttp.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, policyhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, policyhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, policyhttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, policyhttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := 1 * time.Second
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, policyhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if cache != nil {
		ttl := config.CacheTTL
		if ttl <= 0 {
			ttl = constants.DefaultCacheTTL
		}

		httpOpts = append(httpOpts, policyhttp.WithCache(cache, ttl))
	}

	return httpOpts
}

// New creates a requestor for config. APIBase must already be normalized.
func New(config *policy.Config) (*Requestor, error) {
	if config == nil {
		return nil, policy.ErrConfigRequired
	}

	if config.APIBase == "" {
		return nil, policy.ErrAPIBaseRequired
	}

	var cache policy.Cache

	if config.Cache != nil {
		built, err := policy.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}

		cache = built
	}

	httpClient := policyhttp.NewClient(config.APIBase, policyhttp.StaticToken(config.APIKey),
		createHTTPClientOptions(config, cache)...)

	requestor := NewWithHTTPClient(httpClient, config)
	requestor.cache = cache

	return requestor, nil
}

// NewWithHTTPClient creates a requestor sending through httpClient. Only the
// identity defaults of config are used.
func NewWithHTTPClient(httpClient *policyhttp.Client, config *policy.Config) *Requestor {
	return &Requestor{
		httpClient:  httpClient,
		apiKey:      config.APIKey,
		apiVersion:  config.APIVersion,
		environment: config.Environment,
	}
}

// Request implements policy.Requestor.
func (r *Requestor) Request(ctx context.Context, req *policy.APIRequest) (*policy.Response, string, error) {
	httpReq, apiKey, err := r.httpRequest(req)
	if err != nil {
		return nil, "", err
	}

	resp, err := r.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, apiKey, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	result := &policy.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}

	if len(resp.Body) > 0 {
		err = json.Unmarshal(resp.Body, &result.Data)
		if err != nil {
			return nil, apiKey, fmt.Errorf("%w: %s %s: %w", policy.ErrUnexpectedResponse, req.Method, req.URL, err)
		}
	}

	return result, apiKey, nil
}

// RequestStream implements policy.Requestor.
func (r *Requestor) RequestStream(ctx context.Context, req *policy.APIRequest) (*policy.StreamResponse, string, error) {
	httpReq, apiKey, err := r.httpRequest(req)
	if err != nil {
		return nil, "", err
	}

	resp, err := r.httpClient.DoStream(ctx, httpReq)
	if err != nil {
		return nil, apiKey, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	return &policy.StreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, apiKey, nil
}

// Close releases the response cache, if it holds a connection.
func (r *Requestor) Close() error {
	if closer, ok := r.cache.(io.Closer); ok {
		return closer.Close()
	}

	if closer, ok := r.cache.(interface{ Close() }); ok {
		closer.Close()
	}

	return nil
}

func (r *Requestor) httpRequest(req *policy.APIRequest) (*policyhttp.Request, string, error) {
	apiKey := firstNonEmpty(req.APIKey, r.apiKey)
	if apiKey == "" {
		return nil, "", ErrAPIKeyRequired
	}

	headers := make(map[string]string, len(req.Headers)+2)

	if version := firstNonEmpty(req.APIVersion, r.apiVersion); version != "" {
		headers[constants.HeaderAPIVersion] = version
	}

	if environment := firstNonEmpty(req.Environment, r.environment); environment != "" {
		headers[constants.HeaderEnvironment] = environment
	}

	for key, value := range req.Headers {
		headers[key] = value
	}

	httpReq := &policyhttp.Request{
		Method:  req.Method,
		Path:    req.URL,
		Headers: headers,
		APIKey:  apiKey,
	}

	switch req.Method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		if len(req.Params) > 0 {
			httpReq.Query = policy.EncodeQuery(req.Params)
		}
	default:
		if req.Params != nil {
			httpReq.Body = req.Params
		}
	}

	return httpReq, apiKey, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
