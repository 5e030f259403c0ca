// Package policyclient provides the main entry point for creating ten99policy API clients
package policyclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/ten99policy/ten99policy-go/internal/client"
	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

// Client bundles a configured requestor with the options every object it
// returns carries.
type Client struct {
	requestor *client.Requestor
	opts      policy.Options
}

// New creates a new API client from config.
func New(ctx context.Context, config *policy.Config) (*Client, error) {
	if config == nil {
		return nil, policy.ErrConfigRequired
	}

	normalized := *config
	normalized.APIBase = normalizeAPIBase(config.APIBase)

	requestor, err := client.New(&normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return &Client{
		requestor: requestor,
		opts: policy.Options{
			APIKey:      normalized.APIKey,
			APIVersion:  normalized.APIVersion,
			Environment: normalized.Environment,
			Requestor:   requestor,
			Logger:      normalized.Logger,
		},
	}, nil
}

// NewWithKey creates a production client authenticated with apiKey.
func NewWithKey(ctx context.Context, apiKey string) (*Client, error) {
	return New(ctx, &policy.Config{
		APIKey:      apiKey,
		Environment: policy.EnvironmentProduction,
	})
}

// NewSandbox creates a sandbox client authenticated with apiKey.
func NewSandbox(ctx context.Context, apiKey string) (*Client, error) {
	return New(ctx, &policy.Config{
		APIKey:      apiKey,
		Environment: policy.EnvironmentSandbox,
	})
}

// normalizeAPIBase trims a trailing slash and defaults the scheme to https.
func normalizeAPIBase(apiBase string) string {
	if apiBase == "" {
		return policy.DefaultAPIBase
	}

	apiBase = strings.TrimSuffix(apiBase, "/")
	if !strings.HasPrefix(apiBase, "http://") && !strings.HasPrefix(apiBase, "https://") {
		apiBase = "https://" + apiBase
	}

	return apiBase
}

// Options returns the options objects created through this client carry.
func (c *Client) Options() policy.Options {
	return c.opts
}

// Requestor returns the underlying requestor.
func (c *Client) Requestor() policy.Requestor {
	return c.requestor
}

// NewObject creates an empty object bound to this client.
func (c *Client) NewObject(id string) *policy.Object {
	return policy.NewObject(id, c.opts)
}

// NewResource creates an empty resource of type rt bound to this client.
func (c *Client) NewResource(rt *policy.ResourceType, id string) *policy.APIResource {
	return policy.NewAPIResource(rt, id, c.opts)
}

// Retrieve fetches the resource of type rt identified by id.
func (c *Client) Retrieve(ctx context.Context, rt *policy.ResourceType, id string, params map[string]interface{}) (*policy.APIResource, error) {
	return policy.Retrieve(ctx, rt, id, params, c.opts)
}

// Create creates a resource of type rt.
func (c *Client) Create(ctx context.Context, rt *policy.ResourceType, params map[string]interface{}) (*policy.APIResource, error) {
	return policy.Create(ctx, rt, params, c.opts)
}

// Modify updates the resource of type rt identified by id.
func (c *Client) Modify(ctx context.Context, rt *policy.ResourceType, id string, params map[string]interface{}) (*policy.APIResource, error) {
	return policy.Modify(ctx, rt, id, params, c.opts)
}

// Remove deletes the resource of type rt identified by id.
func (c *Client) Remove(ctx context.Context, rt *policy.ResourceType, id string) (*policy.APIResource, error) {
	return policy.Remove(ctx, rt, id, c.opts)
}

// List fetches one page of resources of type rt.
func (c *Client) List(ctx context.Context, rt *policy.ResourceType, params map[string]interface{}) (*policy.ListObject, error) {
	return policy.List(ctx, rt, params, c.opts)
}

// Close releases the response cache connection, if any.
func (c *Client) Close() error {
	return c.requestor.Close()
}
