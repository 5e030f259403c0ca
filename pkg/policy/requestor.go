package policy

import (
	"context"
	"io"
	"net/http"
)

// APIRequest describes one call made through a Requestor. Empty identity
// fields fall back to the requestor's defaults.
type APIRequest struct {
	Method      string
	URL         string
	Params      map[string]interface{}
	Headers     map[string]string
	APIKey      string
	APIVersion  string
	Environment string
}

// Response is the metadata and decoded body of the most recent API call.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Data is the decoded JSON document, nil when the body was empty.
	Data interface{}
}

// RequestID returns the request identifier header, if the API sent one.
func (r *Response) RequestID() string {
	if r == nil || r.Headers == nil {
		return ""
	}

	return r.Headers.Get("Request-Id")
}

// StreamResponse is a response whose body has not been read yet.
// Callers must close Body.
type StreamResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser
}

// Requestor is the transport collaborator used by objects and resources.
// Both methods return the credential that was actually used.
type Requestor interface {
	Request(ctx context.Context, req *APIRequest) (*Response, string, error)
	RequestStream(ctx context.Context, req *APIRequest) (*StreamResponse, string, error)
}
