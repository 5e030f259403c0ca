package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrInvalidValue          = errors.New("invalid value")
	ErrFieldNotFound         = errors.New("field not found")
	ErrReservedField         = errors.New("field name uses the reserved prefix")
	ErrNoRequestor           = errors.New("no requestor configured")
	ErrMissingID             = errors.New("resource has no id")
	ErrOperationNotSupported = errors.New("operation not supported by resource type")
	ErrUnknownResourceType   = errors.New("unknown resource type")
	ErrConfigRequired        = errors.New("config is required")
	ErrAPIBaseRequired       = errors.New("API base URL is required")
	ErrUnexpectedResponse    = errors.New("unexpected response payload")
)

// InvalidValueError is returned when a field is assigned an empty string.
type InvalidValueError struct {
	Key    string
	Object string
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf(
		"cannot set %s to an empty string: empty strings are interpreted as null in requests, set %s.%s to nil to delete the property",
		e.Key, e.Object, e.Key,
	)
}

// Is reports whether target is ErrInvalidValue.
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// NotFoundError is returned when reading a field that is not present.
type NotFoundError struct {
	Key string
	// Transient is set when the field existed before a full refresh dropped it.
	Transient bool
	Available []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if !e.Transient {
		return fmt.Sprintf("%q: field not found", e.Key)
	}

	return fmt.Sprintf(
		"%q: field not found. HINT: the %q attribute was set in the past. "+
			"It was then wiped when refreshing the object with the result returned by the API, "+
			"probably as a result of a save(). The attributes currently available on this object are: %s",
		e.Key, e.Key, strings.Join(e.Available, ", "),
	)
}

// Is reports whether target is ErrFieldNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrFieldNotFound
}

// APIError represents the error document returned by the API.
type APIError struct {
	Code    string `json:"code,omitempty"    yaml:"code,omitempty"`
	Type    string `json:"type,omitempty"    yaml:"type,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Param   string `json:"param,omitempty"   yaml:"param,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Param != "":
		return fmt.Sprintf("%s: %s (param: %s)", e.Code, e.Message, e.Param)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	default:
		return e.Message
	}
}

// ResponseError represents a non-2xx response from the API.
type ResponseError struct {
	StatusCode int       `json:"-"`
	Err        *APIError `json:"error,omitempty"`
	Body       []byte    `json:"-"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		body := strings.TrimSpace(string(e.Body))
		if body == "" {
			body = http.StatusText(e.StatusCode)
		}

		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, body)
	}

	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Err.Error())
}

// Unwrap returns the API error document, if any.
func (e *ResponseError) Unwrap() error {
	if e.Err == nil {
		return nil
	}

	return e.Err
}

// ParseResponseError parses an error response body.
// Bodies that are not an error document still produce a ResponseError carrying the raw body.
func ParseResponseError(statusCode int, data []byte) *ResponseError {
	errResp := &ResponseError{StatusCode: statusCode, Body: data}

	var doc struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}

	if json.Unmarshal(data, &doc) != nil {
		return errResp
	}

	if len(doc.Error) > 0 {
		apiErr := &APIError{}
		if json.Unmarshal(doc.Error, apiErr) == nil {
			errResp.Err = apiErr

			return errResp
		}

		var message string
		if json.Unmarshal(doc.Error, &message) == nil {
			errResp.Err = &APIError{Message: message}

			return errResp
		}
	}

	if doc.Message != "" {
		errResp.Err = &APIError{Message: doc.Message}
	}

	return errResp
}

// IsNotFound checks if the error is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is a 401 from the API.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsRateLimited checks if the error is a 429 from the API.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

func hasStatus(err error, status int) bool {
	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode == status
	}

	return false
}
