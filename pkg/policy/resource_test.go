package policy_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

var errBoom = errors.New("boom")

type fakeRequestor struct {
	mutex     sync.Mutex
	requests  []*policy.APIRequest
	responses []interface{}
	usedKey   string
	err       error
}

func (f *fakeRequestor) Request(ctx context.Context, req *policy.APIRequest) (*policy.Response, string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests = append(f.requests, req)

	if f.err != nil {
		return nil, "", f.err
	}

	var data interface{}
	if len(f.responses) > 0 {
		data = f.responses[0]
		f.responses = f.responses[1:]
	}

	key := f.usedKey
	if key == "" {
		key = req.APIKey
	}

	return &policy.Response{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Request-Id": {"req_123"}},
		Data:       data,
	}, key, nil
}

func (f *fakeRequestor) RequestStream(ctx context.Context, req *policy.APIRequest) (*policy.StreamResponse, string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests = append(f.requests, req)

	return &policy.StreamResponse{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("%PDF")),
	}, req.APIKey, nil
}

func (f *fakeRequestor) last() *policy.APIRequest {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.requests[len(f.requests)-1]
}

func (f *fakeRequestor) count() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.requests)
}

type recordingLogger struct {
	mutex    sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record(msg) }

func TestRetrieve(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{responses: []interface{}{
		map[string]interface{}{"object": "contractor", "id": "cn_1", "email": "jane@example.com"},
	}}
	opts := policy.Options{APIKey: "sk_test", APIVersion: "2024-01-01", Environment: "sandbox", Requestor: requestor}

	resource, err := policy.Retrieve(context.Background(), policy.Contractors, "cn_1", map[string]interface{}{"expand": "jobs"}, opts)
	require.NoError(t, err)

	req := requestor.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v1/contractors/cn_1", req.URL)
	assert.Equal(t, map[string]interface{}{"expand": "jobs"}, req.Params)
	assert.Equal(t, "sk_test", req.APIKey)
	assert.Equal(t, "2024-01-01", req.APIVersion)
	assert.Equal(t, "sandbox", req.Environment)

	assert.Equal(t, "jane@example.com", resource.GetString("email"))
	assert.Equal(t, "req_123", resource.LastResponse().RequestID())

	// Refresh reuses the retrieve parameters.
	requestor.responses = []interface{}{map[string]interface{}{"object": "contractor", "id": "cn_1"}}
	require.NoError(t, resource.Refresh(context.Background()))
	assert.Equal(t, map[string]interface{}{"expand": "jobs"}, requestor.last().Params)
	assert.Equal(t, []string{"email"}, resource.Transient())
}

func TestRetrieve_Errors(t *testing.T) {
	t.Parallel()

	_, err := policy.Retrieve(context.Background(), policy.Contractors, "cn_1", nil, policy.Options{})
	require.ErrorIs(t, err, policy.ErrNoRequestor)

	_, err = policy.Retrieve(context.Background(), policy.Contractors, "", nil, policy.Options{Requestor: &fakeRequestor{}})
	require.ErrorIs(t, err, policy.ErrMissingID)

	requestor := &fakeRequestor{err: errBoom}
	_, err = policy.Retrieve(context.Background(), policy.Jobs, "jb_1", nil, policy.Options{Requestor: requestor})
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "refreshing Job")

	requestor = &fakeRequestor{responses: []interface{}{[]interface{}{"not", "an", "object"}}}
	_, err = policy.Retrieve(context.Background(), policy.Jobs, "jb_1", nil, policy.Options{Requestor: requestor})
	require.ErrorIs(t, err, policy.ErrUnexpectedResponse)
}

func TestAPIResource_SaveCreates(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{responses: []interface{}{
		map[string]interface{}{"object": "job", "id": "jb_1", "name": "Courier", "wage": float64(30)},
	}}

	resource := policy.NewAPIResource(policy.Jobs, "", policy.Options{APIKey: "sk_test", Requestor: requestor})
	require.NoError(t, resource.Set("name", "Courier"))
	require.NoError(t, resource.Set("wage", 30))

	require.NoError(t, resource.Save(context.Background()))

	req := requestor.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/jobs", req.URL)
	assert.Equal(t, map[string]interface{}{"name": "Courier", "wage": 30}, req.Params)

	assert.Equal(t, "jb_1", resource.ID())
	assert.Empty(t, resource.Unsaved())
}

func TestAPIResource_SaveUpdatesChangedFields(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{
		responses: []interface{}{
			map[string]interface{}{"object": "contractor", "id": "cn_1", "first_name": "Janet", "last_name": "Doe"},
		},
		usedKey: "sk_rotated",
	}

	resource := policy.DefaultRegistry().Convert(map[string]interface{}{
		"object":     "contractor",
		"id":         "cn_1",
		"first_name": "Jane",
		"last_name":  "Doe",
		"phone":      "+1",
	}, policy.Options{APIKey: "sk_test", Requestor: requestor}).(*policy.APIResource)

	require.NoError(t, resource.Set("first_name", "Janet"))
	require.NoError(t, resource.Set("phone", nil))

	require.NoError(t, resource.Save(context.Background()))

	req := requestor.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/v1/contractors/cn_1", req.URL)
	assert.Equal(t, map[string]interface{}{"first_name": "Janet", "phone": ""}, req.Params)

	assert.Equal(t, "sk_rotated", resource.APIKey(), "the key that was used sticks to the object")
	assert.Equal(t, []string{"phone"}, resource.Transient())
}

func TestAPIResource_SaveWithoutChanges(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{}
	logger := &recordingLogger{}

	resource := policy.NewAPIResource(policy.Jobs, "jb_1", policy.Options{Requestor: requestor, Logger: logger})

	require.NoError(t, resource.Save(context.Background()))
	assert.Zero(t, requestor.count())
	assert.Equal(t, []string{"Trying to save already saved object"}, logger.messages)
}

func TestAPIResource_UnsupportedOperations(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{}
	opts := policy.Options{Requestor: requestor}

	event := policy.NewAPIResource(policy.Events, "ev_1", opts)
	require.NoError(t, event.Set("type", "x"))

	require.ErrorIs(t, event.Save(context.Background()), policy.ErrOperationNotSupported)
	require.ErrorIs(t, event.Delete(context.Background()), policy.ErrOperationNotSupported)

	_, err := policy.Create(context.Background(), policy.InsuranceApplications, nil, opts)
	require.ErrorIs(t, err, policy.ErrOperationNotSupported)

	_, err = policy.Modify(context.Background(), policy.Events, "ev_1", nil, opts)
	require.ErrorIs(t, err, policy.ErrOperationNotSupported)

	_, err = policy.Remove(context.Background(), policy.InsuranceApplicationSessions, "as_1", opts)
	require.ErrorIs(t, err, policy.ErrOperationNotSupported)

	assert.Zero(t, requestor.count())
}

func TestCreateModifyRemove(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{responses: []interface{}{
		map[string]interface{}{"object": "webhook_endpoint", "id": "we_1", "url": "https://example.com/hook"},
		map[string]interface{}{"object": "webhook_endpoint", "id": "we_1", "url": "https://example.com/v2"},
		map[string]interface{}{"object": "webhook_endpoint", "id": "we_1", "deleted": true},
	}}
	opts := policy.Options{APIKey: "sk_test", Requestor: requestor}
	ctx := context.Background()

	created, err := policy.Create(ctx, policy.WebhookEndpoints, map[string]interface{}{"url": "https://example.com/hook"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "we_1", created.ID())
	assert.Equal(t, http.MethodPost, requestor.last().Method)

	modified, err := policy.Modify(ctx, policy.WebhookEndpoints, "we_1", map[string]interface{}{"url": "https://example.com/v2"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v2", modified.GetString("url"))
	assert.Equal(t, http.MethodPatch, requestor.last().Method)
	assert.Equal(t, "/api/v1/webhook_endpoints/we_1", requestor.last().URL)

	removed, err := policy.Remove(ctx, policy.WebhookEndpoints, "we_1", opts)
	require.NoError(t, err)
	assert.True(t, removed.GetBool("deleted"))
	assert.Equal(t, http.MethodDelete, requestor.last().Method)
	assert.Nil(t, requestor.last().Params)

	_, err = policy.Modify(ctx, policy.WebhookEndpoints, "", nil, opts)
	require.ErrorIs(t, err, policy.ErrMissingID)
}

func TestAPIResource_DeleteWithEmptyBody(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{}
	resource := policy.NewAPIResource(policy.Jobs, "jb_1", policy.Options{Requestor: requestor})

	require.NoError(t, resource.Delete(context.Background()))
	assert.Equal(t, "jb_1", resource.ID())
	assert.NotNil(t, resource.LastResponse())
}

func TestList(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{responses: []interface{}{
		map[string]interface{}{
			"object":   "list",
			"has_more": true,
			"data": []interface{}{
				map[string]interface{}{"object": "job", "id": "jb_1"},
				map[string]interface{}{"object": "job", "id": "jb_2"},
			},
		},
		map[string]interface{}{
			"object":   "list",
			"has_more": false,
			"data":     []interface{}{map[string]interface{}{"object": "job", "id": "jb_3"}},
		},
	}}
	opts := policy.Options{APIKey: "sk_test", Requestor: requestor}
	ctx := context.Background()

	page, err := policy.List(ctx, policy.Jobs, map[string]interface{}{"limit": 2}, opts)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/jobs", requestor.last().URL)
	assert.Equal(t, http.MethodGet, requestor.last().Method)
	require.Len(t, page.Resources(), 2)
	assert.Equal(t, "sk_test", page.Resources()[0].APIKey())

	next, err := page.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"limit": 2, "starting_after": "jb_2"}, requestor.last().Params)
	assert.Equal(t, "/api/v1/jobs", requestor.last().URL)
	require.Len(t, next.Data(), 1)
	assert.False(t, next.HasMore())

	last, err := next.NextPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
	assert.Equal(t, 2, requestor.count())

	_, err = policy.List(ctx, policy.Jobs, nil, policy.Options{Requestor: &fakeRequestor{responses: []interface{}{"nope"}}})
	require.ErrorIs(t, err, policy.ErrUnexpectedResponse)
}

func TestObject_Request(t *testing.T) {
	t.Parallel()

	requestor := &fakeRequestor{responses: []interface{}{
		map[string]interface{}{"object": "quote", "id": "qt_1"},
		map[string]interface{}{"status": "ok"},
	}}

	obj := policy.NewObject("cn_1", policy.Options{APIKey: "sk_obj", Environment: "sandbox", Requestor: requestor})
	ctx := context.Background()

	result, err := obj.Request(ctx, http.MethodPost, "/api/v1/quotes", map[string]interface{}{"job": "jb_1"}, map[string]string{"X-Trace": "1"})
	require.NoError(t, err)

	quote, ok := result.(*policy.APIResource)
	require.True(t, ok)
	assert.Same(t, policy.Quotes, quote.Type())
	assert.Equal(t, "req_123", quote.LastResponse().RequestID())

	req := requestor.last()
	assert.Equal(t, "sk_obj", req.APIKey)
	assert.Equal(t, "sandbox", req.Environment)
	assert.Equal(t, map[string]string{"X-Trace": "1"}, req.Headers)

	result, err = obj.Request(ctx, http.MethodGet, "/api/v1/health", nil, nil)
	require.NoError(t, err)

	generic, ok := result.(*policy.Object)
	require.True(t, ok, "documents without a discriminator become generic objects")
	assert.Equal(t, "ok", generic.GetString("status"))

	stream, err := obj.RequestStream(ctx, http.MethodGet, "/api/v1/invoices/in_1/pdf", nil, nil)
	require.NoError(t, err)

	defer func() { _ = stream.Body.Close() }()

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(body))

	_, err = policy.NewObject("", policy.Options{}).Request(ctx, http.MethodGet, "/", nil, nil)
	require.ErrorIs(t, err, policy.ErrNoRequestor)

	_, err = policy.NewObject("", policy.Options{}).RequestStream(ctx, http.MethodGet, "/", nil, nil)
	require.ErrorIs(t, err, policy.ErrNoRequestor)
}
