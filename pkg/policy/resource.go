package policy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// APIPathPrefix is prepended to every resource path.
const APIPathPrefix = "/api/v1"

// Operation is a CRUD verb a resource type may support.
type Operation uint8

// Supported operations.
const (
	OpRetrieve Operation = 1 << iota
	OpCreate
	OpUpdate
	OpDelete
	OpList

	OpAll = OpRetrieve | OpCreate | OpUpdate | OpDelete | OpList
)

// String returns the verb name.
func (op Operation) String() string {
	names := make([]string, 0, 5)

	for _, candidate := range []struct {
		op   Operation
		name string
	}{
		{OpRetrieve, "retrieve"},
		{OpCreate, "create"},
		{OpUpdate, "update"},
		{OpDelete, "delete"},
		{OpList, "list"},
	} {
		if op&candidate.op != 0 {
			names = append(names, candidate.name)
		}
	}

	return strings.Join(names, ",")
}

// ResourceType describes one kind of server resource.
type ResourceType struct {
	// Name is the value of the "object" discriminator.
	Name string
	// TypeName is used in diagnostics.
	TypeName string
	// Path is the collection path below APIPathPrefix.
	Path       string
	Operations Operation
}

// Supports reports whether the type allows op.
func (rt *ResourceType) Supports(op Operation) bool {
	return rt.Operations&op == op
}

// ClassURL returns the collection URL of the type.
func (rt *ResourceType) ClassURL() string {
	return APIPathPrefix + "/" + strings.Trim(rt.Path, "/")
}

// InstanceURL returns the URL of the resource identified by id.
func (rt *ResourceType) InstanceURL(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: could not determine which URL to request for %s", ErrMissingID, rt.TypeName)
	}

	return rt.ClassURL() + "/" + url.PathEscape(id), nil
}

func (rt *ResourceType) require(op Operation) error {
	if !rt.Supports(op) {
		return fmt.Errorf("%w: %s does not support %s", ErrOperationNotSupported, rt.TypeName, op)
	}

	return nil
}

// LinkedResource is implemented by values that reference a standalone server
// resource. They are never re-submitted inline by Serialize.
type LinkedResource interface {
	InstanceURL() (string, error)
}

// APIResource is an object backed by an addressable server resource.
type APIResource struct {
	*Object

	rtype *ResourceType
}

// NewAPIResource creates an empty resource of type rt.
func NewAPIResource(rt *ResourceType, id string, opts Options) *APIResource {
	return &APIResource{
		Object: newObject(rt.TypeName, id, opts, nil),
		rtype:  rt,
	}
}

func constructResource(rt *ResourceType, values map[string]interface{}, opts Options, lastResponse *Response) *APIResource {
	values = decodeEmbeddedValues(values)

	res := &APIResource{
		Object: newObject(rt.TypeName, idOf(values), opts, lastResponse),
		rtype:  rt,
	}
	res.RefreshFrom(values, opts, false, lastResponse)

	return res
}

// Type returns the resource type.
func (r *APIResource) Type() *ResourceType {
	return r.rtype
}

// InstanceURL returns the URL of this resource.
func (r *APIResource) InstanceURL() (string, error) {
	return r.rtype.InstanceURL(r.ID())
}

// Copy returns a shallow copy of the resource.
func (r *APIResource) Copy() *APIResource {
	return &APIResource{Object: r.Object.Copy(), rtype: r.rtype}
}

// DeepCopy returns a deep copy of the resource.
func (r *APIResource) DeepCopy() *APIResource {
	return r.deepCopy(cloneMemo{})
}

func (r *APIResource) deepCopy(memo cloneMemo) *APIResource {
	if copied, ok := memo[r]; ok {
		return copied.(*APIResource)
	}

	copied := r.Copy()
	memo[r] = copied
	memo[r.Object] = copied.Object
	r.Object.fillDeepCopy(copied.Object, memo)

	return copied
}

func (r *APIResource) deepCopyValue(memo cloneMemo) interface{} {
	if r == nil {
		return r
	}

	return r.deepCopy(memo)
}

// Refresh reloads the resource from the API.
func (r *APIResource) Refresh(ctx context.Context) error {
	instanceURL, err := r.InstanceURL()
	if err != nil {
		return err
	}

	resp, key, err := send(ctx, r.opts, r.apiRequest(http.MethodGet, instanceURL, r.retrieveParams, nil))
	if err != nil {
		return fmt.Errorf("refreshing %s: %w", r.rtype.TypeName, err)
	}

	return r.refreshFromResponse(resp, key)
}

// Save sends local changes to the API and refreshes the resource with the
// result. A resource without an id is created instead. Saving a resource with
// no changes does nothing.
func (r *APIResource) Save(ctx context.Context) error {
	params := map[string]interface{}(r.Serialize(nil))

	if r.ID() == "" {
		if err := r.rtype.require(OpCreate); err != nil {
			return err
		}

		resp, key, err := send(ctx, r.opts, r.apiRequest(http.MethodPost, r.rtype.ClassURL(), params, nil))
		if err != nil {
			return fmt.Errorf("creating %s: %w", r.rtype.TypeName, err)
		}

		return r.refreshFromResponse(resp, key)
	}

	if len(params) == 0 {
		r.opts.logger().Debug("Trying to save already saved object", map[string]interface{}{
			"object": r.rtype.Name,
			"id":     r.ID(),
		})

		return nil
	}

	if err := r.rtype.require(OpUpdate); err != nil {
		return err
	}

	instanceURL, err := r.InstanceURL()
	if err != nil {
		return err
	}

	resp, key, err := send(ctx, r.opts, r.apiRequest(http.MethodPatch, instanceURL, params, nil))
	if err != nil {
		return fmt.Errorf("saving %s: %w", r.rtype.TypeName, err)
	}

	return r.refreshFromResponse(resp, key)
}

// Delete deletes the resource and refreshes it with the API's answer.
func (r *APIResource) Delete(ctx context.Context) error {
	if err := r.rtype.require(OpDelete); err != nil {
		return err
	}

	instanceURL, err := r.InstanceURL()
	if err != nil {
		return err
	}

	resp, key, err := send(ctx, r.opts, r.apiRequest(http.MethodDelete, instanceURL, nil, nil))
	if err != nil {
		return fmt.Errorf("deleting %s: %w", r.rtype.TypeName, err)
	}

	if _, ok := resp.Data.(map[string]interface{}); !ok {
		r.lastResponse = resp

		return nil
	}

	return r.refreshFromResponse(resp, key)
}

func (r *APIResource) refreshFromResponse(resp *Response, key string) error {
	values, ok := resp.Data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: expected an object for %s", ErrUnexpectedResponse, r.rtype.TypeName)
	}

	opts := r.opts
	if key != "" {
		opts.APIKey = key
	}

	r.RefreshFrom(decodeEmbeddedValues(values), opts, false, resp)

	return nil
}

// Retrieve fetches the resource identified by id.
func Retrieve(ctx context.Context, rt *ResourceType, id string, params map[string]interface{}, opts Options) (*APIResource, error) {
	if err := rt.require(OpRetrieve); err != nil {
		return nil, err
	}

	res := NewAPIResource(rt, id, opts)
	res.retrieveParams = params

	if err := res.Refresh(ctx); err != nil {
		return nil, err
	}

	return res, nil
}

// Create creates a resource of type rt from params.
func Create(ctx context.Context, rt *ResourceType, params map[string]interface{}, opts Options) (*APIResource, error) {
	if err := rt.require(OpCreate); err != nil {
		return nil, err
	}

	return sendForResource(ctx, rt, opts, http.MethodPost, rt.ClassURL(), params, "creating")
}

// Modify updates the resource identified by id with params.
func Modify(ctx context.Context, rt *ResourceType, id string, params map[string]interface{}, opts Options) (*APIResource, error) {
	if err := rt.require(OpUpdate); err != nil {
		return nil, err
	}

	instanceURL, err := rt.InstanceURL(id)
	if err != nil {
		return nil, err
	}

	return sendForResource(ctx, rt, opts, http.MethodPatch, instanceURL, params, "modifying")
}

// Remove deletes the resource identified by id.
func Remove(ctx context.Context, rt *ResourceType, id string, opts Options) (*APIResource, error) {
	res := NewAPIResource(rt, id, opts)

	if err := res.Delete(ctx); err != nil {
		return nil, err
	}

	return res, nil
}

// List fetches one page of resources of type rt.
func List(ctx context.Context, rt *ResourceType, params map[string]interface{}, opts Options) (*ListObject, error) {
	if err := rt.require(OpList); err != nil {
		return nil, err
	}

	return listPage(ctx, rt.ClassURL(), params, opts)
}

func sendForResource(ctx context.Context, rt *ResourceType, opts Options, method, url string, params map[string]interface{}, verb string) (*APIResource, error) {
	req := &APIRequest{
		Method:      method,
		URL:         url,
		Params:      params,
		APIKey:      opts.APIKey,
		APIVersion:  opts.APIVersion,
		Environment: opts.Environment,
	}

	resp, key, err := send(ctx, opts, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", verb, rt.TypeName, err)
	}

	values, ok := resp.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected an object for %s", ErrUnexpectedResponse, rt.TypeName)
	}

	if key != "" {
		opts.APIKey = key
	}

	return constructResource(rt, values, opts, resp), nil
}

func send(ctx context.Context, opts Options, req *APIRequest) (*Response, string, error) {
	if opts.Requestor == nil {
		return nil, "", ErrNoRequestor
	}

	resp, key, err := opts.Requestor.Request(ctx, req)
	if err != nil {
		return nil, "", err
	}

	return resp, key, nil
}
