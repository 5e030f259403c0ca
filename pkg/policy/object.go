package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	// reservedPrefix marks keys that back object metadata and are never
	// exposed as fields.
	reservedPrefix = "_"

	additionalOwnersKey = "additional_owners"

	defaultTypeName = "Object"
)

// Options carries the credential and transport context shared by an object
// graph. Nested objects inherit the options of the object that converted them.
type Options struct {
	APIKey      string
	APIVersion  string
	Environment string
	Requestor   Requestor
	Converter   Converter
	Logger      Logger
}

// withDefaults fills empty fields from fallback.
func (o Options) withDefaults(fallback Options) Options {
	if o.APIKey == "" {
		o.APIKey = fallback.APIKey
	}

	if o.APIVersion == "" {
		o.APIVersion = fallback.APIVersion
	}

	if o.Environment == "" {
		o.Environment = fallback.Environment
	}

	if o.Requestor == nil {
		o.Requestor = fallback.Requestor
	}

	if o.Converter == nil {
		o.Converter = fallback.Converter
	}

	if o.Logger == nil {
		o.Logger = fallback.Logger
	}

	return o
}

func (o Options) converter() Converter {
	if o.Converter == nil {
		return DefaultRegistry()
	}

	return o.Converter
}

func (o Options) logger() Logger {
	if o.Logger == nil {
		return nopLogger{}
	}

	return o.Logger
}

// Object is the change-tracking representation of one server entity.
//
// Fields live in an ordered store. Fields set locally are dirty until the next
// refresh; fields dropped by a full refresh are remembered as transient so
// that reading them produces a helpful error. Object is not safe for
// concurrent use.
type Object struct {
	typeName string

	keys   []string
	values map[string]interface{}

	unsaved   map[string]struct{}
	transient map[string]struct{}
	previous  map[string]interface{}

	retrieveParams map[string]interface{}
	opts           Options
	lastResponse   *Response
}

// NewObject creates an empty object, seeded with id when it is not empty.
func NewObject(id string, opts Options) *Object {
	return newObject(defaultTypeName, id, opts, nil)
}

func newObject(typeName, id string, opts Options, lastResponse *Response) *Object {
	obj := &Object{
		typeName:     typeName,
		values:       make(map[string]interface{}),
		unsaved:      make(map[string]struct{}),
		transient:    make(map[string]struct{}),
		opts:         opts,
		lastResponse: lastResponse,
	}

	if id != "" {
		obj.rawSet("id", id)
	}

	return obj
}

// ConstructFrom builds an object from raw API values. Top-level string values
// that hold JSON (single quotes tolerated) are decoded; strings that fail to
// parse are kept unchanged.
func ConstructFrom(values map[string]interface{}, opts Options, lastResponse *Response) *Object {
	values = decodeEmbeddedValues(values)

	obj := newObject(defaultTypeName, idOf(values), opts, lastResponse)
	obj.RefreshFrom(values, opts, false, lastResponse)

	return obj
}

func decodeEmbeddedValues(values map[string]interface{}) map[string]interface{} {
	decoded := make(map[string]interface{}, len(values))

	for key, value := range values {
		if s, ok := value.(string); ok {
			if parsed, ok := decodeEmbeddedJSON(s); ok {
				decoded[key] = parsed

				continue
			}
		}

		decoded[key] = value
	}

	return decoded
}

func idOf(values map[string]interface{}) string {
	id, _ := values["id"].(string)

	return id
}

// RefreshFrom replaces the object's state with values.
//
// A full refresh treats values as authoritative: every other field is wiped
// and remembered as transient, and the dirty set is cleared. A partial refresh
// only clears the dirty flag of the fields present in values and leaves the
// rest untouched. In both modes values becomes the baseline for Serialize.
// Empty options and a nil lastResponse keep the previous metadata.
func (o *Object) RefreshFrom(values map[string]interface{}, opts Options, partial bool, lastResponse *Response) {
	o.opts = opts.withDefaults(o.opts)

	if lastResponse != nil {
		o.lastResponse = lastResponse
	}

	if partial {
		for key := range values {
			delete(o.unsaved, key)
		}
	} else {
		for _, key := range o.keys {
			if _, ok := values[key]; !ok {
				o.transient[key] = struct{}{}
			}
		}

		o.unsaved = make(map[string]struct{})
		o.clear()
	}

	for key := range values {
		delete(o.transient, key)
	}

	converter := o.opts.converter()
	for _, key := range sortedKeys(values) {
		o.rawSet(key, converter.Convert(values[key], o.opts))
	}

	o.previous = values
}

// Get returns the value of key.
func (o *Object) Get(key string) (interface{}, error) {
	if isReserved(key) {
		return nil, &NotFoundError{Key: key}
	}

	value, ok := o.values[key]
	if !ok {
		if _, wasSet := o.transient[key]; wasSet {
			return nil, &NotFoundError{Key: key, Transient: true, Available: o.Keys()}
		}

		return nil, &NotFoundError{Key: key}
	}

	return value, nil
}

// Set assigns value to key and marks it dirty. Empty strings are rejected:
// use nil to clear a field.
func (o *Object) Set(key string, value interface{}) error {
	if isReserved(key) {
		return fmt.Errorf("%w: %s", ErrReservedField, key)
	}

	if s, ok := value.(string); ok && s == "" {
		return &InvalidValueError{Key: key, Object: o.typeName}
	}

	o.unsaved[key] = struct{}{}
	o.rawSet(key, value)

	return nil
}

// Delete removes key and clears its dirty flag.
func (o *Object) Delete(key string) error {
	if isReserved(key) {
		return &NotFoundError{Key: key}
	}

	if _, ok := o.values[key]; !ok {
		return &NotFoundError{Key: key}
	}

	o.rawDelete(key)
	delete(o.unsaved, key)

	return nil
}

// Update sets every key in values and marks them dirty. Unlike Set it does
// not reject empty strings.
func (o *Object) Update(values map[string]interface{}) error {
	for key := range values {
		if isReserved(key) {
			return fmt.Errorf("%w: %s", ErrReservedField, key)
		}
	}

	for _, key := range sortedKeys(values) {
		o.unsaved[key] = struct{}{}
		o.rawSet(key, values[key])
	}

	return nil
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	if isReserved(key) {
		return false
	}

	_, ok := o.values[key]

	return ok
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.keys))

	for _, key := range o.keys {
		if !isReserved(key) {
			keys = append(keys, key)
		}
	}

	return keys
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.Keys())
}

// ID returns the id field when it is a string.
func (o *Object) ID() string {
	id, _ := o.values["id"].(string)

	return id
}

// GetString returns key as a string, or "" when absent or of another type.
func (o *Object) GetString(key string) string {
	value, _ := o.Get(key)
	s, _ := value.(string)

	return s
}

// GetFloat returns key as a float64, or 0 when absent or not numeric.
func (o *Object) GetFloat(key string) float64 {
	value, _ := o.Get(key)

	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}

	return 0
}

// GetInt returns key as an int64, truncating floats.
func (o *Object) GetInt(key string) int64 {
	value, _ := o.Get(key)

	switch v := value.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}

	return 0
}

// GetBool returns key as a bool, or false when absent or of another type.
func (o *Object) GetBool(key string) bool {
	value, _ := o.Get(key)
	b, _ := value.(bool)

	return b
}

// GetMap returns key as a plain map, or nil.
func (o *Object) GetMap(key string) map[string]interface{} {
	value, _ := o.Get(key)
	m, _ := value.(map[string]interface{})

	return m
}

// GetList returns key as a list, or nil.
func (o *Object) GetList(key string) []interface{} {
	value, _ := o.Get(key)
	items, _ := asSlice(value)

	return items
}

// GetObject returns key as a nested object, or nil.
func (o *Object) GetObject(key string) *Object {
	value, _ := o.Get(key)
	if holder, ok := value.(objectHolder); ok {
		return holder.object()
	}

	return nil
}

// IsDirty reports whether key was modified since the last refresh.
func (o *Object) IsDirty(key string) bool {
	_, ok := o.unsaved[key]

	return ok
}

// Unsaved returns the dirty field names, sorted.
func (o *Object) Unsaved() []string {
	return sortedSet(o.unsaved)
}

// Transient returns the names of fields dropped by a full refresh, sorted.
func (o *Object) Transient() []string {
	return sortedSet(o.transient)
}

// Options returns the credential and transport context of the object.
func (o *Object) Options() Options {
	return o.opts
}

// APIKey returns the credential the object was loaded with.
func (o *Object) APIKey() string {
	return o.opts.APIKey
}

// APIVersion returns the API version the object was loaded with.
func (o *Object) APIVersion() string {
	return o.opts.APIVersion
}

// Environment returns the environment the object was loaded with.
func (o *Object) Environment() string {
	return o.opts.Environment
}

// LastResponse returns the metadata of the most recent API call.
func (o *Object) LastResponse() *Response {
	return o.lastResponse
}

// TypeName returns the display name of the object's type.
func (o *Object) TypeName() string {
	return o.typeName
}

// Serialize builds the diff payload of local changes against previous, or the
// object's own snapshot when previous is empty.
func (o *Object) Serialize(previous interface{}) Payload {
	params := Payload{}

	if o == nil {
		return params
	}

	baseline, _ := asMap(previous)
	if len(baseline) == 0 {
		baseline = o.previous
	}

	for _, key := range o.keys {
		value := o.values[key]

		if key == "id" || isReserved(key) {
			continue
		}

		if _, ok := value.(LinkedResource); ok {
			continue
		}

		if s, ok := value.(Serializable); ok {
			child := s.Serialize(baseline[key])
			if len(child) > 0 {
				params[key] = child
			}

			continue
		}

		if key == additionalOwnersKey && value != nil {
			params[key] = SerializeList(value, baseline[key])

			continue
		}

		if o.IsDirty(key) {
			params[key] = ComputeDiff(value, baseline[key])
		}
	}

	return params
}

// ToDict returns a shallow copy of the fields.
func (o *Object) ToDict() map[string]interface{} {
	out := make(map[string]interface{}, len(o.values))

	for _, key := range o.Keys() {
		out[key] = o.values[key]
	}

	return out
}

// ToDictRecursive returns the fields with nested objects, including objects
// held in lists, projected into plain maps.
func (o *Object) ToDictRecursive() map[string]interface{} {
	out := make(map[string]interface{}, len(o.values))

	for _, key := range o.Keys() {
		value := o.values[key]

		if items, ok := asSlice(value); ok {
			projected := make([]interface{}, len(items))
			for i, item := range items {
				projected[i] = toDictRecursive(item)
			}

			out[key] = projected

			continue
		}

		out[key] = toDictRecursive(value)
	}

	return out
}

func toDictRecursive(value interface{}) interface{} {
	if holder, ok := value.(objectHolder); ok {
		return holder.object().ToDictRecursive()
	}

	return value
}

// String returns a diagnostic representation. It is not meant to be parsed.
func (o *Object) String() string {
	parts := []string{o.typeName}

	if object, ok := o.values["object"].(string); ok {
		parts = append(parts, object)
	}

	if id, ok := o.values["id"].(string); ok {
		parts = append(parts, "id="+id)
	}

	return fmt.Sprintf("<%s> JSON: %s", strings.Join(parts, " "), marshalIndent(o.ToDictRecursive()))
}

// MarshalJSON encodes the object's fields recursively.
func (o *Object) MarshalJSON() ([]byte, error) {
	return MarshalPayload(o.ToDictRecursive())
}

// Request sends a request through the object's requestor and converts the
// response. Nil params fall back to the parameters the object was retrieved with.
func (o *Object) Request(ctx context.Context, method, url string, params map[string]interface{}, headers map[string]string) (interface{}, error) {
	if o.opts.Requestor == nil {
		return nil, ErrNoRequestor
	}

	if params == nil {
		params = o.retrieveParams
	}

	resp, key, err := o.opts.Requestor.Request(ctx, o.apiRequest(method, url, params, headers))
	if err != nil {
		return nil, fmt.Errorf("requesting %s %s: %w", method, url, err)
	}

	opts := o.opts
	if key != "" {
		opts.APIKey = key
	}

	return convertResponse(resp, opts), nil
}

// RequestStream sends a request through the object's requestor and returns
// the unread response.
func (o *Object) RequestStream(ctx context.Context, method, url string, params map[string]interface{}, headers map[string]string) (*StreamResponse, error) {
	if o.opts.Requestor == nil {
		return nil, ErrNoRequestor
	}

	if params == nil {
		params = o.retrieveParams
	}

	resp, _, err := o.opts.Requestor.RequestStream(ctx, o.apiRequest(method, url, params, headers))
	if err != nil {
		return nil, fmt.Errorf("streaming %s %s: %w", method, url, err)
	}

	return resp, nil
}

func (o *Object) apiRequest(method, url string, params map[string]interface{}, headers map[string]string) *APIRequest {
	return &APIRequest{
		Method:      method,
		URL:         url,
		Params:      params,
		Headers:     headers,
		APIKey:      o.opts.APIKey,
		APIVersion:  o.opts.APIVersion,
		Environment: o.opts.Environment,
	}
}

// convertResponse turns a decoded response body into SDK values. Documents
// without a type discriminator become generic objects.
func convertResponse(resp *Response, opts Options) interface{} {
	if resp == nil {
		return nil
	}

	converted := opts.converter().Convert(resp.Data, opts)

	switch v := converted.(type) {
	case objectHolder:
		v.object().lastResponse = resp
	case map[string]interface{}:
		return ConstructFrom(v, opts, resp)
	}

	return converted
}

func (o *Object) object() *Object {
	return o
}

// objectHolder is implemented by *Object and every type embedding it.
type objectHolder interface {
	object() *Object
}

func (o *Object) rawSet(key string, value interface{}) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.values[key] = value
}

func (o *Object) rawDelete(key string) {
	delete(o.values, key)

	for i, existing := range o.keys {
		if existing == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)

			break
		}
	}
}

func (o *Object) clear() {
	o.keys = nil
	o.values = make(map[string]interface{})
}

func isReserved(key string) bool {
	return strings.HasPrefix(key, reservedPrefix)
}

func sortedKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func sortedSet(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
