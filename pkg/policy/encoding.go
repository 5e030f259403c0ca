package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DatetimeFormat is the timestamp representation the API expects on the wire.
const DatetimeFormat = "2006-01-02T15:04:05Z"

// EncodeDatetime formats t in UTC using DatetimeFormat.
func EncodeDatetime(t time.Time) string {
	return t.UTC().Format(DatetimeFormat)
}

// EncodeValue converts a payload into plain JSON-ready values: SDK objects are
// projected recursively and timestamps use DatetimeFormat.
func EncodeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return EncodeDatetime(v)
	case *time.Time:
		if v == nil {
			return nil
		}

		return EncodeDatetime(*v)
	case *Object:
		if v == nil {
			return nil
		}

		return EncodeValue(v.ToDictRecursive())
	case objectHolder:
		return EncodeValue(v.object())
	case Payload:
		return EncodeValue(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = EncodeValue(item)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = EncodeValue(item)
		}

		return out
	}

	if items, ok := asSlice(value); ok {
		return EncodeValue(items)
	}

	return value
}

// MarshalPayload encodes a payload as JSON using the wire encoding.
func MarshalPayload(value interface{}) ([]byte, error) {
	data, err := json.Marshal(EncodeValue(value))
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	return data, nil
}

// marshalIndent produces the diagnostic dump used by String.
func marshalIndent(value interface{}) string {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(EncodeValue(value)); err != nil {
		return fmt.Sprintf("%v", value)
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// EncodeQuery flattens params into query values using bracketed keys for
// nested maps (a[b]=c) and lists (a[0]=c).
func EncodeQuery(params map[string]interface{}) url.Values {
	values := url.Values{}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		encodeQueryValue(values, key, params[key])
	}

	return values
}

func encodeQueryValue(values url.Values, key string, value interface{}) {
	switch v := EncodeValue(value).(type) {
	case nil:
		return
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for sub := range v {
			keys = append(keys, sub)
		}

		sort.Strings(keys)

		for _, sub := range keys {
			encodeQueryValue(values, key+"["+sub+"]", v[sub])
		}
	case []interface{}:
		for i, item := range v {
			encodeQueryValue(values, key+"["+strconv.Itoa(i)+"]", item)
		}
	case string:
		values.Add(key, v)
	case bool:
		values.Add(key, strconv.FormatBool(v))
	case float64:
		values.Add(key, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		values.Add(key, fmt.Sprint(v))
	}
}

// decodeEmbeddedJSON tries to parse s as JSON after normalizing single quotes.
// The heuristic mirrors the API's historical string encoding of nested values.
func decodeEmbeddedJSON(s string) (interface{}, bool) {
	var out interface{}

	if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &out); err != nil {
		return nil, false
	}

	return out, true
}

// DecodeLoose parses s with the embedded-JSON heuristic and falls back to the
// original string.
func DecodeLoose(s string) interface{} {
	if out, ok := decodeEmbeddedJSON(s); ok {
		return out
	}

	return s
}

func asSlice(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}

	if items, ok := value.([]interface{}); ok {
		return items, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case map[string]interface{}:
		return v, true
	case Payload:
		return map[string]interface{}(v), true
	case *Object:
		if v == nil {
			return nil, false
		}

		return v.ToDict(), true
	case objectHolder:
		return v.object().ToDict(), true
	}

	return nil, false
}
