package policy

import "strconv"

// Payload is the wire representation of local changes sent on update.
// An empty string value tells the API to unset the field.
type Payload map[string]interface{}

// Serializable is implemented by values that can compute their own diff
// payload against a previous snapshot.
type Serializable interface {
	Serialize(previous interface{}) Payload
}

// ComputeDiff returns the change between current and previous for a single
// field. Maps are copied shallowly and keys that disappeared since previous
// are set to the deletion sentinel. Scalars are returned as-is, nil becomes
// the deletion sentinel.
func ComputeDiff(current, previous interface{}) interface{} {
	if currentMap, ok := current.(map[string]interface{}); ok {
		return diffMap(currentMap, previous)
	}

	if currentPayload, ok := current.(Payload); ok {
		return diffMap(currentPayload, previous)
	}

	if current == nil {
		return ""
	}

	return current
}

func diffMap(current map[string]interface{}, previous interface{}) map[string]interface{} {
	diff := make(map[string]interface{}, len(current))
	for key, value := range current {
		diff[key] = value
	}

	previousMap, _ := asMap(previous)
	for key := range previousMap {
		if _, ok := diff[key]; !ok {
			diff[key] = ""
		}
	}

	return diff
}

// SerializeList encodes a list as an index-keyed partial object ("0", "1", ...).
// Elements that are Serializable recurse against the element at the same
// position in previous; other elements go through ComputeDiff.
//
// Indices past the end of current produce no entry, so shrinking a list is
// not represented in the payload. The API relies on this shape.
func SerializeList(current, previous interface{}) Payload {
	items, _ := asSlice(current)
	previousItems, _ := asSlice(previous)

	params := make(Payload, len(items))

	for i, item := range items {
		var previousItem interface{}
		if i < len(previousItems) {
			previousItem = previousItems[i]
		}

		if s, ok := item.(Serializable); ok {
			params[strconv.Itoa(i)] = s.Serialize(previousItem)
		} else {
			params[strconv.Itoa(i)] = ComputeDiff(item, previousItem)
		}
	}

	return params
}
