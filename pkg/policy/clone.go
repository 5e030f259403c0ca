package policy

import (
	"reflect"

	"github.com/mitchellh/copystructure"
)

// cloneMemo maps the identity of a source value to its copy so that shared
// structure stays shared and cycles terminate.
type cloneMemo map[interface{}]interface{}

type mapIdentity uintptr

type sliceIdentity struct {
	ptr uintptr
	len int
}

type deepCopier interface {
	deepCopyValue(memo cloneMemo) interface{}
}

// Copy returns a shallow copy of the object. Field values are shared with the
// original and are copied without validation.
func (o *Object) Copy() *Object {
	copied := newObject(o.typeName, "", o.opts, nil)
	copied.retrieveParams = o.retrieveParams

	for _, key := range o.keys {
		copied.rawSet(key, o.values[key])
	}

	return copied
}

// DeepCopy returns a copy of the object and everything it holds. Values
// reachable more than once, including the object itself, are copied once.
func (o *Object) DeepCopy() *Object {
	return o.deepCopy(cloneMemo{})
}

func (o *Object) deepCopy(memo cloneMemo) *Object {
	if copied, ok := memo[o]; ok {
		return copied.(*Object)
	}

	copied := o.Copy()
	memo[o] = copied
	o.fillDeepCopy(copied, memo)

	return copied
}

func (o *Object) fillDeepCopy(copied *Object, memo cloneMemo) {
	for _, key := range o.keys {
		copied.values[key] = deepCopyValue(o.values[key], memo)
	}
}

func (o *Object) deepCopyValue(memo cloneMemo) interface{} {
	if o == nil {
		return o
	}

	return o.deepCopy(memo)
}

func deepCopyValue(value interface{}, memo cloneMemo) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case deepCopier:
		return v.deepCopyValue(memo)
	case Payload:
		return Payload(deepCopyMap(v, memo))
	case map[string]interface{}:
		return deepCopyMap(v, memo)
	case []interface{}:
		return deepCopySlice(v, memo)
	}

	copied, err := copystructure.Copy(value)
	if err != nil {
		return value
	}

	return copied
}

func deepCopyMap(source map[string]interface{}, memo cloneMemo) map[string]interface{} {
	if source == nil {
		return nil
	}

	identity := mapIdentity(reflect.ValueOf(source).Pointer())
	if copied, ok := memo[identity]; ok {
		return copied.(map[string]interface{})
	}

	copied := make(map[string]interface{}, len(source))
	memo[identity] = copied

	for key, value := range source {
		copied[key] = deepCopyValue(value, memo)
	}

	return copied
}

func deepCopySlice(source []interface{}, memo cloneMemo) []interface{} {
	if source == nil {
		return nil
	}

	identity := sliceIdentity{ptr: reflect.ValueOf(source).Pointer(), len: len(source)}
	if len(source) > 0 {
		if copied, ok := memo[identity]; ok {
			return copied.([]interface{})
		}
	}

	copied := make([]interface{}, len(source))
	if len(source) > 0 {
		memo[identity] = copied
	}

	for i, value := range source {
		copied[i] = deepCopyValue(value, memo)
	}

	return copied
}
