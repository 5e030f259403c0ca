package policy

import (
	"fmt"
	"sort"
	"sync"
)

// Converter turns decoded JSON values into SDK values.
type Converter interface {
	Convert(value interface{}, opts Options) interface{}
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(value interface{}, opts Options) interface{}

// Convert implements Converter.
func (f ConverterFunc) Convert(value interface{}, opts Options) interface{} {
	return f(value, opts)
}

// objectDiscriminator is the field naming the type of a server resource.
const objectDiscriminator = "object"

// Registry resolves the type discriminator of server resources to resource
// types. Maps carrying a discriminator become objects (API resources for
// registered types, lists for "list", generic objects otherwise); lists and
// discriminator-less maps are walked; everything else passes through.
type Registry struct {
	mutex sync.RWMutex
	types map[string]*ResourceType
}

// NewRegistry creates a registry holding types.
func NewRegistry(types ...*ResourceType) *Registry {
	registry := &Registry{types: make(map[string]*ResourceType, len(types))}

	for _, rt := range types {
		registry.Register(rt)
	}

	return registry
}

// Register adds or replaces a resource type.
func (r *Registry) Register(rt *ResourceType) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.types[rt.Name] = rt
}

// Lookup returns the resource type registered under name.
func (r *Registry) Lookup(name string) (*ResourceType, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rt, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResourceType, name)
	}

	return rt, nil
}

// Types returns the registered resource types ordered by name.
func (r *Registry) Types() []*ResourceType {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	types := make([]*ResourceType, 0, len(r.types))
	for _, rt := range r.types {
		types = append(types, rt)
	}

	sort.Slice(types, func(i, j int) bool {
		return types[i].Name < types[j].Name
	})

	return types
}

// Convert implements Converter.
func (r *Registry) Convert(value interface{}, opts Options) interface{} {
	if opts.Converter == nil {
		opts.Converter = r
	}

	switch v := value.(type) {
	case objectHolder:
		return value
	case []interface{}:
		converted := make([]interface{}, len(v))
		for i, item := range v {
			converted[i] = r.Convert(item, opts)
		}

		return converted
	case map[string]interface{}:
		name, ok := v[objectDiscriminator].(string)
		if !ok {
			converted := make(map[string]interface{}, len(v))
			for key, item := range v {
				converted[key] = r.Convert(item, opts)
			}

			return converted
		}

		return r.construct(name, v, opts)
	}

	return value
}

func (r *Registry) construct(name string, values map[string]interface{}, opts Options) interface{} {
	if name == listObjectName {
		return constructList(values, opts, nil)
	}

	r.mutex.RLock()
	rt, ok := r.types[name]
	r.mutex.RUnlock()

	if !ok {
		return ConstructFrom(values, opts, nil)
	}

	return constructResource(rt, values, opts, nil)
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry of the API's resource types.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(resourceTypes()...)
	})

	return defaultRegistry
}
