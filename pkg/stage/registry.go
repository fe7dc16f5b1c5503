package stage

import (
	"fmt"
	"slices"
	"sync"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
)

// Registry maps stage type names to factories. It is populated at process
// start and read while building a pipeline.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under typeName. Registering the same name twice is
// an error.
func (r *Registry) Register(typeName string, f Factory) error {
	if typeName == "" {
		return gferrors.NewValidationError("stage", "type", typeName, "cannot be empty")
	}
	if f == nil {
		return gferrors.NewValidationError("stage", "factory", typeName, "cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeName]; exists {
		return fmt.Errorf("stage type %q already registered", typeName)
	}
	r.factories[typeName] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(typeName string, f Factory) {
	if err := r.Register(typeName, f); err != nil {
		panic(err)
	}
}

// New creates a stage of the given type. An unknown type is a configuration
// error.
func (r *Registry) New(typeName string) (Stage, error) {
	r.mu.RLock()
	f, ok := r.factories[typeName]
	r.mu.RUnlock()

	if !ok {
		return nil, gferrors.NewValidationError("stage", "type", typeName, "unknown stage type").
			WithHint(fmt.Sprintf("registered types: %v", r.Types()))
	}
	return f(), nil
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeName]
	return ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	slices.Sort(types)
	return types
}
