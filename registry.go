package defender

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps schema names to schemas for the life of the process.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	order   []string
	opts    []Option
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry. opts are applied to every schema it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		schemas: map[string]*Schema{},
		opts:    opts,
		logger:  buildOptions(opts).logger,
	}
}

// Create registers a new unlocked schema. It fails with duplicate_schema when
// name is taken. opts are applied after the registry's own options.
func (r *Registry) Create(name string, opts ...Option) (*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[name]; ok {
		return nil, issueAt(CodeDuplicateSchema, name)
	}
	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)
	s := NewSchema(name, all...)
	r.schemas[name] = s
	r.order = append(r.order, name)
	r.logger.Debug().Str("schema", name).Msg("schema created")
	return s, nil
}

// Get returns the schema registered under name, or schema_not_found.
func (r *Registry) Get(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, issueAt(CodeSchemaNotFound, name)
	}
	return s, nil
}

// Names returns the registered schema names in creation order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by Create and Get.
func DefaultRegistry() *Registry { return defaultRegistry }

// Create registers a schema in the process-wide registry.
func Create(name string, opts ...Option) (*Schema, error) {
	return defaultRegistry.Create(name, opts...)
}

// Get looks up a schema in the process-wide registry.
func Get(name string) (*Schema, error) { return defaultRegistry.Get(name) }
