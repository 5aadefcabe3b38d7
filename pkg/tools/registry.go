package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/xeipuuv/gojsonschema"
)

// Registry is a name-indexed tool lookup. Names are unique; registering a
// duplicate is an error rather than a silent overwrite.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a tool. The declared input schema is compiled eagerly so a
// malformed schema fails at registration, not mid-dispatch.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	if schema := tool.InputSchema(); schema != nil {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return fmt.Errorf("invalid input schema for tool %s: %w", name, err)
		}
		r.schemas[name] = compiled
	}

	r.tools[name] = tool
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks input against the tool's declared schema. Tools without a
// schema accept any input.
func (r *Registry) Validate(name string, input map[string]any) error {
	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return fmt.Errorf("validating input for tool %s: %w", name, err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("invalid input for tool %s: %s", name, first.String())
	}
	return nil
}

// Specs builds the tool configuration sent to the provider. It reflects the
// registry at call time; callers rebuild it whenever the tool set changes.
func (r *Registry) Specs() []provider.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]provider.ToolSpec, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		schema := tool.InputSchema()
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		specs = append(specs, provider.ToolSpec{
			Name:        name,
			Description: tool.Description(),
			InputSchema: schema,
		})
	}
	return specs
}
