package types

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vtable/vtable/internal/errs"
)

type entry struct {
	name string // canonical (short) name
	ctor Constructor
}

// Registry maps type names to constructors and caches constructed instances
// by (canonical type name, canonical option). It is built once at startup and
// passed to the components that resolve types.
type Registry struct {
	mu        sync.Mutex
	ctors     map[string]entry
	instances map[string]ValueType
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors:     make(map[string]entry),
		instances: make(map[string]ValueType),
	}
}

// Register adds ctor under name and every alias. Registering a name twice is an error.
func (r *Registry) Register(name string, ctor Constructor, aliases ...string) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("registering type: empty name")
	}
	if ctor == nil {
		return fmt.Errorf("registering type %s: nil constructor", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{name}, aliases...)
	for i, k := range keys {
		k = normalizeName(k)
		keys[i] = k
		if _, ok := r.ctors[k]; ok {
			return fmt.Errorf("registering type %s: name %q already registered", name, k)
		}
	}
	for _, k := range keys {
		r.ctors[k] = entry{name: name, ctor: ctor}
	}
	return nil
}

// Resolve returns the constructor registered under name.
func (r *Registry) Resolve(name string) (Constructor, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.ctor, nil
}

// CanonicalName returns the short name name resolves to.
func (r *Registry) CanonicalName(name string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

// Instance returns the cached ValueType for (typeName, option), constructing it
// on first use. Option order and the alias used to name the type do not affect
// the cache key. Failed constructions are not cached.
func (r *Registry) Instance(typeName string, option map[string]any) (ValueType, error) {
	e, err := r.lookup(typeName)
	if err != nil {
		return nil, err
	}
	key := e.name + "|" + canonicalOption(option)

	r.mu.Lock()
	defer r.mu.Unlock()

	if vt, ok := r.instances[key]; ok {
		return vt, nil
	}
	vt, err := e.ctor(option)
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", e.name, err)
	}
	r.instances[key] = vt
	return vt, nil
}

// Names returns the canonical names of all registered types, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	for _, e := range r.ctors {
		if !seen[e.name] {
			seen[e.name] = true
			names = append(names, e.name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (entry, error) {
	key := normalizeName(name)

	r.mu.Lock()
	e, ok := r.ctors[key]
	r.mu.Unlock()

	if !ok {
		return entry{}, fmt.Errorf("%w: %q", errs.ErrUnknownType, name)
	}
	return e, nil
}

// normalizeName strips whitespace and the JSON quotes older descriptors
// carried around type names.
func normalizeName(name string) string {
	return strings.Trim(strings.TrimSpace(name), `"`)
}

// canonicalOption renders option as key=value pairs sorted by key.
func canonicalOption(option map[string]any) string {
	if len(option) == 0 {
		return ""
	}
	keys := make([]string, 0, len(option))
	for k := range option {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, option[k])
	}
	return strings.Join(parts, ",")
}
