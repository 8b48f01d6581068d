package calendar

import (
	"embed"
	"fmt"
	"sort"
	"sync"
)

//go:embed defaults/*.yaml
var defaultDefinitions embed.FS

// Registry resolves calendar names to materialized calendars.
//
// Thread-safety: Registry is safe for concurrent use. Registration replaces
// any previous calendar with the same name.
type Registry struct {
	mu        sync.RWMutex
	calendars map[string]*Calendar
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{calendars: make(map[string]*Calendar)}
}

// Register adds a calendar to the registry, replacing any existing calendar
// with the same name.
func (r *Registry) Register(c *Calendar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendars[c.Name()] = c
}

// Get returns the calendar with the given name.
func (r *Registry) Get(name string) (*Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calendars[name]
	if !ok {
		return nil, fmt.Errorf("unknown calendar %q (registered: %v)", name, r.namesLocked())
	}
	return c, nil
}

// Names returns the registered calendar names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.calendars))
	for name := range r.calendars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the process-wide registry populated from the embedded
// calendar definitions. The registry is built once on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = loadEmbedded()
	})
	if defaultErr != nil {
		// Embedded definitions are part of the build; a decode failure
		// is a packaging bug, not a runtime condition.
		panic(fmt.Sprintf("calendar: embedded definitions are invalid: %v", defaultErr))
	}
	return defaultRegistry
}

// Get resolves a calendar from the default registry.
func Get(name string) (*Calendar, error) {
	return Default().Get(name)
}

func loadEmbedded() (*Registry, error) {
	entries, err := defaultDefinitions.ReadDir("defaults")
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, entry := range entries {
		data, err := defaultDefinitions.ReadFile("defaults/" + entry.Name())
		if err != nil {
			return nil, err
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		cal, err := def.Build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		reg.Register(cal)
	}
	return reg, nil
}
