package language

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownLanguage   = errors.New("unknown language")
	ErrDuplicateLanguage = errors.New("language is already registered")
)

// Loader builds a language. A registry calls it at most once.
type Loader func() (*Language, error)

type registryEntry struct {
	once sync.Once
	load Loader
	lang *Language
	err  error
}

// Registry maps names to lazily loaded languages.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[string]*registryEntry{},
	}
}

func (r *Registry) Register(name string, load Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateLanguage, name)
	}
	r.entries[name] = &registryEntry{
		load: load,
	}
	return nil
}

// Get loads a language on first use and returns the same handle afterwards. A load failure is
// remembered and returned on every call.
func (r *Registry) Get(name string) (*Language, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownLanguage, name)
	}

	e.once.Do(func() {
		e.lang, e.err = e.load()
		if e.err == nil && e.lang == nil {
			e.err = fmt.Errorf("%w: loader of %v returned nothing", ErrNoGrammar, name)
		}
	})
	return e.lang, e.err
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Register adds a language to the process-wide registry.
func Register(name string, load Loader) error {
	return defaultRegistry.Register(name, load)
}

// Get returns a language of the process-wide registry.
func Get(name string) (*Language, error) {
	return defaultRegistry.Get(name)
}

// Names lists the languages of the process-wide registry.
func Names() []string {
	return defaultRegistry.Names()
}
