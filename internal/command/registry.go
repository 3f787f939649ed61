package command

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

// Factory builds a fresh command instance.
type Factory func() Command

// Registry maps command kinds to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering a kind twice is an error.
func (r *Registry) Register(kind string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("command kind %q already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// MustRegister is Register for init-time wiring.
func (r *Registry) MustRegister(kind string, f Factory) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// New builds a command of the given kind.
func (r *Registry) New(kind string) (Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	if !ok {
		return nil, core.ErrValidation(core.CodeUnknownKind,
			fmt.Sprintf("unknown command kind %q", kind)).WithDetail("known", r.kindsLocked())
	}
	return f(), nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kindsLocked()
}

func (r *Registry) kindsLocked() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
