package predicate

import (
	"errors"
	"sort"
	"sync"
)

// Registry defines the interface for storing and retrieving
// named predicates.
type Registry interface {
	// Register adds a predicate built from a name, description
	// and test function.
	Register(name, description string, test Func) error

	// RegisterPredicate adds a fully built predicate.
	RegisterPredicate(p *Predicate) error

	// Lookup retrieves a predicate by name.
	Lookup(name string) (*Predicate, error)

	// Has reports whether a predicate is registered.
	Has(name string) bool

	// Names returns all registered names sorted ascending.
	Names() []string

	// List returns all registered predicates sorted by name.
	List() []*Predicate

	// Count returns the number of registered predicates.
	Count() int
}

// DefaultRegistry is the standard Registry implementation. It is
// safe for concurrent use.
type DefaultRegistry struct {
	mu         sync.RWMutex
	predicates map[string]*Predicate
}

// NewRegistry creates a new, empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		predicates: make(map[string]*Predicate),
	}
}

// NewBuiltinRegistry creates a DefaultRegistry with every
// built-in predicate pre-registered.
func NewBuiltinRegistry() *DefaultRegistry {
	r := NewRegistry()
	for _, p := range Builtins() {
		r.predicates[p.Name] = p
	}
	return r
}

// Register adds a predicate to the registry. Returns a
// *DuplicateNameError if the name is already registered; the
// existing predicate is left in place.
func (r *DefaultRegistry) Register(
	name, description string,
	test Func,
) error {
	return r.RegisterPredicate(&Predicate{
		Name:        name,
		Description: description,
		Test:        test,
	})
}

// RegisterPredicate adds p to the registry under p.Name.
func (r *DefaultRegistry) RegisterPredicate(p *Predicate) error {
	if p == nil || p.Name == "" {
		return errors.New("predicate name is required")
	}
	if p.Test == nil {
		return errors.New(
			"predicate " + p.Name + " has no test function",
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.predicates[p.Name]; exists {
		return &DuplicateNameError{Name: p.Name}
	}

	r.predicates[p.Name] = p
	return nil
}

// Lookup retrieves a predicate by name. Repeated lookups return
// the same *Predicate.
func (r *DefaultRegistry) Lookup(name string) (*Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.predicates[name]
	if !exists {
		return nil, &NotFoundError{Name: name}
	}
	return p, nil
}

// Has reports whether name is registered.
func (r *DefaultRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.predicates[name]
	return exists
}

// Names returns all registered predicate names sorted ascending.
func (r *DefaultRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// List returns all registered predicates sorted by name.
func (r *DefaultRegistry) List() []*Predicate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Predicate, 0, len(r.predicates))
	for _, p := range r.predicates {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Count returns the number of registered predicates.
func (r *DefaultRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.predicates)
}
