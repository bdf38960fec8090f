package skills

import (
	"sync"

	"github.com/pkg/errors"
)

// Catalog is the read side of the skill registry.
type Catalog interface {
	Lookup(name string) (*Descriptor, error)
	All() []*Descriptor
}

// Registry holds skill descriptors keyed by name, preserving registration
// order. It is safe for concurrent use; startup population is expected to
// finish before readers take a Snapshot.
type Registry struct {
	mu    sync.RWMutex
	order []*Descriptor
	index map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Descriptor)}
}

// Register adds d under d.Name. An existing entry with the same name is
// kept and ErrDuplicateIdentifier is returned.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return errors.Wrap(ErrMalformedFrontMatter, "descriptor has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.index[d.Name]; ok {
		return errors.Wrapf(ErrDuplicateIdentifier, "skill '%s' already registered from %s", d.Name, existing.Path)
	}

	stored := d.Clone()
	r.index[stored.Name] = stored
	r.order = append(r.order, stored)
	return nil
}

// Unregister removes the named skill.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[name]; !ok {
		return errors.Wrapf(ErrNotFound, "skill '%s'", name)
	}
	delete(r.index, name)
	for i, d := range r.order {
		if d.Name == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Lookup returns a copy of the named descriptor.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "skill '%s'", name)
	}
	return d.Clone(), nil
}

// All returns copies of every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(r.order)
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns skill names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	for i, d := range r.order {
		names[i] = d.Name
	}
	return names
}

// Snapshot returns a read-only view of the current contents. Later changes
// to the registry are not visible through it.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{
		order: cloneAll(r.order),
		index: make(map[string]*Descriptor, len(r.order)),
	}
	for _, d := range s.order {
		s.index[d.Name] = d
	}
	return s
}

// Snapshot is an immutable Catalog. It needs no locking.
type Snapshot struct {
	order []*Descriptor
	index map[string]*Descriptor
}

// Lookup returns a copy of the named descriptor.
func (s *Snapshot) Lookup(name string) (*Descriptor, error) {
	d, ok := s.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "skill '%s'", name)
	}
	return d.Clone(), nil
}

// All returns copies of every descriptor in registration order.
func (s *Snapshot) All() []*Descriptor {
	return cloneAll(s.order)
}

// Len returns the number of skills in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.order)
}

func cloneAll(ds []*Descriptor) []*Descriptor {
	out := make([]*Descriptor, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}
