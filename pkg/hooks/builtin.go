package hooks

import (
	"context"
	"sort"
	"strings"
)

// BuiltinPrefix marks a hook command handled in-process.
const BuiltinPrefix = "builtin:"

// BuiltinHandler is an in-process hook. Its returned text is treated like
// the standard output of a command; an error is treated like a non-zero
// exit with the error message on standard error.
type BuiltinHandler interface {
	// Name returns the identifier used after "builtin:" in front matter
	Name() string
	Handle(ctx context.Context, payload Payload) (string, error)
}

// BuiltinRegistry holds registered built-in handlers
type BuiltinRegistry struct {
	handlers map[string]BuiltinHandler
}

// NewBuiltinRegistry returns a registry holding handlers.
func NewBuiltinRegistry(handlers ...BuiltinHandler) *BuiltinRegistry {
	r := &BuiltinRegistry{handlers: make(map[string]BuiltinHandler)}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Register adds a handler to the registry
func (r *BuiltinRegistry) Register(h BuiltinHandler) {
	r.handlers[h.Name()] = h
}

// Get retrieves a handler by name. The "builtin:" prefix is optional.
func (r *BuiltinRegistry) Get(name string) (BuiltinHandler, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handlers[strings.TrimPrefix(name, BuiltinPrefix)]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *BuiltinRegistry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
