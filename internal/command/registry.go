package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages command registration by name. One command may be
// registered under several names; all of them dispatch to the same
// instance.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register adds a command under its canonical name plus any aliases.
// Later registrations replace earlier ones for the same name.
func (r *Registry) Register(cmd Command, aliases ...string) {
	if cmd == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cmds[cmd.Name()] = cmd
	for _, alias := range aliases {
		if alias != "" {
			r.cmds[alias] = cmd
		}
	}
}

// Unregister removes the command registered under a name. Other names
// pointing at the same command are untouched.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cmds, name)
}

// Get returns the command registered under a name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.cmds[name]
	return cmd, ok
}

// Has reports whether a command is registered under the name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cmds[name]
	return ok
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered names.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cmds)
}

// Execute dispatches a request to the command registered under name.
func (r *Registry) Execute(ctx context.Context, name string, req Request) Result {
	cmd, ok := r.Get(name)
	if !ok {
		return Result{Status: StatusError, Err: fmt.Errorf("%w: %s", ErrUnknownCommand, name)}
	}
	return cmd.Execute(ctx, req)
}
