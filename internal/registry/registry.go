package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/modforge/internal/tool"
)

// ErrToolNotFound is wrapped by every lookup failure.
var ErrToolNotFound = errors.New("tool not found")

// LookupError names the tool that could not be resolved.
type LookupError struct {
	Name string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %q matches neither an external tool nor a built-in action", ErrToolNotFound, e.Name)
}

// Unwrap lets errors.Is match ErrToolNotFound.
func (e *LookupError) Unwrap() error { return ErrToolNotFound }

// Tier tells which lookup tier resolved a name.
type Tier int

const (
	// External tools are separate programs.
	External Tier = iota + 1
	// BuiltIn actions run in process.
	BuiltIn
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case External:
		return "external"
	case BuiltIn:
		return "built-in"
	}
	return "none"
}

// Finder locates external tools that were not registered explicitly.
type Finder interface {
	Find(name string) (tool.Tool, bool)
}

// Registry resolves tool names for a single application instance. It is
// read-only once execution starts and safe for concurrent lookups then.
type Registry struct {
	tools   map[string]tool.Tool
	finder  Finder
	actions map[string]tool.Tool
}

// New creates a registry. finder may be nil.
func New(finder Finder) *Registry {
	return &Registry{
		tools:   make(map[string]tool.Tool),
		finder:  finder,
		actions: make(map[string]tool.Tool),
	}
}

// RegisterTool registers an external tool under name.
func (r *Registry) RegisterTool(name string, t tool.Tool) {
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool with name '%s' already registered", name))
	}
	slog.Debug("Registering external tool.", "name", name)
	r.tools[name] = t
}

// RegisterAction registers a built-in action under name.
func (r *Registry) RegisterAction(name string, t tool.Tool) {
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("built-in action with name '%s' already registered", name))
	}
	slog.Debug("Registering built-in action.", "name", name)
	r.actions[name] = t
}

// Lookup resolves name, external tier first.
func (r *Registry) Lookup(name string) (tool.Tool, Tier, error) {
	if t, ok := r.tools[name]; ok {
		return t, External, nil
	}
	if r.finder != nil {
		if t, ok := r.finder.Find(name); ok {
			return t, External, nil
		}
	}
	if t, ok := r.actions[name]; ok {
		return t, BuiltIn, nil
	}
	return nil, 0, &LookupError{Name: name}
}

// Invoke resolves name and runs the tool. It is the Tool contract in its
// name-addressed form.
func (r *Registry) Invoke(ctx context.Context, name string, args []string) (tool.Result, error) {
	t, _, err := r.Lookup(name)
	if err != nil {
		return tool.Result{}, err
	}
	return t.Invoke(ctx, args)
}

// Actions returns the names of all built-in actions, sorted.
func (r *Registry) Actions() []string {
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
