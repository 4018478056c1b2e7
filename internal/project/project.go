// Package project holds the immutable model of what gets built: a project,
// its realms and their modules. Values are created through validating
// constructors and never change afterwards.
package project

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/vk/modforge/internal/descriptor"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/version"
)

// Errors returned by the constructors.
var (
	ErrDuplicateModule = errors.New("duplicate module")
	ErrDuplicateRealm  = errors.New("duplicate realm")
	ErrRealmCycle      = errors.New("realm dependency cycle")
	ErrUndeclaredRealm = errors.New("realm dependency not declared before use")
)

// Module is a single module of a realm.
type Module struct {
	Name string
	// Dir is the module's source directory relative to the source root.
	Dir        string
	Descriptor descriptor.Module
	// Releases lists the overlay versions of a multi-release module in
	// ascending numeric order. It is empty for regular modules.
	Releases []int
}

// MultiRelease reports whether the module is built from version overlays.
func (m Module) MultiRelease() bool {
	return len(m.Releases) > 0
}

// Realm is a named source scope with its own modules.
type Realm struct {
	name      string
	path      string
	modules   map[string]Module
	templates []string
	deps      []*Realm
}

// NewRealm validates and creates a realm. Dependencies must be complete
// realms already; a realm can neither depend on itself nor close a cycle.
func NewRealm(name, path string, modules []Module, templates []string, deps ...*Realm) (*Realm, error) {
	if name == "" {
		return nil, errors.New("realm name must not be empty")
	}
	r := &Realm{
		name:      name,
		path:      path,
		modules:   make(map[string]Module, len(modules)),
		templates: slices.Clone(templates),
		deps:      slices.Clone(deps),
	}
	for _, m := range modules {
		if m.Name == "" {
			return nil, fmt.Errorf("realm %s: module name must not be empty", name)
		}
		if _, dup := r.modules[m.Name]; dup {
			return nil, fmt.Errorf("realm %s: %w: %s", name, ErrDuplicateModule, m.Name)
		}
		m.Releases = slices.Clone(m.Releases)
		slices.Sort(m.Releases)
		r.modules[m.Name] = m
	}
	for _, d := range deps {
		if d == nil {
			return nil, fmt.Errorf("realm %s: nil dependency", name)
		}
	}
	if slices.ContainsFunc(r.closure(), func(d *Realm) bool { return d.name == name }) {
		return nil, fmt.Errorf("realm %s: %w", name, ErrRealmCycle)
	}
	return r, nil
}

// Name returns the realm name.
func (r *Realm) Name() string { return r.name }

// Path returns the logical subpath tag used in output directories.
func (r *Realm) Path() string { return r.path }

// Dependencies returns the realms this realm directly depends on.
func (r *Realm) Dependencies() []*Realm { return slices.Clone(r.deps) }

// Templates returns the module source path templates.
func (r *Realm) Templates() []string { return slices.Clone(r.templates) }

// Empty reports whether the realm declares no modules.
func (r *Realm) Empty() bool { return len(r.modules) == 0 }

// Module looks a module up by name.
func (r *Realm) Module(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Modules returns every module sorted by name.
func (r *Realm) Modules() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Module) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// ModuleNames returns every module name, sorted.
func (r *Realm) ModuleNames() []string {
	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ModuleSourcePath joins the templates with ${MODULE} replaced by "*" and
// ${REALM} by the realm's path tag.
func (r *Realm) ModuleSourcePath() string {
	parts := make([]string, len(r.templates))
	for i, t := range r.templates {
		t = strings.ReplaceAll(t, layout.ModulePlaceholder, "*")
		parts[i] = strings.ReplaceAll(t, layout.RealmPlaceholder, r.path)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// ModuleSourceDirs resolves the templates for one module.
func (r *Realm) ModuleSourceDirs(module string) []string {
	dirs := make([]string, len(r.templates))
	for i, t := range r.templates {
		t = strings.ReplaceAll(t, layout.ModulePlaceholder, module)
		dirs[i] = strings.ReplaceAll(t, layout.RealmPlaceholder, r.path)
	}
	return dirs
}

// ModulePath joins the packaged module directories of every realm this realm
// depends on, directly or not, nearest first. It is empty for a realm
// without dependencies.
func (r *Realm) ModulePath(f folder.Folder) string {
	var parts []string
	for _, d := range r.closure() {
		parts = append(parts, f.Modules(d.path))
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// closure lists all transitive dependencies, breadth first, without repeats.
func (r *Realm) closure() []*Realm {
	var out []*Realm
	seen := map[*Realm]bool{}
	queue := slices.Clone(r.deps)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
		queue = append(queue, d.deps...)
	}
	return out
}

// String returns the realm name.
func (r *Realm) String() string { return r.name }

// Project is the immutable description of a build.
type Project struct {
	name    string
	version version.Version
	layout  layout.Layout
	realms  []*Realm
}

// NewProject validates and creates a project. Realms are given leaves first:
// every dependency of a realm must appear earlier in the list.
func NewProject(name string, v version.Version, l layout.Layout, realms ...*Realm) (*Project, error) {
	if name == "" {
		return nil, errors.New("project name must not be empty")
	}
	if v.IsZero() {
		return nil, errors.New("project version must be set")
	}
	seen := map[string]*Realm{}
	for _, r := range realms {
		if r == nil {
			return nil, errors.New("nil realm")
		}
		if _, dup := seen[r.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRealm, r.name)
		}
		for _, d := range r.deps {
			if seen[d.name] != d {
				return nil, fmt.Errorf("realm %s depends on %s: %w", r.name, d.name, ErrUndeclaredRealm)
			}
		}
		seen[r.name] = r
	}
	return &Project{name: name, version: v, layout: l, realms: slices.Clone(realms)}, nil
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Version returns the project version.
func (p *Project) Version() version.Version { return p.version }

// Layout returns the layout the project was built from.
func (p *Project) Layout() layout.Layout { return p.layout }

// Realms returns the realms in declaration order.
func (p *Project) Realms() []*Realm { return slices.Clone(p.realms) }

// Realm looks a realm up by name.
func (p *Project) Realm(name string) (*Realm, bool) {
	for _, r := range p.realms {
		if r.name == name {
			return r, true
		}
	}
	return nil, false
}

// Archive returns the archive file name of a module for this project's
// version, with an optional classifier such as "sources".
func (p *Project) Archive(module, classifier string) string {
	name := module + "-" + p.version.String()
	if classifier != "" {
		name += "-" + classifier
	}
	return name + ".jar"
}
