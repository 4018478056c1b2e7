// Package layout recognizes the directory conventions a project may follow
// and discovers the modules of each realm without any configuration.
//
// Two conventions are known:
//
//	default: src/<module>/<realm>/java/module-info.java  (realms main and test)
//	flat:    src/<module>/module-info.java                (single realm)
//
// A module directory that holds java-<N> overlay directories instead of a
// descriptor of its own is a multi-release module. Flat modules keep their
// overlays directly below the module directory (src/<module>/java-<N>);
// nested realms keep them beside the java directory (src/<module>/<realm>/java-<N>).
package layout

import (
	"fmt"
	"regexp"
	"strings"
)

// Layout is a closed enumeration of directory conventions.
type Layout int

const (
	// Unknown means no convention could be determined.
	Unknown Layout = iota
	// Default nests realms below each module: <module>/<realm>/(java|module).
	Default
	// Flat keeps every module in a single directory: <module>.
	Flat
)

// All lists every concrete layout in classification order.
var All = []Layout{Default, Flat}

const (
	// ModulePlaceholder is replaced by a module name in path templates.
	ModulePlaceholder = "${MODULE}"
	// RealmPlaceholder is replaced by a realm's path tag in path templates.
	RealmPlaceholder = "${REALM}"
)

// Convention describes one realm a layout defines.
type Convention struct {
	Name string
	// Path is the logical subpath tag substituted for ${REALM}.
	Path string
	// Templates are module source path templates relative to the source root.
	Templates []string
	// Requires names realms that must be built before this one.
	Requires []string
}

type variant struct {
	name     string
	segments int
	pattern  *regexp.Regexp
	realms   []Convention
}

var variants = map[Layout]variant{
	Default: {
		name:     "default",
		segments: 3,
		pattern:  regexp.MustCompile(`^[^/]+/[^/]+/(java|module)$`),
		realms: []Convention{
			{
				Name:      "main",
				Path:      "main",
				Templates: []string{ModulePlaceholder + "/" + RealmPlaceholder + "/java"},
			},
			{
				Name: "test",
				Path: "test",
				Templates: []string{
					ModulePlaceholder + "/" + RealmPlaceholder + "/java",
					ModulePlaceholder + "/" + RealmPlaceholder + "/module",
				},
				Requires: []string{"main"},
			},
		},
	},
	Flat: {
		name:     "flat",
		segments: 1,
		pattern:  regexp.MustCompile(`^[^/]+$`),
		realms: []Convention{
			{Name: "main", Path: "", Templates: []string{ModulePlaceholder}},
		},
	},
}

// Parse maps a layout name to its value. "jigsaw" is accepted as an alias of
// the flat layout.
func Parse(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "default", "nested":
		return Default, nil
	case "flat", "jigsaw":
		return Flat, nil
	}
	return Unknown, fmt.Errorf("unknown layout %q: must be 'default' or 'flat'", name)
}

// String returns the layout name.
func (l Layout) String() string {
	if v, ok := variants[l]; ok {
		return v.name
	}
	return "unknown"
}

// Matches reports whether a descriptor directory, relative to the source root
// and slash separated, follows this layout.
func (l Layout) Matches(rel string) bool {
	_, ok := l.reading(rel)
	return ok
}

// reading returns the form of rel this layout accepts. Overlay directories
// are tried without their overlay segment and with it renamed to "java".
func (l Layout) reading(rel string) (string, bool) {
	v, ok := variants[l]
	if !ok {
		return "", false
	}
	for _, form := range forms(rel) {
		if segments(form) == v.segments && v.pattern.MatchString(form) {
			return form, true
		}
	}
	return "", false
}

// Realms returns the realm conventions of the layout in dependency order.
func (l Layout) Realms() []Convention {
	v, ok := variants[l]
	if !ok {
		return nil
	}
	out := make([]Convention, len(v.realms))
	for i, c := range v.realms {
		c.Templates = append([]string(nil), c.Templates...)
		c.Requires = append([]string(nil), c.Requires...)
		out[i] = c
	}
	return out
}

// Realm returns the named realm convention.
func (l Layout) Realm(name string) (Convention, bool) {
	for _, c := range l.Realms() {
		if c.Name == name {
			return c, true
		}
	}
	return Convention{}, false
}

var overlayDir = regexp.MustCompile(`^java-(\d+)$`)

// OverlayVersion parses a multi-release overlay directory name such as
// "java-11" and returns its version.
func OverlayVersion(name string) (int, bool) {
	m := overlayDir.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
		if n > 1<<16 {
			return 0, false
		}
	}
	return n, true
}

func forms(rel string) []string {
	parent, _, ok := splitOverlay(rel)
	if !ok {
		return []string{rel}
	}
	return []string{parent, parent + "/java"}
}

// splitOverlay splits "<dir>/java-<N>" into dir and N.
func splitOverlay(rel string) (string, int, bool) {
	i := strings.LastIndex(rel, "/")
	if i <= 0 {
		return "", 0, false
	}
	n, ok := OverlayVersion(rel[i+1:])
	if !ok {
		return "", 0, false
	}
	return rel[:i], n, true
}

func segments(rel string) int {
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
