// Package folder maps a project base directory to the well-known locations
// every other package reads from or writes to.
package folder

import "path/filepath"

// Folder is a value type. Every location is a fixed function of the base
// directory, so two folders with the same base are interchangeable.
type Folder struct {
	base string
}

// New returns the folder rooted at base. The base is cleaned but not made
// absolute; callers decide whether relative paths are acceptable.
func New(base string) Folder {
	if base == "" {
		base = "."
	}
	return Folder{base: filepath.Clean(base)}
}

// Base returns the project base directory joined with elem.
func (f Folder) Base(elem ...string) string {
	return filepath.Join(append([]string{f.base}, elem...)...)
}

// Src returns the source root joined with elem.
func (f Folder) Src(elem ...string) string {
	return f.Base(append([]string{"src"}, elem...)...)
}

// Lib returns the library root joined with elem.
func (f Folder) Lib(elem ...string) string {
	return f.Base(append([]string{"lib"}, elem...)...)
}

// Out returns the output root joined with elem.
func (f Folder) Out(elem ...string) string {
	return f.Base(append([]string{"out"}, elem...)...)
}

// Classes is the class output directory of a realm, out/classes/<realm>.
func (f Folder) Classes(realm string, elem ...string) string {
	return f.Out(append([]string{"classes", realm}, elem...)...)
}

// Modules is the packaged module directory of a realm, out/modules/<realm>.
func (f Folder) Modules(realm string, elem ...string) string {
	return f.Out(append([]string{"modules", realm}, elem...)...)
}

// Sources is the source archive directory of a realm, out/sources/<realm>.
func (f Folder) Sources(realm string, elem ...string) string {
	return f.Out(append([]string{"sources", realm}, elem...)...)
}

// Documentation returns out/documentation joined with elem.
func (f Folder) Documentation(elem ...string) string {
	return f.Out(append([]string{"documentation"}, elem...)...)
}

// Summary is the location of the run summary document.
func (f Folder) Summary() string {
	return f.Out("summary.md")
}

// String returns the base directory.
func (f Folder) String() string {
	return f.base
}
