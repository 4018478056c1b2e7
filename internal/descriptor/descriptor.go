// Package descriptor reads module descriptors, both the declaration form
// (module-info.java) and the compiled form (module-info.class).
package descriptor

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

const (
	// SourceFile is the file name of a module declaration.
	SourceFile = "module-info.java"
	// ClassFile is the file name of a compiled module descriptor.
	ClassFile = "module-info.class"

	// implicit is required by every module and never listed in Requires.
	implicit = "java.base"
)

// ErrNoModule is returned when the input holds no module declaration.
var ErrNoModule = errors.New("no module declaration found")

// Module is what a descriptor says about a module.
type Module struct {
	Name string
	Open bool
	// Requires is sorted and free of duplicates.
	Requires []string
}

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	moduleDecl   = regexp.MustCompile(`(?:^|[\s;}])(open\s+)?module\s+([A-Za-z_$][\w$.]*)\s*\{`)
	requiresDecl = regexp.MustCompile(`\brequires\s+(?:(?:transitive|static)\s+)*([A-Za-z_$][\w$.]*)\s*;`)
)

// ParseSource parses a module declaration.
func ParseSource(src []byte) (Module, error) {
	text := blockComment.ReplaceAll(src, nil)
	text = lineComment.ReplaceAll(text, nil)

	m := moduleDecl.FindSubmatch(text)
	if m == nil {
		return Module{}, ErrNoModule
	}
	mod := Module{Name: string(m[2]), Open: len(m[1]) > 0}
	for _, r := range requiresDecl.FindAllSubmatch(text, -1) {
		mod.Requires = append(mod.Requires, string(r[1]))
	}
	mod.Requires = normalize(mod.Requires)
	return mod, nil
}

// String renders the module in declaration syntax.
func (m Module) String() string {
	s := ""
	if m.Open {
		s = "open "
	}
	s += fmt.Sprintf("module %s {", m.Name)
	for _, r := range m.Requires {
		s += fmt.Sprintf(" requires %s;", r)
	}
	return s + " }"
}

func normalize(requires []string) []string {
	out := slices.DeleteFunc(slices.Clone(requires), func(r string) bool { return r == implicit })
	slices.Sort(out)
	return slices.Compact(out)
}
