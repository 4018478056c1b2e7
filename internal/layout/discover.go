package layout

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/descriptor"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/fsutil"
)

// MaxDepth bounds how far below the source root descriptors are searched.
const MaxDepth = 5

// Hit is one module found by a layout for a realm.
type Hit struct {
	Module string
	// Dir is the module's source directory relative to the source root,
	// slash separated. For a multi-release module it is the directory that
	// holds the overlays.
	Dir string
	// Descriptor is the descriptor file relative to the source root.
	Descriptor string
}

// Scan returns the directory of every descriptor below root: relative to
// root, file name removed, slash separated.
func Scan(fsys afero.Fs, root string) ([]string, error) {
	files, err := fsutil.FindFiles(fsys, root, descriptor.SourceFile, MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("scanning %s for module descriptors: %w", root, err)
	}
	dirs := make([]string, 0, len(files))
	for _, file := range files {
		rel, err := relDir(root, file)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, rel)
	}
	return dirs, nil
}

// Classify picks the single layout that matches every path. It reports false
// when no path is given, when no layout matches them all, or when more than
// one does.
func Classify(paths []string) (Layout, bool) {
	if len(paths) == 0 {
		return Unknown, false
	}
	found := Unknown
	count := 0
	for _, l := range All {
		if matchesAll(l, paths) {
			found = l
			count++
		}
	}
	if count != 1 {
		return Unknown, false
	}
	return found, true
}

// Detect scans root and classifies what it finds.
func Detect(fsys afero.Fs, root string) (Layout, bool, error) {
	paths, err := Scan(fsys, root)
	if err != nil {
		return Unknown, false, err
	}
	l, ok := Classify(paths)
	return l, ok, nil
}

func matchesAll(l Layout, paths []string) bool {
	for _, p := range paths {
		if !l.Matches(p) {
			return false
		}
	}
	return true
}

// Find returns the modules of the named realm, sorted by module name. A module
// matched by several templates or overlays is reported once: the earliest
// template wins, then the lowest overlay version.
func (l Layout) Find(fsys afero.Fs, f folder.Folder, realm string) ([]Hit, error) {
	conv, ok := l.Realm(realm)
	if !ok {
		return nil, nil
	}
	patterns := make([]*regexp.Regexp, len(conv.Templates))
	for i, t := range conv.Templates {
		patterns[i] = templatePattern(t, conv.Path)
	}

	files, err := fsutil.FindFiles(fsys, f.Src(), descriptor.SourceFile, MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("scanning %s for realm %s: %w", f.Src(), realm, err)
	}

	type ranked struct {
		hit      Hit
		template int
		overlay  int
	}
	best := map[string]ranked{}
	for _, file := range files {
		rel, err := relDir(f.Src(), file)
		if err != nil {
			return nil, err
		}
		form, ok := l.reading(rel)
		if !ok {
			continue
		}
		dir, overlay, isOverlay := splitOverlay(rel)
		if !isOverlay {
			dir = rel
		}
		for i, p := range patterns {
			m := p.FindStringSubmatch(form)
			if m == nil {
				continue
			}
			candidate := ranked{
				hit:      Hit{Module: m[1], Dir: dir, Descriptor: rel + "/" + descriptor.SourceFile},
				template: i,
				overlay:  overlay,
			}
			if prev, seen := best[m[1]]; !seen || candidate.template < prev.template ||
				(candidate.template == prev.template && candidate.overlay < prev.overlay) {
				best[m[1]] = candidate
			}
			break
		}
	}

	hits := make([]Hit, 0, len(best))
	for _, r := range best {
		hits = append(hits, r.hit)
	}
	slices.SortFunc(hits, func(a, b Hit) int { return strings.Compare(a.Module, b.Module) })
	return hits, nil
}

// templatePattern turns "${MODULE}/${REALM}/java" into ^([^/]+)/main/java$.
func templatePattern(template, realmPath string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(template)
	quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta(ModulePlaceholder), `([^/]+)`)
	quoted = strings.ReplaceAll(quoted, regexp.QuoteMeta(RealmPlaceholder), regexp.QuoteMeta(realmPath))
	return regexp.MustCompile("^" + quoted + "$")
}

func relDir(root, file string) (string, error) {
	rel, err := filepath.Rel(root, filepath.Dir(file))
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", file, err)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}
