package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/descriptor"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/fsutil"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/version"
)

// BuildError reports a filesystem failure while deriving the project model.
type BuildError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }

// Options override what Build would otherwise infer.
type Options struct {
	// Name defaults to the last segment of the base directory.
	Name string
	// Version defaults to version.Default.
	Version version.Version
	// Layout is used when set; otherwise it is detected, falling back to
	// layout.Default when detection is inconclusive.
	Layout layout.Layout
}

// Build derives the project model from the directory tree below f.
func Build(ctx context.Context, fsys afero.Fs, f folder.Folder, opts Options) (*Project, error) {
	logger := ctxlog.FromContext(ctx)

	name := opts.Name
	if name == "" {
		name = baseName(f)
	}
	v := opts.Version
	if v.IsZero() {
		v = version.MustParse(version.Default)
	}

	srcExists, err := afero.DirExists(fsys, f.Src())
	if err != nil {
		return nil, &BuildError{Op: "stat", Path: f.Src(), Err: err}
	}
	if !srcExists {
		logger.Warn("Source root does not exist, project has no modules.", "path", f.Src())
	}

	l := opts.Layout
	if l == layout.Unknown {
		detected, ok, err := layout.Detect(fsys, f.Src())
		if err != nil {
			return nil, &BuildError{Op: "scan", Path: f.Src(), Err: err}
		}
		if ok {
			l = detected
			logger.Debug("Layout detected.", "layout", l)
		} else {
			l = layout.Default
			if srcExists {
				logger.Info("No single layout matches the source tree, using default.", "layout", l)
			}
		}
	}

	built := map[string]*Realm{}
	var realms []*Realm
	for _, conv := range l.Realms() {
		hits, err := l.Find(fsys, f, conv.Name)
		if err != nil {
			return nil, &BuildError{Op: "scan", Path: f.Src(), Err: err}
		}
		modules := make([]Module, 0, len(hits))
		for _, hit := range hits {
			m, err := readModule(fsys, f, hit)
			if err != nil {
				return nil, err
			}
			modules = append(modules, m)
		}

		deps := make([]*Realm, 0, len(conv.Requires))
		for _, req := range conv.Requires {
			d, ok := built[req]
			if !ok {
				return nil, fmt.Errorf("realm %s: %w: %s", conv.Name, ErrUndeclaredRealm, req)
			}
			deps = append(deps, d)
		}

		templates := make([]string, len(conv.Templates))
		for i, t := range conv.Templates {
			templates[i] = filepath.Join(f.Src(), filepath.FromSlash(t))
		}

		r, err := NewRealm(conv.Name, conv.Path, modules, templates, deps...)
		if err != nil {
			return nil, err
		}
		logger.Debug("Realm assembled.", "realm", r.Name(), "modules", r.ModuleNames())
		built[conv.Name] = r
		realms = append(realms, r)
	}

	p, err := NewProject(name, v, l, realms...)
	if err != nil {
		return nil, err
	}
	logger.Info("Project model built.", "project", p.Name(), "version", p.Version(), "layout", p.Layout(), "realms", len(realms))
	return p, nil
}

func readModule(fsys afero.Fs, f folder.Folder, hit layout.Hit) (Module, error) {
	path := f.Src(filepath.FromSlash(hit.Descriptor))
	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Module{}, &BuildError{Op: "read", Path: path, Err: err}
	}
	desc, err := descriptor.ParseSource(src)
	if err != nil {
		return Module{}, &BuildError{Op: "parse", Path: path, Err: err}
	}
	if desc.Name != hit.Module {
		return Module{}, &BuildError{
			Op:   "parse",
			Path: path,
			Err:  fmt.Errorf("declares module %s but lives in directory of module %s", desc.Name, hit.Module),
		}
	}

	m := Module{Name: hit.Module, Dir: hit.Dir, Descriptor: desc}
	dir := f.Src(filepath.FromSlash(hit.Dir))
	hasOwn, err := afero.Exists(fsys, filepath.Join(dir, descriptor.SourceFile))
	if err != nil {
		return Module{}, &BuildError{Op: "stat", Path: dir, Err: err}
	}
	if hasOwn {
		return m, nil
	}
	subdirs, err := fsutil.Dirs(fsys, dir)
	if err != nil {
		return Module{}, &BuildError{Op: "list", Path: dir, Err: err}
	}
	for _, d := range subdirs {
		if n, ok := layout.OverlayVersion(d); ok {
			m.Releases = append(m.Releases, n)
		}
	}
	slices.Sort(m.Releases)
	return m, nil
}

func baseName(f folder.Folder) string {
	base := filepath.Base(f.Base())
	if base == "." || base == string(filepath.Separator) {
		if abs, err := filepath.Abs(f.Base()); err == nil {
			base = filepath.Base(abs)
		}
	}
	return base
}

// IsBuildError reports whether err is, or wraps, a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
