// Package multirelease plans the build of modules whose sources are split
// into java-<N> overlay directories, one per target release. Every overlay is
// compiled for its own release and the results are merged into one
// versioned archive whose base entries come from the lowest overlay.
package multirelease

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/afero"
	"github.com/vk/modforge/internal/builtin"
	"github.com/vk/modforge/internal/ctxlog"
	"github.com/vk/modforge/internal/folder"
	"github.com/vk/modforge/internal/fsutil"
	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/project"
	"github.com/vk/modforge/internal/task"
	"github.com/vk/modforge/internal/tool"
)

// ModularRelease is the first release that knows about modules. Overlays
// below it are compiled as plain sources, and only the base overlay among
// them reaches the archive.
const ModularRelease = 9

// ErrNoOverlays is returned for a module without any java-<N> directory.
var ErrNoOverlays = errors.New("no release overlays")

// BaseVersion returns the lowest release among overlay directory names.
// Ordering is numeric, so java-10 sorts after java-9. Names that are not
// overlays are ignored.
func BaseVersion(names []string) (int, error) {
	var releases []int
	for _, n := range names {
		if v, ok := layout.OverlayVersion(n); ok {
			releases = append(releases, v)
		}
	}
	if len(releases) == 0 {
		return 0, ErrNoOverlays
	}
	return slices.Min(releases), nil
}

// OverlayName returns the directory name of a release overlay.
func OverlayName(release int) string {
	return "java-" + strconv.Itoa(release)
}

// Builder derives multi-release sub-plans. It only reads the file system to
// list overlay sources.
type Builder struct {
	fs      afero.Fs
	folder  folder.Folder
	project *project.Project
	feature int
}

// NewBuilder creates a builder that compiles releases up to and including
// feature.
func NewBuilder(fsys afero.Fs, f folder.Folder, p *project.Project, feature int) *Builder {
	return &Builder{fs: fsys, folder: f, project: p, feature: feature}
}

// Classes returns the output directory of one release of a module.
func (b *Builder) Classes(realm *project.Realm, module string, release int) string {
	return b.folder.Classes(realm.Path(), module, OverlayName(release))
}

// Plan returns the sequential sub-plan that compiles every overlay of m from
// its base release up to the feature release and packages the result.
func (b *Builder) Plan(ctx context.Context, realm *project.Realm, m project.Module) (*task.Plan, error) {
	logger := ctxlog.FromContext(ctx).With("module", m.Name)
	if !m.MultiRelease() {
		return nil, fmt.Errorf("module %s: %w", m.Name, ErrNoOverlays)
	}
	base := slices.Min(m.Releases)
	if base > b.feature {
		return nil, fmt.Errorf("module %s: base release %d is above feature release %d", m.Name, base, b.feature)
	}

	version := b.project.Version().String()
	modules := b.folder.Modules(realm.Path())
	tasks := []task.Task{task.NewCall(builtin.CreateDirectories, modules)}
	jar := []string{
		"--create",
		"--file", b.folder.Modules(realm.Path(), b.project.Archive(m.Name, "")),
		"--module-version", version,
		"-C", b.Classes(realm, m.Name, base), ".",
	}

	for release := base; release <= b.feature; release++ {
		overlay := b.folder.Src(filepath.FromSlash(m.Dir), OverlayName(release))
		exists, err := afero.DirExists(b.fs, overlay)
		if err != nil {
			return nil, fmt.Errorf("checking overlay %s: %w", overlay, err)
		}
		if !exists {
			logger.WarnContext(ctx, "Release overlay not found, skipping.", "release", release)
			continue
		}
		files, err := fsutil.FilesWithSuffix(b.fs, overlay, ".java")
		if err != nil {
			return nil, fmt.Errorf("listing sources of %s: %w", overlay, err)
		}
		if len(files) == 0 {
			logger.WarnContext(ctx, "Release overlay has no sources, skipping.", "release", release)
			continue
		}

		args := []string{"--release", strconv.Itoa(release)}
		if release >= ModularRelease {
			args = append(args, "--module-version", version)
			if mp := realm.ModulePath(b.folder); mp != "" {
				args = append(args, "--module-path", mp)
			}
			if release > base {
				args = append(args, "--patch-module", m.Name+"="+b.Classes(realm, m.Name, base))
			}
		}
		args = append(args, "-d", b.Classes(realm, m.Name, release))
		args = append(args, files...)
		tasks = append(tasks, task.NewCall(tool.Javac, args...))

		switch {
		case release == base:
		case release < ModularRelease:
			logger.WarnContext(ctx, "Overlay below first modular release is compiled but not archived.", "release", release)
		default:
			jar = append(jar, "--release", strconv.Itoa(release), "-C", b.Classes(realm, m.Name, release), ".")
		}
	}

	tasks = append(tasks, task.NewCall(builtin.Jar, jar...))
	return task.Sequence("Build multi-release module "+m.Name, tasks...), nil
}
